// Package patterns runs structural pattern recognizers over files and
// the types inside them. Detections feed the file aggregator: benign
// patterns (config holders, DTOs) veto god-object reporting, while
// god-object verdicts promote files to architectural debt.
package patterns

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
)

// PatternKind names a structural detection.
type PatternKind string

const (
	PatternConfig        PatternKind = "config"
	PatternDTO           PatternKind = "dto"
	PatternAggregateRoot PatternKind = "aggregate_root"
	PatternGodObject     PatternKind = "god_object"
	PatternFeatureEnvy   PatternKind = "feature_envy"
	PatternStructInit    PatternKind = "struct_init"
	PatternLongParams    PatternKind = "long_parameter_list"
	PatternPrimitives    PatternKind = "primitive_obsession"
)

// Detection is one recognized pattern with its confidence in [0, 1].
type Detection struct {
	Kind       PatternKind `json:"kind"`
	Confidence float64     `json:"confidence"`
	TypeName   string      `json:"type_name,omitempty"`
	Function   string      `json:"function,omitempty"`
	Detail     string      `json:"detail,omitempty"`
}

// Confidence levels at which benign patterns veto the god-object check.
const (
	configSkipConfidence = 0.6
	dtoSkipConfidence    = 0.7
)

// Feature-envy thresholds: external calls above the threshold with a
// low internal ratio indicate the method wants to live elsewhere.
const (
	envyExternalThreshold = 5
	envyInternalRatio     = 0.33
)

// Detector runs the pure recognizers.
type Detector struct {
	cfg *config.GodObjectConfig
}

// New creates a detector from validated configuration.
func New(cfg *config.GodObjectConfig) *Detector {
	return &Detector{cfg: cfg}
}

// FileInput bundles the evidence for one file.
type FileInput struct {
	Path      string
	Functions []*models.FunctionMetrics
	Types     []*models.TypeMetrics
	Graph     *callgraph.Graph
}

// DetectFile runs every recognizer and returns all detections.
func (d *Detector) DetectFile(in FileInput) []Detection {
	var out []Detection

	for _, typ := range in.Types {
		out = append(out, d.detectType(in.Path, typ)...)
	}
	out = append(out, d.detectFileGod(in)...)
	out = append(out, detectFeatureEnvy(in)...)
	out = append(out, detectStructInit(in.Functions)...)
	out = append(out, detectLongParams(in.Functions)...)

	return out
}

// detectType runs the type-level recognizers in veto order: a confident
// config or DTO verdict suppresses the god-object check for that type.
func (d *Detector) detectType(path string, typ *models.TypeMetrics) []Detection {
	var out []Detection

	if det, ok := detectConfig(typ); ok {
		out = append(out, det)
		if det.Confidence >= configSkipConfidence {
			return out
		}
	}
	if det, ok := detectDTO(typ); ok {
		out = append(out, det)
		if det.Confidence >= dtoSkipConfidence {
			return out
		}
	}
	if det, ok := detectPrimitiveObsession(typ); ok {
		out = append(out, det)
	}
	if det, ok := detectAggregateRoot(typ); ok {
		// Aggregate roots stay subject to the god-object check, the
		// detection only adds context.
		out = append(out, det)
	}
	if det, ok := d.detectTypeGod(path, typ); ok {
		out = append(out, det)
	}
	return out
}

// detectConfig recognizes configuration holders: config-ish name,
// factory methods, small surface, one responsibility.
func detectConfig(typ *models.TypeMetrics) (Detection, bool) {
	name := strings.ToLower(typ.Name)
	if !strings.Contains(name, "config") && !strings.Contains(name, "settings") &&
		!strings.Contains(name, "options") {
		return Detection{}, false
	}
	if typ.Fields > 10 || typ.Methods > 10 {
		return Detection{}, false
	}

	confidence := 0.5
	if hasFactoryMethod(typ.MethodNames) {
		confidence += 0.3
	}
	if responsibilityCount(typ.MethodNames) <= 1 {
		confidence += 0.1
	}
	return Detection{
		Kind:       PatternConfig,
		Confidence: confidence,
		TypeName:   typ.Name,
	}, true
}

func hasFactoryMethod(names []string) bool {
	for _, n := range names {
		switch strings.ToLower(n) {
		case "strict", "balanced", "lenient", "default", "new":
			return true
		}
	}
	return false
}

// detectDTO recognizes data-transfer objects: many fields, almost no
// behavior, DTO-like suffix.
func detectDTO(typ *models.TypeMetrics) (Detection, bool) {
	if typ.Fields < 15 || typ.Methods > 3 {
		return Detection{}, false
	}
	ratio := 1.0
	if typ.Fields > 0 {
		ratio = float64(typ.Methods) / float64(typ.Fields)
	}
	if ratio >= 0.2 {
		return Detection{}, false
	}

	confidence := 0.6
	if hasDTOSuffix(typ.Name) {
		confidence += 0.2
	}
	if responsibilityCount(typ.MethodNames) <= 1 {
		confidence += 0.1
	}
	return Detection{Kind: PatternDTO, Confidence: confidence, TypeName: typ.Name}, true
}

func hasDTOSuffix(name string) bool {
	for _, s := range []string{"Dto", "DTO", "Record", "Row", "Payload", "Request", "Response", "Data"} {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// detectPrimitiveObsession recognizes wide types built almost entirely
// from primitive fields: domain concepts hiding in strings and ints.
func detectPrimitiveObsession(typ *models.TypeMetrics) (Detection, bool) {
	if typ.Fields < 8 || typ.PrimitiveFields == 0 {
		return Detection{}, false
	}
	ratio := float64(typ.PrimitiveFields) / float64(typ.Fields)
	if ratio < 0.8 {
		return Detection{}, false
	}
	return Detection{
		Kind:       PatternPrimitives,
		Confidence: 0.6 + 0.2*(ratio-0.8)/0.2,
		TypeName:   typ.Name,
	}, true
}

// detectAggregateRoot recognizes aggregate roots: cohesive single
// responsibility over a wide field set with a moderate method count.
func detectAggregateRoot(typ *models.TypeMetrics) (Detection, bool) {
	if typ.Fields < 10 || typ.Methods < 5 || typ.Methods > 20 {
		return Detection{}, false
	}
	if responsibilityCount(typ.MethodNames) > 1 {
		return Detection{}, false
	}
	return Detection{Kind: PatternAggregateRoot, Confidence: 0.7, TypeName: typ.Name}, true
}

// detectTypeGod applies the language-specific structural thresholds.
func (d *Detector) detectTypeGod(path string, typ *models.TypeMetrics) (Detection, bool) {
	th := d.cfg.ForLanguage(path)
	responsibilities := responsibilityCount(typ.MethodNames)

	exceeds := typ.Methods > th.MaxMethods &&
		typ.Fields > th.MaxFields &&
		responsibilities > th.MaxResponsibilities &&
		typ.Lines > th.MaxLines
	if !exceeds {
		return Detection{}, false
	}
	return Detection{
		Kind:       PatternGodObject,
		Confidence: 0.9,
		TypeName:   typ.Name,
		Detail:     "structural thresholds exceeded",
	}, true
}

// detectFileGod applies the file-level heuristics: a file over the LOC
// or function-count caps is a probable god module even when no single
// type trips the structural check.
func (d *Detector) detectFileGod(in FileInput) []Detection {
	totalLines := 0
	for _, fn := range in.Functions {
		totalLines += fn.Length
	}
	if totalLines <= d.cfg.HeuristicMaxLines && len(in.Functions) <= d.cfg.HeuristicMaxFunctions {
		return nil
	}
	return []Detection{{
		Kind:       PatternGodObject,
		Confidence: 0.7,
		Detail:     "heuristic: file size or function count over limit",
	}}
}

// detectFeatureEnvy counts, per function, callees in the same file
// against callees elsewhere.
func detectFeatureEnvy(in FileInput) []Detection {
	if in.Graph == nil {
		return nil
	}
	var out []Detection
	for _, fn := range in.Functions {
		internal, external := 0, 0
		for _, callee := range in.Graph.Callees(fn.ID) {
			if callee.File == fn.ID.File {
				internal++
			} else {
				external++
			}
		}
		total := internal + external
		if total == 0 || external <= envyExternalThreshold {
			continue
		}
		if float64(internal)/float64(total) < envyInternalRatio {
			out = append(out, Detection{
				Kind:       PatternFeatureEnvy,
				Confidence: 0.7,
				Function:   fn.ID.Name,
				Detail:     "calls other modules far more than its own",
			})
		}
	}
	return out
}

// detectStructInit recognizes constructors dominated by field
// assignments: long straight-line bodies with no branching.
func detectStructInit(fns []*models.FunctionMetrics) []Detection {
	var out []Detection
	for _, fn := range fns {
		if fn.Cyclomatic != 1 || fn.Length < 10 {
			continue
		}
		name := fn.ID.Name
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
		if strings.HasPrefix(name, "new") || strings.HasPrefix(name, "from_") ||
			strings.HasPrefix(name, "default") || strings.HasPrefix(name, "with_") {
			out = append(out, Detection{
				Kind:       PatternStructInit,
				Confidence: 0.6,
				Function:   fn.ID.Name,
			})
		}
	}
	return out
}

func detectLongParams(fns []*models.FunctionMetrics) []Detection {
	var out []Detection
	for _, fn := range fns {
		if fn.ParamCount >= 6 {
			out = append(out, Detection{
				Kind:       PatternLongParams,
				Confidence: 0.8,
				Function:   fn.ID.Name,
			})
		}
	}
	return out
}

// responsibilityCount clusters method names by their leading verb. Two
// or more members make a cluster; a type whose methods fall into many
// clusters serves many masters.
func responsibilityCount(methodNames []string) int {
	if len(methodNames) == 0 {
		return 1
	}
	clusters := make(map[string]int)
	for _, n := range methodNames {
		clusters[leadingVerb(n)]++
	}
	count := 0
	for _, size := range clusters {
		if size >= 2 {
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return count
}

func leadingVerb(name string) string {
	name = strings.ToLower(name)
	if i := strings.IndexAny(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

// GodObjectAnalysis builds the file-level god-object verdict used by
// the aggregator, combining structural type checks with the heuristics.
func (d *Detector) GodObjectAnalysis(in FileInput) *models.GodObjectAnalysis {
	detections := d.DetectFile(in)

	totalLines := 0
	for _, fn := range in.Functions {
		totalLines += fn.Length
	}

	var godType *models.TypeMetrics
	vetoed := make(map[string]struct{})
	for _, det := range detections {
		switch det.Kind {
		case PatternConfig:
			if det.Confidence >= configSkipConfidence {
				vetoed[det.TypeName] = struct{}{}
			}
		case PatternDTO:
			if det.Confidence >= dtoSkipConfidence {
				vetoed[det.TypeName] = struct{}{}
			}
		}
	}
	for _, det := range detections {
		if det.Kind != PatternGodObject || det.TypeName == "" {
			continue
		}
		if _, skip := vetoed[det.TypeName]; skip {
			continue
		}
		for _, typ := range in.Types {
			if typ.Name == det.TypeName {
				godType = typ
			}
		}
	}

	heuristic := totalLines > d.cfg.HeuristicMaxLines || len(in.Functions) > d.cfg.HeuristicMaxFunctions

	analysis := &models.GodObjectAnalysis{LinesOfCode: totalLines}
	switch {
	case godType != nil:
		analysis.IsGodObject = true
		analysis.Confidence = models.GodConfidenceDefinite
		analysis.TypeName = godType.Name
		analysis.MethodCount = godType.Methods
		analysis.FieldCount = godType.Fields
		analysis.Responsibilities = responsibilityCount(godType.MethodNames)
		analysis.Score = godObjectScore(godType.Methods, godType.Fields, analysis.Responsibilities, godType.Lines)
	case heuristic:
		analysis.IsGodObject = true
		analysis.Confidence = models.GodConfidenceProbable
		analysis.MethodCount = len(in.Functions)
		analysis.Responsibilities = fileResponsibilities(in.Functions)
		analysis.Score = godObjectScore(len(in.Functions), 0, analysis.Responsibilities, totalLines)
	default:
		analysis.Confidence = models.GodConfidenceNot
	}
	return analysis
}

// godObjectScore maps structural excess onto [0, 100].
func godObjectScore(methods, fields, responsibilities, lines int) float64 {
	score := float64(methods)*1.2 + float64(fields)*0.8 +
		float64(responsibilities)*5 + float64(lines)/50
	if score > 100 {
		score = 100
	}
	return models.RoundScore(score)
}

func fileResponsibilities(fns []*models.FunctionMetrics) int {
	names := make([]string, 0, len(fns))
	for _, fn := range fns {
		names = append(names, fn.ID.Name)
	}
	sort.Strings(names)
	return responsibilityCount(names)
}

// Language returns a short language tag for a path, used in reports.
func Language(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rs":
		return "rust"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	default:
		return "unknown"
	}
}

// Package unified orchestrates the debt analysis pipeline in three
// phases: graph fan-out, parallel function scoring, and parallel file
// analysis, then finalizes the merged, sorted, frozen analysis.
package unified

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panbanda/arrears/pkg/analyzer"
	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/analyzer/classify"
	"github.com/panbanda/arrears/pkg/analyzer/dataflow"
	"github.com/panbanda/arrears/pkg/analyzer/debtagg"
	"github.com/panbanda/arrears/pkg/analyzer/fileagg"
	"github.com/panbanda/arrears/pkg/analyzer/scoring"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/coverage"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/panbanda/arrears/pkg/risk"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// PhaseTimings records wall-clock duration per pipeline phase.
type PhaseTimings struct {
	DataFlow         time.Duration `json:"data_flow"`
	Purity           time.Duration `json:"purity"`
	TestDetection    time.Duration `json:"test_detection"`
	DebtAggregation  time.Duration `json:"debt_aggregation"`
	FunctionAnalysis time.Duration `json:"function_analysis"`
	FileAnalysis     time.Duration `json:"file_analysis"`
	Finalize         time.Duration `json:"finalize"`
	Total            time.Duration `json:"total"`
}

// Analysis is the frozen top-level result shared with all renderers.
type Analysis struct {
	Items     []models.UnifiedDebtItem `json:"items"`
	FileItems []models.FileDebtItem    `json:"file_items"`

	CallGraph *callgraph.Graph `json:"-"`
	DataFlow  *dataflow.Graph  `json:"-"`

	TotalDebtScore   float64      `json:"total_debt_score"`
	DebtDensity      float64      `json:"debt_density"`
	TotalLinesOfCode int          `json:"total_lines_of_code"`
	OverallCoverage  *float64     `json:"overall_coverage,omitempty"`
	HasCoverageData  bool         `json:"has_coverage_data"`
	Timings          PhaseTimings `json:"timings"`
}

// ProgressSink receives best-effort progress updates. Sinks must be
// fast and non-blocking; a nil sink is valid and never stalls the
// pipeline.
type ProgressSink func(phase string, completed, total int)

// Options configures the orchestrator.
type Options struct {
	Jobs      int
	SkipTests bool
}

// Builder drives the pipeline. One builder per run.
type Builder struct {
	cfg     *config.Config
	graph   *callgraph.Graph
	options Options

	coverage coverage.Lookup
	risks    risk.Analyzer
	purity   dataflow.PuritySource
	sink     ProgressSink
	log      *zap.Logger

	timings PhaseTimings
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithCoverage supplies the optional coverage lookup.
func WithCoverage(lookup coverage.Lookup) BuilderOption {
	return func(b *Builder) { b.coverage = lookup }
}

// WithRiskAnalyzer supplies the optional contextual risk provider.
func WithRiskAnalyzer(r risk.Analyzer) BuilderOption {
	return func(b *Builder) { b.risks = r }
}

// WithPuritySource supplies full purity re-analysis from source.
func WithPuritySource(p dataflow.PuritySource) BuilderOption {
	return func(b *Builder) { b.purity = p }
}

// WithProgress supplies the progress sink.
func WithProgress(sink ProgressSink) BuilderOption {
	return func(b *Builder) { b.sink = sink }
}

// WithLogger supplies a structured logger for pipeline diagnostics.
func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

// NewBuilder creates a builder over a constructed call graph.
func NewBuilder(cfg *config.Config, graph *callgraph.Graph, options Options, opts ...BuilderOption) *Builder {
	b := &Builder{
		cfg:     cfg,
		graph:   graph,
		options: options,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// phase1Result carries the four fan-out outputs.
type phase1Result struct {
	flow       *dataflow.Graph
	purityMap  map[models.FunctionID]bool
	testOnly   map[models.FunctionID]struct{}
	aggregator *debtagg.Aggregator
}

// Run executes all phases and finalizes the analysis.
func (b *Builder) Run(ctx context.Context, metrics []*models.FunctionMetrics, markers []models.DebtMarker) (*Analysis, error) {
	started := time.Now()

	p1, err := b.executePhase1(ctx, metrics, markers)
	if err != nil {
		return nil, err
	}
	items, err := b.executePhase2(ctx, metrics, p1)
	if err != nil {
		return nil, err
	}
	fileItems, err := b.executePhase3(ctx, metrics, items)
	if err != nil {
		return nil, err
	}

	analysis := b.finalize(items, fileItems, metrics, p1)
	b.timings.Total = time.Since(started)
	analysis.Timings = b.timings

	b.log.Debug("analysis complete",
		zap.Int("items", len(analysis.Items)),
		zap.Int("file_items", len(analysis.FileItems)),
		zap.Duration("total", b.timings.Total))
	return analysis, nil
}

// executePhase1 runs the four fan-out tasks under a scoped wait group:
// data-flow build, purity map, test reachability, debt aggregation.
// Each task writes a task-local slot; the parent owns the results after
// the barrier.
func (b *Builder) executePhase1(ctx context.Context, metrics []*models.FunctionMetrics, markers []models.DebtMarker) (*phase1Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &phase1Result{}
	var mu sync.Mutex
	record := func(update func(*phase1Result), phase string, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		update(result)
		b.recordTiming(phase, d)
	}

	wg := conc.NewWaitGroup()

	wg.Go(func() {
		start := time.Now()
		flow := dataflow.Build(b.graph, metrics, b.purity, b.options.Jobs)
		flow.Freeze()
		record(func(r *phase1Result) { r.flow = flow }, "data_flow", time.Since(start))
		b.report("data_flow", 1, 4)
	})
	wg.Go(func() {
		start := time.Now()
		purityMap := make(map[models.FunctionID]bool, len(metrics))
		for _, m := range metrics {
			if m.IsPure != nil {
				purityMap[m.ID] = *m.IsPure
			}
		}
		record(func(r *phase1Result) { r.purityMap = purityMap }, "purity", time.Since(start))
		b.report("purity", 2, 4)
	})
	wg.Go(func() {
		start := time.Now()
		reach := callgraph.NewTestReachability(b.graph)
		testOnly := reach.TestOnlyFunctions()
		record(func(r *phase1Result) { r.testOnly = testOnly }, "test_detection", time.Since(start))
		b.report("test_detection", 3, 4)
	})
	wg.Go(func() {
		start := time.Now()
		agg := debtagg.New(debtagg.SpansFromMetrics(metrics))
		agg.Absorb(markers)
		record(func(r *phase1Result) { r.aggregator = agg }, "debt_aggregation", time.Since(start))
		b.report("debt_aggregation", 4, 4)
	})

	wg.Wait()
	return result, nil
}

// executePhase2 scores functions in parallel: filter predicates, then
// classify -> score -> (tier during view prep). The result is a flat
// slice; no shared mutable state across items.
func (b *Builder) executePhase2(ctx context.Context, metrics []*models.FunctionMetrics, p1 *phase1Result) ([]models.UnifiedDebtItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	classifier := classify.New(classify.WithExclusions(b.cfg.Analysis.Exclusions))
	scorer := scoring.New(&b.cfg.Scoring)
	criticality := callgraph.ComputeCriticality(b.graph)

	results := make([][]models.UnifiedDebtItem, len(metrics))
	completed := 0
	var progressMu sync.Mutex

	p := pool.New().WithMaxGoroutines(b.workers())
	for i, m := range metrics {
		p.Go(func() {
			results[i] = b.processMetric(m, p1, classifier, scorer, criticality)

			progressMu.Lock()
			completed++
			done := completed
			progressMu.Unlock()
			b.report("function_analysis", done, len(metrics))
		})
	}
	p.Wait()

	var items []models.UnifiedDebtItem
	for _, r := range results {
		items = append(items, r...)
	}
	b.timings.FunctionAnalysis = time.Since(start)
	return items, nil
}

// processMetric runs the filter predicates and transforms one metric
// into zero or more debt items.
func (b *Builder) processMetric(
	m *models.FunctionMetrics,
	p1 *phase1Result,
	classifier *classify.Classifier,
	scorer *scoring.Scorer,
	criticality *callgraph.Criticality,
) []models.UnifiedDebtItem {
	if !b.shouldProcess(m, p1.testOnly) {
		return nil
	}

	role := classify.DetectRole(m, b.graph, p1.flow, b.cfg.Analysis.Exclusions)
	cov := b.functionCoverage(m)
	var functionRisk *models.ContextualRisk
	if b.risks != nil {
		functionRisk = b.risks.FunctionRisk(m.ID.File, m.ID.Name)
	}

	debts := classifier.Classify(classify.Input{
		Metrics:  m,
		Graph:    b.graph,
		Flow:     p1.flow,
		Counts:   p1.aggregator.Counts(m.ID),
		Role:     role,
		Coverage: cov,
		Risk:     functionRisk,
	})
	if len(debts) == 0 {
		return nil
	}

	upstream := b.graph.Callers(m.ID)
	downstream := b.graph.Callees(m.ID)
	ctxMult := scoring.DetectFileContext(m.ID.File).Multiplier()

	items := make([]models.UnifiedDebtItem, 0, len(debts))
	for _, debt := range debts {
		score := scorer.Score(scoring.Input{
			Metrics:           m,
			Role:              role,
			Coverage:          cov,
			Upstream:          len(upstream),
			Downstream:        len(downstream),
			Criticality:       criticality.Score(m.ID),
			ContextMultiplier: ctxMult,
		})
		item := models.UnifiedDebtItem{
			Location:        m.ID,
			Debt:            debt,
			Score:           score,
			Role:            role,
			Cyclomatic:      m.Cyclomatic,
			Cognitive:       m.Cognitive,
			Nesting:         m.Nesting,
			Length:          m.Length,
			UpstreamCount:   len(upstream),
			DownstreamCount: len(downstream),
			UpstreamNames:   neighborNames(upstream),
			DownstreamNames: neighborNames(downstream),
			Risk:            functionRisk,
		}
		if cov != nil {
			item.Coverage = &models.TransitiveCoverage{Direct: *cov, Transitive: *cov}
		}
		items = append(items, item)
	}
	return items
}

// shouldProcess applies the phase 2 filter predicates: skip tests when
// configured, skip closures, skip test-only functions, skip trivial
// functions.
func (b *Builder) shouldProcess(m *models.FunctionMetrics, testOnly map[models.FunctionID]struct{}) bool {
	if b.options.SkipTests && (m.IsTest || m.InTestModule) {
		return false
	}
	if isClosure(m) {
		return false
	}
	if _, only := testOnly[m.ID]; only {
		// Test-only code surfaces through TestComplexityHotspot on the
		// test side, not through production scoring.
		return false
	}
	if isTrivial(m, b.graph.CalleeCount(m.ID)) {
		return false
	}
	return true
}

func isClosure(m *models.FunctionMetrics) bool {
	return strings.Contains(m.ID.Name, "<closure@")
}

func isTrivial(m *models.FunctionMetrics, calleeCount int) bool {
	return m.Cyclomatic == 1 && m.Cognitive == 0 && m.Length <= 3 && calleeCount == 1
}

func (b *Builder) functionCoverage(m *models.FunctionMetrics) *float64 {
	if b.coverage == nil {
		return nil
	}
	return b.coverage.FunctionCoverage(m.ID.File, m.ID.Line, m.EndLine())
}

func neighborNames(ids []models.FunctionID) []string {
	const maxNames = 5
	if len(ids) == 0 {
		return nil
	}
	n := len(ids)
	if n > maxNames {
		n = maxNames
	}
	names := make([]string, 0, n)
	for _, id := range ids[:n] {
		names = append(names, id.Name)
	}
	return names
}

// executePhase3 groups functions by file and analyzes each file in
// parallel. It consumes raw metrics, so it does not wait on phase 2
// semantics beyond item attachment.
func (b *Builder) executePhase3(ctx context.Context, metrics []*models.FunctionMetrics, items []models.UnifiedDebtItem) ([]models.FileDebtItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	byFile := make(map[string][]*models.FunctionMetrics)
	for _, m := range metrics {
		byFile[m.ID.File] = append(byFile[m.ID.File], m)
	}
	itemsByFile := make(map[string][]*models.UnifiedDebtItem)
	for i := range items {
		file := items[i].Location.File
		itemsByFile[file] = append(itemsByFile[file], &items[i])
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	agg := fileagg.New(&b.cfg.GodObject)
	results := make([]*models.FileDebtItem, len(files))

	p := pool.New().WithMaxGoroutines(b.workers())
	for i, file := range files {
		p.Go(func() {
			var fileRisk *models.ContextualRisk
			if b.risks != nil {
				fileRisk = b.risks.FileRisk(file)
			}
			item, include := agg.Aggregate(fileagg.Input{
				Path:      file,
				Functions: byFile[file],
				Graph:     b.graph,
				Items:     itemsByFile[file],
				FileRisk:  fileRisk,
			})
			if include {
				results[i] = item
			}
			b.report("file_analysis", i+1, len(files))
		})
	}
	p.Wait()

	var fileItems []models.FileDebtItem
	for _, r := range results {
		if r != nil {
			fileItems = append(fileItems, *r)
		}
	}
	b.timings.FileAnalysis = time.Since(start)
	return fileItems, nil
}

// finalize merges the item streams, emits synthetic god-object items,
// sorts by priority, and computes totals. After finalize the analysis
// is frozen.
func (b *Builder) finalize(items []models.UnifiedDebtItem, fileItems []models.FileDebtItem, metrics []*models.FunctionMetrics, p1 *phase1Result) *Analysis {
	start := time.Now()

	for i := range fileItems {
		if fileItems[i].IsGodObject() {
			items = append(items, *fileagg.SyntheticGodItem(&fileItems[i]))
		}
	}

	sortItems(items)

	totalLines := 0
	for _, m := range metrics {
		totalLines += m.Length
	}
	var totalScore float64
	for i := range items {
		totalScore += items[i].Score.FinalScore
	}

	analysis := &Analysis{
		Items:            items,
		FileItems:        fileItems,
		CallGraph:        b.graph,
		DataFlow:         p1.flow,
		TotalDebtScore:   models.RoundScore(totalScore),
		TotalLinesOfCode: totalLines,
	}
	if totalLines > 0 {
		analysis.DebtDensity = models.RoundScore(totalScore / float64(totalLines) * 1000)
	}
	if b.coverage != nil {
		overall := b.coverage.OverallCoverage()
		analysis.OverallCoverage = &overall
		analysis.HasCoverageData = true
	}

	b.timings.Finalize = time.Since(start)
	return analysis
}

// sortItems restores determinism after parallel collection: score
// descending, then tier, then file path, then line.
func sortItems(items []models.UnifiedDebtItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Score.FinalScore != b.Score.FinalScore {
			return a.Score.FinalScore > b.Score.FinalScore
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		return a.Location.Line < b.Location.Line
	})
}

func (b *Builder) workers() int {
	return analyzer.Workers(b.options.Jobs)
}

func (b *Builder) report(phase string, completed, total int) {
	if b.sink != nil {
		b.sink(phase, completed, total)
	}
}

func (b *Builder) recordTiming(phase string, d time.Duration) {
	switch phase {
	case "data_flow":
		b.timings.DataFlow = d
	case "purity":
		b.timings.Purity = d
	case "test_detection":
		b.timings.TestDetection = d
	case "debt_aggregation":
		b.timings.DebtAggregation = d
	}
}

package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/arrears/pkg/models"
)

// Config holds all configuration options for arrears.
type Config struct {
	Analysis  AnalysisConfig  `koanf:"analysis" toml:"analysis"`
	Scoring   ScoringConfig   `koanf:"scoring" toml:"scoring"`
	Tiers     TierConfig      `koanf:"tiers" toml:"tiers"`
	GodObject GodObjectConfig `koanf:"god_object" toml:"god_object"`
	Markers   MarkerConfig    `koanf:"markers" toml:"markers"`
	Output    OutputConfig    `koanf:"output" toml:"output"`
}

// AnalysisConfig controls ingest and pipeline behavior.
type AnalysisConfig struct {
	// Exclusions names functions never reported as dead code
	// (entry points, framework hooks).
	Exclusions []string `koanf:"exclusions" toml:"exclusions"`

	// SkipTests drops test functions from the scoring pipeline.
	SkipTests bool `koanf:"skip_tests" toml:"skip_tests"`

	// Jobs bounds worker goroutines (0 = 2x NumCPU).
	Jobs int `koanf:"jobs" toml:"jobs"`

	// MaxFileSize bounds marker scanning in bytes (0 = no limit).
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`

	// GitRiskDays is the history window for the git risk provider.
	GitRiskDays int `koanf:"git_risk_days" toml:"git_risk_days"`
}

// ScoringWeights defines the factor weights for the unified score.
// The active weights (coverage, complexity, dependency) must sum to 1.0.
// Semantic and organization are reserved in the schema but inactive.
type ScoringWeights struct {
	Coverage     float64 `koanf:"coverage" toml:"coverage"`
	Complexity   float64 `koanf:"complexity" toml:"complexity"`
	Dependency   float64 `koanf:"dependency" toml:"dependency"`
	Semantic     float64 `koanf:"semantic" toml:"semantic"`
	Organization float64 `koanf:"organization" toml:"organization"`
}

// ActiveSum returns the sum of the weights that participate in scoring.
func (w ScoringWeights) ActiveSum() float64 {
	return w.Coverage + w.Complexity + w.Dependency
}

// ScoringConfig controls the unified scorer.
type ScoringConfig struct {
	Weights ScoringWeights `koanf:"weights" toml:"weights"`

	// Normalization maxima for the complexity factor.
	MaxCyclomatic int `koanf:"max_cyclomatic" toml:"max_cyclomatic"`
	MaxCognitive  int `koanf:"max_cognitive" toml:"max_cognitive"`

	// Blend between cyclomatic and cognitive norms.
	CyclomaticBlend float64 `koanf:"cyclomatic_blend" toml:"cyclomatic_blend"`
	CognitiveBlend  float64 `koanf:"cognitive_blend" toml:"cognitive_blend"`

	// RoleMultipliers scale the composite score by function role.
	RoleMultipliers map[string]float64 `koanf:"role_multipliers" toml:"role_multipliers"`

	// RoleCoverageWeights discount coverage gaps for roles where
	// untested code is expected.
	RoleCoverageWeights map[string]float64 `koanf:"role_coverage_weights" toml:"role_coverage_weights"`

	// ClampMultipliers bounds role multipliers to [0.3, 1.8].
	ClampMultipliers bool `koanf:"clamp_multipliers" toml:"clamp_multipliers"`
}

// RoleMultiplier returns the multiplier for a role, clamped when enabled.
func (s *ScoringConfig) RoleMultiplier(role models.FunctionRole) float64 {
	m, ok := s.RoleMultipliers[string(role)]
	if !ok {
		m = 1.0
	}
	if s.ClampMultipliers {
		m = math.Min(1.8, math.Max(0.3, m))
	}
	return m
}

// RoleCoverageWeight returns the coverage discount for a role.
func (s *ScoringConfig) RoleCoverageWeight(role models.FunctionRole) float64 {
	if w, ok := s.RoleCoverageWeights[string(role)]; ok {
		return w
	}
	return 1.0
}

// TierConfig controls tier classification thresholds and weights.
type TierConfig struct {
	T2ComplexityThreshold int `koanf:"t2_complexity_threshold" toml:"t2_complexity_threshold"`
	T2DependencyThreshold int `koanf:"t2_dependency_threshold" toml:"t2_dependency_threshold"`
	T3ComplexityThreshold int `koanf:"t3_complexity_threshold" toml:"t3_complexity_threshold"`

	// ShowT4InMainReport includes maintenance items in the default view.
	ShowT4InMainReport bool `koanf:"show_t4_in_main_report" toml:"show_t4_in_main_report"`

	T1Weight float64 `koanf:"t1_weight" toml:"t1_weight"`
	T2Weight float64 `koanf:"t2_weight" toml:"t2_weight"`
	T3Weight float64 `koanf:"t3_weight" toml:"t3_weight"`
	T4Weight float64 `koanf:"t4_weight" toml:"t4_weight"`
}

// GodObjectThresholds are per-language structural limits.
type GodObjectThresholds struct {
	MaxMethods          int `koanf:"max_methods" toml:"max_methods"`
	MaxFields           int `koanf:"max_fields" toml:"max_fields"`
	MaxResponsibilities int `koanf:"max_responsibilities" toml:"max_responsibilities"`
	MaxLines            int `koanf:"max_lines" toml:"max_lines"`
}

// GodObjectConfig controls god-object detection.
type GodObjectConfig struct {
	Rust       GodObjectThresholds `koanf:"rust" toml:"rust"`
	Python     GodObjectThresholds `koanf:"python" toml:"python"`
	JavaScript GodObjectThresholds `koanf:"javascript" toml:"javascript"`

	// Heuristic caps that force Probable confidence regardless of
	// structural analysis.
	HeuristicMaxLines     int `koanf:"heuristic_max_lines" toml:"heuristic_max_lines"`
	HeuristicMaxFunctions int `koanf:"heuristic_max_functions" toml:"heuristic_max_functions"`

	// FileScoreThreshold gates inclusion of non-god-object file items.
	FileScoreThreshold float64 `koanf:"file_score_threshold" toml:"file_score_threshold"`
}

// ForLanguage selects the thresholds for a source file extension.
func (g *GodObjectConfig) ForLanguage(path string) GodObjectThresholds {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return g.Python
	case ".js", ".jsx", ".ts", ".tsx":
		return g.JavaScript
	default:
		return g.Rust
	}
}

// MarkerConfig controls the debt-marker text scanner.
type MarkerConfig struct {
	IncludeTests bool     `koanf:"include_tests" toml:"include_tests"`
	Extensions   []string `koanf:"extensions" toml:"extensions"`
	ExcludeDirs  []string `koanf:"exclude_dirs" toml:"exclude_dirs"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format"`
	Color   bool   `koanf:"color" toml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose"`
}

// DefaultConfig returns a config with calibrated defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Exclusions:  []string{"main", "init"},
			SkipTests:   true,
			Jobs:        0,
			MaxFileSize: 10 * 1024 * 1024,
			GitRiskDays: 30,
		},
		Scoring: ScoringConfig{
			Weights: ScoringWeights{
				Coverage:   0.50,
				Complexity: 0.35,
				Dependency: 0.15,
			},
			MaxCyclomatic:   50,
			MaxCognitive:    100,
			CyclomaticBlend: 0.3,
			CognitiveBlend:  0.7,
			RoleMultipliers: map[string]float64{
				string(models.RolePureLogic):    1.2,
				string(models.RoleOrchestrator): 0.8,
				string(models.RoleIOWrapper):    0.7,
				string(models.RoleEntryPoint):   0.9,
				string(models.RolePatternMatch): 0.6,
				string(models.RoleDebug):        0.3,
				string(models.RoleUnknown):      1.0,
			},
			RoleCoverageWeights: map[string]float64{
				string(models.RoleDebug):        0.3,
				string(models.RoleIOWrapper):    0.5,
				string(models.RolePatternMatch): 0.7,
			},
			ClampMultipliers: true,
		},
		Tiers: TierConfig{
			T2ComplexityThreshold: 15,
			T2DependencyThreshold: 10,
			T3ComplexityThreshold: 10,
			ShowT4InMainReport:    false,
			T1Weight:              1.5,
			T2Weight:              1.2,
			T3Weight:              1.0,
			T4Weight:              0.8,
		},
		GodObject: GodObjectConfig{
			Rust:       GodObjectThresholds{MaxMethods: 20, MaxFields: 15, MaxResponsibilities: 5, MaxLines: 1000},
			Python:     GodObjectThresholds{MaxMethods: 15, MaxFields: 10, MaxResponsibilities: 3, MaxLines: 500},
			JavaScript: GodObjectThresholds{MaxMethods: 15, MaxFields: 20, MaxResponsibilities: 3, MaxLines: 500},

			HeuristicMaxLines:     2000,
			HeuristicMaxFunctions: 50,
			FileScoreThreshold:    50,
		},
		Markers: MarkerConfig{
			IncludeTests: false,
			Extensions:   []string{".rs", ".py", ".js", ".jsx", ".ts", ".tsx"},
			ExcludeDirs: []string{
				".git", "target", "node_modules", "vendor", "dist",
				"build", "__pycache__", ".venv", "venv",
			},
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   true,
			Verbose: false,
		},
	}
}

// WeightTolerance is the allowed deviation of active weights from 1.0.
const WeightTolerance = 0.001

// Validate checks that all config values are within acceptable ranges.
// Failures here are fatal to the run and surfaced before any work.
func (c *Config) Validate() error {
	var errs []error

	w := c.Scoring.Weights
	if math.Abs(w.ActiveSum()-1.0) > WeightTolerance {
		errs = append(errs, fmt.Errorf(
			"scoring.weights: active weights (coverage, complexity, dependency) must sum to 1.0, got %.3f", w.ActiveSum()))
	}
	for name, v := range map[string]float64{
		"coverage":     w.Coverage,
		"complexity":   w.Complexity,
		"dependency":   w.Dependency,
		"semantic":     w.Semantic,
		"organization": w.Organization,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("scoring.weights.%s must be between 0 and 1", name))
		}
	}

	if c.Scoring.MaxCyclomatic < 1 {
		errs = append(errs, errors.New("scoring.max_cyclomatic must be at least 1"))
	}
	if c.Scoring.MaxCognitive < 1 {
		errs = append(errs, errors.New("scoring.max_cognitive must be at least 1"))
	}
	if blend := c.Scoring.CyclomaticBlend + c.Scoring.CognitiveBlend; math.Abs(blend-1.0) > WeightTolerance {
		errs = append(errs, fmt.Errorf("scoring: cyclomatic_blend + cognitive_blend must sum to 1.0, got %.3f", blend))
	}
	for role, m := range c.Scoring.RoleMultipliers {
		if m < 0 {
			errs = append(errs, fmt.Errorf("scoring.role_multipliers.%s must be non-negative", role))
		}
	}

	if c.Tiers.T2ComplexityThreshold < 1 {
		errs = append(errs, errors.New("tiers.t2_complexity_threshold must be at least 1"))
	}
	if c.Tiers.T3ComplexityThreshold < 1 {
		errs = append(errs, errors.New("tiers.t3_complexity_threshold must be at least 1"))
	}
	if c.Tiers.T3ComplexityThreshold > c.Tiers.T2ComplexityThreshold {
		errs = append(errs, errors.New("tiers.t3_complexity_threshold must not exceed t2_complexity_threshold"))
	}

	if c.GodObject.FileScoreThreshold < 0 {
		errs = append(errs, errors.New("god_object.file_score_threshold must be non-negative"))
	}
	if c.Analysis.GitRiskDays < 1 {
		errs = append(errs, errors.New("analysis.git_risk_days must be at least 1"))
	}
	if c.Analysis.MaxFileSize < 0 {
		errs = append(errs, errors.New("analysis.max_file_size must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Load loads configuration from a file, layered over defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() string {
	names := []string{"arrears.toml", "arrears.yaml", "arrears.yml", "arrears.json"}
	for _, dir := range []string{".", ".arrears"} {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads config from an explicit path or standard locations,
// falling back to defaults. The result is always validated.
func LoadOrDefault(path string) (*Config, error) {
	var cfg *Config
	var err error

	switch {
	case path != "":
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		cfg, err = Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	default:
		if found := FindConfigFile(); found != "" {
			cfg, err = Load(found)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", found, err)
			}
		} else {
			cfg = DefaultConfig()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/panbanda/arrears/internal/logging"
	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/internal/progress"
	"github.com/panbanda/arrears/pkg/analyzer/markers"
	"github.com/panbanda/arrears/pkg/analyzer/unified"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/coverage"
	"github.com/panbanda/arrears/pkg/ingest"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/panbanda/arrears/pkg/risk"
	"github.com/panbanda/arrears/pkg/view"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// defaultMetricsFile is looked up when --metrics is not given.
const defaultMetricsFile = "arrears-metrics.json"

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"an"},
		Usage:     "Analyze a repository snapshot and rank its debt",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "Function-metrics stream (JSON) from the extractor",
			},
			&cli.StringFlag{
				Name:  "coverage",
				Usage: "LCOV coverage file",
			},
			&cli.BoolFlag{
				Name:  "git-risk",
				Usage: "Derive contextual risk from git history",
			},
			&cli.Float64Flag{
				Name:  "threshold",
				Usage: "Minimum score for reported items",
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Limit output to the top N items",
			},
			&cli.StringFlag{
				Name:  "tier",
				Usage: "Comma-separated tier filter (t1,t2,t3,t4)",
			},
			&cli.StringFlag{
				Name:  "severity",
				Usage: "Minimum severity (low, medium, high, critical)",
			},
			&cli.StringFlag{
				Name:  "sort",
				Value: "score",
				Usage: "Sort by: score, coverage, complexity, file, name",
			},
			&cli.BoolFlag{
				Name:  "group-by-location",
				Usage: "Coalesce multiple debt types at one location",
			},
			&cli.IntFlag{
				Name:  "jobs",
				Usage: "Worker goroutines (0 = 2x CPUs)",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	path := "."
	if c.Args().Len() > 0 {
		path = c.Args().First()
	}

	cfg, err := config.LoadOrDefault(c.String("config"))
	if err != nil {
		return err
	}
	log := logging.New(c.Bool("verbose"))
	defer log.Sync() //nolint:errcheck // stderr sync failure is harmless

	metricsPath := c.String("metrics")
	if metricsPath == "" {
		metricsPath = defaultMetricsFile
		if _, statErr := os.Stat(metricsPath); statErr != nil {
			return fmt.Errorf("no metrics stream: pass --metrics or provide %s", defaultMetricsFile)
		}
	}
	snapshot, err := ingest.ReadFile(metricsPath, log)
	if err != nil {
		return err
	}
	if len(snapshot.Functions) == 0 {
		return fmt.Errorf("metrics stream %s contains no functions", metricsPath)
	}

	builderOpts := []unified.BuilderOption{unified.WithLogger(log)}

	if covPath := c.String("coverage"); covPath != "" {
		lcov, err := coverage.ParseLCOVFile(covPath)
		if err != nil {
			return fmt.Errorf("coverage: %w", err)
		}
		builderOpts = append(builderOpts, unified.WithCoverage(lcov))
	}
	if c.Bool("git-risk") {
		analyzer, err := risk.NewGitAnalyzer(path, cfg.Analysis.GitRiskDays)
		if err != nil {
			log.Warn("git risk unavailable", zap.Error(err))
		} else {
			defer analyzer.Close()
			builderOpts = append(builderOpts, unified.WithRiskAnalyzer(analyzer))
		}
	}

	scan := markers.New(
		markers.WithMaxFileSize(cfg.Analysis.MaxFileSize),
		markers.WithJobs(c.Int("jobs")),
	)
	found, err := scan.ScanProject(resolveSourceFiles(path, snapshot))
	if err != nil {
		return fmt.Errorf("marker scan: %w", err)
	}

	tracker := progress.NewTracker("Analyzing debt...", len(snapshot.Functions))
	builderOpts = append(builderOpts, unified.WithProgress(tracker.Sink))

	graph := ingest.BuildCallGraph(snapshot)
	builder := unified.NewBuilder(cfg, graph, unified.Options{
		Jobs:      c.Int("jobs"),
		SkipTests: cfg.Analysis.SkipTests,
	}, builderOpts...)

	analysis, err := builder.Run(context.Background(), snapshot.Functions, found)
	tracker.FinishSuccess()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	viewCfg := view.Config{
		MinScore:      c.Float64("threshold"),
		SortBy:        view.ParseSortCriteria(c.String("sort")),
		Limit:         c.Int("top"),
		ComputeGroups: c.Bool("group-by-location"),
		Tiers:         parseTiers(c.String("tier")),
		MinSeverity:   parseSeverity(c.String("severity")),
	}
	prepared := view.Prepare(analysis, viewCfg, &cfg.Tiers)
	report := output.BuildReport(analysis, prepared, path)

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")), c.String("output"), cfg.Output.Color)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.WriteReport(report)
}

// resolveSourceFiles maps snapshot paths onto disk, relative to the
// analyzed root, keeping only files that exist for the marker scan.
func resolveSourceFiles(root string, snapshot *ingest.Snapshot) []string {
	var files []string
	for _, f := range ingest.SourceFiles(snapshot) {
		candidate := f
		if _, err := os.Stat(candidate); err != nil {
			candidate = filepath.Join(root, f)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
		}
		files = append(files, candidate)
	}
	return files
}

func parseTiers(raw string) []models.Tier {
	if raw == "" {
		return nil
	}
	var out []models.Tier
	for _, part := range strings.Split(raw, ",") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "t1":
			out = append(out, models.TierCriticalArchitecture)
		case "t2":
			out = append(out, models.TierComplexUntested)
		case "t3":
			out = append(out, models.TierTestingGaps)
		case "t4":
			out = append(out, models.TierMaintenance)
		}
	}
	return out
}

func parseSeverity(raw string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return models.SeverityCritical
	case "high":
		return models.SeverityHigh
	case "medium":
		return models.SeverityMedium
	case "low":
		return models.SeverityLow
	default:
		return ""
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/pkg/compare"
	"github.com/urfave/cli/v2"
)

func compareCmd() *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Diff two analysis snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "before",
				Usage:    "Analysis JSON before the change",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "after",
				Usage:    "Analysis JSON after the change",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "location",
				Usage: "Target location: file[:function[:line]]",
			},
		},
		Action: runCompareCmd,
	}
}

func runCompareCmd(c *cli.Context) error {
	before, err := output.LoadReport(c.String("before"))
	if err != nil {
		return err
	}
	after, err := output.LoadReport(c.String("after"))
	if err != nil {
		return err
	}

	result, err := compare.NewEngine().Compare(before, after, c.String("location"))
	if err != nil {
		return err
	}

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if output.ParseFormat(c.String("format")) == output.FormatText {
		return writeComparisonText(formatter, result)
	}
	return formatter.WriteJSON(result)
}

func writeComparisonText(f *output.Formatter, result *compare.Result) error {
	w := f.Writer()
	if result.Target != nil {
		fmt.Fprintf(w, "Target %s: %s", result.Target.Location, result.Target.Status)
		if result.Target.ScoreBefore != nil && result.Target.ScoreAfter != nil {
			fmt.Fprintf(w, " (%.1f -> %.1f)", *result.Target.ScoreBefore, *result.Target.ScoreAfter)
		}
		fmt.Fprintln(w)
	}
	h := result.ProjectHealth
	fmt.Fprintf(w, "Project debt: %.1f -> %.1f (%+.1f%%)\n", h.ScoreBefore, h.ScoreAfter, h.ChangePercent)
	fmt.Fprintf(w, "Items: %d -> %d (%d resolved, %d new)\n", h.ItemsBefore, h.ItemsAfter, h.ItemsResolved, h.ItemsNew)
	fmt.Fprintf(w, "Regressions: %d, improvements: %d\n", len(result.Regressions), len(result.Improvements))
	return nil
}

func validateImprovementCmd() *cli.Command {
	return &cli.Command{
		Name:  "validate-improvement",
		Usage: "Derive a completion percentage from a comparison",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "comparison",
				Usage:    "ComparisonResult JSON produced by compare",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "previous",
				Usage: "Previous ValidationResult JSON for trend analysis",
			},
		},
		Action: runValidateImprovementCmd,
	}
}

func runValidateImprovementCmd(c *cli.Context) error {
	var comparison compare.Result
	if err := readJSON(c.String("comparison"), &comparison); err != nil {
		return err
	}

	var previous *compare.ValidationResult
	if prevPath := c.String("previous"); prevPath != "" {
		previous = &compare.ValidationResult{}
		if err := readJSON(prevPath, previous); err != nil {
			return err
		}
	}

	result := compare.Validate(&comparison, previous)

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if output.ParseFormat(c.String("format")) == output.FormatText {
		w := formatter.Writer()
		fmt.Fprintf(w, "Completion: %.1f%% (%s)\n", result.CompletionPercentage, result.Status)
		fmt.Fprintf(w, "  target %.1f · health %.1f · regressions %.1f\n",
			result.TargetComponent, result.HealthComponent, result.RegressionComponent)
		if result.Trend != "" {
			fmt.Fprintf(w, "  trend: %s\n", result.Trend)
		}
		return nil
	}
	return formatter.WriteJSON(result)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

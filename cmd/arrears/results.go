package main

import (
	"fmt"

	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/internal/tui"
	"github.com/panbanda/arrears/pkg/analyzer/dsm"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/urfave/cli/v2"
)

func resultsCmd() *cli.Command {
	return &cli.Command{
		Name:      "results",
		Usage:     "Explore an analysis interactively",
		ArgsUsage: "<analysis.json>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("usage: arrears results <analysis.json>")
			}
			report, err := output.LoadReport(c.Args().First())
			if err != nil {
				return err
			}
			return tui.Run(report)
		},
	}
}

func dsmCmd() *cli.Command {
	return &cli.Command{
		Name:      "dsm",
		Usage:     "Render the module dependency structure matrix",
		ArgsUsage: "<analysis.json>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "optimize",
				Usage: "Reorder modules to minimize back-edges",
			},
		},
		Action: runDSMCmd,
	}
}

func runDSMCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: arrears dsm <analysis.json>")
	}
	report, err := output.LoadReport(c.Args().First())
	if err != nil {
		return err
	}

	// Rebuild file items from the report's file entries.
	var fileItems []*models.FileDebtItem
	for _, item := range report.Items {
		if item.Type != "file" {
			continue
		}
		fileItems = append(fileItems, &models.FileDebtItem{
			Metrics: models.FileDebtMetrics{
				Path:         item.Location.File,
				Dependencies: item.Dependencies,
			},
			Score: item.Score,
		})
	}
	if len(fileItems) == 0 {
		return fmt.Errorf("no file items in %s; run analyze without a file filter", c.Args().First())
	}

	matrix := dsm.FromFileItems(fileItems)
	if c.Bool("optimize") {
		matrix.OptimizeOrdering()
	}

	formatter, err := output.NewFormatter(
		output.ParseFormat(c.String("format")), c.String("output"), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if output.ParseFormat(c.String("format")) != output.FormatText {
		return formatter.WriteJSON(matrix)
	}

	w := formatter.Writer()
	fmt.Fprintf(w, "Modules: %d, dependencies: %d, density %.2f, layering %.2f, propagation %.2f\n\n",
		matrix.Metrics.ModuleCount, matrix.Metrics.DependencyCount,
		matrix.Metrics.Density, matrix.Metrics.LayeringScore, matrix.Metrics.PropagationCost)
	for i, module := range matrix.Modules {
		fmt.Fprintf(w, "%-30s", module)
		for j := range matrix.Modules {
			fmt.Fprintf(w, " %s", dsm.CellSymbol(matrix.Cells[i][j], i, j))
		}
		fmt.Fprintln(w)
	}
	if len(matrix.Cycles) > 0 {
		fmt.Fprintln(w, "\nCycles:")
		for _, cycle := range matrix.Cycles {
			fmt.Fprintf(w, "  [%s] %v\n", cycle.Severity, cycle.Modules)
		}
	}
	return nil
}

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/panbanda/arrears/pkg/view"
	toon "github.com/toon-format/toon-go"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatToon     Format = "toon"
)

// ParseFormat converts a string to Format, defaulting to text.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatToon
	default:
		return FormatText
	}
}

// Formatter writes reports in the configured format.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter. A non-empty output path redirects
// to that file and disables color.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	var writer io.Writer = os.Stdout
	var file *os.File

	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return nil, err
		}
		writer = f
		file = f
		colored = false
	}
	return &Formatter{format: format, writer: writer, file: file, colored: colored}, nil
}

// Close closes the underlying file, if any.
func (f *Formatter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// WriteReport renders the report in the configured format.
func (f *Formatter) WriteReport(report *Report) error {
	switch f.format {
	case FormatJSON:
		return f.writeJSON(report)
	case FormatToon:
		return f.writeToon(report)
	case FormatMarkdown:
		return writeMarkdown(f.writer, report)
	default:
		return writeText(f.writer, report, f.colored)
	}
}

// WriteJSON marshals any value as indented JSON.
func (f *Formatter) WriteJSON(v any) error {
	return writeJSONTo(f.writer, v)
}

func (f *Formatter) writeJSON(report *Report) error {
	return writeJSONTo(f.writer, report)
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *Formatter) writeToon(report *Report) error {
	encoded, err := toon.Marshal(report, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.writer, string(encoded))
	return err
}

func writeText(w io.Writer, report *Report, colored bool) error {
	header := fmt.Sprintf("Technical debt: %d items, total score %.1f (density %.1f per KLOC)",
		report.Summary.TotalItemsAfterFilter,
		report.Summary.TotalDebtScore,
		report.Summary.DebtDensity)
	if colored {
		color.New(color.Bold).Fprintln(w, header)
	} else {
		fmt.Fprintln(w, header)
	}
	if report.Metadata.HasCoverageData && report.Summary.OverallCoverage != nil {
		fmt.Fprintf(w, "Overall coverage: %.1f%%\n", *report.Summary.OverallCoverage*100)
	}
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header("Score", "Tier", "Priority", "Kind", "Location")
	for _, item := range report.Items {
		table.Append([]string{
			fmt.Sprintf("%.1f", item.Score),
			item.Tier,
			priorityCell(item.Priority, colored),
			kindCell(item),
			locationCell(item.Location),
		})
	}
	return table.Render()
}

func priorityCell(p models.Severity, colored bool) string {
	if !colored {
		return string(p)
	}
	switch p {
	case models.SeverityCritical:
		return color.RedString(string(p))
	case models.SeverityHigh:
		return color.YellowString(string(p))
	default:
		return string(p)
	}
}

func kindCell(item Item) string {
	if item.Type == "file" {
		if item.IsGodObject {
			return "god object (file)"
		}
		return "file"
	}
	return string(item.DebtKind)
}

func locationCell(loc Location) string {
	if loc.Function == "" {
		return loc.File
	}
	return fmt.Sprintf("%s:%s:%d", loc.File, loc.Function, loc.Line)
}

func writeMarkdown(w io.Writer, report *Report) error {
	fmt.Fprintf(w, "# Technical Debt Report\n\n")
	fmt.Fprintf(w, "- Items: %d (of %d before filters)\n",
		report.Summary.TotalItemsAfterFilter, report.Summary.TotalItemsBeforeFilter)
	fmt.Fprintf(w, "- Total debt score: %.1f\n", report.Summary.TotalDebtScore)
	fmt.Fprintf(w, "- Debt density: %.1f per KLOC\n", report.Summary.DebtDensity)
	dist := report.Summary.ScoreDistribution
	fmt.Fprintf(w, "- Severity: %d critical, %d high, %d medium, %d low\n\n",
		dist.Critical, dist.High, dist.Medium, dist.Low)

	fmt.Fprintln(w, "| Score | Tier | Priority | Kind | Location |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, item := range report.Items {
		fmt.Fprintf(w, "| %.1f | %s | %s | %s | %s |\n",
			item.Score, item.Tier, item.Priority, kindCell(item), locationCell(item.Location))
	}
	return nil
}

// ItemFromView re-exports item construction for renderers that build
// single rows.
func ItemFromView(it view.Item) Item {
	return buildItem(it)
}

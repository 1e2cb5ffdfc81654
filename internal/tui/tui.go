// Package tui is the interactive explorer for analysis results.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/panbanda/arrears/internal/output"
	"github.com/panbanda/arrears/pkg/models"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	criticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	highStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mediumStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	detailStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea model for the results explorer.
type Model struct {
	report *output.Report

	cursor   int
	offset   int
	height   int
	width    int
	showing  bool
	detail   viewport.Model
	quitting bool
}

// NewModel creates an explorer over a loaded report.
func NewModel(report *output.Report) Model {
	return Model{report: report, height: 24, width: 80}
}

// Run starts the interactive program.
func Run(report *output.Report) error {
	_, err := tea.NewProgram(NewModel(report), tea.WithAltScreen()).Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail = viewport.New(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		if m.showing {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.report.Items)-1 {
			m.cursor++
		}
	case "g":
		m.cursor = 0
	case "G":
		m.cursor = len(m.report.Items) - 1
	case "enter":
		if len(m.report.Items) > 0 {
			m.showing = true
			m.detail.SetContent(renderDetail(m.report.Items[m.cursor]))
		}
	}
	m.clampScroll()
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "enter":
		m.showing = false
		return m, nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) clampScroll() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m Model) visibleRows() int {
	rows := m.height - 4
	if rows < 1 {
		return 1
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showing {
		return detailStyle.Render(m.detail.View()) + "\n" +
			dimStyle.Render("esc back · q close")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("arrears · %d debt items · total %.1f",
		len(m.report.Items), m.report.Summary.TotalDebtScore)))
	b.WriteString("\n\n")

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.report.Items) {
		end = len(m.report.Items)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑/↓ move · enter detail · q quit"))
	return b.String()
}

func (m Model) renderRow(i int) string {
	item := m.report.Items[i]
	line := fmt.Sprintf("%6.1f  %-3s %-8s %-22s %s",
		item.Score, item.Tier, item.Priority, kindLabel(item), locationLabel(item.Location))

	if i == m.cursor {
		return selectedStyle.Render("> " + line)
	}
	return "  " + severityStyle(item.Priority).Render(line)
}

func severityStyle(s models.Severity) lipgloss.Style {
	switch s {
	case models.SeverityCritical:
		return criticalStyle
	case models.SeverityHigh:
		return highStyle
	case models.SeverityMedium:
		return mediumStyle
	default:
		return dimStyle
	}
}

func kindLabel(item output.Item) string {
	if item.Type == "file" {
		if item.IsGodObject {
			return "god object (file)"
		}
		return "file"
	}
	return string(item.DebtKind)
}

func locationLabel(loc output.Location) string {
	if loc.Function == "" {
		return loc.File
	}
	return fmt.Sprintf("%s:%s:%d", loc.File, loc.Function, loc.Line)
}

func renderDetail(item output.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render(locationLabel(item.Location)))
	fmt.Fprintf(&b, "Score:      %.1f (%s)\n", item.Score, item.Priority)
	fmt.Fprintf(&b, "Tier:       %s\n", item.Tier)
	fmt.Fprintf(&b, "Category:   %s\n", item.Category)
	if item.DebtKind != "" {
		fmt.Fprintf(&b, "Debt kind:  %s\n", item.DebtKind)
	}
	fmt.Fprintf(&b, "\nCyclomatic: %d\nCognitive:  %d\nNesting:    %d\n",
		item.Cyclomatic, item.Cognitive, item.Nesting)
	if item.Coverage != nil {
		fmt.Fprintf(&b, "Coverage:   %.1f%%\n", *item.Coverage*100)
	}
	if item.UpstreamCount+item.DownstreamCount > 0 {
		fmt.Fprintf(&b, "Callers:    %d\nCallees:    %d\n", item.UpstreamCount, item.DownstreamCount)
	}
	if item.IsGodObject {
		fmt.Fprintf(&b, "\n%s\n", criticalStyle.Render("Flagged as god object"))
	}
	return b.String()
}

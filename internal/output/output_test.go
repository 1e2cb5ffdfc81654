package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/arrears/pkg/analyzer/unified"
	"github.com/panbanda/arrears/pkg/config"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/panbanda/arrears/pkg/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()
	analysis := &unified.Analysis{
		Items: []models.UnifiedDebtItem{
			{
				Location:   models.NewFunctionID("src/a.rs", "alpha", 5),
				Debt:       models.NewComplexityHotspot(20, 30, nil),
				Score:      models.UnifiedScore{FinalScore: 80},
				Cyclomatic: 20,
				Cognitive:  30,
			},
		},
		FileItems: []models.FileDebtItem{
			{
				Metrics:   models.FileDebtMetrics{Path: "src/huge.rs", TotalCyclomatic: 1200},
				Score:     95,
				GodObject: &models.GodObjectAnalysis{IsGodObject: true},
			},
		},
		TotalLinesOfCode: 3000,
		HasCoverageData:  false,
	}
	cfg := config.DefaultConfig()
	v := view.Prepare(analysis, view.Config{}, &cfg.Tiers)
	return BuildReport(analysis, v, "/repo")
}

func TestReportSchemaFields(t *testing.T) {
	report := sampleReport(t)
	data, err := json.Marshal(report)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	meta := raw["metadata"].(map[string]any)
	assert.Equal(t, "2.0", meta["version"])
	require.Contains(t, raw, "summary")
	items := raw["items"].([]any)
	require.Len(t, items, 2)

	first := items[0].(map[string]any)
	assert.Contains(t, []string{"function", "file"}, first["type"])
	assert.Contains(t, first, "score")
	assert.Contains(t, first, "priority")
	loc := first["location"].(map[string]any)
	assert.Contains(t, loc, "file")
}

func TestReportRoundTripValidates(t *testing.T) {
	report := sampleReport(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.json")

	f, err := NewFormatter(FormatJSON, path, false)
	require.NoError(t, err)
	require.NoError(t, f.WriteReport(report))
	require.NoError(t, f.Close())

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, report.Metadata.Version, loaded.Metadata.Version)
	require.Len(t, loaded.Items, len(report.Items))
	assert.Equal(t, report.Items[0].Location, loaded.Items[0].Location)
}

func TestLoadReportRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"metadata": {"version": "1.0", "generated_at": "x"}, "summary": {}, "items": []}`), 0o644))
	_, err := LoadReport(path)
	assert.Error(t, err, "wrong schema version must fail validation")

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = LoadReport(path)
	assert.Error(t, err)
}

func TestTextOutput(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, writeText(&buf, report, false))

	out := buf.String()
	assert.Contains(t, out, "Technical debt")
	assert.Contains(t, out, "src/huge.rs")
	assert.Contains(t, out, "god object")
}

func TestMarkdownOutput(t *testing.T) {
	report := sampleReport(t)
	var buf bytes.Buffer
	require.NoError(t, writeMarkdown(&buf, report))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Technical Debt Report"))
	assert.Contains(t, out, "| Score | Tier | Priority | Kind | Location |")
	assert.Contains(t, out, "src/a.rs:alpha:5")
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatMarkdown, ParseFormat("md"))
	assert.Equal(t, FormatToon, ParseFormat("toon"))
	assert.Equal(t, FormatText, ParseFormat("anything"))
}

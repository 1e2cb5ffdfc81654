package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/panbanda/arrears/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validSnapshot = `{
  "functions": [
    {"id": {"file": "src/a.rs", "name": "alpha", "line": 1}, "length": 20, "cyclomatic": 5, "cognitive": 7, "visibility": "private"},
    {"id": {"file": "src/a.rs", "name": "beta", "line": 30}, "length": 10, "cyclomatic": 2, "cognitive": 1, "is_test": true, "visibility": "public"}
  ],
  "calls": [
    {"caller": {"file": "src/a.rs", "name": "alpha", "line": 1}, "callee": {"file": "src/a.rs", "name": "beta", "line": 30}}
  ],
  "types": [
    {"file": "src/a.rs", "name": "Config", "line": 5, "fields": 4, "methods": 2}
  ]
}`

func TestReadFileValid(t *testing.T) {
	snapshot, err := ReadFile(writeSnapshot(t, validSnapshot), nil)
	require.NoError(t, err)

	require.Len(t, snapshot.Functions, 2)
	assert.Equal(t, "alpha", snapshot.Functions[0].ID.Name)
	assert.Equal(t, 5, snapshot.Functions[0].Cyclomatic)
	assert.True(t, snapshot.Functions[1].IsTest)
	require.Len(t, snapshot.Calls, 1)
	require.Len(t, snapshot.Types, 1)
}

func TestMalformedRecordSkippedNotFatal(t *testing.T) {
	content := `{
  "functions": [
    {"id": {"file": "src/a.rs", "name": "ok", "line": 1}, "length": 5, "cyclomatic": 1, "cognitive": 0, "visibility": "private"},
    {"id": "this is not an object"},
    {"length": 5, "cyclomatic": 1, "cognitive": 0, "visibility": "private"}
  ],
  "calls": [{"caller": 42}]
}`
	snapshot, err := ReadFile(writeSnapshot(t, content), nil)
	require.NoError(t, err, "per-record failures must not fail the run")
	assert.Len(t, snapshot.Functions, 1)
	assert.Empty(t, snapshot.Calls)
}

func TestDuplicateFunctionSkipped(t *testing.T) {
	content := `{
  "functions": [
    {"id": {"file": "src/a.rs", "name": "dup", "line": 1}, "length": 5, "visibility": "private"},
    {"id": {"file": "src/a.rs", "name": "dup", "line": 1}, "length": 9, "visibility": "private"}
  ]
}`
	snapshot, err := ReadFile(writeSnapshot(t, content), nil)
	require.NoError(t, err)
	require.Len(t, snapshot.Functions, 1)
	assert.Equal(t, 5, snapshot.Functions[0].Length)
}

func TestMalformedFileFatal(t *testing.T) {
	_, err := ReadFile(writeSnapshot(t, "nonsense"), nil)
	assert.Error(t, err)
}

func TestMissingFileFatal(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "ghost.json"), nil)
	assert.Error(t, err)
}

func TestBuildCallGraph(t *testing.T) {
	snapshot, err := ReadFile(writeSnapshot(t, validSnapshot), nil)
	require.NoError(t, err)

	g := BuildCallGraph(snapshot)
	assert.Equal(t, 2, g.Len())

	alpha := models.NewFunctionID("src/a.rs", "alpha", 1)
	beta := models.NewFunctionID("src/a.rs", "beta", 30)
	assert.Equal(t, []models.FunctionID{beta}, g.Callees(alpha))
	assert.True(t, g.IsTest(beta))
}

func TestTypesByFileAndSourceFiles(t *testing.T) {
	snapshot, err := ReadFile(writeSnapshot(t, validSnapshot), nil)
	require.NoError(t, err)

	byFile := TypesByFile(snapshot)
	require.Len(t, byFile["src/a.rs"], 1)
	assert.Equal(t, "Config", byFile["src/a.rs"][0].Name)

	files := SourceFiles(snapshot)
	assert.Equal(t, []string{"src/a.rs"}, files)
}

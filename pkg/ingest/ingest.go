// Package ingest reads the function-metrics stream produced by the
// language-specific extractors, plus call edges and type records.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/panbanda/arrears/pkg/analyzer/callgraph"
	"github.com/panbanda/arrears/pkg/models"
	"go.uber.org/zap"
)

// CallRecord is one call edge in the stream.
type CallRecord struct {
	Caller models.FunctionID `json:"caller"`
	Callee models.FunctionID `json:"callee"`
}

// Snapshot is the parsed input: everything the pipeline consumes.
type Snapshot struct {
	Functions []*models.FunctionMetrics `json:"functions"`
	Calls     []CallRecord              `json:"calls"`
	Types     []*models.TypeMetrics     `json:"types,omitempty"`
}

// rawSnapshot tolerates per-record failures: records are decoded
// individually so one malformed function skips that record, not the
// file.
type rawSnapshot struct {
	Functions []json.RawMessage `json:"functions"`
	Calls     []json.RawMessage `json:"calls"`
	Types     []json.RawMessage `json:"types"`
}

// ReadFile loads a metrics stream from disk. Malformed records are
// skipped with a warning; a malformed file is an error.
func ReadFile(path string, log *zap.Logger) (*Snapshot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}

	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode metrics %s: %w", path, err)
	}

	snapshot := &Snapshot{}
	seen := make(map[models.FunctionID]struct{}, len(raw.Functions))
	for i, msg := range raw.Functions {
		var m models.FunctionMetrics
		if err := json.Unmarshal(msg, &m); err != nil {
			log.Warn("skipping malformed function record",
				zap.String("file", path), zap.Int("index", i), zap.Error(err))
			continue
		}
		if m.ID.File == "" || m.ID.Name == "" {
			log.Warn("skipping function record without identity",
				zap.String("file", path), zap.Int("index", i))
			continue
		}
		if _, dup := seen[m.ID]; dup {
			log.Warn("skipping duplicate function record",
				zap.String("id", m.ID.String()))
			continue
		}
		seen[m.ID] = struct{}{}
		snapshot.Functions = append(snapshot.Functions, &m)
	}

	for i, msg := range raw.Calls {
		var c CallRecord
		if err := json.Unmarshal(msg, &c); err != nil {
			log.Warn("skipping malformed call record",
				zap.String("file", path), zap.Int("index", i), zap.Error(err))
			continue
		}
		snapshot.Calls = append(snapshot.Calls, c)
	}

	for i, msg := range raw.Types {
		var t models.TypeMetrics
		if err := json.Unmarshal(msg, &t); err != nil {
			log.Warn("skipping malformed type record",
				zap.String("file", path), zap.Int("index", i), zap.Error(err))
			continue
		}
		snapshot.Types = append(snapshot.Types, &t)
	}
	return snapshot, nil
}

// BuildCallGraph constructs the call graph from a snapshot.
func BuildCallGraph(snapshot *Snapshot) *callgraph.Graph {
	g := callgraph.New()
	for _, m := range snapshot.Functions {
		g.AddFunction(m.ID, m.IsTest || m.InTestModule)
	}
	for _, c := range snapshot.Calls {
		g.AddEdge(c.Caller, c.Callee)
	}
	return g
}

// TypesByFile groups type records per file for pattern detection.
func TypesByFile(snapshot *Snapshot) map[string][]*models.TypeMetrics {
	byFile := make(map[string][]*models.TypeMetrics)
	for _, t := range snapshot.Types {
		byFile[t.File] = append(byFile[t.File], t)
	}
	return byFile
}

// SourceFiles returns the distinct files referenced by the snapshot.
func SourceFiles(snapshot *Snapshot) []string {
	set := make(map[string]struct{})
	for _, m := range snapshot.Functions {
		set[m.ID.File] = struct{}{}
	}
	files := make([]string, 0, len(set))
	for f := range set {
		files = append(files, f)
	}
	return files
}

// Package markers scans source text for raw debt markers: self-admitted
// debt comments, swallowed errors, lint suppressions, and magic values.
package markers

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/panbanda/arrears/pkg/analyzer"
	"github.com/panbanda/arrears/pkg/models"
	"github.com/sourcegraph/conc/pool"
	"github.com/zeebo/blake3"
)

// Scanner detects debt markers in source files.
type Scanner struct {
	includeTests bool
	maxFileSize  int64
	jobs         int
}

// Option is a functional option for configuring Scanner.
type Option func(*Scanner)

// WithIncludeTests includes test files in the scan.
// By default, test files are excluded.
func WithIncludeTests() Option {
	return func(s *Scanner) {
		s.includeTests = true
	}
}

// WithMaxFileSize sets the maximum file size to scan (0 = no limit).
func WithMaxFileSize(maxSize int64) Option {
	return func(s *Scanner) {
		s.maxFileSize = maxSize
	}
}

// WithJobs bounds worker goroutines (0 = 2x NumCPU).
func WithJobs(jobs int) Option {
	return func(s *Scanner) {
		s.jobs = jobs
	}
}

// New creates a new marker scanner.
func New(opts ...Option) *Scanner {
	s := &Scanner{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	commentMarker = regexp.MustCompile(`(?i)(?://|#|/\*)\s*(TODO|FIXME|HACK|XXX|KLUDGE)\b[:\s]?(.*)`)

	// Swallowed-error shapes per supported language.
	swallowPatterns = []struct {
		pattern *regexp.Regexp
		label   string
	}{
		{regexp.MustCompile(`\blet\s+_\s*=\s*.+\?`), "discarded result"},
		{regexp.MustCompile(`\.unwrap_or_default\(\)`), "unwrap_or_default"},
		{regexp.MustCompile(`\.ok\(\)\s*;`), "result dropped via ok()"},
		{regexp.MustCompile(`except\s*(\w+\s*)?(as\s+\w+\s*)?:\s*pass\b`), "except: pass"},
		{regexp.MustCompile(`catch\s*\([^)]*\)\s*\{\s*\}`), "empty catch"},
	}

	// A bare pass directly under an except clause swallows the error even
	// when the two keywords sit on separate lines.
	exceptClause = regexp.MustCompile(`^\s*except\b.*:\s*$`)
	barePass     = regexp.MustCompile(`^\s*pass\s*$`)

	suppressionPattern = regexp.MustCompile(`#\[allow\(|//\s*eslint-disable|#\s*noqa|#\s*type:\s*ignore`)

	// Bare numeric literals of two or more digits in comparisons or
	// arithmetic; single digits never match, and the common values in
	// plainMagicValues are skipped.
	magicPattern = regexp.MustCompile(`[=<>+\-*/%(,]\s*(\d{2,})\b`)
)

var plainMagicValues = map[string]struct{}{
	"10": {}, "100": {}, "1000": {}, "16": {}, "32": {}, "64": {}, "255": {}, "1024": {},
}

// ScanProject scans all files and returns markers sorted by file and line.
func (s *Scanner) ScanProject(files []string) ([]models.DebtMarker, error) {
	type fileResult struct {
		markers []models.DebtMarker
	}

	results := make([]fileResult, len(files))
	p := pool.New().WithMaxGoroutines(analyzer.Workers(s.jobs))
	for i, path := range files {
		p.Go(func() {
			if !s.includeTests && isTestFile(path) {
				return
			}
			found, err := s.scanFile(path)
			if err != nil {
				return // unreadable files are skipped, not fatal
			}
			results[i] = fileResult{markers: found}
		})
	}
	p.Wait()

	var all []models.DebtMarker
	for _, r := range results {
		all = append(all, r.markers...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].File != all[j].File {
			return all[i].File < all[j].File
		}
		return all[i].Line < all[j].Line
	})
	return all, nil
}

func (s *Scanner) scanFile(path string) ([]models.DebtMarker, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var markers []models.DebtMarker
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lineNo uint32
	var prevLine string
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		prev := prevLine
		prevLine = line

		if exceptClause.MatchString(prev) && barePass.MatchString(line) {
			markers = append(markers, models.DebtMarker{
				File:        path,
				Line:        lineNo,
				Kind:        models.MarkerErrorSwallow,
				Payload:     "except: pass",
				ContextHash: contextHash(path, prev+" "+line),
			})
			continue
		}

		if m := commentMarker.FindStringSubmatch(line); m != nil {
			markers = append(markers, models.DebtMarker{
				File:        path,
				Line:        lineNo,
				Kind:        markerKind(m[1]),
				Payload:     strings.TrimSpace(m[2]),
				ContextHash: contextHash(path, line),
			})
			continue
		}
		for _, sp := range swallowPatterns {
			if sp.pattern.MatchString(line) {
				markers = append(markers, models.DebtMarker{
					File:        path,
					Line:        lineNo,
					Kind:        models.MarkerErrorSwallow,
					Payload:     sp.label,
					ContextHash: contextHash(path, line),
				})
				break
			}
		}
		if suppressionPattern.MatchString(line) {
			markers = append(markers, models.DebtMarker{
				File:        path,
				Line:        lineNo,
				Kind:        models.MarkerSuppression,
				Payload:     strings.TrimSpace(line),
				ContextHash: contextHash(path, line),
			})
		}
		if m := magicPattern.FindStringSubmatch(line); m != nil && !isCommentLine(line) {
			if _, plain := plainMagicValues[m[1]]; !plain {
				markers = append(markers, models.DebtMarker{
					File:    path,
					Line:    lineNo,
					Kind:    models.MarkerMagicValue,
					Payload: m[1],
				})
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return markers, nil
}

func markerKind(word string) models.MarkerKind {
	switch strings.ToUpper(word) {
	case "FIXME", "XXX":
		return models.MarkerFixme
	case "HACK", "KLUDGE":
		return models.MarkerHack
	default:
		return models.MarkerTodo
	}
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "/*")
}

func isTestFile(path string) bool {
	slashed := filepath.ToSlash(path)
	if strings.Contains(slashed, "/tests/") || strings.Contains(slashed, "/test/") {
		return true
	}
	base := filepath.Base(slashed)
	return strings.Contains(base, "_test.") || strings.Contains(base, ".spec.") ||
		strings.HasPrefix(base, "test_")
}

// contextHash produces a stable identity for a marker so it can be
// tracked across runs even when line numbers shift.
func contextHash(path, line string) string {
	var buf bytes.Buffer
	buf.WriteString(filepath.ToSlash(path))
	buf.WriteByte(0)
	buf.WriteString(strings.Join(strings.Fields(line), " "))
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:8])
}

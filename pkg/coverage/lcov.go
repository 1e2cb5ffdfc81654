package coverage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LCOVData is a Lookup backed by an LCOV trace file.
type LCOVData struct {
	// files maps path -> line -> hit count.
	files map[string]map[uint32]int

	totalLines   int
	coveredLines int
}

// ParseLCOVFile reads an LCOV trace from disk.
func ParseLCOVFile(path string) (*LCOVData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage file: %w", err)
	}
	defer f.Close()
	return parseLCOV(f)
}

func parseLCOV(f *os.File) (*LCOVData, error) {
	data := &LCOVData{files: make(map[string]map[uint32]int)}
	var current map[uint32]int

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "SF:"):
			path := strings.TrimPrefix(line, "SF:")
			path = strings.TrimPrefix(path, "./")
			if data.files[path] == nil {
				data.files[path] = make(map[uint32]int)
			}
			current = data.files[path]
		case strings.HasPrefix(line, "DA:"):
			if current == nil {
				return nil, fmt.Errorf("lcov line %d: DA record before SF", lineNo)
			}
			parts := strings.SplitN(strings.TrimPrefix(line, "DA:"), ",", 3)
			if len(parts) < 2 {
				return nil, fmt.Errorf("lcov line %d: malformed DA record", lineNo)
			}
			ln, err := strconv.ParseUint(parts[0], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("lcov line %d: %w", lineNo, err)
			}
			hits, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("lcov line %d: %w", lineNo, err)
			}
			if _, seen := current[uint32(ln)]; !seen {
				data.totalLines++
				if hits > 0 {
					data.coveredLines++
				}
			}
			current[uint32(ln)] += hits
		case line == "end_of_record":
			current = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

// IsCovered implements Lookup.
func (d *LCOVData) IsCovered(file string, line uint32) (bool, bool) {
	lines, ok := d.files[normalize(file)]
	if !ok {
		return false, false
	}
	hits, ok := lines[line]
	if !ok {
		return false, false
	}
	return hits > 0, true
}

// FunctionCoverage implements Lookup.
func (d *LCOVData) FunctionCoverage(file string, start, end uint32) *float64 {
	lines, ok := d.files[normalize(file)]
	if !ok {
		return nil
	}
	var instrumented, covered int
	for ln := start; ln <= end; ln++ {
		hits, ok := lines[ln]
		if !ok {
			continue
		}
		instrumented++
		if hits > 0 {
			covered++
		}
	}
	if instrumented == 0 {
		return nil
	}
	frac := float64(covered) / float64(instrumented)
	return &frac
}

// OverallCoverage implements Lookup.
func (d *LCOVData) OverallCoverage() float64 {
	if d.totalLines == 0 {
		return 0
	}
	return float64(d.coveredLines) / float64(d.totalLines)
}

func normalize(path string) string {
	return strings.TrimPrefix(path, "./")
}

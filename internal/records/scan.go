// Package records validates postcodes embedded in JSON Lines data.
//
// Each line is one JSON record; a field path selects the postcode inside it.
// Results are emitted per line so large files stream without buffering.
package records

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/solatis/ukpostcode/internal/postcode"
	"github.com/solatis/ukpostcode/internal/types"
)

// MaxLineSize bounds a single JSONL record.
const MaxLineSize = 1024 * 1024

// Result is the outcome for one record.
type Result struct {
	Line       int               `json:"line"`
	Path       string            `json:"path,omitempty"`
	Value      any               `json:"value,omitempty"`
	Valid      bool              `json:"valid"`
	Components *types.Components `json:"components,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Summary aggregates a completed scan.
type Summary struct {
	Records int            `json:"records"`
	Valid   int            `json:"valid"`
	Invalid int            `json:"invalid"`
	Shapes  map[string]int `json:"shapes"`
}

// Scanner checks one postcode field per record.
type Scanner struct {
	path []types.PathSegment
}

// NewScanner compiles the field path expression.
func NewScanner(fieldPath string) (*Scanner, error) {
	path, err := ParsePath(fieldPath)
	if err != nil {
		return nil, err
	}
	return &Scanner{path: path}, nil
}

// Check validates the postcode field of a single JSON record.
// Missing fields, non-string values and invalid postcodes are reported in
// Result.Error rather than returned, so one bad record never stops a scan.
func (s *Scanner) Check(line int, record []byte) Result {
	result := Result{Line: line}

	resolved, err := Resolve(s.path, json.RawMessage(record))
	if err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			result.Error = fmt.Sprintf("malformed record: %v", err)
		} else {
			result.Error = err.Error()
		}
		return result
	}

	result.Path = FormatPath(resolved.ResolvedPath)
	result.Value = resolved.Value

	c, err := postcode.ParseValue(resolved.Value)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Valid = true
	result.Components = &c
	return result
}

// Scan reads JSON Lines from r and calls emit for every non-blank record.
// Stops early when ctx is cancelled or emit returns an error.
func (s *Scanner) Scan(ctx context.Context, r io.Reader, emit func(Result) error) (Summary, error) {
	summary := Summary{Shapes: make(map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	line := 0
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		record := bytes.TrimSpace(sc.Bytes())
		if len(record) == 0 {
			continue
		}

		result := s.Check(line, record)
		summary.Records++
		if result.Valid {
			summary.Valid++
			summary.Shapes[result.Components.Shape.String()]++
		} else {
			summary.Invalid++
		}

		if err := emit(result); err != nil {
			return summary, err
		}
	}

	if err := sc.Err(); err != nil {
		return summary, fmt.Errorf("failed to read records at line %d: %w", line+1, err)
	}
	return summary, nil
}

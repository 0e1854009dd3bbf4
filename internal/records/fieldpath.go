// internal/records/fieldpath.go
package records

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/solatis/ukpostcode/internal/types"
)

/*
 * Field path parsing and resolution for JSON records.
 *
 * Syntax: optional "$" root, dot-separated keys, [n] array indices,
 * [*] or * wildcards. Examples:
 *   address.postcode
 *   $.contacts[0].postcode
 *   branches[*].address.postcode
 *
 * Wildcard semantics: first element (arrays) or first key in sorted order
 * (objects) whose remaining path resolves wins. Sorted iteration keeps
 * results deterministic across runs.
 *
 * Limits: MaxPathDepth (16) and MaxNestedWildcards (2), enforced at parse
 * time and again at resolution time for hand-built paths.
 */

// ParsePath converts a dotted field path into segments.
func ParsePath(expr string) ([]types.PathSegment, error) {
	s := strings.TrimSpace(expr)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidPath, expr)
	}

	var path []types.PathSegment
	for _, part := range strings.Split(s, ".") {
		segs, err := parsePart(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", types.ErrInvalidPath, expr, err)
		}
		path = append(path, segs...)
	}

	if err := checkLimits(path); err != nil {
		return nil, err
	}
	return path, nil
}

// parsePart handles one dot-separated component: key, key[0], key[*][1], [*], *.
func parsePart(part string) ([]types.PathSegment, error) {
	if part == "" {
		return nil, fmt.Errorf("empty segment")
	}

	var segs []types.PathSegment
	key := part
	if i := strings.IndexByte(part, '['); i >= 0 {
		key = part[:i]
		part = part[i:]
	} else {
		part = ""
	}

	switch key {
	case "":
	case "*":
		segs = append(segs, types.PathSegment{Wildcard: true})
	default:
		segs = append(segs, types.PathSegment{Key: key})
	}

	for part != "" {
		if part[0] != '[' {
			return nil, fmt.Errorf("unexpected %q", part)
		}
		end := strings.IndexByte(part, ']')
		if end < 0 {
			return nil, fmt.Errorf("unterminated index")
		}
		inner := part[1:end]
		part = part[end+1:]

		if inner == "*" {
			segs = append(segs, types.PathSegment{Wildcard: true})
			continue
		}
		idx, err := strconv.Atoi(inner)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("bad index %q", inner)
		}
		segs = append(segs, types.PathSegment{Index: idx, IsIndex: true})
	}

	if len(segs) == 0 {
		return nil, fmt.Errorf("empty segment")
	}
	return segs, nil
}

// checkLimits enforces MaxPathDepth and MaxNestedWildcards.
func checkLimits(path []types.PathSegment) error {
	if len(path) > types.MaxPathDepth {
		return types.ErrPathTooDeep
	}
	wildcardCount := 0
	for _, seg := range path {
		if seg.Wildcard {
			wildcardCount++
		}
	}
	if wildcardCount > types.MaxNestedWildcards {
		return types.ErrTooManyWildcards
	}
	return nil
}

// FormatPath renders segments back to the dotted syntax accepted by ParsePath.
func FormatPath(path []types.PathSegment) string {
	var b strings.Builder
	for i, seg := range path {
		switch {
		case seg.Wildcard:
			b.WriteString("[*]")
		case seg.IsIndex:
			b.WriteString("[" + strconv.Itoa(seg.Index) + "]")
		default:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(seg.Key)
		}
	}
	return b.String()
}

// ResolveResult contains the resolved value and the actual path taken.
type ResolveResult struct {
	Value        any                 // resolved value (nil if JSON null)
	ResolvedPath []types.PathSegment // path with wildcards replaced by actual indices/keys
	Found        bool                // true if path resolved to a value
}

// Resolve traverses a JSON document following path segments.
// Returns ErrPathTooDeep / ErrTooManyWildcards for paths over the limits,
// ErrFieldNotFound if the path does not exist, or the json decode error.
func Resolve(path []types.PathSegment, data json.RawMessage) (ResolveResult, error) {
	if err := checkLimits(path); err != nil {
		return ResolveResult{}, err
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ResolveResult{}, err
	}

	return resolveRecursive(path, parsed, nil)
}

// resolveRecursive walks nested JSON values, accumulating the concrete path.
func resolveRecursive(path []types.PathSegment, current any, resolvedSoFar []types.PathSegment) (ResolveResult, error) {
	if len(path) == 0 {
		return ResolveResult{
			Value:        current,
			ResolvedPath: resolvedSoFar,
			Found:        true,
		}, nil
	}

	seg := path[0]
	remaining := path[1:]

	switch v := current.(type) {
	case map[string]any:
		if seg.Wildcard {
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				resolved := appendSegment(resolvedSoFar, types.PathSegment{Key: key})
				result, err := resolveRecursive(remaining, v[key], resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if seg.IsIndex {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		val, ok := v[seg.Key]
		if !ok {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, val, appendSegment(resolvedSoFar, seg))

	case []any:
		if seg.Wildcard {
			for i, elem := range v {
				resolved := appendSegment(resolvedSoFar, types.PathSegment{Index: i, IsIndex: true})
				result, err := resolveRecursive(remaining, elem, resolved)
				if err == nil && result.Found {
					return result, nil
				}
			}
			return ResolveResult{}, types.ErrFieldNotFound
		}
		if !seg.IsIndex || seg.Index < 0 || seg.Index >= len(v) {
			return ResolveResult{}, types.ErrFieldNotFound
		}
		return resolveRecursive(remaining, v[seg.Index], appendSegment(resolvedSoFar, seg))

	default:
		// null or scalar with path remaining
		return ResolveResult{}, types.ErrFieldNotFound
	}
}

// appendSegment copies before appending so wildcard siblings never share a backing array.
func appendSegment(path []types.PathSegment, seg types.PathSegment) []types.PathSegment {
	out := make([]types.PathSegment, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

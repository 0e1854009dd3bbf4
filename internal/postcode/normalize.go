// internal/postcode/normalize.go
package postcode

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/solatis/ukpostcode/internal/types"
)

/*
 * Input normalization.
 *
 * Every public operation runs Normalize first, so callers may pass "ec1a1bb",
 * "EC1A 1BB" or "ec1a-1bb" interchangeably.
 *
 * Empty vs stripped-empty: blank input (empty, or only unicode whitespace
 * and the ASCII separators \x1c-\x1f) fails with ErrEmptyInput. Input
 * made only of punctuation ("---") is not blank, so it normalizes to ""
 * and later classifies as invalid.
 *
 * FromValue is the type guard for dynamically typed sources (gRPC Value,
 * JSONL records). Strict: no number-to-string coercion, a numeric 12345 is a
 * caller error rather than a candidate postcode.
 */

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Normalize strips every non-alphanumeric character and upper-cases the rest.
// Returns ErrEmptyInput for empty or whitespace-only input.
func Normalize(raw string) (string, error) {
	if isBlank(raw) {
		return "", types.ErrEmptyInput
	}
	return strings.ToUpper(nonAlphanumeric.ReplaceAllString(raw, "")), nil
}

// isBlank reports whether raw has no rune other than whitespace. The file,
// group, record and unit separators count as whitespace here although
// unicode.IsSpace excludes them.
func isBlank(raw string) bool {
	return strings.TrimFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || (r >= '\x1c' && r <= '\x1f')
	}) == ""
}

// FromValue extracts a raw postcode string from a dynamically typed value.
// Accepts string and non-nil *string. Everything else is ErrTypeMismatch.
func FromValue(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case *string:
		if s == nil {
			return "", types.ErrTypeMismatch
		}
		return *s, nil
	default:
		return "", types.ErrTypeMismatch
	}
}

// NormalizeValue runs FromValue then Normalize.
func NormalizeValue(v any) (string, error) {
	raw, err := FromValue(v)
	if err != nil {
		return "", err
	}
	return Normalize(raw)
}

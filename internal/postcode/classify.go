// internal/postcode/classify.go
package postcode

import (
	"regexp"

	"github.com/solatis/ukpostcode/internal/types"
)

/*
 * Shape classification.
 *
 * The grammar is a priority-ordered matcher chain rather than one regex:
 *   1. SpecialCase: exact membership in specialCases
 *   2. Military: BFPO followed by 1-4 digits
 *   3. NumericOverseas: KY<digit>, MSR, VG or AI followed by 4 digits
 *   4. Standard: GIR0AA or <outward><inward>
 * First match wins. Adding a territory code is one set entry.
 *
 * Standard grammar character classes:
 *   - area first letter: not Q, V, X
 *   - area second letter: not I, J, Z
 *   - A9A third char: A-H, J, K, S, T, U, W
 *   - AA9A fourth char: A, B, E, H, M, N, P, R, V, W, X, Y
 *   - inward letters: not C, I, K, M, O, V
 *
 * All patterns are anchored and operate on normalized input only.
 */

var (
	standardPattern = regexp.MustCompile(
		`^(GIR0AA|(([A-PR-UWYZ][A-HK-Y]?[0-9][0-9]?)|([A-PR-UWYZ][0-9][A-HJKSTUW])|([A-PR-UWYZ][A-HK-Y][0-9][ABEHMNPRV-Y]))[0-9][ABD-HJLNP-UW-Z]{2})$`,
	)
	militaryPattern        = regexp.MustCompile(`^BFPO[0-9]{1,4}$`)
	numericOverseasPattern = regexp.MustCompile(`^(KY[0-9]|MSR|VG|AI)[0-9]{4}$`)
)

// specialCases holds non-geographic and territory codes outside the standard
// grammar, stored normalized (no separator, upper case).
var specialCases = map[string]struct{}{
	"ASCN1ZZ": {}, // Ascension Island
	"BBND1ZZ": {}, // British Indian Ocean Territory
	"BIQQ1ZZ": {}, // British Antarctic Territory
	"FIQQ1ZZ": {}, // Falkland Islands
	"GX111AA": {}, // Gibraltar
	"PCRN1ZZ": {}, // Pitcairn Islands
	"SIQQ1ZZ": {}, // South Georgia and the South Sandwich Islands
	"STHL1ZZ": {}, // St Helena
	"TDCU1ZZ": {}, // Tristan da Cunha
	"TKCA1ZZ": {}, // Turks and Caicos Islands
	"AI2640":  {}, // Anguilla
	"GIR0AA":  {}, // National Girobank
	"SANTA1":  {}, // Santa Claus
}

// matcher pairs a shape with its membership test.
type matcher struct {
	shape types.Shape
	match func(normalized string) bool
}

// matchers is evaluated in order; first match wins.
var matchers = []matcher{
	{shape: types.ShapeSpecialCase, match: isSpecialCase},
	{shape: types.ShapeMilitary, match: militaryPattern.MatchString},
	{shape: types.ShapeNumericOverseas, match: numericOverseasPattern.MatchString},
	{shape: types.ShapeStandard, match: standardPattern.MatchString},
}

func isSpecialCase(normalized string) bool {
	_, ok := specialCases[normalized]
	return ok
}

// Classify returns the shape of an already normalized postcode.
// Returns ShapeInvalid when no matcher accepts the input, including "".
func Classify(normalized string) types.Shape {
	for _, m := range matchers {
		if m.match(normalized) {
			return m.shape
		}
	}
	return types.ShapeInvalid
}

// IsValid reports whether raw is a recognized UK postcode after normalization.
// Fails only with ErrEmptyInput; any other string yields a boolean.
func IsValid(raw string) (bool, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return false, err
	}
	return Classify(normalized) != types.ShapeInvalid, nil
}

// IsValidValue is IsValid for dynamically typed input.
// Non-string values fail with ErrTypeMismatch.
func IsValidValue(v any) (bool, error) {
	raw, err := FromValue(v)
	if err != nil {
		return false, err
	}
	return IsValid(raw)
}

// SpecialCases returns the special-case codes in normalized form.
// The returned slice is a copy; order is unspecified.
func SpecialCases() []string {
	out := make([]string, 0, len(specialCases))
	for code := range specialCases {
		out = append(out, code)
	}
	return out
}

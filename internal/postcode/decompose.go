// internal/postcode/decompose.go
package postcode

import (
	"strings"

	"github.com/solatis/ukpostcode/internal/types"
)

/*
 * Component extraction.
 *
 * Every operation validates first: normalize, classify, and reject
 * ShapeInvalid with *InvalidPostcodeError carrying the caller's raw input.
 *
 * Layout vs shape: slicing rules follow the layout of the normalized string,
 * not the classification tag. AI2640 is tagged SpecialCase (first in the
 * matcher chain) but has the numeric-overseas layout, so it formats as
 * AI-2640 and its area is A.
 *
 * Layouts:
 *   - standard: outward = all but last 3, inward = last 3
 *   - military: outward = BFPO, district = trailing digits, no inward
 *   - overseas: outward = territory token, inward = trailing 4 digits,
 *     joined with '-' when formatted
 *
 * Overseas sector/unit: sector is the first digit of the tail, unit the
 * last two. The middle digit belongs to neither.
 */

type layout int

const (
	layoutStandard layout = iota
	layoutMilitary
	layoutOverseas
)

const (
	militaryPrefix   = "BFPO"
	inwardLength     = 3
	overseasTailSize = 4
)

func layoutOf(normalized string) layout {
	switch {
	case militaryPattern.MatchString(normalized):
		return layoutMilitary
	case numericOverseasPattern.MatchString(normalized):
		return layoutOverseas
	default:
		return layoutStandard
	}
}

// validated normalizes and classifies raw, rejecting invalid input.
func validated(raw string) (string, types.Shape, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return "", types.ShapeInvalid, err
	}
	shape := Classify(normalized)
	if shape == types.ShapeInvalid {
		return "", shape, &types.InvalidPostcodeError{Input: raw}
	}
	return normalized, shape, nil
}

// decompose splits a valid normalized postcode by layout.
// Precondition: Classify(normalized) != ShapeInvalid.
func decompose(normalized string, shape types.Shape) types.Components {
	c := types.Components{
		Normalized: normalized,
		Shape:      shape,
	}

	switch layoutOf(normalized) {
	case layoutMilitary:
		c.Outward = militaryPrefix
		c.Area = militaryPrefix
		c.District = normalized[len(militaryPrefix):]
		c.Formatted = militaryPrefix + " " + c.District

	case layoutOverseas:
		split := len(normalized) - overseasTailSize
		c.Outward = normalized[:split]
		c.Inward = normalized[split:]
		c.Area = overseasArea(c.Outward)
		c.District = c.Outward[len(c.Area):]
		c.Sector = c.Inward[:1]
		c.Unit = c.Inward[len(c.Inward)-2:]
		c.HasInward = true
		c.Formatted = c.Outward + "-" + c.Inward

	default:
		split := len(normalized) - inwardLength
		c.Outward = normalized[:split]
		c.Inward = normalized[split:]
		c.Area = standardArea(c.Outward)
		c.District = c.Outward[len(c.Area):]
		c.Sector = c.Inward[:1]
		c.Unit = c.Inward[1:]
		c.HasInward = true
		c.Formatted = c.Outward + " " + c.Inward
	}

	return c
}

// standardArea returns the leading 1-2 letters of an outward code:
// two when the second character is a letter, else one.
func standardArea(outward string) string {
	if len(outward) >= 2 && isLetter(outward[1]) {
		return outward[:2]
	}
	return outward[:1]
}

// overseasArea returns KY, VG or MS for two-letter territories, A for Anguilla.
func overseasArea(token string) string {
	if strings.HasPrefix(token, "AI") {
		return token[:1]
	}
	return token[:2]
}

func isLetter(b byte) bool {
	return b >= 'A' && b <= 'Z'
}

// Parse validates raw and returns every component at once.
func Parse(raw string) (types.Components, error) {
	normalized, shape, err := validated(raw)
	if err != nil {
		return types.Components{}, err
	}
	return decompose(normalized, shape), nil
}

// ParseValue is Parse for dynamically typed input.
func ParseValue(v any) (types.Components, error) {
	raw, err := FromValue(v)
	if err != nil {
		return types.Components{}, err
	}
	return Parse(raw)
}

// Format returns the canonical display form: "EC1A 1BB", "BFPO 57", "KY1-1234".
func Format(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Formatted, nil
}

// OutwardCode returns the outward part: "EC1A", "BFPO", "KY1".
func OutwardCode(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Outward, nil
}

// InwardCode returns the inward part. BFPO codes fail with ErrNoInwardCode.
func InwardCode(raw string) (string, error) {
	c, err := inward(raw)
	if err != nil {
		return "", err
	}
	return c.Inward, nil
}

// Area returns the postcode area: "SW", "BFPO", "KY".
func Area(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.Area, nil
}

// District returns the outward code minus the area. May be empty for VG codes.
func District(raw string) (string, error) {
	c, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return c.District, nil
}

// Sector returns the first character of the inward code.
// BFPO codes fail with ErrNoInwardCode.
func Sector(raw string) (string, error) {
	c, err := inward(raw)
	if err != nil {
		return "", err
	}
	return c.Sector, nil
}

// Unit returns the last two characters of the inward code.
// BFPO codes fail with ErrNoInwardCode.
func Unit(raw string) (string, error) {
	c, err := inward(raw)
	if err != nil {
		return "", err
	}
	return c.Unit, nil
}

// inward parses raw and rejects layouts without an inward code.
func inward(raw string) (types.Components, error) {
	c, err := Parse(raw)
	if err != nil {
		return types.Components{}, err
	}
	if !c.HasInward {
		return types.Components{}, types.ErrNoInwardCode
	}
	return c, nil
}

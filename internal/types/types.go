// Package types provides domain models shared across ukpostcode components.
//
// Zero-dependency design: types.go and errors.go use only the standard library
// so the postcode engine can be embedded without pulling in transport or
// storage deps. ID utilities in ids.go import uuid and are only needed by the
// audit store.
package types

import "fmt"

// Shape is the classification tag of a normalized postcode.
type Shape int

const (
	ShapeInvalid Shape = iota
	ShapeStandard
	ShapeSpecialCase
	ShapeMilitary
	ShapeNumericOverseas
)

var shapeNames = [...]string{
	ShapeInvalid:         "invalid",
	ShapeStandard:        "standard",
	ShapeSpecialCase:     "special_case",
	ShapeMilitary:        "military",
	ShapeNumericOverseas: "numeric_overseas",
}

// String returns the snake_case name stored in the audit table and API responses.
func (s Shape) String() string {
	if s < 0 || int(s) >= len(shapeNames) {
		return fmt.Sprintf("shape(%d)", int(s))
	}
	return shapeNames[s]
}

// ParseShape converts a name produced by Shape.String back to a Shape.
func ParseShape(name string) (Shape, error) {
	for i, n := range shapeNames {
		if n == name {
			return Shape(i), nil
		}
	}
	return ShapeInvalid, fmt.Errorf("unknown shape %q", name)
}

// MarshalText encodes the shape by name so JSON output stays readable.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Shape) UnmarshalText(b []byte) error {
	parsed, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Components is the read-only decomposition of a valid postcode.
// Inward, Sector and Unit are empty when HasInward is false (BFPO codes).
type Components struct {
	Normalized string `json:"normalized"`
	Formatted  string `json:"formatted"`
	Shape      Shape  `json:"shape"`
	Outward    string `json:"outward"`
	Inward     string `json:"inward,omitempty"`
	Area       string `json:"area"`
	District   string `json:"district"`
	Sector     string `json:"sector,omitempty"`
	Unit       string `json:"unit,omitempty"`
	HasInward  bool   `json:"has_inward"`
}

// Resource limits applied to untrusted input at the API and scan boundaries.
const (
	// MaxInputLength bounds a single raw postcode before normalization.
	// Longest valid normalized code is 7 chars; 64 leaves room for separators and noise.
	MaxInputLength = 64

	// MaxPathDepth prevents deep recursion when resolving record field paths.
	MaxPathDepth = 16

	// MaxNestedWildcards limits wildcard expansion in record field paths.
	MaxNestedWildcards = 2
)

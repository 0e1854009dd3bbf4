package records

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/ukpostcode/internal/types"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		want    []types.PathSegment
		wantErr error
	}{
		{
			name: "single key",
			expr: "postcode",
			want: []types.PathSegment{{Key: "postcode"}},
		},
		{
			name: "root prefix",
			expr: "$.address.postcode",
			want: []types.PathSegment{{Key: "address"}, {Key: "postcode"}},
		},
		{
			name: "array index",
			expr: "contacts[0].postcode",
			want: []types.PathSegment{{Key: "contacts"}, {Index: 0, IsIndex: true}, {Key: "postcode"}},
		},
		{
			name: "bracket wildcard",
			expr: "branches[*].postcode",
			want: []types.PathSegment{{Key: "branches"}, {Wildcard: true}, {Key: "postcode"}},
		},
		{
			name: "key wildcard",
			expr: "sites.*.postcode",
			want: []types.PathSegment{{Key: "sites"}, {Wildcard: true}, {Key: "postcode"}},
		},
		{
			name: "leading index",
			expr: "[2].pc",
			want: []types.PathSegment{{Index: 2, IsIndex: true}, {Key: "pc"}},
		},
		{
			name: "chained indices",
			expr: "grid[1][3]",
			want: []types.PathSegment{{Key: "grid"}, {Index: 1, IsIndex: true}, {Index: 3, IsIndex: true}},
		},
		{name: "empty", expr: "", wantErr: types.ErrInvalidPath},
		{name: "root only", expr: "$", wantErr: types.ErrInvalidPath},
		{name: "empty segment", expr: "a..b", wantErr: types.ErrInvalidPath},
		{name: "unterminated index", expr: "a[0", wantErr: types.ErrInvalidPath},
		{name: "negative index", expr: "a[-1]", wantErr: types.ErrInvalidPath},
		{name: "non-numeric index", expr: "a[x]", wantErr: types.ErrInvalidPath},
		{name: "junk after index", expr: "a[0]b", wantErr: types.ErrInvalidPath},
		{name: "too many wildcards", expr: "a[*][*][*]", wantErr: types.ErrTooManyWildcards},
		{name: "too deep", expr: "a.b.c.d.e.f.g.h.i.j.k.l.m.n.o.p.q", wantErr: types.ErrPathTooDeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParsePath(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) error = %v", tt.expr, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParsePath(%q) = %+v, want %+v", tt.expr, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("segment %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFormatPath_RoundTrip(t *testing.T) {
	for _, expr := range []string{"postcode", "address.postcode", "contacts[0].postcode", "branches[*].pc", "[2].pc", "grid[1][3]"} {
		path, err := ParsePath(expr)
		if err != nil {
			t.Fatalf("ParsePath(%q) error = %v", expr, err)
		}
		if got := FormatPath(path); got != expr {
			t.Errorf("FormatPath(ParsePath(%q)) = %q", expr, got)
		}
	}
}

func TestResolve_Normal(t *testing.T) {
	tests := []struct {
		name     string
		path     []types.PathSegment
		data     string
		expected any
	}{
		{
			name:     "nested object traversal",
			path:     []types.PathSegment{{Key: "address"}, {Key: "postcode"}},
			data:     `{"address": {"postcode": "SW1W 0NY"}}`,
			expected: "SW1W 0NY",
		},
		{
			name:     "array index access",
			path:     []types.PathSegment{{Key: "contacts"}, {Index: 1, IsIndex: true}, {Key: "postcode"}},
			data:     `{"contacts": [{"postcode": "M1 1AA"}, {"postcode": "W1A 0AX"}]}`,
			expected: "W1A 0AX",
		},
		{
			name:     "wildcard skips elements without the field",
			path:     []types.PathSegment{{Key: "branches"}, {Wildcard: true}, {Key: "postcode"}},
			data:     `{"branches": [{"name": "hq"}, {"postcode": "EC1A 1BB"}]}`,
			expected: "EC1A 1BB",
		},
		{
			name:     "wildcard on object sorted keys",
			path:     []types.PathSegment{{Wildcard: true}, {Key: "postcode"}},
			data:     `{"z": {"postcode": "M1 1AA"}, "a": {"postcode": "BFPO 57"}}`,
			expected: "BFPO 57",
		},
		{
			name:     "numeric leaf is returned as float64",
			path:     []types.PathSegment{{Key: "postcode"}},
			data:     `{"postcode": 12345}`,
			expected: float64(12345),
		},
		{
			name:     "null leaf is found",
			path:     []types.PathSegment{{Key: "postcode"}},
			data:     `{"postcode": null}`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Resolve(tt.path, json.RawMessage(tt.data))
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !result.Found {
				t.Fatalf("Resolve() Found = false, want true")
			}
			if result.Value != tt.expected {
				t.Errorf("Resolve() Value = %v, expected %v", result.Value, tt.expected)
			}
		})
	}
}

func TestResolve_ResolvedPath(t *testing.T) {
	path := []types.PathSegment{{Key: "branches"}, {Wildcard: true}, {Key: "postcode"}}
	data := `{"branches": [{"name": "hq"}, {"postcode": "EC1A 1BB"}]}`

	result, err := Resolve(path, json.RawMessage(data))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := FormatPath(result.ResolvedPath); got != "branches[1].postcode" {
		t.Errorf("ResolvedPath = %q, want branches[1].postcode", got)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    []types.PathSegment
		data    string
		wantErr error
	}{
		{"missing key", []types.PathSegment{{Key: "postcode"}}, `{}`, types.ErrFieldNotFound},
		{"empty array wildcard", []types.PathSegment{{Wildcard: true}}, `[]`, types.ErrFieldNotFound},
		{"null intermediate", []types.PathSegment{{Key: "address"}, {Key: "postcode"}}, `{"address": null}`, types.ErrFieldNotFound},
		{"scalar intermediate", []types.PathSegment{{Key: "address"}, {Key: "postcode"}}, `{"address": "x"}`, types.ErrFieldNotFound},
		{"index out of bounds", []types.PathSegment{{Index: 5, IsIndex: true}}, `[1]`, types.ErrFieldNotFound},
		{"key on array", []types.PathSegment{{Key: "k"}}, `[1]`, types.ErrFieldNotFound},
		{"index on object", []types.PathSegment{{Index: 0, IsIndex: true}}, `{"0": 1}`, types.ErrFieldNotFound},
		{
			"too many wildcards",
			[]types.PathSegment{{Wildcard: true}, {Wildcard: true}, {Wildcard: true}},
			`[]`,
			types.ErrTooManyWildcards,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.path, json.RawMessage(tt.data))
			if err != tt.wantErr {
				t.Errorf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Resolve([]types.PathSegment{{Key: "k"}}, json.RawMessage(`{invalid json}`)); err == nil {
		t.Error("Resolve() expected JSON error, got nil")
	}
}

func TestResolve_PropertyNeverCrashes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("resolution never crashes regardless of input", prop.ForAll(
		func(expr string, data string) bool {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("panicked with expr=%q data=%q: %v", expr, data, r)
				}
			}()

			path, err := ParsePath(expr)
			if err != nil {
				return true
			}
			_, _ = Resolve(path, json.RawMessage(data))
			return true
		},
		gen.OneConstOf("a", "a.b", "a[0]", "a[*].b", "*", "[0]", "a[", "a..b", "[*][*].c"),
		gen.OneConstOf(`{}`, `[]`, `null`, `{"a": [1, {"b": "x"}]}`, `{"a": {"b": null}}`, `[[{"c": 1}]]`, `{`),
	))

	properties.TestingRun(t)
}

func TestResolve_PropertyWildcardDeterminism(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("wildcard resolution is deterministic", prop.ForAll(
		func(seed int) bool {
			path := []types.PathSegment{{Wildcard: true}, {Key: "postcode"}}
			data := `{"z": {"postcode": "M1 1AA"}, "a": {"postcode": "W1A 0AX"}, "m": {"postcode": "BFPO 57"}}`

			result1, err1 := Resolve(path, json.RawMessage(data))
			result2, err2 := Resolve(path, json.RawMessage(data))
			if err1 != nil || err2 != nil {
				return false
			}
			return result1.Value == result2.Value && result1.Value == "W1A 0AX"
		},
		gen.Int(),
	))

	properties.TestingRun(t)
}

// internal/types/path.go
package types

/*
 * Field path types for record scanning.
 *
 * A path addresses the postcode field inside a JSON record, e.g.
 * address.postcode, contacts[0].postcode or branches[*].postcode.
 * Parsing lives in internal/records; these types stay here so callers can
 * build paths without importing the scanner.
 */

// PathSegment represents one component of a field path.
// String for object keys, int for array indices, wildcard for expansion.
type PathSegment struct {
	Key      string // object key (mutually exclusive with Index/Wildcard)
	Index    int    // array index (mutually exclusive with Key/Wildcard)
	IsIndex  bool   // disambiguates Index=0 from unset
	Wildcard bool   // true = wildcard segment
}

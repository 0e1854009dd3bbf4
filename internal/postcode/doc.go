// Package postcode validates, normalizes, formats and decomposes United
// Kingdom postcodes, including the documented special cases, British Forces
// Post Office (BFPO) codes and numeric overseas-territory codes.
//
// All functions are pure and safe for concurrent use. Callers pass raw input
// in any spacing or case; normalization runs first on every call.
package postcode

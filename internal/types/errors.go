package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for postcode operations.
var (
	// ErrTypeMismatch indicates a dynamically typed input was not a string.
	ErrTypeMismatch = errors.New("postcode must be of type string")

	// ErrEmptyInput indicates an empty or whitespace-only postcode.
	ErrEmptyInput = errors.New("postcode cannot be empty")

	// ErrInvalidPostcode indicates input that matches no recognized postcode shape.
	// Returned wrapped in *InvalidPostcodeError.
	ErrInvalidPostcode = errors.New("invalid postcode")

	// ErrNoInwardCode indicates the matched shape has no inward code (BFPO).
	ErrNoInwardCode = errors.New("postcode has no inward code")

	// ErrInputTooLong indicates input exceeds MaxInputLength.
	ErrInputTooLong = errors.New("postcode input too long")

	// ErrBatchTooLarge indicates a batch lookup exceeds the configured size.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrInvalidPath indicates a record field path could not be parsed.
	ErrInvalidPath = errors.New("invalid field path")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrTooManyWildcards indicates a field path exceeds MaxNestedWildcards.
	ErrTooManyWildcards = errors.New("field path has too many wildcards")

	// ErrFieldNotFound indicates a field path could not be resolved.
	ErrFieldNotFound = errors.New("field not found")
)

// InvalidPostcodeError reports the raw input that failed classification.
type InvalidPostcodeError struct {
	Input string
}

func (e *InvalidPostcodeError) Error() string {
	return fmt.Sprintf("invalid postcode: %s", e.Input)
}

// Unwrap lets errors.Is match ErrInvalidPostcode.
func (e *InvalidPostcodeError) Unwrap() error {
	return ErrInvalidPostcode
}

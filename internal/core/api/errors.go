package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/types"
)

// toStatus maps domain errors onto gRPC status codes.
//
//	type mismatch, empty, invalid, too long, batch too large -> INVALID_ARGUMENT
//	no inward code                                         -> FAILED_PRECONDITION
//	database                                               -> UNAVAILABLE
//	context cancelled / deadline                           -> CANCELLED / DEADLINE_EXCEEDED
//	anything else                                          -> INTERNAL
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, types.ErrTypeMismatch),
		errors.Is(err, types.ErrEmptyInput),
		errors.Is(err, types.ErrInvalidPostcode),
		errors.Is(err, types.ErrInputTooLong),
		errors.Is(err, types.ErrBatchTooLarge):
		code = codes.InvalidArgument
	case errors.Is(err, types.ErrNoInwardCode):
		code = codes.FailedPrecondition
	case errors.Is(err, auth.ErrDatabase):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

package service

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/airspace-deconfliction/core"
	"github.com/signalsfoundry/airspace-deconfliction/kb"
)

var (
	// ErrInvalidRequest is used for request-shape validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTooManySamples is returned when a verification grid exceeds the
	// configured sample limit.
	ErrTooManySamples = errors.New("sampling grid exceeds max_samples")
)

// ToStatusError maps registry, detector and context errors onto gRPC status
// codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrMissionNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrTooManySamples),
		errors.Is(err, kb.ErrInvalidMission),
		errors.Is(err, core.ErrInvalidMission),
		errors.Is(err, core.ErrInvalidConfig):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrMissionExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

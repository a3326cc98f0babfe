package api

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/matheus3301/sigma/internal/backend"
	"github.com/matheus3301/sigma/internal/outbox"
	"github.com/matheus3301/sigma/internal/realtime"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps domain errors onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := grpcstatus.FromError(err); ok {
		return err
	}
	var he *backend.HTTPError
	var ne net.Error
	switch {
	case errors.Is(err, outbox.ErrEmptyText), errors.Is(err, outbox.ErrNoPeer):
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, outbox.ErrNoSession),
		errors.Is(err, realtime.ErrAuthFailed),
		errors.Is(err, realtime.ErrMissingToken),
		backend.IsUnauthorized(err):
		return grpcstatus.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, realtime.ErrNotConnected),
		errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, backend.ErrBadJSON):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.As(err, &he):
		if he.Status >= http.StatusInternalServerError {
			return grpcstatus.Error(codes.Unavailable, he.Error())
		}
		return grpcstatus.Error(codes.InvalidArgument, he.Message)
	case errors.Is(err, backend.ErrNoToken):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return grpcstatus.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.Error(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &ne):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}

// ErrorMessage returns the human-readable part of a gRPC error.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return grpcstatus.Convert(err).Message()
}

// IsCode reports whether err carries code c.
func IsCode(err error, c codes.Code) bool {
	return grpcstatus.Code(err) == c
}

package api

import (
	"errors"
	"net/http"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
)

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func grpcCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, domain.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrForbidden):
		return codes.PermissionDenied
	case errors.Is(err, domain.ErrConflict):
		return codes.AlreadyExists
	default:
		return codes.Internal
	}
}

// writeDomainError hides unexpected errors behind a generic message.
func writeDomainError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		logger.Error().Err(err).Msg("Unexpected error while handling request")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, err.Error())
}

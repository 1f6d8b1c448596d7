// Package handlers provides the camarr control API handlers.
package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camarr/camarr/internal/models"
)

// apiError maps domain error kinds onto HTTP statuses. Unclassified
// errors are treated as internal.
func apiError(err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, models.ErrValidation):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, models.ErrAlreadyActive):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, models.ErrBackendMismatch),
		errors.Is(err, models.ErrNotSupported):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, models.ErrProtocolFailure):
		return huma.Error502BadGateway(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}

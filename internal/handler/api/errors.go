package api

import (
	"errors"

	"LoserLab/internal/domain/models"
	"LoserLab/internal/services/scoring"
	"LoserLab/internal/usecase"
	xhttp "LoserLab/pkg/http"
)

// toAppError maps domain errors onto HTTP errors.
func toAppError(err error) *xhttp.AppError {
	var cfgErr *models.ConfigError
	switch {
	case errors.Is(err, models.ErrNotFound):
		return xhttp.NotFoundErrorf("%s", err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrRunNotReady):
		return xhttp.ConflictErrorf("%s", err.Error()).WithError(err)
	case errors.As(err, &cfgErr):
		return xhttp.UnprocessableError(cfgErr.Error()).WithError(err)
	case errors.Is(err, scoring.ErrNoValidPicks):
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	default:
		return xhttp.InternalError("internal error").WithError(err)
	}
}

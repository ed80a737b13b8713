package services

import (
	"errors"
	"net/http"

	apierrors "playlistpulse/internal/errors"
)

// Dashboard service errors
var (
	ErrNoInput          = errors.New("no files uploaded")
	ErrNoDataset        = errors.New("no dataset uploaded for this session")
	ErrUnknownView      = errors.New("unknown view")
	ErrInvalidTopN      = errors.New("top_n is not an allowed value")
	ErrInvalidFormat    = errors.New("unsupported export format")
	ErrChartUnavailable = errors.New("chart unavailable")
)

// ToAPIError maps service errors onto API errors. Errors that already carry
// an API or application type pass through unchanged.
func ToAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoInput):
		return apierrors.NewNoInputError()
	case errors.Is(err, ErrNoDataset):
		return apierrors.ErrNoDataset
	case errors.Is(err, ErrUnknownView):
		return apierrors.ErrValidation("view", err.Error())
	case errors.Is(err, ErrInvalidTopN):
		return apierrors.ErrValidation("top_n", err.Error())
	case errors.Is(err, ErrInvalidFormat):
		return apierrors.ErrValidation("format", err.Error())
	case errors.Is(err, ErrChartUnavailable):
		return apierrors.NewWithDetails(http.StatusUnprocessableEntity, "CHART_UNAVAILABLE",
			apierrors.ErrChartUnavailable.Message, err.Error())
	default:
		return err
	}
}

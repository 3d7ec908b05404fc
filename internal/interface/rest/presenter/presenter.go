package presenter

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/donatale/donatale/internal/domain"
)

const internalErrorMessage = "An unexpected error occurred. Please try again later."

type errorResponse struct {
	Message string `json:"message"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Message: msg})
}

// Error maps the domain error taxonomy to a status code.
// Anything unclassified is logged and answered with a generic 500.
func Error(c echo.Context, logger zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: "Donation item not found"})
	case errors.Is(err, domain.ErrConflict):
		return c.JSON(http.StatusConflict, errorResponse{Message: "This item has already been donated"})
	}
	return InternalError(c, logger, err)
}

func InternalError(c echo.Context, logger zerolog.Logger, err error) error {
	logger.Error().Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("request failed")
	return c.JSON(http.StatusInternalServerError, errorResponse{Message: internalErrorMessage})
}

package carerecord

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// HTTPError maps a domain error to an echo error response.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrStore):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "care record store unavailable").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

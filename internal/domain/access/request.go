package access

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// FromRequest returns the identity the auth middleware attached to the
// request, or a 401 error.
func FromRequest(c echo.Context) (Identity, error) {
	id, ok := IdentityFromContext(c.Request().Context())
	if !ok {
		return Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}

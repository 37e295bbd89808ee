package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// PanicHook is told the route of every recovered panic.
type PanicHook func(route string)

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so the server drops the connection.
func Recovery(logger zerolog.Logger, hooks ...PanicHook) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				err = recovered(logger, c, r, hooks)
			}()
			return next(c)
		}
	}
}

func recovered(logger zerolog.Logger, c echo.Context, r interface{}, hooks []PanicHook) error {
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("%v", r)
	}
	route := c.Path()
	if route == "" {
		route = c.Request().URL.Path
	}
	rid, _ := c.Get("request_id").(string)

	logger.Error().
		Err(cause).
		Str("request_id", rid).
		Str("method", c.Request().Method).
		Str("route", route).
		Bytes("stack", debug.Stack()).
		Msg("handler panicked")
	for _, hook := range hooks {
		hook(route)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(cause)
}

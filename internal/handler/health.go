package handler // declare the package name; contains HTTP handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is anything that can report whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health returns a health-check handler for load balancers.  With no
// pingers it only reports that the process is up; otherwise every pinger
// must answer within the request timeout or the check returns 503.
func Health(pingers ...Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := requestCtx(c)
		defer cancel()
		for _, p := range pingers {
			if err := p.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	}
}

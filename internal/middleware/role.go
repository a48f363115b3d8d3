package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
)

// TargetFunc extracts the id of the record a request acts on.  Nil means
// the action has no target.
type TargetFunc func(c echo.Context) string

// ParamTarget reads the target id from a path parameter.
func ParamTarget(name string) TargetFunc {
	return func(c echo.Context) string { return c.Param(name) }
}

// Require aborts with 403 unless the policy allows the session to perform
// action on the target.  It runs after Authenticate; a request without a
// session is rejected with 401.
func Require(action auth.Action, target TargetFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			s, ok := SessionOf(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			id := ""
			if target != nil {
				id = target(c)
			}
			if auth.Decide(s, action, id) == auth.Deny {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

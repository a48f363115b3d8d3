package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
)

// Route identifies a registered route by method and path pattern, e.g.
// {"POST", "/auth/login"}.
type Route struct {
	Method string
	Path   string
}

// AccessVerifier checks a raw access token.  *auth.Authenticator
// satisfies it.
type AccessVerifier interface {
	VerifyAccess(raw string) (auth.Session, error)
}

// Authenticate is the single authentication stage for the whole server.
// Routes in public pass through untouched; every other route needs a
// valid Bearer access token.  The resulting session is stored both on
// the echo context and on the request context.
func Authenticate(v AccessVerifier, public ...Route) echo.MiddlewareFunc {
	allow := make(map[Route]bool, len(public))
	for _, r := range public {
		allow[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if allow[Route{Method: c.Request().Method, Path: c.Path()}] {
				return next(c)
			}
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			s, err := v.VerifyAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			setSession(c, s)
			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <t>"
// header.  The scheme is matched case-insensitively.
func BearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, raw, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

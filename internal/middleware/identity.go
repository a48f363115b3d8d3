package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
)

const sessionKey = "session"

func setSession(c echo.Context, s auth.Session) {
	c.Set(sessionKey, s)
	c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), s)))
}

// SessionOf returns the session that Authenticate stored for this request.
// ok is false on public routes.
func SessionOf(c echo.Context) (auth.Session, bool) {
	s, ok := c.Get(sessionKey).(auth.Session)
	return s, ok
}

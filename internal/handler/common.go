package handler // handler defines http handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/middleware"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/service"
)

// requestTimeout bounds every storage call made on behalf of a request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// session returns the caller's session.  Routes behind Authenticate always
// have one; the fallback only guards against a wiring mistake.
func session(c echo.Context) (auth.Session, error) {
	s, ok := middleware.SessionOf(c)
	if !ok {
		return auth.Session{}, auth.ErrUnauthenticated
	}
	return s, nil
}

// fail writes the JSON error body for err.  Each sentinel maps to exactly
// one status; anything unrecognised is a 500 with the detail only logged.
func fail(c echo.Context, log *slog.Logger, err error) error {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusBadRequest, "invalid credentials"
	case errors.Is(err, auth.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, auth.ErrForbidden):
		status, msg = http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrEmailExists):
		status, msg = http.StatusConflict, "email already in use"
	default:
		log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

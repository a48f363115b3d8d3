package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/middleware"
)

// AuthFlows is the orchestrator behind the /auth routes.  *auth.Service
// satisfies it.
type AuthFlows interface {
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, subject, token string) (auth.TokenPair, error)
	Logout(ctx context.Context, subject string) error
}

// RefreshParser reads the subject out of a signed refresh token.
type RefreshParser interface {
	RefreshSubject(raw string) (string, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Flows   AuthFlows
	Refresh RefreshParser
	Log     *slog.Logger
}

func NewAuthHandler(flows AuthFlows, refresh RefreshParser, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Flows: flows, Refresh: refresh, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login: verify email/password and return a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	pair, err := h.Flows.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// RefreshTokens: exchange the bearer refresh token for a new pair.  The
// presented token stops working once this returns.
func (h *AuthHandler) RefreshTokens(c echo.Context) error {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	subject, err := h.Refresh.RefreshSubject(raw)
	if err != nil {
		return fail(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	pair, err := h.Flows.Refresh(ctx, subject, raw)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout: clear the caller's refresh slot.  The access token itself stays
// valid until it expires.
func (h *AuthHandler) Logout(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Flows.Logout(ctx, s.Subject); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusOK)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/handler"
	"github.com/iliyamo/tms-api/internal/middleware"
)

// Public lists the only routes reachable without an access token.  The
// refresh route authenticates with the refresh token inside its handler.
var Public = []middleware.Route{
	{Method: http.MethodPost, Path: "/auth/login"},
	{Method: http.MethodGet, Path: "/auth/refresh"},
	{Method: http.MethodGet, Path: "/healthz"},
	{Method: http.MethodGet, Path: "/metrics"},
}

// Deps carries everything RegisterRoutes wires.
type Deps struct {
	Access  middleware.AccessVerifier
	Auth    *handler.AuthHandler
	Users   *handler.UserHandler
	Health  echo.HandlerFunc
	Metrics http.Handler
}

// RegisterRoutes installs the authentication stage and every route.  All
// routes except those in Public require a valid access token.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.Use(middleware.Authenticate(d.Access, Public...))

	e.GET("/healthz", d.Health)
	e.GET("/metrics", echo.WrapHandler(d.Metrics))

	a := e.Group("/auth")
	a.POST("/login", d.Auth.Login)
	a.GET("/refresh", d.Auth.RefreshTokens)
	a.POST("/logout", d.Auth.Logout)

	u := e.Group("/users")
	u.GET("", d.Users.List, middleware.Require(auth.ActionListIdentities, nil))
	u.POST("", d.Users.Add, middleware.Require(auth.ActionCreateIdentity, nil))
	u.GET("/me", d.Users.Me)
	u.PATCH("/me", d.Users.PatchMe)
	u.PUT("/me/password", d.Users.ChangePassword)
	u.DELETE("/me", d.Users.DeleteSelf)
	u.GET("/:id", d.Users.Get, middleware.Require(auth.ActionReadIdentity, middleware.ParamTarget("id")))
	u.PATCH("/:id", d.Users.Patch, middleware.Require(auth.ActionUpdateIdentity, middleware.ParamTarget("id")))
	u.DELETE("/:id", d.Users.Delete, middleware.Require(auth.ActionDeleteIdentity, middleware.ParamTarget("id")))
}

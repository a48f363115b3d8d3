package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/handler"
	"github.com/iliyamo/tms-api/internal/metrics"
	"github.com/iliyamo/tms-api/internal/model"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/service"
	"github.com/iliyamo/tms-api/internal/utils"
)

const pw = "correct horse battery"

type app struct {
	e    *echo.Echo
	repo *repository.MemoryUserRepo
}

func newApp(t *testing.T) *app {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryUserRepo()
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		AccessSecret: "access-secret", AccessTTL: 20 * time.Minute,
		RefreshSecret: "refresh-secret", RefreshTTL: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	store := auth.NewRefreshStore(repo, utils.MinCost)
	authn := auth.NewAuthenticator(issuer, repo, store)
	m := metrics.New()
	flows := auth.NewService(authn, issuer, store, m)
	users := service.NewUserService(repo, store, utils.MinCost, nil, log)

	e := echo.New()
	RegisterRoutes(e, Deps{
		Access:  authn,
		Auth:    handler.NewAuthHandler(flows, authn, log),
		Users:   handler.NewUserHandler(users, log),
		Health:  handler.Health(),
		Metrics: m.Handler(),
	})

	a := &app{e: e, repo: repo}
	a.seed(t, "admin", "admin@example.com", model.RoleAdmin)
	a.seed(t, "u1", "u1@example.com", model.RoleUser)
	return a
}

func (a *app) seed(t *testing.T, id, email string, role model.Role) {
	t.Helper()
	hash, err := utils.HashPassword(pw, utils.MinCost)
	require.NoError(t, err)
	_, err = a.repo.Create(context.Background(), model.User{
		ID: id, Email: email, FirstName: "First", LastName: "Last", PasswordHash: hash, Role: role,
	})
	require.NoError(t, err)
}

func (a *app) call(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *app) login(t *testing.T, email string) auth.TokenPair {
	t.Helper()
	rec := a.call(http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"`+pw+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pair auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	return pair
}

func TestLogin(t *testing.T) {
	a := newApp(t)
	a.login(t, "u1@example.com")

	wrong := a.call(http.MethodPost, "/auth/login", "", `{"email":"u1@example.com","password":"nope"}`)
	unknown := a.call(http.MethodPost, "/auth/login", "", `{"email":"ghost@example.com","password":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/auth/login", "", `{"email":`).Code)
	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodPost, "/auth/login", "", `{"email":"u1@example.com"}`).Code)
}

func TestRefreshRotation(t *testing.T) {
	a := newApp(t)
	first := a.login(t, "u1@example.com")

	rec := a.call(http.MethodGet, "/auth/refresh", first.RefreshToken, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var second auth.TokenPair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/auth/refresh", first.RefreshToken, "").Code, "rotated-out token")
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/auth/refresh", second.AccessToken, "").Code, "access token as refresh")
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/auth/refresh", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/users/me", second.RefreshToken, "").Code, "refresh token as access")
}

func TestLogout(t *testing.T) {
	a := newApp(t)
	pair := a.login(t, "u1@example.com")

	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodPost, "/auth/logout", "", "").Code)

	rec := a.call(http.MethodPost, "/auth/logout", pair.AccessToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	assert.Equal(t, http.StatusOK, a.call(http.MethodPost, "/auth/logout", pair.AccessToken, "").Code, "logout is idempotent")
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/auth/refresh", pair.RefreshToken, "").Code)
	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/users/me", pair.AccessToken, "").Code, "access token outlives logout")
}

func TestUsersMe(t *testing.T) {
	a := newApp(t)
	pair := a.login(t, "u1@example.com")

	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/users/me", "", "").Code)

	rec := a.call(http.MethodGet, "/users/me", pair.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"u1","firstName":"First","lastName":"Last","email":"u1@example.com","role":"user"}`, rec.Body.String())

	rec = a.call(http.MethodPatch, "/users/me", pair.AccessToken, `{"firstName":"Una"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"firstName":"Una"`)

	assert.Equal(t, http.StatusForbidden, a.call(http.MethodPatch, "/users/me", pair.AccessToken, `{"role":"admin"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodPatch, "/users/me", pair.AccessToken, `{"email":"not-an-email"}`).Code)
}

func TestAdminRoutes(t *testing.T) {
	a := newApp(t)
	user := a.login(t, "u1@example.com")
	admin := a.login(t, "admin@example.com")

	assert.Equal(t, http.StatusForbidden, a.call(http.MethodGet, "/users", user.AccessToken, "").Code)
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodGet, "/users/admin", user.AccessToken, "").Code)
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodGet, "/users/ghost", user.AccessToken, "").Code)

	rec := a.call(http.MethodGet, "/users?limit=1&offset=0", admin.AccessToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users       []map[string]any `json:"users"`
		FilterCount int              `json:"filterCount"`
		TotalCount  int              `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Users, 1)
	assert.Equal(t, 2, list.TotalCount)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodGet, "/users?limit=ten", admin.AccessToken, "").Code)

	body := `{"firstName":"New","lastName":"Person","email":"new@example.com","password":"pw-new","role":"user"}`
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodPost, "/users", user.AccessToken, body).Code)
	rec = a.call(http.MethodPost, "/users", admin.AccessToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"].(string)
	assert.Equal(t, http.StatusConflict, a.call(http.MethodPost, "/users", admin.AccessToken, body).Code)

	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/users/"+id, admin.AccessToken, "").Code)
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/users/ghost", admin.AccessToken, "").Code)

	rec = a.call(http.MethodPatch, "/users/"+id, admin.AccessToken, `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"admin"`)
	assert.Equal(t, http.StatusForbidden, a.call(http.MethodPatch, "/users/"+id, user.AccessToken, `{"firstName":"X"}`).Code)

	assert.Equal(t, http.StatusForbidden, a.call(http.MethodDelete, "/users/"+id, user.AccessToken, "").Code)
	assert.Equal(t, http.StatusNoContent, a.call(http.MethodDelete, "/users/"+id, admin.AccessToken, "").Code)
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/users/"+id, admin.AccessToken, "").Code)
}

func TestChangePasswordRevokesRefresh(t *testing.T) {
	a := newApp(t)
	pair := a.login(t, "u1@example.com")

	assert.Equal(t, http.StatusBadRequest,
		a.call(http.MethodPut, "/users/me/password", pair.AccessToken, `{"password":"wrong","newPassword":"next-pw"}`).Code)
	assert.Equal(t, http.StatusNoContent,
		a.call(http.MethodPut, "/users/me/password", pair.AccessToken, `{"password":"`+pw+`","newPassword":"next-pw"}`).Code)

	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/auth/refresh", pair.RefreshToken, "").Code)
	assert.Equal(t, http.StatusBadRequest,
		a.call(http.MethodPost, "/auth/login", "", `{"email":"u1@example.com","password":"`+pw+`"}`).Code)
	assert.Equal(t, http.StatusOK,
		a.call(http.MethodPost, "/auth/login", "", `{"email":"u1@example.com","password":"next-pw"}`).Code)
}

func TestPasswordTooLongIsBadRequest(t *testing.T) {
	a := newApp(t)
	admin := a.login(t, "admin@example.com")
	user := a.login(t, "u1@example.com")
	long := strings.Repeat("x", utils.MaxPasswordBytes+8)

	body := `{"firstName":"New","lastName":"Person","email":"long@example.com","password":"` + long + `","role":"user"}`
	rec := a.call(http.MethodPost, "/users", admin.AccessToken, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = a.call(http.MethodPut, "/users/me/password", user.AccessToken, `{"password":"`+pw+`","newPassword":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusOK,
		a.call(http.MethodPost, "/auth/login", "", `{"email":"u1@example.com","password":"`+pw+`"}`).Code)
}

func TestDeleteSelf(t *testing.T) {
	a := newApp(t)
	pair := a.login(t, "u1@example.com")

	assert.Equal(t, http.StatusBadRequest, a.call(http.MethodDelete, "/users/me", pair.AccessToken, `{"password":"wrong"}`).Code)
	assert.Equal(t, http.StatusNoContent, a.call(http.MethodDelete, "/users/me", pair.AccessToken, `{"password":"`+pw+`"}`).Code)
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/users/me", pair.AccessToken, "").Code)
	assert.Equal(t, http.StatusNotFound, a.call(http.MethodGet, "/auth/refresh", pair.RefreshToken, "").Code)
}

func TestPublicAndDefaultDeny(t *testing.T) {
	a := newApp(t)
	a.login(t, "u1@example.com")

	assert.Equal(t, http.StatusOK, a.call(http.MethodGet, "/healthz", "", "").Code)

	rec := a.call(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tms_auth_flows_total{flow="login",result="ok"} 1`)

	assert.Equal(t, http.StatusUnauthorized, a.call(http.MethodGet, "/nowhere", "", "").Code)
}

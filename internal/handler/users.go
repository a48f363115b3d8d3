package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tms-api/internal/model"
	"github.com/iliyamo/tms-api/internal/service"
)

// UserHandler exposes user management over HTTP.
type UserHandler struct {
	Users *service.UserService
	Log   *slog.Logger
}

func NewUserHandler(users *service.UserService, log *slog.Logger) *UserHandler {
	return &UserHandler{Users: users, Log: log}
}

type userDTO struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

type userListDTO struct {
	Users       []userDTO `json:"users"`
	FilterCount int       `json:"filterCount"`
	TotalCount  int       `json:"totalCount"`
}

type addUserReq struct {
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      model.Role `json:"role"`
}

type patchUserReq struct {
	FirstName *string     `json:"firstName"`
	LastName  *string     `json:"lastName"`
	Email     *string     `json:"email"`
	Role      *model.Role `json:"role"`
}

type changePasswordReq struct {
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

type deleteSelfReq struct {
	Password string `json:"password"`
}

// toDTO drops the password and refresh-token hashes.
func toDTO(u model.User) userDTO {
	return userDTO{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Role: u.Role}
}

// List: GET /users?limit=10&offset=0&filter=
func (h *UserHandler) List(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	limit, err := queryInt(c, "limit", 10)
	if err != nil {
		return badRequest(c, "limit must be an integer")
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return badRequest(c, "offset must be an integer")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	out, err := h.Users.List(ctx, s, limit, offset, c.QueryParam("filter"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	resp := userListDTO{Users: make([]userDTO, 0, len(out.Users)), FilterCount: out.FilterCount, TotalCount: out.TotalCount}
	for _, u := range out.Users {
		resp.Users = append(resp.Users, toDTO(u))
	}
	return c.JSON(http.StatusOK, resp)
}

// Me: GET /users/me
func (h *UserHandler) Me(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Me(ctx, s)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toDTO(u))
}

// Get: GET /users/:id
func (h *UserHandler) Get(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, s, c.Param("id"))
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toDTO(u))
}

// Add: POST /users
func (h *UserHandler) Add(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req addUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Add(ctx, s, service.NewUser{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toDTO(u))
}

// PatchMe: PATCH /users/me
func (h *UserHandler) PatchMe(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return h.patch(c, s.Subject)
}

// Patch: PATCH /users/:id
func (h *UserHandler) Patch(c echo.Context) error {
	return h.patch(c, c.Param("id"))
}

func (h *UserHandler) patch(c echo.Context, id string) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req patchUserReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.Update(ctx, s, id, model.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toDTO(u))
}

// ChangePassword: PUT /users/me/password
func (h *UserHandler) ChangePassword(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Users.ChangePassword(ctx, s, req.Password, req.NewPassword); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteSelf: DELETE /users/me with {"password": ...}
func (h *UserHandler) DeleteSelf(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req deleteSelfReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Users.DeleteSelf(ctx, s, req.Password); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete: DELETE /users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	s, err := session(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, s, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

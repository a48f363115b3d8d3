package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/model"
	q "github.com/iliyamo/tms-api/internal/queue"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/utils"
)

// ErrInvalidInput marks a request that failed validation.  The wrapped
// message names the offending field and is safe to show to the client.
var ErrInvalidInput = errors.New("invalid input")

// MaxPageSize caps the limit of a user listing.
const MaxPageSize = 100

// UserStore is the user persistence the service needs.  Both
// repository.UserRepo and repository.MemoryUserRepo satisfy it.
type UserStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	List(ctx context.Context, limit, offset int, filter string) (model.UserList, error)
	Update(ctx context.Context, id string, p model.UserPatch) (model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// Emitter receives audit events for changes to user records.
type Emitter interface {
	Emit(ev q.AuthEvent)
}

type nopEmitter struct{}

func (nopEmitter) Emit(q.AuthEvent) {}

// NewUser is the input of Add.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      model.Role
}

// UserService implements user management on top of the auth policy.  Every
// method takes the caller's session and checks it before touching storage.
type UserService struct {
	users  UserStore
	slots  *auth.RefreshStore
	cost   int
	events Emitter
	log    *slog.Logger
}

// NewUserService wires the service.  events may be nil.
func NewUserService(users UserStore, slots *auth.RefreshStore, cost int, events Emitter, log *slog.Logger) *UserService {
	if events == nil {
		events = nopEmitter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &UserService{users: users, slots: slots, cost: cost, events: events, log: log}
}

// List returns one page of users.  Admin only.
func (s *UserService) List(ctx context.Context, sess auth.Session, limit, offset int, filter string) (model.UserList, error) {
	if err := auth.Authorize(sess, auth.ActionListIdentities, ""); err != nil {
		return model.UserList{}, err
	}
	if limit < 0 || offset < 0 {
		return model.UserList{}, invalid("limit and offset must not be negative")
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	out, err := s.users.List(ctx, limit, offset, filter)
	if err != nil {
		return model.UserList{}, storeErr("list users", err)
	}
	return out, nil
}

// Get returns any user by id.  Admin only; a denied caller gets
// ErrForbidden whether or not the user exists.
func (s *UserService) Get(ctx context.Context, sess auth.Session, id string) (model.User, error) {
	if err := auth.Authorize(sess, auth.ActionReadIdentity, id); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, storeErr("get user", err)
	}
	return u, nil
}

// Me returns the caller's own record.
func (s *UserService) Me(ctx context.Context, sess auth.Session) (model.User, error) {
	if err := auth.Authorize(sess, auth.ActionReadSelf, sess.Subject); err != nil {
		return model.User{}, err
	}
	u, err := s.users.GetByID(ctx, sess.Subject)
	if err != nil {
		return model.User{}, storeErr("get user", err)
	}
	return u, nil
}

// Add creates a user with a fresh UUID and a bcrypt password hash.  Admin
// only.
func (s *UserService) Add(ctx context.Context, sess auth.Session, in NewUser) (model.User, error) {
	if err := auth.Authorize(sess, auth.ActionCreateIdentity, ""); err != nil {
		return model.User{}, err
	}
	if err := validateNew(in); err != nil {
		return model.User{}, err
	}
	u, err := s.create(ctx, in)
	if err != nil {
		return model.User{}, err
	}
	s.events.Emit(q.NewAuthEvent(q.EventUserCreated, "ok", u.ID, sess.Subject))
	return u, nil
}

// Update applies p to user id.  Callers may update their own record;
// updating anyone else, or changing a role, requires admin.
func (s *UserService) Update(ctx context.Context, sess auth.Session, id string, p model.UserPatch) (model.User, error) {
	if err := auth.Authorize(sess, auth.ActionUpdateIdentity, id); err != nil {
		return model.User{}, err
	}
	if p.Role != nil {
		if err := auth.Authorize(sess, auth.ActionAssignRole, id); err != nil {
			return model.User{}, err
		}
	}
	if err := validatePatch(p); err != nil {
		return model.User{}, err
	}
	if p.Empty() {
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return model.User{}, storeErr("get user", err)
		}
		return u, nil
	}
	u, err := s.users.Update(ctx, id, p)
	if err != nil {
		return model.User{}, storeErr("update user", err)
	}
	s.events.Emit(q.NewAuthEvent(q.EventUserUpdated, "ok", u.ID, sess.Subject))
	return u, nil
}

// Delete removes user id.  Deleting a user that is already gone succeeds.
func (s *UserService) Delete(ctx context.Context, sess auth.Session, id string) error {
	if err := auth.Authorize(sess, auth.ActionDeleteIdentity, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storeErr("delete user", err)
	}
	s.events.Emit(q.NewAuthEvent(q.EventUserDeleted, "ok", id, sess.Subject))
	return nil
}

// DeleteSelf removes the caller's own account after re-checking the
// password.  A wrong password yields auth.ErrInvalidCredentials.
func (s *UserService) DeleteSelf(ctx context.Context, sess auth.Session, password string) error {
	if err := auth.Authorize(sess, auth.ActionDeleteIdentity, sess.Subject); err != nil {
		return err
	}
	if err := s.checkPassword(ctx, sess.Subject, password); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, sess.Subject); err != nil {
		return storeErr("delete user", err)
	}
	s.events.Emit(q.NewAuthEvent(q.EventUserDeleted, "ok", sess.Subject, sess.Subject))
	return nil
}

// ChangePassword replaces the caller's password and clears the refresh
// slot, so every outstanding refresh token stops working.
func (s *UserService) ChangePassword(ctx context.Context, sess auth.Session, current, next string) error {
	if err := auth.Authorize(sess, auth.ActionUpdateIdentity, sess.Subject); err != nil {
		return err
	}
	if strings.TrimSpace(next) == "" {
		return invalid("newPassword is required")
	}
	if len(next) > utils.MaxPasswordBytes {
		return invalid("newPassword must be at most 72 bytes")
	}
	if err := s.checkPassword(ctx, sess.Subject, current); err != nil {
		return err
	}
	hash, err := utils.HashPassword(next, s.cost)
	if err != nil {
		return fmt.Errorf("%w: hash password: %v", auth.ErrInternal, err)
	}
	if err := s.users.UpdatePassword(ctx, sess.Subject, hash); err != nil {
		return storeErr("update password", err)
	}
	if err := s.slots.SetRefreshToken(ctx, sess.Subject, ""); err != nil {
		return err
	}
	s.events.Emit(q.NewAuthEvent(q.EventPasswordChanged, "ok", sess.Subject, sess.Subject))
	return nil
}

// EnsureAdmin creates an admin account with email and password unless a
// user with that email already exists.  It reports whether it created one.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, storeErr("find admin", err)
	}
	in := NewUser{FirstName: "Admin", LastName: "Admin", Email: email, Password: password, Role: model.RoleAdmin}
	if err := validateNew(in); err != nil {
		return false, err
	}
	u, err := s.create(ctx, in)
	if err != nil {
		return false, err
	}
	s.log.Info("bootstrap admin created", "user_id", u.ID, "email", u.Email)
	return true, nil
}

func (s *UserService) create(ctx context.Context, in NewUser) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: hash password: %v", auth.ErrInternal, err)
	}
	u, err := s.users.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		return model.User{}, storeErr("create user", err)
	}
	return u, nil
}

func (s *UserService) checkPassword(ctx context.Context, id, password string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return storeErr("get user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return auth.ErrInvalidCredentials
	}
	return nil
}

func validateNew(in NewUser) error {
	switch {
	case strings.TrimSpace(in.FirstName) == "":
		return invalid("firstName is required")
	case strings.TrimSpace(in.LastName) == "":
		return invalid("lastName is required")
	case !validEmail(in.Email):
		return invalid("email is not a valid address")
	case in.Password == "":
		return invalid("password is required")
	case len(in.Password) > utils.MaxPasswordBytes:
		return invalid("password must be at most 72 bytes")
	case !in.Role.Valid():
		return invalid("role must be user or admin")
	}
	return nil
}

func validatePatch(p model.UserPatch) error {
	switch {
	case p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "":
		return invalid("firstName must not be empty")
	case p.LastName != nil && strings.TrimSpace(*p.LastName) == "":
		return invalid("lastName must not be empty")
	case p.Email != nil && !validEmail(*p.Email):
		return invalid("email is not a valid address")
	case p.Role != nil && !p.Role.Valid():
		return invalid("role must be user or admin")
	}
	return nil
}

// validEmail accepts a bare address only, not "Name <addr>".
func validEmail(s string) bool {
	s = strings.TrimSpace(s)
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// storeErr maps repository errors onto the auth sentinels the HTTP layer
// understands.  ErrEmailExists passes through unchanged.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return auth.ErrNotFound
	case errors.Is(err, repository.ErrEmailExists):
		return err
	}
	return fmt.Errorf("%w: %s: %v", auth.ErrInternal, op, err)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/tms-api/internal/model"
)

const userColumns = "id,email,first_name,last_name,password_hash,role,refresh_token_hash,created_at,updated_at"

// UserRepo persists user records in the MySQL `users` table.
type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u and returns the stored copy.  The caller supplies the ID
// and the password hash.
func (r *UserRepo) Create(ctx context.Context, u model.User) (model.User, error) {
	u.Email = normalizeEmail(u.Email)
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id,email,first_name,last_name,password_hash,role,refresh_token_hash,created_at,updated_at) VALUES (?,?,?,?,?,?,'',?,?)",
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, now, now)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, u.ID)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email))
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return u, notFound(err)
}

// List returns one page of users ordered by creation time.  A non-empty
// filter matches email, first name or last name as a substring.
func (r *UserRepo) List(ctx context.Context, limit, offset int, filter string) (model.UserList, error) {
	where, args := "", []any{}
	if f := strings.TrimSpace(filter); f != "" {
		like := "%" + escapeLike(f) + "%"
		where = " WHERE email LIKE ? OR first_name LIKE ? OR last_name LIKE ?"
		args = append(args, like, like, like)
	}

	var out model.UserList
	if err := r.DB.GetContext(ctx, &out.TotalCount, "SELECT COUNT(*) FROM users"); err != nil {
		return model.UserList{}, err
	}
	if err := r.DB.GetContext(ctx, &out.FilterCount, "SELECT COUNT(*) FROM users"+where, args...); err != nil {
		return model.UserList{}, err
	}
	out.Users = []model.User{}
	err := r.DB.SelectContext(ctx, &out.Users,
		"SELECT "+userColumns+" FROM users"+where+" ORDER BY created_at, id LIMIT ? OFFSET ?",
		append(args, limit, offset)...)
	if err != nil {
		return model.UserList{}, err
	}
	return out, nil
}

// Update applies the non-nil fields of p and returns the fresh record.
func (r *UserRepo) Update(ctx context.Context, id string, p model.UserPatch) (model.User, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	applyPatch(&u, p)
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET email=?, first_name=?, last_name=?, role=?, updated_at=? WHERE id=?",
		u.Email, u.FirstName, u.LastName, u.Role, time.Now().UTC(), id)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return affected(res)
}

// Delete removes a user.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return affected(res)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func applyPatch(u *model.User, p model.UserPatch) {
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = normalizeEmail(*p.Email)
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// isDuplicate detects MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// affected maps "no row matched" to ErrNotFound.  The DSN sets
// clientFoundRows so unchanged-but-matched rows still count.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

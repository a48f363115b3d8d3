package model

import "time"

// Role is the access level stored on a user record and embedded in every
// token issued for that user.
type Role string

const (
	RoleUser  Role = "user"  // ordinary account
	RoleAdmin Role = "admin" // may manage other accounts
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the database.
// Handlers never serialise this struct directly; they map it to a
// response type that omits the hashes.
//
// Fields:
//  ID               – UUIDv4 primary key.
//  Email            – unique, lower-cased email address.
//  FirstName        – display first name.
//  LastName         – display last name.
//  PasswordHash     – bcrypt hashed password.
//  Role             – "user" or "admin".
//  RefreshTokenHash – bcrypt hash of the current refresh token; empty when
//                     the user is logged out.
//  CreatedAt        – timestamp of creation.
//  UpdatedAt        – timestamp of last update.
type User struct {
	ID               string    `db:"id"`
	Email            string    `db:"email"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	PasswordHash     string    `db:"password_hash"`
	Role             Role      `db:"role"`
	RefreshTokenHash string    `db:"refresh_token_hash"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// UserPatch carries the optional profile fields of an update.  A nil
// pointer leaves the stored value untouched.
type UserPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Role      *Role
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Role == nil
}

// UserList is one page of users together with the counts needed for
// pagination.
type UserList struct {
	Users       []User
	FilterCount int
	TotalCount  int
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/tms-api/internal/model"
)

// MemoryUserRepo is an in-process user store with the same behaviour as
// UserRepo and TokenRepo combined.  It backs STORAGE=memory and the tests.
// Every method returns copies; callers never hold a reference into the map.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]model.User
	email map[string]string // normalized email -> id
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: map[string]model.User{}, email: map[string]string{}}
}

func (r *MemoryUserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = normalizeEmail(u.Email)
	if _, ok := r.email[u.Email]; ok {
		return model.User{}, ErrEmailExists
	}
	now := time.Now().UTC()
	u.RefreshTokenHash = ""
	u.CreatedAt, u.UpdatedAt = now, now
	r.users[u.ID] = u
	r.email[u.Email] = u.ID
	return u, nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.email[normalizeEmail(email)]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) List(_ context.Context, limit, offset int, filter string) (model.UserList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := strings.ToLower(strings.TrimSpace(filter))
	all := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		if f == "" || strings.Contains(u.Email, f) ||
			strings.Contains(strings.ToLower(u.FirstName), f) ||
			strings.Contains(strings.ToLower(u.LastName), f) {
			all = append(all, u)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	out := model.UserList{Users: []model.User{}, FilterCount: len(all), TotalCount: len(r.users)}
	if offset < len(all) {
		end := len(all)
		if limit >= 0 && offset+limit < end {
			end = offset + limit
		}
		out.Users = append(out.Users, all[offset:end]...)
	}
	return out, nil
}

func (r *MemoryUserRepo) Update(_ context.Context, id string, p model.UserPatch) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	oldEmail := u.Email
	applyPatch(&u, p)
	if u.Email != oldEmail {
		if _, taken := r.email[u.Email]; taken {
			return model.User{}, ErrEmailExists
		}
		delete(r.email, oldEmail)
		r.email[u.Email] = id
	}
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return u, nil
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *model.User) { u.PasswordHash = hash })
}

func (r *MemoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.email, u.Email)
	delete(r.users, id)
	return nil
}

func (r *MemoryUserRepo) SetRefreshTokenHash(_ context.Context, id, hash string) error {
	return r.mutate(id, func(u *model.User) { u.RefreshTokenHash = hash })
}

func (r *MemoryUserRepo) RefreshTokenHash(ctx context.Context, id string) (string, error) {
	u, err := r.GetByID(ctx, id)
	return u.RefreshTokenHash, err
}

func (r *MemoryUserRepo) mutate(id string, fn func(*model.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

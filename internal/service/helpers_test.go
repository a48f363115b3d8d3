package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tms-api/internal/auth"
	"github.com/iliyamo/tms-api/internal/model"
	q "github.com/iliyamo/tms-api/internal/queue"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/utils"
)

const pw = "correct horse battery"

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type eventLog struct {
	mu     sync.Mutex
	events []q.AuthEvent
}

func (l *eventLog) Emit(ev q.AuthEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) Publish(_ context.Context, ev q.AuthEvent) error {
	l.Emit(ev)
	return nil
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	repo   *repository.MemoryUserRepo
	store  *auth.RefreshStore
	svc    *UserService
	events *eventLog
	admin  auth.Session
	alice  auth.Session
	bob    auth.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{repo: repository.NewMemoryUserRepo(), events: &eventLog{}}
	f.store = auth.NewRefreshStore(f.repo, utils.MinCost)
	f.svc = NewUserService(f.repo, f.store, utils.MinCost, f.events, discard)
	f.admin = f.seed(t, "admin", "admin@example.com", model.RoleAdmin)
	f.alice = f.seed(t, "alice", "alice@example.com", model.RoleUser)
	f.bob = f.seed(t, "bob", "bob@example.com", model.RoleUser)
	return f
}

func (f *fixture) seed(t *testing.T, id, email string, role model.Role) auth.Session {
	t.Helper()
	hash, err := utils.HashPassword(pw, utils.MinCost)
	require.NoError(t, err)
	_, err = f.repo.Create(context.Background(), model.User{
		ID: id, Email: email, FirstName: id, LastName: "Test", PasswordHash: hash, Role: role,
	})
	require.NoError(t, err)
	return auth.Session{Subject: id, Role: role}
}

func ptr[T any](v T) *T { return &v }

package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tms-api/internal/model"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/utils"
)

const testPassword = "correct horse battery"

type testCore struct {
	repo    *repository.MemoryUserRepo
	issuer  *Issuer
	store   *RefreshStore
	authn   *Authenticator
	svc     *Service
	outcome *outcomeLog
}

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer(IssuerConfig{
		AccessSecret:  "access-secret",
		AccessTTL:     20 * time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return iss
}

func newTestCore(t *testing.T) *testCore {
	t.Helper()
	c := &testCore{repo: repository.NewMemoryUserRepo(), issuer: newTestIssuer(t), outcome: &outcomeLog{}}
	c.store = NewRefreshStore(c.repo, utils.MinCost)
	c.authn = NewAuthenticator(c.issuer, c.repo, c.store)
	c.svc = NewService(c.authn, c.issuer, c.store, c.outcome)
	return c
}

func (c *testCore) addUser(t *testing.T, id, email string, role model.Role) model.User {
	t.Helper()
	if id == "" {
		id = uuid.NewString()
	}
	hash, err := utils.HashPassword(testPassword, utils.MinCost)
	require.NoError(t, err)
	u, err := c.repo.Create(context.Background(), model.User{
		ID: id, Email: email, FirstName: "Test", LastName: "User", PasswordHash: hash, Role: role,
	})
	require.NoError(t, err)
	return u
}

type outcomeLog struct {
	mu  sync.Mutex
	all []Outcome
}

func (l *outcomeLog) Record(_ context.Context, o Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, o)
}

func (l *outcomeLog) list() []Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Outcome(nil), l.all...)
}

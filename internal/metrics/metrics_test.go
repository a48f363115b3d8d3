package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/tms-api/internal/auth"
)

func TestResult(t *testing.T) {
	cases := map[string]error{
		ResultOK:                 nil,
		ResultInvalidCredentials: auth.ErrInvalidCredentials,
		ResultUnauthenticated:    auth.ErrUnauthenticated,
		ResultForbidden:          auth.ErrForbidden,
		ResultNotFound:           auth.ErrNotFound,
		ResultError:              errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, Result(err))
	}
	assert.Equal(t, ResultError, Result(auth.ErrInternal))
}

func TestRecord_CountsByFlowAndResult(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Record(ctx, auth.Outcome{Flow: auth.FlowLogin, Subject: "u1"})
	m.Record(ctx, auth.Outcome{Flow: auth.FlowLogin, Subject: "u1"})
	m.Record(ctx, auth.Outcome{Flow: auth.FlowLogin, Err: auth.ErrInvalidCredentials})
	m.Record(ctx, auth.Outcome{Flow: auth.FlowRefresh, Subject: "u1", Err: auth.ErrNotFound})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.flows.WithLabelValues("login", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flows.WithLabelValues("login", ResultInvalidCredentials)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flows.WithLabelValues("refresh", ResultNotFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.flows.WithLabelValues("logout", ResultOK)))
}

func TestHandler_ExposesCounter(t *testing.T) {
	m := New()
	m.Record(context.Background(), auth.Outcome{Flow: auth.FlowLogout, Subject: "u1"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tms_auth_flows_total{flow="logout",result="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

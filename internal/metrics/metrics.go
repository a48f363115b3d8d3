// Package metrics exposes auth flow counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/tms-api/internal/auth"
)

// Result labels.  Every auth sentinel maps to one of these; anything
// else counts as "error".
const (
	ResultOK                 = "ok"
	ResultInvalidCredentials = "invalid_credentials"
	ResultUnauthenticated    = "unauthenticated"
	ResultForbidden          = "forbidden"
	ResultNotFound           = "not_found"
	ResultError              = "error"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	reg   *prometheus.Registry
	flows *prometheus.CounterVec
}

// New registers the flow counter plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tms",
			Subsystem: "auth",
			Name:      "flows_total",
			Help:      "Completed auth flows by flow and result.",
		}, []string{"flow", "result"}),
	}
	reg.MustRegister(
		m.flows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Record implements auth.Recorder.
func (m *Metrics) Record(_ context.Context, o auth.Outcome) {
	m.flows.WithLabelValues(string(o.Flow), Result(o.Err)).Inc()
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Result maps a flow error to its label value.
func Result(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, auth.ErrInvalidCredentials):
		return ResultInvalidCredentials
	case errors.Is(err, auth.ErrUnauthenticated):
		return ResultUnauthenticated
	case errors.Is(err, auth.ErrForbidden):
		return ResultForbidden
	case errors.Is(err, auth.ErrNotFound):
		return ResultNotFound
	}
	return ResultError
}

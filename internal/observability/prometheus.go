// Package observability exports Prometheus metrics for executor calls and
// credential refreshes.
package observability

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"gigachat/internal/llmclient"
	"gigachat/pkg/core"
)

// Metrics holds the collectors registered by NewMetrics.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	refreshes       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigachat_requests_total",
				Help: "Requests sent to the GigaChat API by endpoint, method and status.",
			},
			[]string{"endpoint", "method", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gigachat_request_duration_seconds",
				Help:    "Time until the response body was read, or the stream opened.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint", "method"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gigachat_token_refreshes_total",
				Help: "Credential exchanges by result.",
			},
			[]string{"result"},
		),
	}
	for _, c := range []prometheus.Collector{m.requests, m.requestDuration, m.refreshes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns executor hooks that record request metrics.
func (m *Metrics) Hooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestEnd: func(_ context.Context, info llmclient.ResponseInfo) {
			route := info.Route
			if route == "" {
				route = info.Endpoint
			}
			m.requests.WithLabelValues(route, info.Method, statusLabel(info)).Inc()
			m.requestDuration.WithLabelValues(route, info.Method).Observe(info.Duration.Seconds())
		},
	}
}

// ObserveTokenRefresh records the outcome of one credential exchange.
func (m *Metrics) ObserveTokenRefresh(err error) {
	m.refreshes.WithLabelValues(refreshResult(err)).Inc()
}

// statusLabel is the HTTP status, or the error type when no response arrived.
func statusLabel(info llmclient.ResponseInfo) string {
	if info.StatusCode != 0 {
		return strconv.Itoa(info.StatusCode)
	}
	var gerr *core.Error
	if errors.As(info.Error, &gerr) {
		return string(gerr.Type)
	}
	if info.Error != nil {
		return "error"
	}
	return "unknown"
}

func refreshResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, core.ErrAuthFailed):
		return "rejected"
	case errors.Is(err, core.ErrAuthResponseMalformed):
		return "malformed"
	default:
		return "error"
	}
}

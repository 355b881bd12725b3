// Package metrics exposes Prometheus instrumentation for RPCs and split
// computations.
package metrics

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/receiptsplit/internal/calculator"
)

// Metrics holds the registered collectors. A nil *Metrics is a no-op.
type Metrics struct {
	rpcDuration *prometheus.HistogramVec
	rpcTotal    *prometheus.CounterVec
	splits      *prometheus.CounterVec
	unallocated prometheus.Histogram
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receiptsplit_rpc_duration_seconds",
			Help:    "Duration of RPC calls in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"procedure"}),
		rpcTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptsplit_rpc_total",
			Help: "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptsplit_splits_total",
			Help: "Split computations by outcome (ready, pending, invalid).",
		}, []string{"outcome"}),
		unallocated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "receiptsplit_split_unallocated_ratio",
			Help:    "Share of a receipt total not yet owed by anyone, per computation.",
			Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
		}),
	}
	reg.MustRegister(m.rpcDuration, m.rpcTotal, m.splits, m.unallocated)
	return m
}

// ObserveSplit records the outcome of a ComputeSplit call.
func (m *Metrics) ObserveSplit(result *calculator.SplitResult, err error) {
	if m == nil {
		return
	}
	switch {
	case err != nil:
		m.splits.WithLabelValues("invalid").Inc()
		return
	case result.Ready():
		m.splits.WithLabelValues("ready").Inc()
	default:
		m.splits.WithLabelValues("pending").Inc()
	}
	if result.Total > 0 {
		m.unallocated.Observe(float64(result.UnallocatedAmount) / float64(result.Total))
	}
}

// Interceptor returns a Connect interceptor recording call counts and latency.
func (m *Metrics) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if m == nil {
				return next(ctx, req)
			}
			start := time.Now()
			resp, err := next(ctx, req)

			procedure := req.Spec().Procedure
			code := "ok"
			if err != nil {
				code = connect.CodeUnknown.String()
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					code = connectErr.Code().String()
				}
			}
			m.rpcDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
			m.rpcTotal.WithLabelValues(procedure, code).Inc()
			return resp, err
		}
	}
}

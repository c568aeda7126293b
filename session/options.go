package session

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option is a functional option for configuring a Manager.
type Option func(*Manager)

// Reloader reacts to a chain change. Implementations typically throw away
// in-memory state and restore the session from storage again.
type Reloader interface {
	Reload(ctx context.Context, m *Manager, chainID string)
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func(ctx context.Context, m *Manager, chainID string)

// Reload implements Reloader.
func (f ReloaderFunc) Reload(ctx context.Context, m *Manager, chainID string) {
	f(ctx, m, chainID)
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithKeys sets the storage key names.
func WithKeys(keys Keys) Option {
	return func(m *Manager) {
		m.keys = keys
	}
}

// WithReloader sets what happens on a chain change.
// Default: Manager.Reload.
func WithReloader(r Reloader) Option {
	return func(m *Manager) {
		m.reloader = r
	}
}

// WithMetrics sets the Prometheus collectors updated by the manager.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) {
		m.tracer = tp.Tracer(tracerName)
	}
}

// WithChainIDTimeout bounds the eth_chainId lookup that follows a successful
// connect or restore. A wallet that does not answer in time leaves ChainID
// unset. Default: DefaultChainIDTimeout.
func WithChainIDTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.chainIDTimeout = d
	}
}

package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for wallet sessions.
// A nil *Metrics records nothing.
type Metrics struct {
	connects       *prometheus.CounterVec
	restores       *prometheus.CounterVec
	accountChanges prometheus.Counter
	reloads        prometheus.Counter
	storageErrors  *prometheus.CounterVec
	connected      prometheus.Gauge
}

// NewMetrics registers the session collectors with reg under the "wallet" namespace.
//
// Metrics collected:
//   - wallet_session_connects_total: connect attempts by result
//   - wallet_session_restores_total: startup restores by outcome
//   - wallet_session_account_changes_total: account switches applied from the wallet
//   - wallet_session_reloads_total: reloads triggered by chain changes
//   - wallet_session_storage_errors_total: failed storage writes by operation
//   - wallet_session_connected: 1 while a session is connected
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		connects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "connects_total",
			Help:      "Total wallet connect attempts by result",
		}, []string{"result"}),

		restores: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "restores_total",
			Help:      "Total session restores by outcome",
		}, []string{"outcome"}),

		accountChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "account_changes_total",
			Help:      "Total account switches applied from wallet notifications",
		}),

		reloads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "reloads_total",
			Help:      "Total session reloads triggered by chain changes",
		}),

		storageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "storage_errors_total",
			Help:      "Total failed session storage operations",
		}, []string{"op"}),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wallet",
			Subsystem: "session",
			Name:      "connected",
			Help:      "1 while a wallet session is connected",
		}),
	}
}

// Connect results.
const (
	resultSuccess             = "success"
	resultProviderUnavailable = "provider_unavailable"
	resultNoAccounts          = "no_accounts"
	resultRejected            = "rejected"
)

// Restore outcomes.
const (
	outcomeRestored  = "restored"
	outcomeDiscarded = "discarded"
	outcomeNone      = "none"
	outcomeFailed    = "failed"
)

func (m *Metrics) connect(result string) {
	if m == nil {
		return
	}
	m.connects.WithLabelValues(result).Inc()
}

func (m *Metrics) restore(outcome string) {
	if m == nil {
		return
	}
	m.restores.WithLabelValues(outcome).Inc()
}

func (m *Metrics) accountChanged() {
	if m == nil {
		return
	}
	m.accountChanges.Inc()
}

func (m *Metrics) reload() {
	if m == nil {
		return
	}
	m.reloads.Inc()
}

func (m *Metrics) storageError(op string) {
	if m == nil {
		return
	}
	m.storageErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) setConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// Package session owns the wallet connection lifecycle: asking the wallet
// for account access, persisting the result, restoring it at startup and
// following the wallet's account and chain notifications.
//
// The session has two states. Connect moves Disconnected to Connected;
// Disconnect or an empty accountsChanged notification moves it back. An
// accountsChanged notification naming a different first account keeps the
// session Connected with the new account.
//
// Failures never tear down state on their own. A failed Connect leaves an
// existing session in place, and a restore that errors leaves both memory
// and storage untouched. Only positive evidence from the wallet (an empty
// account list, or a stored account it no longer authorizes) discards a
// session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/creastat/wallet"
	"github.com/creastat/wallet/kv"
	"github.com/creastat/wallet/logger"
	"github.com/creastat/wallet/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/creastat/wallet/session"

// DefaultChainIDTimeout bounds the chain id lookup made after accounts are known.
const DefaultChainIDTimeout = 2 * time.Second

// Manager holds one wallet session. All methods are safe for concurrent use,
// but overlapping Connect calls are not serialized: the last to resolve wins.
type Manager struct {
	provider provider.Provider // nil when no wallet is installed
	store    kv.Store
	keys     Keys
	reloader Reloader
	log      *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	chainIDTimeout time.Duration

	mu        sync.Mutex
	active    provider.Provider // held while connected
	account   string
	lastError string
	chainID   string
	inflight  int

	watchers  map[int]func(State)
	nextWatch int

	baseCtx context.Context
	unsubs  []func()
	started bool
	closed  bool
}

// New creates a Manager. A nil p models an environment without a wallet.
func New(p provider.Provider, store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		provider: p,
		store:    store,
		keys:     DefaultKeys,
		log:      slog.Default(),
		tracer:   otel.Tracer(tracerName),
		watchers: make(map[int]func(State)),
		baseCtx:  context.Background(),

		chainIDTimeout: DefaultChainIDTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.reloader == nil {
		m.reloader = ReloaderFunc(func(ctx context.Context, m *Manager, _ string) {
			m.Reload(ctx)
		})
	}
	return m
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() State {
	return State{
		Account:   m.account,
		Connected: m.active != nil && m.account != "",
		Loading:   m.inflight > 0,
		LastError: m.lastError,
		ChainID:   m.chainID,
	}
}

// Connect asks the wallet for account access and, on success, persists the
// first returned account. On failure LastError carries a readable message
// and the previous session, if any, is left as it was.
func (m *Manager) Connect(ctx context.Context) (State, error) {
	ctx, span := m.tracer.Start(ctx, "session.Connect")
	defer span.End()

	log := logger.WithOp(m.log, "connect")

	m.mu.Lock()
	m.inflight++
	m.lastError = ""
	m.mu.Unlock()
	m.notify()

	err := m.connect(ctx, log)

	m.mu.Lock()
	m.inflight--
	if err != nil {
		m.lastError = errorMessage(err)
	}
	state := m.snapshotLocked()
	m.mu.Unlock()
	m.notify()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("wallet connect failed", "error", err)
		return state, err
	}

	span.SetAttributes(attribute.String("wallet.account", state.Account))
	span.SetStatus(codes.Ok, "")
	log.Info("wallet connected", "account", state.Account)
	return state, nil
}

func (m *Manager) connect(ctx context.Context, log *slog.Logger) error {
	if m.provider == nil {
		m.metrics.connect(resultProviderUnavailable)
		return ErrProviderUnavailable
	}

	accounts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		m.metrics.connect(resultRejected)
		return &requestError{err: err}
	}
	if len(accounts) == 0 {
		m.metrics.connect(resultNoAccounts)
		return ErrNoAuthorizedAccounts
	}

	account, err := wallet.FirstAddress(accounts)
	if err != nil {
		// A wallet answering with garbage has authorized nothing usable.
		m.metrics.connect(resultNoAccounts)
		return fmt.Errorf("%w: %w", ErrNoAuthorizedAccounts, err)
	}
	chainID := m.fetchChainID(ctx, log)

	m.mu.Lock()
	m.active = m.provider
	m.account = account
	m.lastError = ""
	if chainID != "" {
		m.chainID = chainID
	}
	m.mu.Unlock()

	m.metrics.connect(resultSuccess)
	m.metrics.setConnected(true)
	m.persist(ctx, log, account)
	return nil
}

// RestoreSession reconciles the stored session with the wallet. A stored
// account is trusted only if the wallet still lists it as authorized;
// otherwise the stored record is discarded. Errors are logged and swallowed
// so that a broken wallet never blocks startup.
func (m *Manager) RestoreSession(ctx context.Context) State {
	ctx, span := m.tracer.Start(ctx, "session.Restore")
	defer span.End()

	log := logger.WithOp(m.log, "restore")

	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
	m.notify()

	outcome, err := m.restore(ctx, log)
	if err != nil {
		outcome = outcomeFailed
		span.RecordError(err)
		log.Debug("session restore failed", "error", err)
	}
	m.metrics.restore(outcome)
	span.SetAttributes(attribute.String("wallet.restore_outcome", outcome))

	m.mu.Lock()
	m.inflight--
	state := m.snapshotLocked()
	m.mu.Unlock()
	m.notify()

	return state
}

func (m *Manager) restore(ctx context.Context, log *slog.Logger) (string, error) {
	marker, hasMarker, err := m.store.Get(ctx, m.keys.Connected)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrRestoreFailed, m.keys.Connected, err)
	}
	saved, hasAccount, err := m.store.Get(ctx, m.keys.Account)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", ErrRestoreFailed, m.keys.Account, err)
	}
	if !hasMarker || marker == "" || !hasAccount || saved == "" || m.provider == nil {
		return outcomeNone, nil
	}

	authorized, err := m.provider.Accounts(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRestoreFailed, err)
	}

	if !wallet.ContainsAddress(authorized, saved) {
		log.Info("stored account no longer authorized, discarding", "account", saved)
		m.clear()
		if err := m.store.Delete(ctx, m.keys.Connected, m.keys.Account); err != nil {
			m.metrics.storageError("delete")
			return "", fmt.Errorf("%w: discard stored session: %w", ErrRestoreFailed, err)
		}
		return outcomeDiscarded, nil
	}

	account := wallet.FoldAddress(saved)
	chainID := m.fetchChainID(ctx, log)

	m.mu.Lock()
	m.active = m.provider
	m.account = account
	if chainID != "" {
		m.chainID = chainID
	}
	m.mu.Unlock()

	m.metrics.setConnected(true)
	log.Info("wallet session restored", "account", account)
	return outcomeRestored, nil
}

// Disconnect drops the session from memory and storage. Calling it while
// already disconnected leaves the same state behind.
func (m *Manager) Disconnect(ctx context.Context) State {
	ctx, span := m.tracer.Start(ctx, "session.Disconnect")
	defer span.End()

	log := logger.WithOp(m.log, "disconnect")

	wasConnected := m.clear()
	if err := m.store.Delete(ctx, m.keys.Connected, m.keys.Account); err != nil {
		m.metrics.storageError("delete")
		span.RecordError(err)
		log.Error("failed to clear stored session", "error", err)
	}

	if wasConnected {
		log.Info("wallet disconnected")
	}
	return m.State()
}

// Reload discards in-memory state, keeps storage, and restores the session
// again, the way a page reload would.
func (m *Manager) Reload(ctx context.Context) State {
	m.metrics.reload()
	m.clear()
	return m.RestoreSession(ctx)
}

// clear resets in-memory session state and reports whether a session was connected.
func (m *Manager) clear() bool {
	m.mu.Lock()
	was := m.active != nil && m.account != ""
	changed := m.active != nil || m.account != "" || m.lastError != "" || m.chainID != ""
	m.active = nil
	m.account = ""
	m.lastError = ""
	m.chainID = ""
	m.mu.Unlock()

	m.metrics.setConnected(false)
	if changed {
		m.notify()
	}
	return was
}

// Start subscribes to wallet notifications and restores any stored session.
// Call Close to deregister the listeners.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.baseCtx = context.WithoutCancel(ctx)
	if m.provider != nil {
		m.unsubs = append(m.unsubs,
			m.provider.On(provider.EventAccountsChanged, m.handleAccountsChanged),
			m.provider.On(provider.EventChainChanged, m.handleChainChanged),
		)
	}
	m.mu.Unlock()

	m.RestoreSession(ctx)
	return nil
}

// Close deregisters wallet listeners and watchers. It does not close the
// provider or the store, and it is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.closed = true
	m.watchers = make(map[int]func(State))
	m.mu.Unlock()

	for _, off := range unsubs {
		off()
	}
	return nil
}

// Watch calls fn with a snapshot after every state change until the returned
// cancel function is called. fn runs on the goroutine that made the change
// and must not block.
func (m *Manager) Watch(fn func(State)) (cancel func()) {
	m.mu.Lock()
	id := m.nextWatch
	m.nextWatch++
	m.watchers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.watchers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify() {
	m.mu.Lock()
	state := m.snapshotLocked()
	fns := make([]func(State), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (m *Manager) handleAccountsChanged(ev provider.Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ctx := m.baseCtx
	m.mu.Unlock()

	log := logger.WithOp(m.log, "accounts_changed")

	if len(ev.Accounts) == 0 {
		log.Info("wallet reported no accounts")
		m.Disconnect(ctx)
		return
	}

	next, err := wallet.FirstAddress(ev.Accounts)
	if err != nil {
		log.Warn("ignoring account change with malformed address", "error", err)
		return
	}

	m.mu.Lock()
	if m.active == nil || m.account == "" {
		// Nothing was authorized through this manager, so there is nothing to follow.
		m.mu.Unlock()
		log.Debug("ignoring account change while disconnected", "account", next)
		return
	}
	if next == m.account {
		m.mu.Unlock()
		return
	}
	prev := m.account
	m.account = next
	m.mu.Unlock()

	m.metrics.accountChanged()
	log.Info("wallet account changed", "from", prev, "to", next)
	if err := m.store.Set(ctx, m.keys.Account, next); err != nil {
		m.metrics.storageError("set")
		log.Error("failed to persist account", "error", err)
	}
	m.notify()
}

// handleChainChanged hands off to the reloader. The default reloader drops
// everything in memory and restores from storage; nothing in flight survives.
func (m *Manager) handleChainChanged(ev provider.Event) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	ctx := m.baseCtx
	m.mu.Unlock()

	m.log.Info("wallet chain changed, reloading session", "chainId", ev.ChainID)
	m.reloader.Reload(ctx, m, ev.ChainID)
}

// persist writes the connected marker and account. Storage failures are
// logged; the in-memory session stays connected.
func (m *Manager) persist(ctx context.Context, log *slog.Logger, account string) {
	if err := m.store.Set(ctx, m.keys.Connected, connectedMarker); err != nil {
		m.metrics.storageError("set")
		log.Error("failed to persist connected marker", "error", err)
		return
	}
	if err := m.store.Set(ctx, m.keys.Account, account); err != nil {
		m.metrics.storageError("set")
		log.Error("failed to persist account", "error", err)
	}
}

// fetchChainID is best effort: the accounts are already known, so a slow
// wallet only costs the chain id.
func (m *Manager) fetchChainID(ctx context.Context, log *slog.Logger) string {
	if m.chainIDTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.chainIDTimeout)
		defer cancel()
	}
	id, err := m.provider.ChainID(ctx)
	if err != nil {
		log.Debug("could not read chain id", "error", err)
		return ""
	}
	return id
}

// requestError wraps a wallet failure so that errors.Is matches
// ErrRequestRejected while the message stays the wallet's own.
type requestError struct {
	err error
}

func (e *requestError) Error() string {
	return fmt.Sprintf("%s: %v", ErrRequestRejected.Error(), e.err)
}

func (e *requestError) Unwrap() []error {
	return []error{ErrRequestRejected, e.err}
}

// errorMessage picks the text recorded in LastError.
func errorMessage(err error) string {
	var re *requestError
	if errors.As(err, &re) {
		if msg := re.err.Error(); msg != "" {
			return msg
		}
		return fallbackErrorMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}

// Package providertest provides a scriptable in-memory wallet provider.
package providertest

import (
	"context"
	"sync"

	"github.com/creastat/wallet/provider"
)

// Fake is a provider.Provider whose answers are set by the test.
// The zero value is not usable; call New.
type Fake struct {
	*provider.Emitter

	mu          sync.Mutex
	requested   []string
	authorized  []string
	chainID     string
	requestErr  error
	accountsErr error
	gate        chan struct{}
	chainGate   chan struct{}
	closed      bool

	requestCalls  int
	accountsCalls int
}

var _ provider.Provider = (*Fake)(nil)

// New returns a Fake that grants and reports the given accounts.
func New(accounts ...string) *Fake {
	return &Fake{
		Emitter:    provider.NewEmitter(),
		requested:  accounts,
		authorized: accounts,
		chainID:    "0x1",
	}
}

// SetRequestAccounts sets the answer to RequestAccounts.
func (f *Fake) SetRequestAccounts(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = accounts
}

// SetAuthorized sets the answer to Accounts.
func (f *Fake) SetAuthorized(accounts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorized = accounts
}

// FailRequest makes RequestAccounts return err. Pass nil to clear.
func (f *Fake) FailRequest(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestErr = err
}

// FailAccounts makes Accounts return err. Pass nil to clear.
func (f *Fake) FailAccounts(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountsErr = err
}

// Hold makes RequestAccounts block until the returned release function is
// called or the call's context ends.
func (f *Fake) Hold() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gate = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// HoldChainID makes ChainID block until the returned release function is
// called or the call's context ends.
func (f *Fake) HoldChainID() (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.chainGate = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// RequestCalls returns how many times RequestAccounts was called.
func (f *Fake) RequestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requestCalls
}

// AccountsCalls returns how many times Accounts was called.
func (f *Fake) AccountsCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accountsCalls
}

// EmitAccountsChanged delivers an accountsChanged notification synchronously.
func (f *Fake) EmitAccountsChanged(accounts ...string) {
	if accounts == nil {
		accounts = []string{}
	}
	f.Emit(provider.Event{Name: provider.EventAccountsChanged, Accounts: accounts})
}

// EmitChainChanged delivers a chainChanged notification synchronously.
func (f *Fake) EmitChainChanged(chainID string) {
	f.mu.Lock()
	f.chainID = chainID
	f.mu.Unlock()
	f.Emit(provider.Event{Name: provider.EventChainChanged, ChainID: chainID})
}

// RequestAccounts implements provider.Provider.
func (f *Fake) RequestAccounts(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	f.requestCalls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, provider.ErrClosed
	}
	if f.requestErr != nil {
		return nil, f.requestErr
	}
	return append([]string(nil), f.requested...), nil
}

// Accounts implements provider.Provider.
func (f *Fake) Accounts(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountsCalls++
	if f.closed {
		return nil, provider.ErrClosed
	}
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return append([]string(nil), f.authorized...), nil
}

// ChainID implements provider.Provider.
func (f *Fake) ChainID(ctx context.Context) (string, error) {
	f.mu.Lock()
	gate := f.chainGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", provider.ErrClosed
	}
	return f.chainID, nil
}

// Close implements provider.Provider.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

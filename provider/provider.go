// Package provider abstracts the wallet capability a session talks to: an
// EIP-1193 style object that hands out account addresses and pushes
// account and chain change notifications.
package provider

import (
	"context"
	"errors"
)

// JSON-RPC methods issued against a wallet.
const (
	// MethodRequestAccounts asks the wallet for account access and may prompt the user.
	MethodRequestAccounts = "eth_requestAccounts"
	// MethodAccounts lists already authorized accounts without prompting.
	MethodAccounts = "eth_accounts"
	// MethodChainID returns the current chain identifier.
	MethodChainID = "eth_chainId"
)

// Notification names pushed by a wallet.
const (
	EventAccountsChanged = "accountsChanged"
	EventChainChanged    = "chainChanged"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected = 4001
	CodeUnauthorized = 4100
)

var (
	// ErrUserRejected indicates the user declined the request in the wallet.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrUnauthorized indicates the wallet has not authorized the requested account or method.
	ErrUnauthorized = errors.New("wallet has not authorized the request")
	// ErrClosed is returned by calls on a closed provider.
	ErrClosed = errors.New("provider is closed")
)

// Event is a notification delivered to listeners.
type Event struct {
	Name string
	// Accounts is set for EventAccountsChanged, ordered as the wallet reported them.
	Accounts []string
	// ChainID is set for EventChainChanged.
	ChainID string
}

// Listener receives provider notifications.
type Listener func(Event)

// Provider is the wallet capability consumed by the session manager.
type Provider interface {
	// RequestAccounts asks for account access. The wallet may prompt the user.
	RequestAccounts(ctx context.Context) ([]string, error)

	// Accounts returns the accounts already authorized for this origin, without prompting.
	Accounts(ctx context.Context) ([]string, error)

	// ChainID returns the current chain identifier.
	ChainID(ctx context.Context) (string, error)

	// On registers a listener for the named event and returns a function
	// that deregisters it. The returned function is safe to call more than once.
	On(event string, l Listener) (unsubscribe func())

	// Close releases the provider's resources.
	Close() error
}

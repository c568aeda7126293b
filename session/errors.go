package session

import "errors"

// Connection errors. Their messages are shown to people as-is.
var (
	// ErrProviderUnavailable indicates no wallet capability is present.
	ErrProviderUnavailable = errors.New("wallet provider is not installed: install a browser wallet extension to continue")

	// ErrNoAuthorizedAccounts indicates the wallet returned an empty account list.
	ErrNoAuthorizedAccounts = errors.New("no accounts found: make sure the wallet is unlocked")

	// ErrRequestRejected indicates the user declined or the wallet failed the request.
	ErrRequestRejected = errors.New("wallet request failed")

	// ErrRestoreFailed marks a failed startup restore. It is logged, never returned.
	ErrRestoreFailed = errors.New("session restore failed")

	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session manager is closed")
)

// fallbackErrorMessage is recorded when a wallet error carries no message.
const fallbackErrorMessage = "failed to connect wallet"

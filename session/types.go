package session

// State is a snapshot of the wallet session as consumers see it.
type State struct {
	// Account is the connected address in lowercase hex, "" when disconnected.
	Account string `json:"account"`

	// Connected is true iff Account is set and a provider handle is held.
	Connected bool `json:"isConnected"`

	// Loading is true while a connect or restore call is in flight.
	Loading bool `json:"isLoading"`

	// LastError is the message of the last failed connect, "" when none.
	LastError string `json:"error,omitempty"`

	// ChainID is the last chain identifier reported by the wallet. Informational.
	ChainID string `json:"chainId,omitempty"`
}

// Keys names the two durable storage keys holding a session.
type Keys struct {
	Connected string
	Account   string
}

// DefaultKeys are the storage keys used when none are configured.
var DefaultKeys = Keys{
	Connected: "chainlocker_connected",
	Account:   "chainlocker_account",
}

// connectedMarker is the value stored under Keys.Connected.
const connectedMarker = "true"

// PrefixedKeys returns DefaultKeys with prefix prepended to both names.
func PrefixedKeys(prefix string) Keys {
	return Keys{
		Connected: prefix + DefaultKeys.Connected,
		Account:   prefix + DefaultKeys.Account,
	}
}

package wallet

import "errors"

// Common errors for address handling.
var (
	ErrInvalidAddress = errors.New("invalid account address")
)

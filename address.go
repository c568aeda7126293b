// Package wallet holds account address helpers shared by the session
// manager, the provider transport and the HTTP layer.
package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// addressHexLen is the number of hex digits in a 20-byte account address.
const addressHexLen = 40

// FoldAddress returns the canonical lowercase form of an address without
// validating it. Providers are trusted to return well-formed addresses.
func FoldAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeAddress validates addr and returns it as lowercase "0x"-prefixed hex.
func NormalizeAddress(addr string) (string, error) {
	a := FoldAddress(addr)
	if !strings.HasPrefix(a, "0x") || len(a) != 2+addressHexLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return a, nil
}

// IsAddress reports whether addr is a well-formed account address.
func IsAddress(addr string) bool {
	_, err := NormalizeAddress(addr)
	return err == nil
}

// ChecksumAddress returns the EIP-55 mixed-case form of addr, used when an
// address is shown to a person.
func ChecksumAddress(addr string) (string, error) {
	a, err := NormalizeAddress(addr)
	if err != nil {
		return "", err
	}
	digits := a[2:]

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(digits))
	sum := h.Sum(nil)

	out := make([]byte, 0, len(a))
	out = append(out, '0', 'x')
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		// Nibble i of the hash decides the case of hex letter i.
		nibble := sum[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if c >= 'a' && c <= 'f' && nibble&0x0f >= 8 {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out), nil
}

// ShortAddress abbreviates an address as 0x1234...abcd for display.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

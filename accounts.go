package wallet

// FirstAddress returns the first account of an account list, validated and
// in lowercase form. Multi-account wallets are collapsed to that single
// address. An empty list yields "" and no error; a malformed first entry
// yields ErrInvalidAddress.
func FirstAddress(accounts []string) (string, error) {
	if len(accounts) == 0 {
		return "", nil
	}
	return NormalizeAddress(accounts[0])
}

// ContainsAddress reports whether addr appears in accounts, ignoring case.
func ContainsAddress(accounts []string, addr string) bool {
	want := FoldAddress(addr)
	if want == "" {
		return false
	}
	for _, a := range accounts {
		if FoldAddress(a) == want {
			return true
		}
	}
	return false
}

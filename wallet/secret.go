package wallet

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// p2shMarker is the literal prefix that, when present in a base secret,
// marks it as the base of a P2SH-locked pile rather than a plain shared
// secret.
const p2shMarker = "P2SH:"

// FreshSecret returns a URL-safe base64 string encoding 16 bytes of
// cryptographically strong randomness, used as H2C input for a brand new
// proof.
func FreshSecret() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("wallet: failed to generate secret: %w", err)
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

// ExpandSecret derives n secrets from base. If splitting base on the
// "P2SH:" marker yields exactly two parts, each output secret is base +
// a fresh unlinkable tail, so every tokenized send under the same lock
// still has a distinct secret. Otherwise (no marker, or the marker
// appearing more than once) expansion is deterministic ("<i>:<base>")
// so a recipient holding base can re-derive the same secrets the
// sender used.
func ExpandSecret(base string, n int) ([]string, error) {
	secrets := make([]string, n)

	if len(strings.Split(base, p2shMarker)) == 2 {
		for i := 0; i < n; i++ {
			tail, err := FreshSecret()
			if err != nil {
				return nil, err
			}
			secrets[i] = base + ":" + tail
		}
		return secrets, nil
	}

	for i := 0; i < n; i++ {
		secrets[i] = strconv.Itoa(i) + ":" + base
	}
	return secrets, nil
}

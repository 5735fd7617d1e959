package crypto

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// MintKeyset maps an amount (a power of two) to the mint's public key for
// that amount. It is immutable once fetched from the mint.
type MintKeyset map[uint64]*secp256k1.PublicKey

// AmountSupported reports whether the keyset carries a key for amount.
func (ks MintKeyset) AmountSupported(amount uint64) bool {
	_, ok := ks[amount]
	return ok
}

// MarshalJSON renders the keyset the way the mint's /keys endpoint does:
// a JSON object keyed by the stringified amount, valued by the
// compressed-hex public key.
func (ks MintKeyset) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(ks))
	for amount, pubkey := range ks {
		out[strconv.FormatUint(amount, 10)] = hex.EncodeToString(pubkey.SerializeCompressed())
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses the /keys response shape into a MintKeyset.
func (ks *MintKeyset) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed := make(MintKeyset, len(raw))
	for amountStr, pubkeyHex := range raw {
		amount, err := strconv.ParseUint(amountStr, 10, 64)
		if err != nil {
			return fmt.Errorf("crypto: invalid amount key %q: %w", amountStr, err)
		}

		pubkeyBytes, err := hex.DecodeString(pubkeyHex)
		if err != nil {
			return fmt.Errorf("crypto: invalid public key hex for amount %d: %w", amount, err)
		}

		pubkey, err := ParsePoint(pubkeyBytes)
		if err != nil {
			return fmt.Errorf("crypto: amount %d: %w", amount, err)
		}

		parsed[amount] = pubkey
	}

	*ks = parsed
	return nil
}

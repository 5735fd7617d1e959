package cashu

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/cashu-go/walletcore/crypto"
)

// AmountSplit decomposes amount into the ascending set of distinct powers
// of two that sum to it, e.g. 13 -> [1, 4, 8]. AmountSplit(0) is empty.
func AmountSplit(amount uint64) []uint64 {
	rv := make([]uint64, 0)
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			rv = append(rv, 1<<pos)
		}
		amount >>= 1
	}
	return rv
}

// Output carries an amount, its secret, the blinding factor sampled for
// it, and the resulting blinded point through the minting pipeline as one
// record, so the three parallel sequences the wire format wants
// (amounts, secrets, blinding factors) never have to be kept in lockstep
// by index.
type Output struct {
	Amount uint64
	Secret string
	R      *secp256k1.PrivateKey
	B_     *secp256k1.PublicKey
}

// ConstructOutputs blinds each (amount, secret) pair and returns the
// resulting Outputs alongside the BlindedMessages ready to send to the
// mint. len(amounts) must equal len(secrets).
func ConstructOutputs(amounts []uint64, secrets []string) ([]Output, BlindedMessages, error) {
	if len(amounts) != len(secrets) {
		return nil, nil, fmt.Errorf("cashu: amounts and secrets must have equal length, got %d and %d", len(amounts), len(secrets))
	}

	outputs := make([]Output, len(amounts))
	messages := make(BlindedMessages, len(amounts))

	for i, amount := range amounts {
		B_, r, err := crypto.BlindMessage([]byte(secrets[i]))
		if err != nil {
			return nil, nil, err
		}

		outputs[i] = Output{Amount: amount, Secret: secrets[i], R: r, B_: B_}
		messages[i] = BlindedMessage{Amount: amount, B_: hex.EncodeToString(B_.SerializeCompressed())}
	}

	return outputs, messages, nil
}

// ConstructProofs unblinds a mint's signatures against the Outputs that
// produced the corresponding blinded messages, returning the resulting
// bearer proofs. signatures and outputs must be positionally paired and
// of equal length.
func ConstructProofs(signatures BlindedSignatures, outputs []Output, keyset crypto.MintKeyset) (Proofs, error) {
	if len(signatures) != len(outputs) {
		return nil, fmt.Errorf("cashu: signatures and outputs must have equal length, got %d and %d", len(signatures), len(outputs))
	}

	proofs := make(Proofs, len(signatures))
	for i, sig := range signatures {
		output := outputs[i]
		if sig.Amount != output.Amount {
			return nil, fmt.Errorf("cashu: amount mismatch at index %d: signature has %d, output has %d", i, sig.Amount, output.Amount)
		}

		K, ok := keyset[output.Amount]
		if !ok {
			return nil, fmt.Errorf("cashu: no mint key for amount %d", output.Amount)
		}

		C_bytes, err := hex.DecodeString(sig.C_)
		if err != nil {
			return nil, fmt.Errorf("cashu: invalid signature point hex at index %d: %w", i, err)
		}
		C_, err := crypto.ParsePoint(C_bytes)
		if err != nil {
			return nil, fmt.Errorf("cashu: index %d: %w", i, err)
		}

		C := crypto.UnblindSignature(C_, output.R, K)

		proofs[i] = Proof{
			Amount: output.Amount,
			Secret: output.Secret,
			C:      hex.EncodeToString(C.SerializeCompressed()),
		}
	}

	return proofs, nil
}

// wireProof is the on-wire shape of a Proof: wallet-local fields
// (Reserved, SendId) are never present.
type wireProof struct {
	Amount uint64      `json:"amount"`
	Id     string      `json:"id,omitempty"`
	Secret string      `json:"secret"`
	C      string      `json:"C"`
	Script *P2SHScript `json:"script,omitempty"`
}

// EncodeToken serializes proofs to the transferable token format:
// URL-safe base64 of the JSON-encoded proof array. It is equivalent to
// EncodeTokenWithSecrets(proofs, false).
func EncodeToken(proofs Proofs) (string, error) {
	return EncodeTokenWithSecrets(proofs, false)
}

// EncodeTokenWithSecrets serializes proofs to the transferable token
// format. When hideSecrets is true, each proof's secret is omitted from
// the encoded payload, the way a decoy or a display-only token would
// want it: the resulting token is not itself redeemable, since a mint's
// /split and /melt calls require the secret, but it still carries
// amount and signature data for inspection.
func EncodeTokenWithSecrets(proofs Proofs, hideSecrets bool) (string, error) {
	wire := make([]wireProof, len(proofs))
	for i, p := range proofs {
		wire[i] = wireProof{Amount: p.Amount, Id: p.Id, C: p.C, Script: p.Script}
		if !hideSecrets {
			wire[i].Secret = p.Secret
		}
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("cashu: failed to encode token: %w", err)
	}

	return base64.URLEncoding.EncodeToString(data), nil
}

// DecodeToken reverses EncodeToken. Unknown extra proof fields in the
// JSON are ignored rather than rejected, per the wire format's tolerance
// for producer-specific fields.
func DecodeToken(token string) (Proofs, error) {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		if data, err = base64.RawURLEncoding.DecodeString(token); err != nil {
			return nil, fmt.Errorf("cashu: failed to decode token: %w", err)
		}
	}

	var wire []wireProof
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("cashu: failed to parse token payload: %w", err)
	}

	proofs := make(Proofs, len(wire))
	for i, w := range wire {
		proofs[i] = Proof{Amount: w.Amount, Id: w.Id, Secret: w.Secret, C: w.C, Script: w.Script}
	}

	return proofs, nil
}

package wallet

import (
	"errors"
	"fmt"
)

// Sentinel WalletError values. Wrap with fmt.Errorf("...: %w", ...) where
// extra context is useful; callers should still match with errors.Is.
var (
	ErrSecretReused     = errors.New("wallet: secret already used")
	ErrBalanceError     = errors.New("wallet: insufficient balance")
	ErrEmptyProofs      = errors.New("wallet: no proofs provided")
	ErrIncompleteScript = errors.New("wallet: both script and signature are required to redeem a locked proof")
)

// Sentinel ConfigError values.
var (
	ErrEmptyMintURL = errors.New("wallet: mint url is empty")
	ErrEmptyKeyset  = errors.New("wallet: mint returned an empty keyset")
)

// ErrPaymentNotPaid is the PaymentError raised when a melt does not settle.
var ErrPaymentNotPaid = errors.New("wallet: lightning payment was not paid")

// MintError represents a mint-returned {"error": "..."} response body
// surfaced through an otherwise successful HTTP status.
type MintError struct {
	Message string
}

func (e *MintError) Error() string { return fmt.Sprintf("mint: %s", e.Message) }

// ProtocolError is raised for non-2xx HTTP responses or malformed bodies
// from the mint that cannot be interpreted as a MintError.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wallet: mint returned status %d: %s", e.StatusCode, e.Body)
}

// NetworkError wraps a transport-level failure talking to the mint.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("wallet: network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

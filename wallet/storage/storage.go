// Package storage defines the durable store the wallet orchestrator
// relies on for proofs and P2SH scripts, plus a bbolt-backed
// implementation.
package storage

import "github.com/cashu-go/walletcore/cashu"

// WalletDB is the persistence contract the orchestrator depends on. All
// methods are safe to call under the orchestrator's single mutex; they are
// not required to be safe for concurrent use by independent callers.
type WalletDB interface {
	// StoreProof inserts or upserts a proof by its secret. Idempotent.
	StoreProof(proof cashu.Proof) error

	// GetProofs returns every non-invalidated proof in the store.
	GetProofs() (cashu.Proofs, error)

	// InvalidateProof removes a proof from the live set and records its
	// secret in the invalidated history.
	InvalidateProof(proof cashu.Proof) error

	// SecretUsed reports whether secret is present in the live set or in
	// the invalidated history.
	SecretUsed(secret string) (bool, error)

	// UpdateProofReserved sets the reserved flag and send correlation id
	// on the stored proof matching secret.
	UpdateProofReserved(secret string, reserved bool, sendId string) error

	// StoreP2SH persists a generated P2SH script for later lookup by
	// address.
	StoreP2SH(script P2SHRecord) error

	// GetP2SH looks up a previously stored P2SH script by address.
	GetP2SH(address string) (*P2SHRecord, error)

	Close() error
}

// P2SHRecord is a generated P2SH lock persisted for later redemption.
type P2SHRecord struct {
	Address    string `json:"address"`
	PrivateKey []byte `json:"private_key"`
	Script     string `json:"script"`
}

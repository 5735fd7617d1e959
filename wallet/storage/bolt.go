package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/cashu-go/walletcore/cashu"
)

const (
	proofsBucket      = "proofs"
	invalidatedBucket = "invalidated_secrets"
	p2shBucket        = "p2sh_scripts"
)

// ErrProofNotFound is returned by operations that address a proof by
// secret when no such proof is stored.
var ErrProofNotFound = errors.New("storage: proof not found")

// storedProof is the store's own wire shape for a proof, distinct from
// cashu.Proof's mint-protocol/token shape: reserved and send_id are
// tagged json:"-" on cashu.Proof so they never leak onto the wire or
// into a token, but the store must persist them, so it marshals its
// own superset struct instead of the wallet-facing one.
type storedProof struct {
	Amount   uint64            `json:"amount"`
	Id       string            `json:"id,omitempty"`
	Secret   string            `json:"secret"`
	C        string            `json:"C"`
	Script   *cashu.P2SHScript `json:"script,omitempty"`
	Reserved bool              `json:"reserved"`
	SendId   string            `json:"send_id,omitempty"`
}

func toStoredProof(p cashu.Proof) storedProof {
	return storedProof{
		Amount:   p.Amount,
		Id:       p.Id,
		Secret:   p.Secret,
		C:        p.C,
		Script:   p.Script,
		Reserved: p.Reserved,
		SendId:   p.SendId,
	}
}

func (s storedProof) toProof() cashu.Proof {
	return cashu.Proof{
		Amount:   s.Amount,
		Id:       s.Id,
		Secret:   s.Secret,
		C:        s.C,
		Script:   s.Script,
		Reserved: s.Reserved,
		SendId:   s.SendId,
	}
}

// BoltDB is a WalletDB backed by a local bbolt file. Every bucket is
// keyed so secret_used is a single indexed lookup, not a scan.
type BoltDB struct {
	bolt *bolt.DB
}

// OpenBoltDB opens (creating if necessary) wallet.db inside path and
// ensures all required buckets exist.
func OpenBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(filepath.Join(path, "wallet.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: error opening bolt db: %w", err)
	}

	boltdb := &BoltDB{bolt: db}
	if err := boltdb.initBuckets(); err != nil {
		return nil, fmt.Errorf("storage: error initializing buckets: %w", err)
	}

	return boltdb, nil
}

func (db *BoltDB) initBuckets() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{proofsBucket, invalidatedBucket, p2shBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}

// StoreProof inserts or upserts a proof keyed by its secret.
func (db *BoltDB) StoreProof(proof cashu.Proof) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		proofsb := tx.Bucket([]byte(proofsBucket))
		data, err := json.Marshal(toStoredProof(proof))
		if err != nil {
			return fmt.Errorf("storage: invalid proof: %w", err)
		}
		return proofsb.Put([]byte(proof.Secret), data)
	})
}

// GetProofs returns every proof currently live in the store.
func (db *BoltDB) GetProofs() (cashu.Proofs, error) {
	proofs := cashu.Proofs{}

	err := db.bolt.View(func(tx *bolt.Tx) error {
		proofsb := tx.Bucket([]byte(proofsBucket))
		c := proofsb.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var stored storedProof
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("storage: corrupt proof record for secret %q: %w", k, err)
			}
			proofs = append(proofs, stored.toProof())
		}
		return nil
	})

	return proofs, err
}

// InvalidateProof removes proof from the live set and records its secret
// in the invalidated history so future SecretUsed checks reject it.
func (db *BoltDB) InvalidateProof(proof cashu.Proof) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		proofsb := tx.Bucket([]byte(proofsBucket))
		if err := proofsb.Delete([]byte(proof.Secret)); err != nil {
			return err
		}

		invalidatedb := tx.Bucket([]byte(invalidatedBucket))
		return invalidatedb.Put([]byte(proof.Secret), []byte{1})
	})
}

// SecretUsed reports whether secret is live or has been invalidated.
func (db *BoltDB) SecretUsed(secret string) (bool, error) {
	used := false

	err := db.bolt.View(func(tx *bolt.Tx) error {
		proofsb := tx.Bucket([]byte(proofsBucket))
		if proofsb.Get([]byte(secret)) != nil {
			used = true
			return nil
		}

		invalidatedb := tx.Bucket([]byte(invalidatedBucket))
		if invalidatedb.Get([]byte(secret)) != nil {
			used = true
		}
		return nil
	})

	return used, err
}

// UpdateProofReserved sets the reserved flag and send id on the stored
// proof matching secret.
func (db *BoltDB) UpdateProofReserved(secret string, reserved bool, sendId string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		proofsb := tx.Bucket([]byte(proofsBucket))
		data := proofsb.Get([]byte(secret))
		if data == nil {
			return ErrProofNotFound
		}

		var stored storedProof
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("storage: corrupt proof record for secret %q: %w", secret, err)
		}

		stored.Reserved = reserved
		stored.SendId = sendId

		updated, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		return proofsb.Put([]byte(secret), updated)
	})
}

// StoreP2SH persists a generated P2SH script, keyed by its address.
func (db *BoltDB) StoreP2SH(script P2SHRecord) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		p2shb := tx.Bucket([]byte(p2shBucket))
		data, err := json.Marshal(script)
		if err != nil {
			return fmt.Errorf("storage: invalid p2sh record: %w", err)
		}
		return p2shb.Put([]byte(script.Address), data)
	})
}

// GetP2SH looks up a previously stored P2SH script by address. It returns
// nil, nil if no record exists for that address.
func (db *BoltDB) GetP2SH(address string) (*P2SHRecord, error) {
	var record *P2SHRecord

	err := db.bolt.View(func(tx *bolt.Tx) error {
		p2shb := tx.Bucket([]byte(p2shBucket))
		data := p2shb.Get([]byte(address))
		if data == nil {
			return nil
		}

		record = &P2SHRecord{}
		return json.Unmarshal(data, record)
	})

	return record, err
}

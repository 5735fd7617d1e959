package storage

import (
	"log"
	"os"
	"testing"

	"github.com/cashu-go/walletcore/cashu"
)

var db *BoltDB

func TestMain(m *testing.M) {
	code, err := testMain(m)
	if err != nil {
		log.Println(err)
	}
	os.Exit(code)
}

func testMain(m *testing.M) (int, error) {
	dbpath := "./testdbbolt"
	if err := os.MkdirAll(dbpath, 0750); err != nil {
		return 1, err
	}
	defer os.RemoveAll(dbpath)

	var err error
	db, err = OpenBoltDB(dbpath)
	if err != nil {
		return 1, err
	}
	defer db.Close()

	return m.Run(), nil
}

func TestStoreAndGetProofs(t *testing.T) {
	proof := cashu.Proof{Amount: 4, Secret: "secret-a", C: "02" + stringOfLen(64, 'a')}

	if err := db.StoreProof(proof); err != nil {
		t.Fatalf("StoreProof returned error: %v", err)
	}

	proofs, err := db.GetProofs()
	if err != nil {
		t.Fatalf("GetProofs returned error: %v", err)
	}

	found := false
	for _, p := range proofs {
		if p.Secret == proof.Secret {
			found = true
			if p.Amount != proof.Amount {
				t.Errorf("expected amount %d, got %d", proof.Amount, p.Amount)
			}
		}
	}
	if !found {
		t.Fatal("expected to find stored proof in GetProofs")
	}
}

func TestStoreProofIsUpsert(t *testing.T) {
	proof := cashu.Proof{Amount: 1, Secret: "secret-upsert", C: "02" + stringOfLen(64, 'b')}
	if err := db.StoreProof(proof); err != nil {
		t.Fatalf("StoreProof returned error: %v", err)
	}

	proof.Amount = 2
	if err := db.StoreProof(proof); err != nil {
		t.Fatalf("second StoreProof returned error: %v", err)
	}

	proofs, err := db.GetProofs()
	if err != nil {
		t.Fatalf("GetProofs returned error: %v", err)
	}

	count := 0
	for _, p := range proofs {
		if p.Secret == proof.Secret {
			count++
			if p.Amount != 2 {
				t.Errorf("expected upserted amount 2, got %d", p.Amount)
			}
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one proof for secret, found %d", count)
	}
}

func TestInvalidateProofAndSecretUsed(t *testing.T) {
	proof := cashu.Proof{Amount: 8, Secret: "secret-to-invalidate", C: "02" + stringOfLen(64, 'c')}
	if err := db.StoreProof(proof); err != nil {
		t.Fatalf("StoreProof returned error: %v", err)
	}

	used, err := db.SecretUsed(proof.Secret)
	if err != nil {
		t.Fatalf("SecretUsed returned error: %v", err)
	}
	if !used {
		t.Fatal("expected live proof's secret to be reported as used")
	}

	if err := db.InvalidateProof(proof); err != nil {
		t.Fatalf("InvalidateProof returned error: %v", err)
	}

	proofs, err := db.GetProofs()
	if err != nil {
		t.Fatalf("GetProofs returned error: %v", err)
	}
	for _, p := range proofs {
		if p.Secret == proof.Secret {
			t.Fatal("expected invalidated proof to be absent from GetProofs")
		}
	}

	used, err = db.SecretUsed(proof.Secret)
	if err != nil {
		t.Fatalf("SecretUsed returned error: %v", err)
	}
	if !used {
		t.Fatal("expected invalidated secret to remain reported as used")
	}
}

func TestSecretUsedFalseForUnknownSecret(t *testing.T) {
	used, err := db.SecretUsed("never-seen-before")
	if err != nil {
		t.Fatalf("SecretUsed returned error: %v", err)
	}
	if used {
		t.Fatal("expected unknown secret to be reported as unused")
	}
}

func TestUpdateProofReserved(t *testing.T) {
	proof := cashu.Proof{Amount: 2, Secret: "secret-reserve", C: "02" + stringOfLen(64, 'd')}
	if err := db.StoreProof(proof); err != nil {
		t.Fatalf("StoreProof returned error: %v", err)
	}

	if err := db.UpdateProofReserved(proof.Secret, true, "send-id-1"); err != nil {
		t.Fatalf("UpdateProofReserved returned error: %v", err)
	}

	proofs, err := db.GetProofs()
	if err != nil {
		t.Fatalf("GetProofs returned error: %v", err)
	}

	var updated *cashu.Proof
	for i, p := range proofs {
		if p.Secret == proof.Secret {
			updated = &proofs[i]
		}
	}
	if updated == nil {
		t.Fatal("expected to find the reserved proof")
	}
	if !updated.Reserved || updated.SendId != "send-id-1" {
		t.Errorf("expected reserved=true send_id=send-id-1, got reserved=%v send_id=%q", updated.Reserved, updated.SendId)
	}
}

func TestUpdateProofReservedUnknownSecret(t *testing.T) {
	if err := db.UpdateProofReserved("does-not-exist", true, "x"); err != ErrProofNotFound {
		t.Fatalf("expected ErrProofNotFound, got %v", err)
	}
}

func TestStoreAndGetP2SH(t *testing.T) {
	record := P2SHRecord{Address: "3FakeAddress", PrivateKey: []byte{1, 2, 3}, Script: "deadbeef"}
	if err := db.StoreP2SH(record); err != nil {
		t.Fatalf("StoreP2SH returned error: %v", err)
	}

	got, err := db.GetP2SH(record.Address)
	if err != nil {
		t.Fatalf("GetP2SH returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected to find stored p2sh record")
	}
	if got.Script != record.Script {
		t.Errorf("expected script %q, got %q", record.Script, got.Script)
	}
}

func TestGetP2SHMissing(t *testing.T) {
	got, err := db.GetP2SH("nonexistent-address")
	if err != nil {
		t.Fatalf("GetP2SH returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %+v", got)
	}
}

func stringOfLen(n int, c byte) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = c
	}
	return string(b)
}

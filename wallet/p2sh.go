package wallet

import (
	"encoding/base64"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/cashu-go/walletcore/cashu"
	"github.com/cashu-go/walletcore/wallet/storage"
)

// p2shNetParams pins the network the wallet derives P2SH addresses for.
// The mint only ever checks the redeem script and signature, never an
// actual chain, so this choice is cosmetic but kept explicit.
var p2shNetParams = &chaincfg.MainNetParams

// CreateP2SHLock generates a fresh private key, builds a single-key
// CHECKSIG redeem script, derives its P2SH address, and signs a
// canonical dummy spend of that script with the new key. The address,
// script, and private key are persisted; the signature is returned but
// not stored. The script, signature, and address are returned so the
// caller can mark a send-pile's secret with the "P2SH:" marker and
// attach the lock when constructing outputs.
func (w *Wallet) CreateP2SHLock() (*cashu.P2SHScript, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to generate p2sh key: %w", err)
	}

	redeemScript, err := txscript.NewScriptBuilder().
		AddData(privKey.PubKey().SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to build redeem script: %w", err)
	}

	addr, err := btcutil.NewAddressScriptHash(redeemScript, p2shNetParams)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to derive p2sh address: %w", err)
	}

	signature, err := signRedeemScript(redeemScript, privKey)
	if err != nil {
		return nil, err
	}

	script := &cashu.P2SHScript{
		Script:    base64.URLEncoding.EncodeToString(redeemScript),
		Signature: base64.URLEncoding.EncodeToString(signature),
		Address:   addr.EncodeAddress(),
	}

	if err := w.store.StoreP2SH(storage.P2SHRecord{
		Address:    script.Address,
		PrivateKey: privKey.Serialize(),
		Script:     script.Script,
	}); err != nil {
		return nil, fmt.Errorf("wallet: failed to persist p2sh script: %w", err)
	}

	return script, nil
}

// signRedeemScript produces a canonical signature over a one-input,
// zero-output dummy transaction spending redeemScript, the same
// construction used to prove a P2SH key controls a redeem script before
// any real UTXO exists to spend.
func signRedeemScript(redeemScript []byte, privKey *btcec.PrivateKey) ([]byte, error) {
	dummy := wire.NewMsgTx(wire.TxVersion)
	dummy.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: chainhash.Hash{}, Index: 0}, nil, nil))

	return txscript.RawTxInSignature(dummy, 0, redeemScript, txscript.SigHashAll, privKey)
}

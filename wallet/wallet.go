// Package wallet implements the client-side orchestrator for an ecash
// mint protocol: minting, splitting, sending, receiving, and melting
// Chaumian ecash proofs against a single trusted mint.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cashu-go/walletcore/cashu"
	"github.com/cashu-go/walletcore/crypto"
	"github.com/cashu-go/walletcore/wallet/storage"
)

// Wallet drives the mint protocol for a single trusted mint. All
// exported methods serialize through mu: the orchestrator is a
// single-user, single-threaded cooperative client, and concurrent calls
// against one instance are not supported without this lock, since
// secret_used checks would otherwise be TOCTOU-vulnerable.
type Wallet struct {
	mu sync.Mutex

	config Config
	client MintClient
	store  storage.WalletDB
	logger *slog.Logger

	keyset crypto.MintKeyset
	proofs cashu.Proofs
}

// LoadWallet opens the wallet's local store and loads the mint's active
// keyset. It returns a ConfigError if the mint URL is empty or the mint
// returns an empty keyset.
func LoadWallet(config Config) (*Wallet, error) {
	store, err := storage.OpenBoltDB(config.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to open store: %w", err)
	}

	w := &Wallet{
		config: config,
		client: NewHTTPMintClient(config.MintURL),
		store:  store,
		logger: NewLogger(os.Stderr, config.Debug),
	}

	if err := w.LoadMint(context.Background()); err != nil {
		store.Close()
		return nil, err
	}

	return w, nil
}

// LoadMint fetches the active keyset from the configured mint and
// refreshes the in-memory proof mirror from the store.
func (w *Wallet) LoadMint(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.config.MintURL == "" {
		return ErrEmptyMintURL
	}

	keyset, err := w.client.FetchKeys(ctx)
	if err != nil {
		w.logger.Error("failed to fetch keyset from mint", "mint_url", w.config.MintURL, "err", err)
		return err
	}
	if len(keyset) == 0 {
		return ErrEmptyKeyset
	}
	w.keyset = keyset

	proofs, err := w.store.GetProofs()
	if err != nil {
		w.logger.Error("failed to load proofs from store", "err", err)
		return fmt.Errorf("wallet: failed to load proofs from store: %w", err)
	}
	w.proofs = proofs

	return nil
}

// checkSecretsUnused verifies none of secrets are already present in the
// store's live set or invalidated history, per the pre-submission check
// every mint/split call must make.
func (w *Wallet) checkSecretsUnused(secrets []string) error {
	for _, s := range secrets {
		used, err := w.store.SecretUsed(s)
		if err != nil {
			return fmt.Errorf("wallet: failed to check secret usage: %w", err)
		}
		if used {
			return fmt.Errorf("%w: %s", ErrSecretReused, s)
		}
	}
	return nil
}

func (w *Wallet) persistAndTrack(proofs cashu.Proofs) error {
	for _, p := range proofs {
		if err := w.store.StoreProof(p); err != nil {
			w.logger.Error("failed to persist proof", "secret", p.Secret, "err", err)
			return fmt.Errorf("wallet: failed to persist proof: %w", err)
		}
	}
	w.proofs = append(w.proofs, proofs...)
	return nil
}

func (w *Wallet) removeAndInvalidate(proofs cashu.Proofs) error {
	removeBySecret := make(map[string]bool, len(proofs))
	for _, p := range proofs {
		removeBySecret[p.Secret] = true
		if err := w.store.InvalidateProof(p); err != nil {
			w.logger.Error("failed to invalidate proof", "secret", p.Secret, "err", err)
			return fmt.Errorf("wallet: failed to invalidate proof: %w", err)
		}
	}

	kept := w.proofs[:0]
	for _, p := range w.proofs {
		if !removeBySecret[p.Secret] {
			kept = append(kept, p)
		}
	}
	w.proofs = kept
	return nil
}

// Mint requests freshly minted proofs for amount, decomposed into power
// of two denominations, after the mint has confirmed the Lightning
// payment identified by paymentHash (pass "" for mints that don't
// require pre-payment confirmation).
func (w *Wallet) Mint(ctx context.Context, amount uint64, paymentHash string) (cashu.Proofs, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	amounts := cashu.AmountSplit(amount)

	secrets := make([]string, len(amounts))
	for i := range amounts {
		secret, err := FreshSecret()
		if err != nil {
			return nil, err
		}
		secrets[i] = secret
	}
	if err := w.checkSecretsUnused(secrets); err != nil {
		return nil, err
	}

	outputs, messages, err := cashu.ConstructOutputs(amounts, secrets)
	if err != nil {
		return nil, err
	}

	signatures, err := w.client.PostMint(ctx, paymentHash, messages)
	if err != nil {
		w.logger.Error("mint request failed", "amount", amount, "err", err)
		return nil, err
	}

	proofs, err := cashu.ConstructProofs(signatures, outputs, w.keyset)
	if err != nil {
		return nil, err
	}

	if err := w.persistAndTrack(proofs); err != nil {
		return nil, err
	}

	return proofs, nil
}

// RequestMint asks the mint for an invoice to fund a future Mint call.
func (w *Wallet) RequestMint(ctx context.Context, amount uint64) (*MintQuote, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.RequestMint(ctx, amount)
}

// Split exchanges proofsIn for a keep pile (total-amount) and a send
// pile (amount). If sendSecret is "", every output secret is fresh;
// otherwise the keep pile gets fresh secrets and the send pile is
// derived from sendSecret via ExpandSecret, so a P2SH-marked base
// propagates through every output in the send pile.
func (w *Wallet) Split(ctx context.Context, proofsIn cashu.Proofs, amount uint64, sendSecret string) (keep cashu.Proofs, send cashu.Proofs, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.split(ctx, proofsIn, amount, sendSecret)
}

func (w *Wallet) split(ctx context.Context, proofsIn cashu.Proofs, amount uint64, sendSecret string) (cashu.Proofs, cashu.Proofs, error) {
	if len(proofsIn) == 0 {
		return nil, nil, ErrEmptyProofs
	}

	total := proofsIn.Amount()
	if amount > total {
		return nil, nil, fmt.Errorf("%w: requested %d, have %d", ErrBalanceError, amount, total)
	}

	keepAmts := cashu.AmountSplit(total - amount)
	sendAmts := cashu.AmountSplit(amount)
	amounts := append(append([]uint64{}, keepAmts...), sendAmts...)

	var secrets []string
	if sendSecret == "" {
		secrets = make([]string, len(amounts))
		for i := range amounts {
			secret, err := FreshSecret()
			if err != nil {
				return nil, nil, err
			}
			secrets[i] = secret
		}
	} else {
		keepSecrets := make([]string, len(keepAmts))
		for i := range keepAmts {
			secret, err := FreshSecret()
			if err != nil {
				return nil, nil, err
			}
			keepSecrets[i] = secret
		}
		sendSecrets, err := ExpandSecret(sendSecret, len(sendAmts))
		if err != nil {
			return nil, nil, err
		}
		secrets = append(keepSecrets, sendSecrets...)
	}

	if err := w.checkSecretsUnused(secrets); err != nil {
		return nil, nil, err
	}

	outputs, messages, err := cashu.ConstructOutputs(amounts, secrets)
	if err != nil {
		return nil, nil, err
	}

	fst, snd, err := w.client.PostSplit(ctx, proofsIn, amount, messages)
	if err != nil {
		w.logger.Error("split request failed", "amount", amount, "err", err)
		return nil, nil, err
	}

	keepOutputs := outputs[:len(keepAmts)]
	sendOutputs := outputs[len(keepAmts):]

	keepProofs, err := cashu.ConstructProofs(fst, keepOutputs, w.keyset)
	if err != nil {
		return nil, nil, err
	}
	sendProofs, err := cashu.ConstructProofs(snd, sendOutputs, w.keyset)
	if err != nil {
		return nil, nil, err
	}

	// New proofs are persisted before the old ones are invalidated: a
	// crash between these leaves both sets present, which a subsequent
	// LoadMint plus Invalidate can reconcile.
	if err := w.persistAndTrack(keepProofs); err != nil {
		return nil, nil, err
	}
	if err := w.persistAndTrack(sendProofs); err != nil {
		return nil, nil, err
	}
	if err := w.removeAndInvalidate(proofsIn); err != nil {
		return nil, nil, err
	}

	return keepProofs, sendProofs, nil
}

// Redeem rotates the secrets of proofs via a full split, unlocking any
// P2SH lock satisfied by script and signature. Exactly one of script and
// signature being set is rejected with ErrIncompleteScript: a half
// specified lock must not silently degrade to an ordinary split.
func (w *Wallet) Redeem(ctx context.Context, proofs cashu.Proofs, script, signature string) (cashu.Proofs, error) {
	hasScript := script != ""
	hasSignature := signature != ""
	if hasScript != hasSignature {
		return nil, ErrIncompleteScript
	}

	locked := proofs
	if hasScript && hasSignature {
		locked = make(cashu.Proofs, len(proofs))
		copy(locked, proofs)
		for i := range locked {
			locked[i].Script = &cashu.P2SHScript{Script: script, Signature: signature}
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_, send, err := w.split(ctx, locked, locked.Amount(), "")
	return send, err
}

// SplitToSend carves amount out of the wallet's non-reserved proofs.
func (w *Wallet) SplitToSend(ctx context.Context, amount uint64, sendSecret string) (keep cashu.Proofs, send cashu.Proofs, err error) {
	w.mu.Lock()

	available := make(cashu.Proofs, 0, len(w.proofs))
	for _, p := range w.proofs {
		if !p.Reserved {
			available = append(available, p)
		}
	}

	if len(available) == 0 || available.Amount() < amount {
		w.mu.Unlock()
		return nil, nil, fmt.Errorf("%w: need %d, have %d available", ErrBalanceError, amount, available.Amount())
	}

	keep, send, err = w.split(ctx, available, amount, sendSecret)
	w.mu.Unlock()
	return keep, send, err
}

// PayLightning melts proofs to settle invoice. On success the consumed
// proofs are invalidated; on failure they are left untouched and
// ErrPaymentNotPaid is returned.
func (w *Wallet) PayLightning(ctx context.Context, proofs cashu.Proofs, invoice string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	paid, _, err := w.client.PostMelt(ctx, proofs, invoice)
	if err != nil {
		w.logger.Error("melt request failed", "err", err)
		return err
	}
	if !paid {
		return ErrPaymentNotPaid
	}

	return w.removeAndInvalidate(proofs)
}

// Invalidate reconciles the store against the mint's view of proofs:
// every proof the mint reports as no longer spendable is removed from
// memory and invalidated in the store. Proofs the mint still considers
// spendable are left untouched. This is a reconciliation operation, not
// a spend: it only prunes proofs consumed elsewhere.
func (w *Wallet) Invalidate(ctx context.Context, proofs cashu.Proofs) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	spendable, err := w.client.PostCheck(ctx, proofs)
	if err != nil {
		w.logger.Error("check request failed", "err", err)
		return err
	}

	spent := make(cashu.Proofs, 0)
	for i, p := range proofs {
		if !spendable[i] {
			spent = append(spent, p)
		}
	}

	if len(spent) == 0 {
		return nil
	}
	return w.removeAndInvalidate(spent)
}

// SetReserved stamps every proof in proofs with a freshly generated send
// id and the given reserved flag, both in memory and in the store. A
// reserved proof still counts toward Balance but not AvailableBalance.
func (w *Wallet) SetReserved(proofs cashu.Proofs, reserved bool) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	sendId := uuid.NewString()
	targets := make(map[string]bool, len(proofs))
	for _, p := range proofs {
		targets[p.Secret] = true
	}

	for _, p := range proofs {
		if err := w.store.UpdateProofReserved(p.Secret, reserved, sendId); err != nil {
			w.logger.Error("failed to update reserved flag", "secret", p.Secret, "err", err)
			return "", fmt.Errorf("wallet: failed to update reserved flag: %w", err)
		}
	}

	for i := range w.proofs {
		if targets[w.proofs[i].Secret] {
			w.proofs[i].Reserved = reserved
			w.proofs[i].SendId = sendId
		}
	}

	return sendId, nil
}

// CheckFees asks the mint for the expected Lightning routing fee for
// invoice, ahead of a PayLightning call.
func (w *Wallet) CheckFees(ctx context.Context, invoice string) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.client.PostCheckFees(ctx, invoice)
}

// Balance is the sum of every stored proof's amount, reserved or not.
func (w *Wallet) Balance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proofs.Amount()
}

// AvailableBalance is the sum of every non-reserved stored proof's
// amount.
func (w *Wallet) AvailableBalance() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	var total uint64
	for _, p := range w.proofs {
		if !p.Reserved {
			total += p.Amount
		}
	}
	return total
}

// ProofAmounts returns the amount of every stored proof, ascending.
func (w *Wallet) ProofAmounts() []uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	amounts := make([]uint64, len(w.proofs))
	for i, p := range w.proofs {
		amounts[i] = p.Amount
	}
	sort.Slice(amounts, func(i, j int) bool { return amounts[i] < amounts[j] })
	return amounts
}

// Status summarizes the wallet's holdings for display.
func (w *Wallet) Status() string {
	return fmt.Sprintf("balance: %d sats (%d available), proofs: %v", w.Balance(), w.AvailableBalance(), w.ProofAmounts())
}

// Close releases the wallet's underlying store.
func (w *Wallet) Close() error {
	return w.store.Close()
}

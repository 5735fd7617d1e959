package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cashu-go/walletcore/cashu"
	"github.com/cashu-go/walletcore/crypto"
)

// MintQuote is the opaque Lightning invoice descriptor a mint returns
// from a mint request. PaymentRequest and Hash are treated as strings;
// everything else the mint includes is preserved in Extra rather than
// parsed, since invoice semantics are out of scope for the wallet core.
type MintQuote struct {
	PaymentRequest string          `json:"pr"`
	Hash           string          `json:"hash"`
	Extra          json.RawMessage `json:"-"`
}

// MintClient is the thin stateless HTTP contract the orchestrator drives.
// Every method surfaces NetworkError on transport failure, ProtocolError
// on a non-2xx response it cannot interpret, and MintError when the JSON
// body carries an "error" field.
type MintClient interface {
	FetchKeys(ctx context.Context) (crypto.MintKeyset, error)
	RequestMint(ctx context.Context, amount uint64) (*MintQuote, error)
	PostMint(ctx context.Context, paymentHash string, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error)
	PostSplit(ctx context.Context, proofs cashu.Proofs, amount uint64, outputs cashu.BlindedMessages) (fst, snd cashu.BlindedSignatures, err error)
	PostCheck(ctx context.Context, proofs cashu.Proofs) (map[int]bool, error)
	PostCheckFees(ctx context.Context, invoice string) (uint64, error)
	PostMelt(ctx context.Context, proofs cashu.Proofs, invoice string) (paid bool, raw json.RawMessage, err error)
}

// HTTPMintClient implements MintClient against a mint's HTTP API.
type HTTPMintClient struct {
	mintURL string
	http    *http.Client
}

// NewHTTPMintClient builds a client for the mint at mintURL.
func NewHTTPMintClient(mintURL string) *HTTPMintClient {
	return &HTTPMintClient{mintURL: mintURL, http: &http.Client{}}
}

type errorResponse struct {
	Error string `json:"error"`
}

// parse inspects a mint response, translating a non-2xx status into a
// ProtocolError and an in-body {"error": ...} field (even on a 200) into
// a MintError, mirroring the mint's habit of reporting failures in the
// response body rather than (only) through status codes.
func parse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProtocolError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var maybeErr errorResponse
	if err := json.Unmarshal(body, &maybeErr); err == nil && maybeErr.Error != "" {
		return nil, &MintError{Message: maybeErr.Error}
	}

	return body, nil
}

func (c *HTTPMintClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mintURL+path, nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	return parse(resp)
}

func (c *HTTPMintClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.mintURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	return parse(resp)
}

// FetchKeys implements GET /keys.
func (c *HTTPMintClient) FetchKeys(ctx context.Context) (crypto.MintKeyset, error) {
	body, err := c.get(ctx, "/keys")
	if err != nil {
		return nil, err
	}

	var keyset crypto.MintKeyset
	if err := json.Unmarshal(body, &keyset); err != nil {
		return nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	return keyset, nil
}

// RequestMint implements GET /mint?amount=....
func (c *HTTPMintClient) RequestMint(ctx context.Context, amount uint64) (*MintQuote, error) {
	path := "/mint?amount=" + url.QueryEscape(strconv.FormatUint(amount, 10))
	body, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}

	var quote MintQuote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	quote.Extra = body
	return &quote, nil
}

type postMintRequest struct {
	BlindedMessages cashu.BlindedMessages `json:"blinded_messages"`
}

// PostMint implements POST /mint?payment_hash=....
func (c *HTTPMintClient) PostMint(ctx context.Context, paymentHash string, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error) {
	path := "/mint?payment_hash=" + url.QueryEscape(paymentHash)
	body, err := c.post(ctx, path, postMintRequest{BlindedMessages: outputs})
	if err != nil {
		return nil, err
	}

	var signatures cashu.BlindedSignatures
	if err := json.Unmarshal(body, &signatures); err != nil {
		return nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	return signatures, nil
}

type outputsWrapper struct {
	BlindedMessages cashu.BlindedMessages `json:"blinded_messages"`
}

type postSplitRequest struct {
	Proofs  cashu.Proofs   `json:"proofs"`
	Amount  uint64         `json:"amount"`
	Outputs outputsWrapper `json:"outputs"`
}

type postSplitResponse struct {
	Fst cashu.BlindedSignatures `json:"fst"`
	Snd cashu.BlindedSignatures `json:"snd"`
}

// PostSplit implements POST /split.
func (c *HTTPMintClient) PostSplit(ctx context.Context, proofs cashu.Proofs, amount uint64, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, cashu.BlindedSignatures, error) {
	reqBody := postSplitRequest{Proofs: proofs, Amount: amount, Outputs: outputsWrapper{BlindedMessages: outputs}}
	body, err := c.post(ctx, "/split", reqBody)
	if err != nil {
		return nil, nil, err
	}

	var resp postSplitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	return resp.Fst, resp.Snd, nil
}

type postCheckRequest struct {
	Proofs cashu.Proofs `json:"proofs"`
}

// PostCheck implements POST /check.
func (c *HTTPMintClient) PostCheck(ctx context.Context, proofs cashu.Proofs) (map[int]bool, error) {
	body, err := c.post(ctx, "/check", postCheckRequest{Proofs: proofs})
	if err != nil {
		return nil, err
	}

	var raw map[string]bool
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}

	result := make(map[int]bool, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
		}
		result[idx] = v
	}
	return result, nil
}

type postCheckFeesRequest struct {
	PaymentRequest string `json:"pr"`
}

type postCheckFeesResponse struct {
	Fee uint64 `json:"fee"`
}

// PostCheckFees implements POST /checkfees.
func (c *HTTPMintClient) PostCheckFees(ctx context.Context, invoice string) (uint64, error) {
	body, err := c.post(ctx, "/checkfees", postCheckFeesRequest{PaymentRequest: invoice})
	if err != nil {
		return 0, err
	}

	var resp postCheckFeesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	return resp.Fee, nil
}

type postMeltRequest struct {
	Proofs  cashu.Proofs `json:"proofs"`
	Invoice string       `json:"invoice"`
}

type postMeltResponse struct {
	Paid bool `json:"paid"`
}

// PostMelt implements POST /melt.
func (c *HTTPMintClient) PostMelt(ctx context.Context, proofs cashu.Proofs, invoice string) (bool, json.RawMessage, error) {
	body, err := c.post(ctx, "/melt", postMeltRequest{Proofs: proofs, Invoice: invoice})
	if err != nil {
		return false, nil, err
	}

	var resp postMeltResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, nil, &ProtocolError{StatusCode: http.StatusOK, Body: string(body)}
	}
	return resp.Paid, body, nil
}

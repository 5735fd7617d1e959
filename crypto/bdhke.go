// Package crypto implements the blind Diffie-Hellman key exchange (BDHKE)
// primitives the wallet uses to mint and verify ecash proofs, and the
// mint keyset representation needed to unblind them.
package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// maxHashToCurveCounter bounds the retry loop in HashToCurve so a
// pathological secret can never hang the caller.
const maxHashToCurveCounter = 1 << 16

var (
	// ErrHashToCurveFailed is returned when no valid curve point was found
	// within maxHashToCurveCounter attempts.
	ErrHashToCurveFailed = errors.New("crypto: hash-to-curve failed")
	// ErrInvalidPoint is returned when a mint response contains bytes that
	// do not parse to a point on the curve.
	ErrInvalidPoint = errors.New("crypto: invalid curve point")
	// ErrBlindingFailed is returned when a private blinding factor could
	// not be sampled.
	ErrBlindingFailed = errors.New("crypto: blinding failed")
)

// Error wraps one of the sentinel errors above with the operation that
// produced it, so callers can errors.Is against the sentinel while still
// getting a useful message.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "crypto: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// HashToCurve deterministically maps a secret to a curve point, retrying
// with an increasing counter appended to the hash input until a valid
// x-coordinate is found. The sign byte is fixed to 0x02, since only the
// x-coordinate carries entropy from the secret.
func HashToCurve(secret []byte) (*secp256k1.PublicKey, error) {
	msg := secret
	for counter := uint32(0); counter < maxHashToCurveCounter; counter++ {
		hash := sha256.Sum256(msg)

		candidate := make([]byte, 0, 1+sha256.Size)
		candidate = append(candidate, 0x02)
		candidate = append(candidate, hash[:]...)
		if point, err := secp256k1.ParsePubKey(candidate); err == nil {
			return point, nil
		}

		counterBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(counterBytes, counter+1)
		next := make([]byte, 0, len(secret)+4)
		next = append(next, secret...)
		next = append(next, counterBytes...)
		msg = next
	}
	return nil, &Error{Op: "HashToCurve", Err: ErrHashToCurveFailed}
}

// BlindMessage samples a blinding factor r and returns B_ = Y + rG, where
// Y = HashToCurve(secret).
func BlindMessage(secret []byte) (B_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, err error) {
	r, err = secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, &Error{Op: "BlindMessage", Err: ErrBlindingFailed}
	}
	return BlindMessageWithFactor(secret, r)
}

// BlindMessageWithFactor blinds secret using a caller-supplied blinding
// factor r. Exported for tests that need deterministic fixtures; callers
// minting real proofs should use BlindMessage.
func BlindMessageWithFactor(secret []byte, r *secp256k1.PrivateKey) (B_ *secp256k1.PublicKey, _ *secp256k1.PrivateKey, err error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return nil, nil, err
	}

	var ypoint, rpoint, blinded secp256k1.JacobianPoint
	Y.AsJacobian(&ypoint)
	r.PubKey().AsJacobian(&rpoint)

	secp256k1.AddNonConst(&ypoint, &rpoint, &blinded)
	blinded.ToAffine()
	B_ = secp256k1.NewPublicKey(&blinded.X, &blinded.Y)

	return B_, r, nil
}

// SignBlindedMessage computes C_ = k*B_. This is the mint-side step of the
// protocol, included so the wallet can exercise the full round-trip in
// tests without an external mint.
func SignBlindedMessage(B_ *secp256k1.PublicKey, k *secp256k1.PrivateKey) *secp256k1.PublicKey {
	var bpoint, result secp256k1.JacobianPoint
	B_.AsJacobian(&bpoint)

	secp256k1.ScalarMultNonConst(&k.Key, &bpoint, &result)
	result.ToAffine()
	return secp256k1.NewPublicKey(&result.X, &result.Y)
}

// UnblindSignature computes C = C_ - rK, where K is the mint's public key
// for the proof's amount.
func UnblindSignature(C_ *secp256k1.PublicKey, r *secp256k1.PrivateKey, K *secp256k1.PublicKey) *secp256k1.PublicKey {
	var kpoint, rKPoint, cPoint, c_Point secp256k1.JacobianPoint
	K.AsJacobian(&kpoint)

	var rNeg secp256k1.ModNScalar
	rNeg.NegateVal(&r.Key)
	secp256k1.ScalarMultNonConst(&rNeg, &kpoint, &rKPoint)

	C_.AsJacobian(&c_Point)
	secp256k1.AddNonConst(&c_Point, &rKPoint, &cPoint)
	cPoint.ToAffine()

	return secp256k1.NewPublicKey(&cPoint.X, &cPoint.Y)
}

// Verify reports whether C == k*HashToCurve(secret). Like SignBlindedMessage
// this is a mint-side check, kept for round-trip tests.
func Verify(secret []byte, k *secp256k1.PrivateKey, C *secp256k1.PublicKey) (bool, error) {
	Y, err := HashToCurve(secret)
	if err != nil {
		return false, err
	}

	var ypoint, result secp256k1.JacobianPoint
	Y.AsJacobian(&ypoint)
	secp256k1.ScalarMultNonConst(&k.Key, &ypoint, &result)
	result.ToAffine()

	expected := secp256k1.NewPublicKey(&result.X, &result.Y)
	return C.IsEqual(expected), nil
}

// ParsePoint decodes a compressed curve point, translating parse failures
// into ErrInvalidPoint.
func ParsePoint(compressed []byte) (*secp256k1.PublicKey, error) {
	point, err := secp256k1.ParsePubKey(compressed)
	if err != nil {
		return nil, &Error{Op: "ParsePoint", Err: ErrInvalidPoint}
	}
	return point, nil
}

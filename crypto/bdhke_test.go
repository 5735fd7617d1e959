package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func privKeyFromHex(t *testing.T, s string) *secp256k1.PrivateKey {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("error decoding private key hex: %v", err)
	}
	return secp256k1.PrivKeyFromBytes(b)
}

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "02ec4916dd28fc4c10d78e287ca5d9cc51ee1ae73cbfde08c6b37324cbfaac8bc5"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "02cdca4c4b98d06c5e23f1ee33417306db4552f7dd7c1150088ee9e0998900a4ea"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Fatalf("error decoding msg: %v", err)
		}

		pk, err := HashToCurve(msgBytes)
		if err != nil {
			t.Fatalf("HashToCurve returned error: %v", err)
		}
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}
	}
}

func TestBlindMessageWithFactor(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "020ddf935bcdec0acf6b0adadf351f8571c475b11219b88a6e980f8154d3775eca",
		},
		{secret: []byte("hello"),
			blindingFactor: "6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05",
			expected:       "02c7c7bf183526421e1d8eb2ccdc40f1a7286d7f0a1a831679f05ef6767cbf6507",
		},
	}

	for _, test := range tests {
		r := privKeyFromHex(t, test.blindingFactor)

		B_, _, err := BlindMessageWithFactor(test.secret, r)
		if err != nil {
			t.Fatalf("BlindMessageWithFactor returned error: %v", err)
		}
		B_Hex := hex.EncodeToString(B_.SerializeCompressed())
		if B_Hex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, B_Hex)
		}
	}
}

func TestSignBlindedMessage(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		mintPrivKey    string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "020ddf935bcdec0acf6b0adadf351f8571c475b11219b88a6e980f8154d3775eca",
		},
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f",
			expected:       "0322f163f8cb70200eb4234d92674ff02aa3a7d4d63c6bbbbce9626342621e4191",
		},
	}

	for _, test := range tests {
		r := privKeyFromHex(t, test.blindingFactor)

		B_, _, err := BlindMessageWithFactor(test.secret, r)
		if err != nil {
			t.Fatalf("BlindMessageWithFactor returned error: %v", err)
		}

		k := privKeyFromHex(t, test.mintPrivKey)

		blindedSignature := SignBlindedMessage(B_, k)
		blindedHex := hex.EncodeToString(blindedSignature.SerializeCompressed())
		if blindedHex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, blindedHex)
		}
	}
}

func TestUnblindSignature(t *testing.T) {
	dst, _ := hex.DecodeString("02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2")
	C_, err := secp256k1.ParsePubKey(dst)
	if err != nil {
		t.Fatal(err)
	}

	kdst, _ := hex.DecodeString("020000000000000000000000000000000000000000000000000000000000000001")
	K, err := secp256k1.ParsePubKey(kdst)
	if err != nil {
		t.Fatal(err)
	}

	r := privKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000001")

	C := UnblindSignature(C_, r, K)
	CHex := hex.EncodeToString(C.SerializeCompressed())
	expected := "03c724d7e6a5443b39ac8acf11f40420adc4f99a02e7cc1b57703d9391f6d129cd"
	if CHex != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, CHex)
	}
}

func TestVerify(t *testing.T) {
	secret := []byte("test_message")
	r := privKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000002")

	B_, r, err := BlindMessageWithFactor(secret, r)
	if err != nil {
		t.Fatalf("BlindMessageWithFactor returned error: %v", err)
	}

	k := privKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000001")
	K := k.PubKey()

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, K)

	ok, err := Verify(secret, k, C)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Error("failed verification")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	secret := []byte("test_message")
	r := privKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000002")

	B_, r, err := BlindMessageWithFactor(secret, r)
	if err != nil {
		t.Fatalf("BlindMessageWithFactor returned error: %v", err)
	}

	k := privKeyFromHex(t, "0000000000000000000000000000000000000000000000000000000000000001")
	K := k.PubKey()

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, K)

	ok, err := Verify([]byte("wrong_message"), k, C)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Error("expected verification to fail for mismatched secret")
	}
}

func TestParsePointRejectsInvalidBytes(t *testing.T) {
	_, err := ParsePoint([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected an error for malformed point bytes")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("invalid curve point")) {
		t.Errorf("expected invalid point error, got: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	secret := []byte("a fresh unique secret")

	B_, r, err := BlindMessage(secret)
	if err != nil {
		t.Fatalf("BlindMessage returned error: %v", err)
	}

	k, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("failed to generate mint key: %v", err)
	}
	K := k.PubKey()

	C_ := SignBlindedMessage(B_, k)
	C := UnblindSignature(C_, r, K)

	ok, err := Verify(secret, k, C)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Error("round trip failed to verify")
	}
}

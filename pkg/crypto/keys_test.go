package crypto

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func scalarOf(t *testing.T, v uint32) *secp256k1.ModNScalar {
	t.Helper()
	var s secp256k1.ModNScalar
	s.SetInt(v)
	return &s
}

func TestPrivateKeyFromBytes_One(t *testing.T) {
	b := make([]byte, 32)
	b[31] = 1
	key, err := PrivateKeyFromBytes(b)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}

	wantPub := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if got := hex.EncodeToString(key.PublicKey().SerializeCompressed()); got != wantPub {
		t.Errorf("PublicKey() = %s, want %s", got, wantPub)
	}

	wantAddr := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if got := key.Address(); got != wantAddr {
		t.Errorf("Address() = %s, want %s", got.Hex(), wantAddr.Hex())
	}
}

func TestPrivateKeyFromBytes_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"short", make([]byte, 31)},
		{"long", make([]byte, 33)},
		{"zero", make([]byte, 32)},
		{"curve order", mustHex(t, "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PrivateKeyFromBytes(tt.input); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestScalarFromBytes_ReducesModN(t *testing.T) {
	// N + 1 reduces to 1.
	b := mustHex(t, "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364142")
	s, err := ScalarFromBytes(b)
	if err != nil {
		t.Fatalf("ScalarFromBytes() error: %v", err)
	}
	if !s.Equals(scalarOf(t, 1)) {
		t.Errorf("ScalarFromBytes(N+1) = %x, want 1", s.Bytes())
	}

	if _, err := ScalarFromBytes(mustHex(t, "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")); err == nil {
		t.Error("ScalarFromBytes(N) should fail (reduces to zero)")
	}
}

func TestParsePubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	pub := key.PublicKey()

	parsed, err := ParsePubKey(pub.SerializeCompressed())
	if err != nil {
		t.Fatalf("ParsePubKey() error: %v", err)
	}
	if !parsed.Equal(pub) {
		t.Error("parsed key differs from original")
	}

	if _, err := ParsePubKey(pub.SerializeUncompressed()); err == nil {
		t.Error("ParsePubKey should reject uncompressed keys")
	}

	bad := pub.SerializeCompressed()
	bad[0] = 0x04
	if _, err := ParsePubKey(bad); err == nil {
		t.Error("ParsePubKey should reject bad prefix")
	}

	// x = 5 is not on the curve.
	notOnCurve := make([]byte, 33)
	notOnCurve[0] = 0x02
	notOnCurve[32] = 0x05
	if _, err := ParsePubKey(notOnCurve); err == nil {
		t.Error("ParsePubKey should reject a point not on the curve")
	}
}

func TestPointArithmetic(t *testing.T) {
	a, b := scalarOf(t, 7), scalarOf(t, 11)

	aG, err := PublicKeyFromScalar(a)
	if err != nil {
		t.Fatalf("PublicKeyFromScalar() error: %v", err)
	}

	// (a·G)·b == (a·b)·G
	abG, err := aG.Mul(b)
	if err != nil {
		t.Fatalf("Mul() error: %v", err)
	}
	want, _ := PublicKeyFromScalar(scalarOf(t, 77))
	if !abG.Equal(want) {
		t.Error("(aG)*b != (ab)G")
	}

	// a·G + b·G == (a+b)·G
	sum, err := aG.AddScalarBase(b)
	if err != nil {
		t.Fatalf("AddScalarBase() error: %v", err)
	}
	want, _ = PublicKeyFromScalar(scalarOf(t, 18))
	if !sum.Equal(want) {
		t.Error("aG + bG != (a+b)G")
	}
}

func TestAddScalarBase_Infinity(t *testing.T) {
	one := scalarOf(t, 1)
	g, _ := PublicKeyFromScalar(one)
	negOne := new(secp256k1.ModNScalar).NegateVal(one)
	if _, err := g.AddScalarBase(negOne); err != ErrPointAtInfinity {
		t.Errorf("G + (-1)G error = %v, want ErrPointAtInfinity", err)
	}
}

func TestSignMessage_Recovers(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	msg := []byte("Sign this message to access your stealth wallet")
	sig := key.SignMessage(msg)
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("v = %d, want 27 or 28", sig[64])
	}

	// go-ethereum expects v in {0, 1}.
	raw := bytes.Clone(sig)
	raw[64] -= 27
	pub, err := ethcrypto.SigToPub(PersonalMessageHash(msg), raw)
	if err != nil {
		t.Fatalf("SigToPub() error: %v", err)
	}
	if got := ethcrypto.PubkeyToAddress(*pub); got != key.Address() {
		t.Errorf("recovered %s, want %s", got.Hex(), key.Address().Hex())
	}

	// Deterministic (RFC 6979).
	if !bytes.Equal(sig, key.SignMessage(msg)) {
		t.Error("SignMessage is not deterministic")
	}
}

func TestZero(t *testing.T) {
	key, _ := GenerateKey()
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Error("Zero() did not clear the key")
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return b
}

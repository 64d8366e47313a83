package crypto

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/common"
)

// Key sizes in bytes.
const (
	PrivateKeySize         = 32
	CompressedPubKeySize   = 33
	UncompressedPubKeySize = 65
	SignatureSize          = 65
)

const personalMessagePrefix = "\x19Ethereum Signed Message:\n"

var (
	// ErrInvalidScalar is returned for a zero or out-of-range scalar.
	ErrInvalidScalar = errors.New("invalid secp256k1 scalar")
	// ErrInvalidPubKey is returned when bytes are not a compressed secp256k1 point.
	ErrInvalidPubKey = errors.New("invalid compressed secp256k1 public key")
	// ErrPointAtInfinity is returned when a point operation yields the identity.
	ErrPointAtInfinity = errors.New("point at infinity")
)

// PrivateKey wraps a secp256k1 private key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// GenerateKey creates a new random secp256k1 private key.
func GenerateKey() (*PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes creates a PrivateKey from a 32-byte secret.
// The value must lie in [1, N-1].
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", PrivateKeySize, len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, ErrInvalidScalar
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// PrivateKeyFromScalar creates a PrivateKey from a non-zero scalar.
func PrivateKeyFromScalar(s *secp256k1.ModNScalar) (*PrivateKey, error) {
	if s.IsZero() {
		return nil, ErrInvalidScalar
	}
	k := *s
	return &PrivateKey{key: secp256k1.NewPrivateKey(&k)}, nil
}

// ScalarFromBytes interprets up to 32 big-endian bytes as an integer and
// reduces it modulo the curve order. A zero result is rejected.
func ScalarFromBytes(b []byte) (*secp256k1.ModNScalar, error) {
	if len(b) > PrivateKeySize {
		return nil, fmt.Errorf("scalar must be at most %d bytes, got %d", PrivateKeySize, len(b))
	}
	var s secp256k1.ModNScalar
	s.SetByteSlice(b)
	if s.IsZero() {
		return nil, ErrInvalidScalar
	}
	return &s, nil
}

// Scalar returns a copy of the private scalar.
func (pk *PrivateKey) Scalar() *secp256k1.ModNScalar {
	s := pk.key.Key
	return &s
}

// PublicKey returns the public key for pk.
func (pk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{key: pk.key.PubKey()}
}

// Address returns the Ethereum address controlled by pk.
func (pk *PrivateKey) Address() common.Address {
	return AddressFromPubKey(pk.PublicKey())
}

// Serialize returns the 32-byte private key scalar.
func (pk *PrivateKey) Serialize() []byte {
	return pk.key.Serialize()
}

// Zero securely zeroes the private key memory.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}

// SignMessage produces an EIP-191 personal_sign signature over msg in the
// 65-byte r || s || v layout returned by browser wallets (v is 27 or 28).
func (pk *PrivateKey) SignMessage(msg []byte) []byte {
	hash := PersonalMessageHash(msg)
	compact := ecdsa.SignCompact(pk.key, hash, false)
	// compact = [27 + recid] || r || s
	out := make([]byte, SignatureSize)
	copy(out[:64], compact[1:])
	out[64] = compact[0]
	return out
}

// PersonalMessageHash returns the EIP-191 hash of msg.
func PersonalMessageHash(msg []byte) []byte {
	prefix := personalMessagePrefix + strconv.Itoa(len(msg))
	return Keccak256([]byte(prefix), msg)
}

// PublicKey wraps a secp256k1 public key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// ParsePubKey parses a 33-byte compressed secp256k1 public key. Uncompressed
// and hybrid encodings are rejected.
func ParsePubKey(b []byte) (*PublicKey, error) {
	if len(b) != CompressedPubKeySize || (b[0] != 0x02 && b[0] != 0x03) {
		return nil, ErrInvalidPubKey
	}
	key, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPubKey, err)
	}
	return &PublicKey{key: key}, nil
}

// PublicKeyFromScalar returns k·G.
func PublicKeyFromScalar(k *secp256k1.ModNScalar) (*PublicKey, error) {
	var result secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(k, &result)
	return fromJacobian(&result)
}

// SerializeCompressed returns the 33-byte compressed encoding.
func (p *PublicKey) SerializeCompressed() []byte {
	return p.key.SerializeCompressed()
}

// SerializeUncompressed returns the 65-byte uncompressed encoding.
func (p *PublicKey) SerializeUncompressed() []byte {
	return p.key.SerializeUncompressed()
}

// Address returns the Ethereum address of p.
func (p *PublicKey) Address() common.Address {
	return AddressFromPubKey(p)
}

// Equal reports whether p and o are the same point.
func (p *PublicKey) Equal(o *PublicKey) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.key.IsEqual(o.key)
}

// Mul returns k·p.
func (p *PublicKey) Mul(k *secp256k1.ModNScalar) (*PublicKey, error) {
	var point, result secp256k1.JacobianPoint
	p.key.AsJacobian(&point)
	secp256k1.ScalarMultNonConst(k, &point, &result)
	return fromJacobian(&result)
}

// AddScalarBase returns p + k·G.
func (p *PublicKey) AddScalarBase(k *secp256k1.ModNScalar) (*PublicKey, error) {
	var point, kG, result secp256k1.JacobianPoint
	p.key.AsJacobian(&point)
	secp256k1.ScalarBaseMultNonConst(k, &kG)
	secp256k1.AddNonConst(&point, &kG, &result)
	return fromJacobian(&result)
}

func fromJacobian(j *secp256k1.JacobianPoint) (*PublicKey, error) {
	z := j.Z
	z.Normalize()
	if z.IsZero() {
		return nil, ErrPointAtInfinity
	}
	j.ToAffine()
	return &PublicKey{key: secp256k1.NewPublicKey(&j.X, &j.Y)}, nil
}

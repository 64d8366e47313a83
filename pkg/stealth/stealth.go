// Package stealth implements ERC-5564 scheme 1 stealth addresses on
// secp256k1: one-time address generation for senders, and private key
// recovery, view-only verification and view tags for recipients.
package stealth

import (
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

// GeneratedAddress is the sender-side result of one payment. Never reuse it.
type GeneratedAddress struct {
	OneTimeAddress        common.Address
	DeployedWalletAddress common.Address // Zero when no wallet factory is configured
	EphemeralPublicKey    []byte
	ViewTag               byte
	StealthPublicKey      []byte
}

// Generate derives a fresh one-time payment address for meta.
func Generate(meta *MetaAddress, params *config.ChainParams) (*GeneratedAddress, error) {
	eph, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrDerivationFailure, err)
	}
	defer eph.Zero()
	return generate(meta, eph, params)
}

// GenerateWithEphemeral is Generate with a caller-supplied ephemeral private
// key. Reusing an ephemeral key links payments; use it for fixtures only.
func GenerateWithEphemeral(meta *MetaAddress, ephemeralPriv []byte, params *config.ChainParams) (*GeneratedAddress, error) {
	eph, err := crypto.PrivateKeyFromBytes(ephemeralPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral key: %v", ErrInvalidFormat, err)
	}
	return generate(meta, eph, params)
}

func generate(meta *MetaAddress, eph *crypto.PrivateKey, params *config.ChainParams) (*GeneratedAddress, error) {
	viewPub, err := crypto.ParsePubKey(meta.ViewingPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: viewing public key: %v", ErrInvalidFormat, err)
	}
	spendPub, err := crypto.ParsePubKey(meta.SpendingPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: spending public key: %v", ErrInvalidFormat, err)
	}

	h, err := sharedSecretHash(eph.Scalar(), viewPub)
	if err != nil {
		return nil, err
	}
	stealthPub, err := stealthPublicKey(spendPub, h)
	if err != nil {
		return nil, err
	}

	out := &GeneratedAddress{
		OneTimeAddress:     stealthPub.Address(),
		EphemeralPublicKey: eph.PublicKey().SerializeCompressed(),
		ViewTag:            h[0],
		StealthPublicKey:   stealthPub.SerializeCompressed(),
	}
	if params != nil && params.WalletFactory.Enabled() {
		out.DeployedWalletAddress = crypto.Create2Address(
			params.WalletFactory.Address,
			crypto.WalletSalt(out.OneTimeAddress),
			params.WalletFactory.InitCodeHash,
		)
	}
	return out, nil
}

// RecoverPrivateKey returns the one-time private key
// (spendingPriv + H(viewingPriv·ephemeralPub)) mod N.
func RecoverPrivateKey(spendingPriv, viewingPriv, ephemeralPub []byte) ([]byte, error) {
	spend, err := crypto.PrivateKeyFromBytes(spendingPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: spending key: %v", ErrInvalidFormat, err)
	}
	h, err := viewHash(viewingPriv, ephemeralPub)
	if err != nil {
		return nil, err
	}
	hs, err := crypto.ScalarFromBytes(h)
	if err != nil {
		return nil, fmt.Errorf("%w: secret hash: %v", ErrDerivationFailure, err)
	}
	sum := new(secp256k1.ModNScalar).Add2(spend.Scalar(), hs)
	key, err := crypto.PrivateKeyFromScalar(sum)
	if err != nil {
		return nil, fmt.Errorf("%w: stealth key: %v", ErrDerivationFailure, err)
	}
	return key.Serialize(), nil
}

// StealthAddress recomputes the one-time address for an announcement from
// the viewing private key and the spending public key alone.
func StealthAddress(ephemeralPub, spendingPub, viewingPriv []byte) (common.Address, error) {
	spend, err := crypto.ParsePubKey(spendingPub)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: spending public key: %v", ErrInvalidFormat, err)
	}
	h, err := viewHash(viewingPriv, ephemeralPub)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := stealthPublicKey(spend, h)
	if err != nil {
		return common.Address{}, err
	}
	return pub.Address(), nil
}

// Verify reports whether claimed is the one-time address for ephemeralPub
// under the given viewing key. Malformed input yields false.
func Verify(ephemeralPub, spendingPub []byte, claimed common.Address, viewingPriv []byte) bool {
	addr, err := StealthAddress(ephemeralPub, spendingPub, viewingPriv)
	if err != nil {
		return false
	}
	return addr == claimed
}

// VerifyHex is Verify for a hex address string; case is ignored.
func VerifyHex(ephemeralPub, spendingPub []byte, claimed string, viewingPriv []byte) bool {
	addr, err := StealthAddress(ephemeralPub, spendingPub, viewingPriv)
	if err != nil {
		return false
	}
	return strings.EqualFold(addr.Hex(), strings.TrimSpace(claimed))
}

// ComputeViewTag returns the first byte of H(viewingPriv·ephemeralPub).
func ComputeViewTag(viewingPriv, ephemeralPub []byte) (byte, error) {
	h, err := viewHash(viewingPriv, ephemeralPub)
	if err != nil {
		return 0, err
	}
	return h[0], nil
}

func viewHash(viewingPriv, ephemeralPub []byte) ([]byte, error) {
	view, err := crypto.PrivateKeyFromBytes(viewingPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: viewing key: %v", ErrInvalidFormat, err)
	}
	eph, err := crypto.ParsePubKey(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("%w: ephemeral public key: %v", ErrInvalidFormat, err)
	}
	return sharedSecretHash(view.Scalar(), eph)
}

// sharedSecretHash returns Keccak256(compressed(k·P)).
func sharedSecretHash(k *secp256k1.ModNScalar, p *crypto.PublicKey) ([]byte, error) {
	shared, err := p.Mul(k)
	if err != nil {
		return nil, fmt.Errorf("%w: shared secret: %v", ErrDerivationFailure, err)
	}
	return crypto.Keccak256(shared.SerializeCompressed()), nil
}

// stealthPublicKey returns spendingPub + H·G.
func stealthPublicKey(spendingPub *crypto.PublicKey, h []byte) (*crypto.PublicKey, error) {
	hs, err := crypto.ScalarFromBytes(h)
	if err != nil {
		return nil, fmt.Errorf("%w: secret hash: %v", ErrDerivationFailure, err)
	}
	pub, err := spendingPub.AddScalarBase(hs)
	if err != nil {
		return nil, fmt.Errorf("%w: stealth public key: %v", ErrDerivationFailure, err)
	}
	return pub, nil
}

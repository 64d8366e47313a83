// Package wallet derives a recipient's stealth keys from a wallet signature,
// optionally hardened with a 6-digit PIN.
package wallet

import (
	"context"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/Klingon-tech/klingnet-stealth/internal/log"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// SignatureMessage is the message a wallet signs once to bootstrap its
// stealth keys. Changing it changes every derived key.
const SignatureMessage = "Sign this message to access your Klingnet stealth wallet.\n\nThis signature never leaves your device and costs no gas."

// PBKDF2Iterations is the iteration count of the v1 and v2 PIN derivations.
const PBKDF2Iterations = 100_000

// Role labels. v0 hashes them in; v1 uses them as PBKDF2 salts.
const (
	labelSpend = "Klingnet Stealth Spend Authority"
	labelView  = "Klingnet Stealth View Authority"
	labelClaim = "Klingnet Stealth Claim Authority"
)

// Versioned v2 salts.
const (
	labelSpendV2 = "Klingnet Stealth Spend Authority v2"
	labelViewV2  = "Klingnet Stealth View Authority v2"
	labelClaimV2 = "Klingnet Stealth Claim Authority v2"
)

// Keys is the output of a PIN derivation.
type Keys struct {
	KeyPair         *stealth.KeyPair
	ClaimPrivateKey []byte
	Version         KeyVersion
}

// Zero wipes all private key material.
func (k *Keys) Zero() {
	k.KeyPair.Zero()
	clear(k.ClaimPrivateKey)
}

// DeriveKeyPair derives the stealth keys from a wallet signature alone:
//
//	entropy  = Keccak256(signature)
//	spending = Keccak256(entropy || "spending") mod N
//	viewing  = Keccak256(entropy || "viewing") mod N
func DeriveKeyPair(signature []byte) (*stealth.KeyPair, error) {
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: empty signature", stealth.ErrInvalidFormat)
	}
	entropy := crypto.Keccak256(signature)
	defer clear(entropy)

	spendSeed := crypto.Keccak256(entropy, []byte("spending"))
	viewSeed := crypto.Keccak256(entropy, []byte("viewing"))
	defer clear(spendSeed)
	defer clear(viewSeed)

	return keyPairFromSeeds(spendSeed, viewSeed)
}

// DeriveWithPIN derives the stealth keys from a wallet signature and PIN
// using the formula of the given version. The PIN is validated first.
// v2 runs on its own goroutine; ctx cancels the wait, not the hash.
func DeriveWithPIN(ctx context.Context, signature []byte, pin string, version KeyVersion) (*Keys, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	if len(signature) == 0 {
		return nil, fmt.Errorf("%w: empty signature", stealth.ErrInvalidFormat)
	}

	switch version {
	case VersionV0:
		return deriveV0(signature, pin)
	case VersionV1:
		return derivePBKDF2(signature, pin, VersionV1, labelSpend, labelView, labelClaim)
	case VersionV2:
		return deriveAsync(ctx, func() (*Keys, error) {
			return derivePBKDF2(signature, pin, VersionV2, labelSpendV2, labelViewV2, labelClaimV2)
		})
	default:
		return nil, fmt.Errorf("%w: unknown key version %d", stealth.ErrInvalidFormat, version)
	}
}

// deriveV0 is the original single-pass derivation:
// seed = SHA-512(signature || pin || label)[0:32].
func deriveV0(signature []byte, pin string) (*Keys, error) {
	seed := func(label string) []byte {
		h := crypto.Sha512(crypto.Concat(signature, []byte(pin), []byte(label)))
		out := make([]byte, 32)
		copy(out, h[:32])
		clear(h[:])
		return out
	}
	return keysFromSeeds(VersionV0, seed(labelSpend), seed(labelView), seed(labelClaim))
}

// derivePBKDF2 computes seed = PBKDF2-SHA256(signature || pin, label, 100000, 32)
// for each role.
func derivePBKDF2(signature []byte, pin string, version KeyVersion, spend, view, claim string) (*Keys, error) {
	defer log.Benchmark("pbkdf2-" + version.String())()

	password := crypto.Concat(signature, []byte(pin))
	defer clear(password)

	seed := func(label string) []byte {
		return pbkdf2.Key(password, []byte(label), PBKDF2Iterations, 32, sha256.New)
	}
	return keysFromSeeds(version, seed(spend), seed(view), seed(claim))
}

func deriveAsync(ctx context.Context, fn func() (*Keys, error)) (*Keys, error) {
	type result struct {
		keys *Keys
		err  error
	}
	done := make(chan result, 1)
	go func() {
		keys, err := fn()
		done <- result{keys: keys, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.keys, r.err
	}
}

func keysFromSeeds(version KeyVersion, spendSeed, viewSeed, claimSeed []byte) (*Keys, error) {
	defer clear(spendSeed)
	defer clear(viewSeed)
	defer clear(claimSeed)

	kp, err := keyPairFromSeeds(spendSeed, viewSeed)
	if err != nil {
		return nil, err
	}
	claim, err := scalarKey(claimSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: claim key: %v", stealth.ErrDerivationFailure, err)
	}
	return &Keys{KeyPair: kp, ClaimPrivateKey: claim, Version: version}, nil
}

func keyPairFromSeeds(spendSeed, viewSeed []byte) (*stealth.KeyPair, error) {
	spend, err := scalarKey(spendSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: spending key: %v", stealth.ErrDerivationFailure, err)
	}
	view, err := scalarKey(viewSeed)
	if err != nil {
		return nil, fmt.Errorf("%w: viewing key: %v", stealth.ErrDerivationFailure, err)
	}
	kp, err := stealth.NewKeyPair(spend, view)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stealth.ErrDerivationFailure, err)
	}
	clear(spend)
	clear(view)
	if err := kp.Check(); err != nil {
		return nil, err
	}
	return kp, nil
}

// scalarKey reduces a 32-byte seed modulo N into a private key.
func scalarKey(seed []byte) ([]byte, error) {
	s, err := crypto.ScalarFromBytes(seed)
	if err != nil {
		return nil, err
	}
	b := s.Bytes()
	s.Zero()
	return b[:], nil
}

package stealth

import (
	"bytes"
	"fmt"

	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

// KeyPair holds a recipient's spending and viewing keys. Private keys are
// 32-byte scalars, public keys 33-byte compressed points.
type KeyPair struct {
	SpendingPrivateKey []byte
	SpendingPublicKey  []byte
	ViewingPrivateKey  []byte
	ViewingPublicKey   []byte
}

// NewKeyPair builds a KeyPair from two private scalars.
func NewKeyPair(spendingPriv, viewingPriv []byte) (*KeyPair, error) {
	spend, err := crypto.PrivateKeyFromBytes(spendingPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: spending key: %v", ErrInvalidFormat, err)
	}
	view, err := crypto.PrivateKeyFromBytes(viewingPriv)
	if err != nil {
		return nil, fmt.Errorf("%w: viewing key: %v", ErrInvalidFormat, err)
	}
	return &KeyPair{
		SpendingPrivateKey: spend.Serialize(),
		SpendingPublicKey:  spend.PublicKey().SerializeCompressed(),
		ViewingPrivateKey:  view.Serialize(),
		ViewingPublicKey:   view.PublicKey().SerializeCompressed(),
	}, nil
}

// Check verifies that both public keys are the base-point multiples of
// their private keys.
func (k *KeyPair) Check() error {
	if err := checkPair(k.SpendingPrivateKey, k.SpendingPublicKey); err != nil {
		return fmt.Errorf("%w: spending key: %v", ErrKeyCorruption, err)
	}
	if err := checkPair(k.ViewingPrivateKey, k.ViewingPublicKey); err != nil {
		return fmt.Errorf("%w: viewing key: %v", ErrKeyCorruption, err)
	}
	return nil
}

func checkPair(priv, pub []byte) error {
	key, err := crypto.PrivateKeyFromBytes(priv)
	if err != nil {
		return err
	}
	if !bytes.Equal(key.PublicKey().SerializeCompressed(), pub) {
		return fmt.Errorf("public key does not match private key")
	}
	return nil
}

// MetaAddress returns the publishable meta-address for prefix.
func (k *KeyPair) MetaAddress(prefix string) (*MetaAddress, error) {
	return NewMetaAddress(prefix, k.SpendingPublicKey, k.ViewingPublicKey)
}

// Zero wipes the private keys.
func (k *KeyPair) Zero() {
	clear(k.SpendingPrivateKey)
	clear(k.ViewingPrivateKey)
}

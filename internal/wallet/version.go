package wallet

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/internal/log"
)

// KeyVersion records which PIN derivation produced a wallet's keys. It is
// fixed when the wallet's keys are first created: switching formulas for an
// existing wallet makes every earlier payment unrecoverable.
type KeyVersion uint8

const (
	VersionV0 KeyVersion = 0 // SHA-512, single pass
	VersionV1 KeyVersion = 1 // PBKDF2-SHA256, v0 labels as salts
	VersionV2 KeyVersion = 2 // PBKDF2-SHA256, versioned salts

	// DefaultVersion is assigned to wallets with no recorded version.
	DefaultVersion = VersionV2
)

// Valid reports whether v is a known version.
func (v KeyVersion) Valid() bool {
	return v <= VersionV2
}

func (v KeyVersion) String() string {
	return fmt.Sprintf("v%d", uint8(v))
}

// VersionStore persists the KeyVersion per wallet address.
type VersionStore interface {
	// KeyVersion returns the recorded version and whether one exists.
	KeyVersion(wallet common.Address) (KeyVersion, bool, error)
	// SetKeyVersion records the version for a wallet.
	SetKeyVersion(wallet common.Address, v KeyVersion) error
}

// ResolveVersion reads the wallet's recorded version from store. A wallet
// without one is assigned DefaultVersion, which is persisted. A nil store
// yields DefaultVersion.
func ResolveVersion(store VersionStore, wallet common.Address) (KeyVersion, error) {
	if store == nil {
		return DefaultVersion, nil
	}
	v, ok, err := store.KeyVersion(wallet)
	if err != nil {
		return 0, fmt.Errorf("read key version: %w", err)
	}
	if ok {
		if !v.Valid() {
			return 0, fmt.Errorf("stored key version %d is unknown", v)
		}
		return v, nil
	}
	if err := store.SetKeyVersion(wallet, DefaultVersion); err != nil {
		return 0, fmt.Errorf("record key version: %w", err)
	}
	log.Wallet.Info().Str("version", DefaultVersion.String()).Msg("Assigned key version to new wallet")
	return DefaultVersion, nil
}

// DeriveForWallet derives PIN-secured keys for wallet using its recorded
// version. The version is read on every call and never upgraded.
func DeriveForWallet(ctx context.Context, store VersionStore, wallet common.Address, signature []byte, pin string) (*Keys, error) {
	if err := ValidatePIN(pin); err != nil {
		return nil, err
	}
	version, err := ResolveVersion(store, wallet)
	if err != nil {
		return nil, err
	}
	return DeriveWithPIN(ctx, signature, pin, version)
}

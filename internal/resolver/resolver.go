// Package resolver maps a stealth EOA to every wallet address a payment to
// it may have been sent to, one per supported deployment scheme.
package resolver

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/internal/log"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

// WalletType identifies how a stealth payment's destination relates to its
// stealth EOA.
type WalletType uint8

const (
	NoMatch        WalletType = iota
	EOA                       // the stealth EOA itself
	Create2Current            // current wallet factory
	Create2Legacy             // previous wallet factory
	AccountCurrent            // current ERC-4337 account factory
	AccountLegacy             // previous ERC-4337 account factory
	EIP7702                   // EOA delegated to a smart-wallet implementation
)

var walletTypeNames = map[WalletType]string{
	NoMatch:        "none",
	EOA:            "eoa",
	Create2Current: "create2",
	Create2Legacy:  "create2-legacy",
	AccountCurrent: "account",
	AccountLegacy:  "account-legacy",
	EIP7702:        "eip7702",
}

func (t WalletType) String() string {
	if name, ok := walletTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseWalletType is the inverse of String.
func ParseWalletType(s string) (WalletType, bool) {
	for t, name := range walletTypeNames {
		if name == s {
			return t, true
		}
	}
	return NoMatch, false
}

// Variant is one address-derivation rule.
type Variant struct {
	Type    WalletType
	Compute func(eoa common.Address) common.Address
}

// Resolver holds the ordered variants for one chain.
type Resolver struct {
	variants []Variant
	delegate common.Address
}

// New builds a resolver from chain parameters. The EOA variant always comes
// first; factory variants whose factory is not configured are skipped.
func New(params *config.ChainParams) *Resolver {
	r := &Resolver{
		variants: []Variant{{Type: EOA, Compute: func(eoa common.Address) common.Address { return eoa }}},
		delegate: params.DelegateImplementation,
	}
	factories := []struct {
		typ     WalletType
		factory config.FactoryParams
		salt    func(common.Address) [32]byte
	}{
		{Create2Current, params.WalletFactory, crypto.WalletSalt},
		{Create2Legacy, params.LegacyWalletFactory, crypto.WalletSalt},
		{AccountCurrent, params.AccountFactory, accountSalt},
		{AccountLegacy, params.LegacyAccountFactory, accountSalt},
	}
	for _, f := range factories {
		f := f
		if !f.factory.Enabled() {
			continue
		}
		r.variants = append(r.variants, Variant{
			Type: f.typ,
			Compute: func(eoa common.Address) common.Address {
				return crypto.Create2Address(f.factory.Address, f.salt(eoa), f.factory.InitCodeHash)
			},
		})
	}
	log.Resolver.Debug().Str("chain", params.Name).Int("variants", len(r.variants)).Msg("Resolver ready")
	return r
}

func accountSalt(owner common.Address) [32]byte {
	return crypto.AccountSalt(owner, 0)
}

// Variants returns the resolver's variants in match order.
func (r *Resolver) Variants() []Variant {
	return append([]Variant(nil), r.variants...)
}

// Classify reports which variant of eoa equals announced. The first match in
// order wins.
func (r *Resolver) Classify(eoa, announced common.Address) (WalletType, bool) {
	for _, v := range r.variants {
		if v.Compute(eoa) == announced {
			return v.Type, true
		}
	}
	return NoMatch, false
}

// Addresses returns every address derivable from eoa, in match order.
func (r *Resolver) Addresses(eoa common.Address) []common.Address {
	out := make([]common.Address, len(r.variants))
	for i, v := range r.variants {
		out[i] = v.Compute(eoa)
	}
	return out
}

// AddressFor returns the address of one variant, if that variant is enabled.
func (r *Resolver) AddressFor(t WalletType, eoa common.Address) (common.Address, bool) {
	for _, v := range r.variants {
		if v.Type == t {
			return v.Compute(eoa), true
		}
	}
	return common.Address{}, false
}

// Delegate returns the configured EIP-7702 delegate implementation.
func (r *Resolver) Delegate() common.Address {
	return r.delegate
}

// DelegationPrefix starts an EIP-7702 delegation designator.
var DelegationPrefix = []byte{0xef, 0x01, 0x00}

// IsDelegated reports whether code is an EIP-7702 delegation designator
// (0xef0100 || address). A zero delegate accepts any target.
func IsDelegated(code []byte, delegate common.Address) bool {
	if len(code) != len(DelegationPrefix)+common.AddressLength || !bytes.HasPrefix(code, DelegationPrefix) {
		return false
	}
	if delegate == (common.Address{}) {
		return true
	}
	return common.BytesToAddress(code[len(DelegationPrefix):]) == delegate
}

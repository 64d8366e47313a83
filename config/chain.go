package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

// =============================================================================
// Chain Parameters (immutable, passed explicitly into every call)
// A wallet scanned with the wrong parameters silently misses its funds.
// =============================================================================

// DefaultSchemeID is the ERC-5564 scheme id for secp256k1 with view tags.
const DefaultSchemeID = 1

// ERC5564Announcer is the canonical singleton announcer deployment address.
var ERC5564Announcer = common.HexToAddress("0x55649E01B5Df198D18D95b5cc5051630cfD45564")

// prefixPattern is the accepted shape of a meta-address chain label.
var prefixPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// FactoryParams identifies one CREATE2 deployment scheme.
type FactoryParams struct {
	Address      common.Address `json:"address"`
	InitCodeHash common.Hash    `json:"init_code_hash"`
}

// Enabled reports whether the scheme is configured for this chain.
func (f FactoryParams) Enabled() bool {
	return f.Address != (common.Address{})
}

// ChainParams holds everything that ties the stealth engine to one chain.
type ChainParams struct {
	Name       string         `json:"name"`
	Prefix     string         `json:"prefix"` // Meta-address chain label ("st:<prefix>:...")
	ChainID    uint64         `json:"chain_id"`
	SchemeID   uint64         `json:"scheme_id"`
	Announcer  common.Address `json:"announcer"`
	StartBlock uint64         `json:"start_block"` // First block worth scanning

	// Wallet deployment schemes, newest first.
	WalletFactory        FactoryParams `json:"wallet_factory"`
	LegacyWalletFactory  FactoryParams `json:"legacy_wallet_factory"`
	AccountFactory       FactoryParams `json:"account_factory"`        // ERC-4337
	LegacyAccountFactory FactoryParams `json:"legacy_account_factory"` // ERC-4337

	// EIP-7702 delegate implementation (zero = accept any delegate).
	DelegateImplementation common.Address `json:"delegate_implementation"`
}

// MainnetParams returns the Ethereum mainnet parameters. No wallet or
// account factory is configured, so the resolver only matches plain EOAs
// (and EIP-7702 delegations). Supply a chain file (--chain-file) carrying the
// factory addresses and init code hashes to match deployed wallets.
func MainnetParams() *ChainParams {
	return &ChainParams{
		Name:      "mainnet",
		Prefix:    "eth",
		ChainID:   1,
		SchemeID:  DefaultSchemeID,
		Announcer: ERC5564Announcer,
	}
}

// ThanosParams returns the Thanos Sepolia testnet parameters. Like
// MainnetParams it ships without factories; a chain file enables them.
func ThanosParams() *ChainParams {
	return &ChainParams{
		Name:      "thanos",
		Prefix:    "thanos",
		ChainID:   111551119090,
		SchemeID:  DefaultSchemeID,
		Announcer: ERC5564Announcer,
	}
}

// DevnetParams returns parameters for local development chains with every
// deployment scheme enabled at deterministic addresses.
func DevnetParams() *ChainParams {
	return &ChainParams{
		Name:                   "devnet",
		Prefix:                 "dev",
		ChainID:                31337,
		SchemeID:               DefaultSchemeID,
		Announcer:              ERC5564Announcer,
		WalletFactory:          devFactory("wallet-factory-v2"),
		LegacyWalletFactory:    devFactory("wallet-factory-v1"),
		AccountFactory:         devFactory("account-factory-v2"),
		LegacyAccountFactory:   devFactory("account-factory-v1"),
		DelegateImplementation: common.BytesToAddress(crypto.Keccak256([]byte("klingnet-stealth/devnet/delegate"))[12:]),
	}
}

func devFactory(label string) FactoryParams {
	return FactoryParams{
		Address:      common.BytesToAddress(crypto.Keccak256([]byte("klingnet-stealth/devnet/" + label))[12:]),
		InitCodeHash: crypto.Keccak256Hash([]byte("klingnet-stealth/devnet/" + label + "/init-code")),
	}
}

// ParamsFor returns the preset parameters for a network name.
func ParamsFor(network NetworkType) (*ChainParams, error) {
	switch network {
	case Mainnet:
		return MainnetParams(), nil
	case Testnet:
		return ThanosParams(), nil
	case Devnet:
		return DevnetParams(), nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// LoadChainParams reads chain parameters from a JSON file.
func LoadChainParams(path string) (*ChainParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain params: %w", err)
	}
	var p ChainParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse chain params: %w", err)
	}
	if err := ValidateChainParams(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ValidateChainParams checks chain parameters for obvious mistakes.
func ValidateChainParams(p *ChainParams) error {
	if p == nil {
		return fmt.Errorf("chain params are nil")
	}
	if !prefixPattern.MatchString(p.Prefix) {
		return fmt.Errorf("chain prefix %q must be lowercase [a-z][a-z0-9-]*", p.Prefix)
	}
	if p.SchemeID == 0 {
		return fmt.Errorf("scheme id must be non-zero")
	}
	if p.Announcer == (common.Address{}) {
		return fmt.Errorf("announcer address must be set")
	}
	factories := map[string]FactoryParams{
		"wallet_factory":         p.WalletFactory,
		"legacy_wallet_factory":  p.LegacyWalletFactory,
		"account_factory":        p.AccountFactory,
		"legacy_account_factory": p.LegacyAccountFactory,
	}
	for name, f := range factories {
		if f.Enabled() && f.InitCodeHash == (common.Hash{}) {
			return fmt.Errorf("%s has an address but no init code hash", name)
		}
	}
	return nil
}

// ValidPrefix reports whether s is an acceptable meta-address chain label.
func ValidPrefix(s string) bool {
	return prefixPattern.MatchString(s)
}

// Package persist stores per-wallet stealth state under hashed keys so the
// raw wallet address never appears in the key space.
package persist

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Namespace is mixed into every key hash.
const Namespace = "klingnet-stealth"

// Storage domains.
const (
	DomainScanCursor     = "scan_cursor"
	DomainKeyVersion     = "key_version"
	DomainClaimAddresses = "claim_addresses"
	DomainPINCache       = "pin_cache"
	DomainScanResults    = "scan_results"
)

// chainScoped reports whether a domain's keys carry a chain id.
var chainScoped = map[string]bool{
	DomainScanCursor:     true,
	DomainKeyVersion:     false,
	DomainClaimAddresses: true,
	DomainPINCache:       false,
	DomainScanResults:    true,
}

// Domains lists every domain in migration order.
var Domains = []string{
	DomainScanCursor,
	DomainKeyVersion,
	DomainClaimAddresses,
	DomainPINCache,
	DomainScanResults,
}

// Hash16 returns the first 16 hex characters of
// SHA-256("klingnet-stealth:<domain>:<lowercased address>").
func Hash16(domain, address string) string {
	sum := sha256.Sum256([]byte(Namespace + ":" + domain + ":" + strings.ToLower(address)))
	return hex.EncodeToString(sum[:8])
}

// StorageKey builds <domain>_<hash16>, or <domain>_<chainID>_<hash16> when
// chainID is non-zero. The address is case-insensitive.
func StorageKey(domain, address string, chainID uint64) string {
	var b strings.Builder
	b.WriteString(domain)
	b.WriteByte('_')
	if chainID != 0 {
		b.WriteString(strconv.FormatUint(chainID, 10))
		b.WriteByte('_')
	}
	b.WriteString(Hash16(domain, address))
	return b.String()
}

// LegacyKey is the plaintext key format used before keys were hashed.
func LegacyKey(domain, address string) string {
	return domain + "_" + address
}

// keyFor scopes a domain key by chain only for chain-scoped domains.
func keyFor(domain, address string, chainID uint64) string {
	if !chainScoped[domain] {
		chainID = 0
	}
	return StorageKey(domain, address, chainID)
}

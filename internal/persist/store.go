package persist

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/blake3"

	"github.com/Klingon-tech/klingnet-stealth/internal/log"
	"github.com/Klingon-tech/klingnet-stealth/internal/storage"
	"github.com/Klingon-tech/klingnet-stealth/internal/wallet"
	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// KeyPrefix namespaces every persisted key inside the shared database.
const KeyPrefix = "stealth/"

// cursorRecordSize is block(8) || checksum(32).
const cursorRecordSize = 8 + 32

// Store persists per-wallet stealth state. A Store built over a nil DB is
// unavailable: reads return zero values and writes are dropped.
type Store struct {
	db storage.DB
}

// New wraps db. Passing nil yields an unavailable store.
func New(db storage.DB) *Store {
	if db == nil {
		return &Store{}
	}
	return &Store{db: storage.NewPrefixDB(db, []byte(KeyPrefix))}
}

// Available reports whether the store is backed by a database.
func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

// Err returns ErrStorageUnavailable for an unavailable store.
func (s *Store) Err() error {
	if !s.Available() {
		return stealth.ErrStorageUnavailable
	}
	return nil
}

func (s *Store) get(key string) ([]byte, bool, error) {
	val, err := s.db.Get([]byte(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return val, true, nil
}

// Migrate moves the value at legacyKey to newKey and deletes legacyKey.
// It does nothing when legacyKey is absent. When newKey already holds a
// value that value wins and legacyKey is left untouched. It reports
// whether data moved.
func (s *Store) Migrate(legacyKey, newKey string) (bool, error) {
	if !s.Available() || legacyKey == newKey {
		return false, nil
	}
	legacy, ok, err := s.get(legacyKey)
	if err != nil || !ok {
		return false, err
	}
	exists, err := s.db.Has([]byte(newKey))
	if err != nil {
		return false, fmt.Errorf("check %s: %w", newKey, err)
	}
	if exists {
		return false, nil
	}
	err = s.db.Update(func(w storage.Writer) error {
		if err := w.Put([]byte(newKey), legacy); err != nil {
			return err
		}
		return w.Delete([]byte(legacyKey))
	})
	if err != nil {
		return false, fmt.Errorf("migrate %s: %w", newKey, err)
	}
	log.Storage.Debug().Str("key", newKey).Msg("Migrated legacy key")
	return true, nil
}

// MigrateAddress migrates every domain's legacy plaintext key for address.
func (s *Store) MigrateAddress(address common.Address, chainID uint64) (int, error) {
	if !s.Available() {
		return 0, nil
	}
	moved := 0
	for _, domain := range Domains {
		n, err := s.migrateDomain(domain, address, chainID)
		moved += n
		if err != nil {
			return moved, err
		}
	}
	if moved > 0 {
		log.Storage.Info().Int("keys", moved).Msg("Migrated legacy storage keys")
	}
	return moved, nil
}

// migrateDomain moves domain's legacy keys for address to the hashed key.
func (s *Store) migrateDomain(domain string, address common.Address, chainID uint64) (int, error) {
	legacy, err := s.legacyKeys(domain, address)
	if err != nil {
		return 0, err
	}
	newKey := keyFor(domain, address.Hex(), chainID)
	moved := 0
	for _, key := range legacy {
		ok, err := s.Migrate(key, newKey)
		if err != nil {
			return moved, err
		}
		if ok {
			moved++
		}
	}
	return moved, nil
}

// legacyKeys lists the plaintext keys of domain written for address.
// Wallets reported addresses in whatever case they liked, so the match
// ignores case.
func (s *Store) legacyKeys(domain string, address common.Address) ([]string, error) {
	prefix := domain + "_"
	want := address.Hex()
	var keys []string
	err := s.db.ForEach([]byte(prefix), func(key, _ []byte) error {
		if strings.EqualFold(string(key[len(prefix):]), want) {
			keys = append(keys, string(key))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list legacy %s keys: %w", domain, err)
	}
	return keys, nil
}

func cursorChecksum(key string, block []byte) []byte {
	h := blake3.New()
	h.Write([]byte(key))
	h.Write(block)
	return h.Sum(nil)
}

// Cursor returns the last fully scanned block for a wallet on a chain.
// ok is false when no cursor is recorded. A record that fails its
// checksum is treated as corrupt: it is removed and reported as absent.
func (s *Store) Cursor(address common.Address, chainID uint64) (block uint64, ok bool, err error) {
	if !s.Available() {
		return 0, false, nil
	}
	key := keyFor(DomainScanCursor, address.Hex(), chainID)
	rec, ok, err := s.get(key)
	if err != nil || !ok {
		return 0, false, err
	}
	if len(rec) != cursorRecordSize || !slices.Equal(cursorChecksum(key, rec[:8]), rec[8:]) {
		log.Storage.Warn().Str("key", key).Msg("Scan cursor corrupt, resetting")
		if err := s.db.Delete([]byte(key)); err != nil {
			return 0, false, fmt.Errorf("reset cursor: %w", err)
		}
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(rec[:8]), true, nil
}

// AdvanceCursor records block as the last scanned block. Values at or
// below the current cursor are ignored.
func (s *Store) AdvanceCursor(address common.Address, chainID uint64, block uint64) error {
	if !s.Available() {
		return nil
	}
	current, ok, err := s.Cursor(address, chainID)
	if err != nil {
		return err
	}
	if ok && block <= current {
		return nil
	}
	key := keyFor(DomainScanCursor, address.Hex(), chainID)
	rec := make([]byte, 8, cursorRecordSize)
	binary.BigEndian.PutUint64(rec, block)
	rec = append(rec, cursorChecksum(key, rec)...)
	if err := s.db.Put([]byte(key), rec); err != nil {
		return fmt.Errorf("write cursor: %w", err)
	}
	return nil
}

// ResetCursor forgets the scan cursor so the next sync starts over.
func (s *Store) ResetCursor(address common.Address, chainID uint64) error {
	if !s.Available() {
		return nil
	}
	return s.db.Delete([]byte(keyFor(DomainScanCursor, address.Hex(), chainID)))
}

// KeyVersion returns the recorded key version for a wallet. A version
// still stored under a legacy key is migrated first, so a wallet that
// predates hashed keys keeps its version.
func (s *Store) KeyVersion(address common.Address) (wallet.KeyVersion, bool, error) {
	if !s.Available() {
		return 0, false, nil
	}
	if _, err := s.migrateDomain(DomainKeyVersion, address, 0); err != nil {
		return 0, false, fmt.Errorf("migrate key version: %w", err)
	}
	val, ok, err := s.get(keyFor(DomainKeyVersion, address.Hex(), 0))
	if err != nil || !ok {
		return 0, false, err
	}
	if len(val) != 1 {
		return 0, false, fmt.Errorf("key version record has %d bytes", len(val))
	}
	return wallet.KeyVersion(val[0]), true, nil
}

// SetKeyVersion records the key version for a wallet. A different version
// that is already recorded is never overwritten.
func (s *Store) SetKeyVersion(address common.Address, v wallet.KeyVersion) error {
	if !s.Available() {
		return nil
	}
	if !v.Valid() {
		return fmt.Errorf("unknown key version %d", v)
	}
	current, ok, err := s.KeyVersion(address)
	if err != nil {
		return err
	}
	if ok {
		if current != v {
			return fmt.Errorf("wallet already uses key version %s, refusing %s", current, v)
		}
		return nil
	}
	return s.db.Put([]byte(keyFor(DomainKeyVersion, address.Hex(), 0)), []byte{byte(v)})
}

// ClaimAddresses returns the claim addresses recorded for a wallet.
func (s *Store) ClaimAddresses(address common.Address, chainID uint64) ([]common.Address, error) {
	if !s.Available() {
		return nil, nil
	}
	val, ok, err := s.get(keyFor(DomainClaimAddresses, address.Hex(), chainID))
	if err != nil || !ok {
		return nil, err
	}
	var addrs []common.Address
	if err := json.Unmarshal(val, &addrs); err != nil {
		return nil, fmt.Errorf("decode claim addresses: %w", err)
	}
	return addrs, nil
}

// AddClaimAddress appends claim to the wallet's claim addresses unless it
// is already present.
func (s *Store) AddClaimAddress(address common.Address, chainID uint64, claim common.Address) error {
	if !s.Available() {
		return nil
	}
	addrs, err := s.ClaimAddresses(address, chainID)
	if err != nil {
		return err
	}
	if slices.Contains(addrs, claim) {
		return nil
	}
	data, err := json.Marshal(append(addrs, claim))
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyFor(DomainClaimAddresses, address.Hex(), chainID)), data)
}

// PINBlob returns the encrypted PIN cached for a wallet, or nil. A legacy
// cache entry is migrated first.
func (s *Store) PINBlob(address common.Address) ([]byte, error) {
	if !s.Available() {
		return nil, nil
	}
	if _, err := s.migrateDomain(DomainPINCache, address, 0); err != nil {
		return nil, fmt.Errorf("migrate PIN cache: %w", err)
	}
	val, _, err := s.get(keyFor(DomainPINCache, address.Hex(), 0))
	return val, err
}

// SetPINBlob caches an encrypted PIN. The blob must come from
// wallet.EncryptPIN.
func (s *Store) SetPINBlob(address common.Address, blob []byte) error {
	if !s.Available() {
		return nil
	}
	if len(blob) < wallet.NonceSize+16 {
		return fmt.Errorf("PIN blob too short: %d bytes", len(blob))
	}
	return s.db.Put([]byte(keyFor(DomainPINCache, address.Hex(), 0)), blob)
}

// ClearPINBlob removes the cached PIN.
func (s *Store) ClearPINBlob(address common.Address) error {
	if !s.Available() {
		return nil
	}
	return s.db.Delete([]byte(keyFor(DomainPINCache, address.Hex(), 0)))
}

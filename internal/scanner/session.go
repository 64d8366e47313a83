package scanner

import (
	"context"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/internal/persist"
	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// Session runs incremental scans for one wallet, persisting progress in a
// store. The caller must not run overlapping syncs for the same wallet.
type Session struct {
	scanner *Scanner
	store   *persist.Store
	wallet  common.Address
}

// NewSession binds a scanner and store to a wallet. The store may be
// unavailable, in which case every sync starts from the chain's start
// block and nothing is persisted.
func NewSession(s *Scanner, store *persist.Store, wallet common.Address) *Session {
	if store == nil {
		store = persist.New(nil)
	}
	return &Session{scanner: s, store: store, wallet: wallet}
}

// Range returns the block range the next sync up to toBlock would cover.
// ok is false when the wallet is already synced past toBlock.
func (s *Session) Range(toBlock uint64) (from uint64, ok bool, err error) {
	params := s.scanner.Params()
	cursor, synced, err := s.store.Cursor(s.wallet, params.ChainID)
	if err != nil {
		return 0, false, err
	}
	from = params.StartBlock
	if synced {
		if cursor == math.MaxUint64 {
			return 0, false, nil
		}
		from = max(from, cursor+1)
	}
	return from, from <= toBlock, nil
}

// Sync migrates legacy storage keys, scans from the block after the stored
// cursor up to toBlock, and records the results. The cursor advances only
// after the whole pass succeeds.
func (s *Session) Sync(ctx context.Context, keys *stealth.KeyPair, toBlock uint64) ([]Result, error) {
	chainID := s.scanner.Params().ChainID
	if _, err := s.store.MigrateAddress(s.wallet, chainID); err != nil {
		return nil, fmt.Errorf("migrate storage: %w", err)
	}

	from, ok, err := s.Range(toBlock)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	results, err := s.scanner.Scan(ctx, keys, from, toBlock)
	if err != nil {
		return nil, err
	}

	payments := make([]persist.Payment, len(results))
	for i := range results {
		payments[i] = results[i].Payment()
		if err := s.store.AddClaimAddress(s.wallet, chainID, results[i].Announcement.StealthAddress); err != nil {
			return nil, fmt.Errorf("record claim address: %w", err)
		}
	}
	if err := s.store.SaveResults(s.wallet, chainID, payments); err != nil {
		return nil, fmt.Errorf("save results: %w", err)
	}
	if err := s.store.AdvanceCursor(s.wallet, chainID, toBlock); err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}
	return results, nil
}

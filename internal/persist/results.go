package persist

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
)

// Payment is the persisted form of a scan match. It never carries key
// material.
type Payment struct {
	StealthAddress common.Address  `json:"stealthAddress"`
	WalletType     string          `json:"walletType"`
	BlockNumber    uint64          `json:"blockNumber"`
	TxHash         common.Hash     `json:"txHash"`
	LogIndex       uint            `json:"logIndex"`
	Token          *common.Address `json:"token,omitempty"`
	Amount         string          `json:"amount,omitempty"`
}

func (p Payment) same(o Payment) bool {
	return p.TxHash == o.TxHash && p.LogIndex == o.LogIndex
}

// Payments returns the payments recorded for a wallet, ordered by block
// then log index.
func (s *Store) Payments(address common.Address, chainID uint64) ([]Payment, error) {
	if !s.Available() {
		return nil, nil
	}
	val, ok, err := s.get(keyFor(DomainScanResults, address.Hex(), chainID))
	if err != nil || !ok {
		return nil, err
	}
	var out []Payment
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("decode scan results: %w", err)
	}
	return out, nil
}

// SaveResults merges found payments into the wallet's record. Payments
// already stored (same tx hash and log index) are not duplicated.
func (s *Store) SaveResults(address common.Address, chainID uint64, found []Payment) error {
	if !s.Available() || len(found) == 0 {
		return nil
	}
	all, err := s.Payments(address, chainID)
	if err != nil {
		return err
	}
	for _, p := range found {
		if !slices.ContainsFunc(all, p.same) {
			all = append(all, p)
		}
	}
	slices.SortFunc(all, func(a, b Payment) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.LogIndex, b.LogIndex)
	})
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(keyFor(DomainScanResults, address.Hex(), chainID)), data)
}

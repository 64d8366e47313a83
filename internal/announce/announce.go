// Package announce reads ERC-5564 Announcement events and decodes their
// metadata.
package announce

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Announcement is one on-chain Announcement event. It is read-only once
// fetched.
type Announcement struct {
	SchemeID        *big.Int
	StealthAddress  common.Address
	Caller          common.Address
	EphemeralPubKey []byte
	Metadata        []byte
	BlockNumber     uint64
	TxHash          common.Hash
	LogIndex        uint
}

// ViewTag returns the first metadata byte. ok is false when metadata is
// empty.
func (a *Announcement) ViewTag() (tag byte, ok bool) {
	if len(a.Metadata) == 0 {
		return 0, false
	}
	return a.Metadata[0], true
}

// Source yields the announcements for a scheme in an inclusive block range.
type Source interface {
	Announcements(ctx context.Context, schemeID uint64, from, to uint64) ([]Announcement, error)
}

// CodeSource returns the deployed code at an address.
type CodeSource interface {
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
}

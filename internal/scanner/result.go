package scanner

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/internal/announce"
	"github.com/Klingon-tech/klingnet-stealth/internal/persist"
	"github.com/Klingon-tech/klingnet-stealth/internal/resolver"
)

// Result is one verified payment.
type Result struct {
	Announcement announce.Announcement
	// PrivateKey controls StealthEOA. It is nil for view-only scans.
	PrivateKey []byte
	StealthEOA common.Address
	WalletType resolver.WalletType
	Metadata   announce.Metadata
	Verified   bool
}

// Token returns the token transfer carried in the metadata, if any.
func (r *Result) Token() *announce.TokenTransfer {
	return r.Metadata.Token
}

// Payment returns the persistable form of r, without key material.
func (r *Result) Payment() persist.Payment {
	p := persist.Payment{
		StealthAddress: r.Announcement.StealthAddress,
		WalletType:     r.WalletType.String(),
		BlockNumber:    r.Announcement.BlockNumber,
		TxHash:         r.Announcement.TxHash,
		LogIndex:       r.Announcement.LogIndex,
	}
	if t := r.Token(); t != nil {
		token := t.Token
		p.Token = &token
		p.Amount = t.Amount.String()
	}
	return p
}

// Zero wipes the recovered private key.
func (r *Result) Zero() {
	clear(r.PrivateKey)
}

// Stats summarizes the last scan pass.
type Stats struct {
	Events     int // announcements fetched
	Candidates int // view-tag matches
	Matches    int // verified payments
	Chunks     int // block ranges fetched
}

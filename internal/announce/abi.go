package announce

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const announcerABI = `[{
	"anonymous": false,
	"name": "Announcement",
	"type": "event",
	"inputs": [
		{"indexed": true,  "name": "schemeId",        "type": "uint256"},
		{"indexed": true,  "name": "stealthAddress",  "type": "address"},
		{"indexed": true,  "name": "caller",          "type": "address"},
		{"indexed": false, "name": "ephemeralPubKey", "type": "bytes"},
		{"indexed": false, "name": "metadata",        "type": "bytes"}
	]
}]`

var (
	announcer abi.ABI

	// EventID is the Announcement event's topic0.
	EventID common.Hash
)

func init() {
	parsed, err := abi.JSON(strings.NewReader(announcerABI))
	if err != nil {
		panic(fmt.Sprintf("announce: parse ABI: %v", err))
	}
	announcer = parsed
	EventID = parsed.Events["Announcement"].ID
}

// SchemeTopic encodes a scheme id as an indexed topic.
func SchemeTopic(schemeID uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(schemeID))
}

// DecodeLog converts a raw Announcement log.
func DecodeLog(l types.Log) (Announcement, error) {
	if len(l.Topics) != 4 || l.Topics[0] != EventID {
		return Announcement{}, fmt.Errorf("log %s:%d is not an Announcement", l.TxHash, l.Index)
	}
	var body struct {
		EphemeralPubKey []byte
		Metadata        []byte
	}
	if err := announcer.UnpackIntoInterface(&body, "Announcement", l.Data); err != nil {
		return Announcement{}, fmt.Errorf("unpack announcement %s:%d: %w", l.TxHash, l.Index, err)
	}
	return Announcement{
		SchemeID:        l.Topics[1].Big(),
		StealthAddress:  common.BytesToAddress(l.Topics[2].Bytes()),
		Caller:          common.BytesToAddress(l.Topics[3].Bytes()),
		EphemeralPubKey: body.EphemeralPubKey,
		Metadata:        body.Metadata,
		BlockNumber:     l.BlockNumber,
		TxHash:          l.TxHash,
		LogIndex:        l.Index,
	}, nil
}

// EncodeLog builds the log the announcer contract would emit for a.
func EncodeLog(contract common.Address, a Announcement) (types.Log, error) {
	data, err := announcer.Events["Announcement"].Inputs.NonIndexed().Pack(a.EphemeralPubKey, a.Metadata)
	if err != nil {
		return types.Log{}, fmt.Errorf("pack announcement: %w", err)
	}
	scheme := a.SchemeID
	if scheme == nil {
		scheme = new(big.Int)
	}
	return types.Log{
		Address: contract,
		Topics: []common.Hash{
			EventID,
			common.BigToHash(scheme),
			common.BytesToHash(a.StealthAddress.Bytes()),
			common.BytesToHash(a.Caller.Bytes()),
		},
		Data:        data,
		BlockNumber: a.BlockNumber,
		TxHash:      a.TxHash,
		Index:       a.LogIndex,
	}, nil
}

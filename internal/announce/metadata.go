package announce

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// TokenMarker follows the view tag when the payment is a token transfer.
const TokenMarker = 'T'

const (
	chainIDSize = 4
	tokenSize   = common.AddressLength
)

// ChainTag is the 4-byte chain id written into token metadata: the low 32
// bits of the chain id.
func ChainTag(chainID uint64) uint32 {
	return uint32(chainID)
}

// TokenTransfer describes a token payment carried in metadata. ChainID is
// zero for the legacy layout, which has no chain id.
type TokenTransfer struct {
	ChainID uint32
	Token   common.Address
	Amount  *big.Int
}

// Metadata is a decoded announcement metadata field.
type Metadata struct {
	ViewTag byte
	Token   *TokenTransfer // nil for a native payment
}

// Native reports whether the payment carries no token marker.
func (m Metadata) Native() bool {
	return m.Token == nil
}

// DecodeMetadata decodes metadata without an expected chain id. A token
// suffix long enough for the chain-id layout is read that way.
func DecodeMetadata(b []byte) (Metadata, error) {
	return DecodeMetadataFor(b, 0)
}

// DecodeMetadataFor decodes metadata for a chain. Layouts:
//
//	tag
//	tag 'T' chainID(4) token(20) amount(rest)
//	tag 'T' token(20) amount(rest)            (legacy)
//
// The chain-id layout is chosen when the suffix is long enough and, when
// chainID is non-zero, its chain id matches ChainTag(chainID). Otherwise
// the legacy layout is used.
func DecodeMetadataFor(b []byte, chainID uint64) (Metadata, error) {
	if len(b) == 0 {
		return Metadata{}, fmt.Errorf("%w: empty metadata", stealth.ErrInvalidFormat)
	}
	m := Metadata{ViewTag: b[0]}
	if len(b) == 1 || b[1] != TokenMarker {
		return m, nil
	}
	rest := b[2:]

	if len(rest) >= chainIDSize+tokenSize+1 {
		embedded := binary.BigEndian.Uint32(rest[:chainIDSize])
		if chainID == 0 || embedded == ChainTag(chainID) {
			m.Token = &TokenTransfer{
				ChainID: embedded,
				Token:   common.BytesToAddress(rest[chainIDSize : chainIDSize+tokenSize]),
				Amount:  new(big.Int).SetBytes(rest[chainIDSize+tokenSize:]),
			}
			return m, nil
		}
	}
	if len(rest) < tokenSize {
		return Metadata{}, fmt.Errorf("%w: token metadata has %d bytes, need at least %d", stealth.ErrInvalidFormat, len(rest), tokenSize)
	}
	m.Token = &TokenTransfer{
		Token:  common.BytesToAddress(rest[:tokenSize]),
		Amount: new(big.Int).SetBytes(rest[tokenSize:]),
	}
	return m, nil
}

// EncodeMetadata builds metadata for a payment. A nil token yields the bare
// view tag. A token with zero ChainID uses the legacy layout. The amount is
// written as a 32-byte big-endian word.
func EncodeMetadata(viewTag byte, token *TokenTransfer) ([]byte, error) {
	if token == nil {
		return []byte{viewTag}, nil
	}
	amount := token.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	if amount.Sign() < 0 || amount.BitLen() > 256 {
		return nil, fmt.Errorf("%w: token amount out of range", stealth.ErrInvalidFormat)
	}

	out := []byte{viewTag, TokenMarker}
	if token.ChainID != 0 {
		out = binary.BigEndian.AppendUint32(out, token.ChainID)
	}
	out = append(out, token.Token.Bytes()...)
	var word [32]byte
	amount.FillBytes(word[:])
	return append(out, word[:]...), nil
}

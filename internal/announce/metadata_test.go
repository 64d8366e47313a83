package announce

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

var testToken = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")

func TestDecodeMetadata_Native(t *testing.T) {
	m, err := DecodeMetadata([]byte{0xab})
	require.NoError(t, err)
	require.Equal(t, byte(0xab), m.ViewTag)
	require.True(t, m.Native())

	m, err = DecodeMetadata([]byte{0xab, 0x00, 0x01})
	require.NoError(t, err)
	require.True(t, m.Native(), "suffix without marker is a native payment")
}

func TestDecodeMetadata_Empty(t *testing.T) {
	_, err := DecodeMetadata(nil)
	require.ErrorIs(t, err, stealth.ErrInvalidFormat)
}

func TestMetadata_ChainIDLayout(t *testing.T) {
	amount := big.NewInt(1_000_000)
	b, err := EncodeMetadata(0x11, &TokenTransfer{ChainID: 31337, Token: testToken, Amount: amount})
	require.NoError(t, err)
	require.Len(t, b, 2+4+20+32)

	m, err := DecodeMetadataFor(b, 31337)
	require.NoError(t, err)
	require.Equal(t, byte(0x11), m.ViewTag)
	require.NotNil(t, m.Token)
	require.Equal(t, uint32(31337), m.Token.ChainID)
	require.Equal(t, testToken, m.Token.Token)
	require.Zero(t, amount.Cmp(m.Token.Amount))

	m, err = DecodeMetadata(b)
	require.NoError(t, err)
	require.Equal(t, testToken, m.Token.Token)
}

func TestMetadata_LegacyLayout(t *testing.T) {
	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	b, err := EncodeMetadata(0x22, &TokenTransfer{Token: testToken, Amount: amount})
	require.NoError(t, err)
	require.Len(t, b, 2+20+32)

	// The legacy bytes parse as a chain-id layout only when no chain id is
	// expected; with the chain id known the mismatch selects legacy.
	m, err := DecodeMetadataFor(b, 1)
	require.NoError(t, err)
	require.Zero(t, m.Token.ChainID)
	require.Equal(t, testToken, m.Token.Token)
	require.Zero(t, amount.Cmp(m.Token.Amount))
}

func TestMetadata_ShortLegacyLayout(t *testing.T) {
	b := append([]byte{0x33, 'T'}, testToken.Bytes()...)
	b = append(b, 0x05)

	m, err := DecodeMetadata(b)
	require.NoError(t, err)
	require.Zero(t, m.Token.ChainID)
	require.Equal(t, testToken, m.Token.Token)
	require.Equal(t, int64(5), m.Token.Amount.Int64())
}

func TestMetadata_LargeChainIDTag(t *testing.T) {
	const thanos = 111551119090
	b, err := EncodeMetadata(0x44, &TokenTransfer{ChainID: ChainTag(thanos), Token: testToken, Amount: big.NewInt(9)})
	require.NoError(t, err)

	m, err := DecodeMetadataFor(b, thanos)
	require.NoError(t, err)
	require.Equal(t, ChainTag(thanos), m.Token.ChainID)
	require.Equal(t, testToken, m.Token.Token)
}

func TestDecodeMetadata_TruncatedToken(t *testing.T) {
	_, err := DecodeMetadata([]byte{0x01, 'T', 0xaa, 0xbb})
	require.ErrorIs(t, err, stealth.ErrInvalidFormat)
}

func TestEncodeMetadata(t *testing.T) {
	b, err := EncodeMetadata(0x99, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x99}, b)

	_, err = EncodeMetadata(0x99, &TokenTransfer{Token: testToken, Amount: big.NewInt(-1)})
	require.ErrorIs(t, err, stealth.ErrInvalidFormat)

	b, err = EncodeMetadata(0x99, &TokenTransfer{Token: testToken})
	require.NoError(t, err)
	m, err := DecodeMetadataFor(b, 5)
	require.NoError(t, err)
	require.Zero(t, m.Token.Amount.Sign())
}

package stealth

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetaAddress_RoundTrip(t *testing.T) {
	kp := newKeyPair(t)
	meta, err := kp.MetaAddress("thanos")
	require.NoError(t, err)

	want := "st:thanos:0x" + hex.EncodeToString(kp.SpendingPublicKey) + hex.EncodeToString(kp.ViewingPublicKey)
	require.Equal(t, want, meta.String())

	parsed, err := ParseMetaAddress(meta.String())
	require.NoError(t, err)
	require.True(t, parsed.Equal(meta))
	require.Equal(t, meta.Raw, parsed.Raw)
	require.Equal(t, "thanos", parsed.Prefix)
	require.Equal(t, kp.SpendingPublicKey, parsed.SpendingPublicKey)
	require.Equal(t, kp.ViewingPublicKey, parsed.ViewingPublicKey)
}

func TestParseMetaAddress_UppercaseHex(t *testing.T) {
	kp := newKeyPair(t)
	meta, err := kp.MetaAddress("eth")
	require.NoError(t, err)

	upper := "st:eth:0x" + strings.ToUpper(meta.Raw[len("st:eth:0x"):])
	parsed, err := ParseMetaAddress(upper)
	require.NoError(t, err)
	require.True(t, parsed.Equal(meta))
	require.Equal(t, meta.Raw, parsed.Canonical())
}

func TestParseMetaAddress_Rejects(t *testing.T) {
	kp := newKeyPair(t)
	spend := hex.EncodeToString(kp.SpendingPublicKey)
	view := hex.EncodeToString(kp.ViewingPublicKey)

	// x = 5 has no point on secp256k1.
	offCurve := "02" + strings.Repeat("0", 62) + "05"

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wrong scheme", "sx:eth:0x" + spend + view},
		{"missing prefix", "st::0x" + spend + view},
		{"uppercase prefix", "st:ETH:0x" + spend + view},
		{"missing 0x", "st:eth:" + spend + view},
		{"short", "st:eth:0x" + spend + view[:64]},
		{"long", "st:eth:0x" + spend + view + "00"},
		{"non-hex", "st:eth:0x" + spend + view[:64] + "zz"},
		{"trailing space", "st:eth:0x" + spend + view + " "},
		{"uncompressed prefix", "st:eth:0x04" + spend[2:] + view},
		{"off-curve spend", "st:eth:0x" + offCurve + view},
		{"off-curve view", "st:eth:0x" + spend + offCurve},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetaAddress(tt.input)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalidFormat))
		})
	}
}

func TestFormatMetaAddress_Rejects(t *testing.T) {
	kp := newKeyPair(t)

	_, err := FormatMetaAddress("Eth", kp.SpendingPublicKey, kp.ViewingPublicKey)
	require.True(t, errors.Is(err, ErrInvalidFormat))

	_, err = FormatMetaAddress("eth", kp.SpendingPublicKey[:32], kp.ViewingPublicKey)
	require.True(t, errors.Is(err, ErrInvalidFormat))
}

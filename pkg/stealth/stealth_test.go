package stealth

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
)

func newKeyPair(t *testing.T) *KeyPair {
	t.Helper()
	spend, err := crypto.GenerateKey()
	require.NoError(t, err)
	view, err := crypto.GenerateKey()
	require.NoError(t, err)
	kp, err := NewKeyPair(spend.Serialize(), view.Serialize())
	require.NoError(t, err)
	return kp
}

func newMeta(t *testing.T, kp *KeyPair) *MetaAddress {
	t.Helper()
	meta, err := kp.MetaAddress("eth")
	require.NoError(t, err)
	return meta
}

func TestGenerate_RoundTrip(t *testing.T) {
	params := config.DevnetParams()
	for i := 0; i < 50; i++ {
		kp := newKeyPair(t)
		gen, err := Generate(newMeta(t, kp), params)
		require.NoError(t, err)

		priv, err := RecoverPrivateKey(kp.SpendingPrivateKey, kp.ViewingPrivateKey, gen.EphemeralPublicKey)
		require.NoError(t, err)

		key, err := crypto.PrivateKeyFromBytes(priv)
		require.NoError(t, err)
		require.Equal(t, gen.OneTimeAddress, key.Address())
		require.Equal(t, gen.StealthPublicKey, key.PublicKey().SerializeCompressed())
	}
}

func TestGenerate_Distinct(t *testing.T) {
	kp := newKeyPair(t)
	meta := newMeta(t, kp)

	ephemerals := make(map[string]bool)
	addrs := make(map[common.Address]bool)
	for i := 0; i < 100; i++ {
		gen, err := Generate(meta, nil)
		require.NoError(t, err)
		require.False(t, ephemerals[string(gen.EphemeralPublicKey)], "ephemeral key reused")
		require.False(t, addrs[gen.OneTimeAddress], "one-time address reused")
		ephemerals[string(gen.EphemeralPublicKey)] = true
		addrs[gen.OneTimeAddress] = true
	}
}

func TestGenerate_DeployedWalletAddress(t *testing.T) {
	params := config.DevnetParams()
	kp := newKeyPair(t)
	gen, err := Generate(newMeta(t, kp), params)
	require.NoError(t, err)

	want := crypto.Create2Address(params.WalletFactory.Address, crypto.WalletSalt(gen.OneTimeAddress), params.WalletFactory.InitCodeHash)
	require.Equal(t, want, gen.DeployedWalletAddress)
	require.NotEqual(t, gen.OneTimeAddress, gen.DeployedWalletAddress)

	plain, err := Generate(newMeta(t, kp), config.MainnetParams())
	require.NoError(t, err)
	require.Equal(t, common.Address{}, plain.DeployedWalletAddress)
}

func TestGenerateWithEphemeral_Deterministic(t *testing.T) {
	kp := newKeyPair(t)
	meta := newMeta(t, kp)
	eph, err := crypto.GenerateKey()
	require.NoError(t, err)

	a, err := GenerateWithEphemeral(meta, eph.Serialize(), nil)
	require.NoError(t, err)
	b, err := GenerateWithEphemeral(meta, eph.Serialize(), nil)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, eph.PublicKey().SerializeCompressed(), a.EphemeralPublicKey)
}

func TestVerify(t *testing.T) {
	kp := newKeyPair(t)
	gen, err := Generate(newMeta(t, kp), nil)
	require.NoError(t, err)

	require.True(t, Verify(gen.EphemeralPublicKey, kp.SpendingPublicKey, gen.OneTimeAddress, kp.ViewingPrivateKey))

	t.Run("wrong viewing key", func(t *testing.T) {
		other := newKeyPair(t)
		require.False(t, Verify(gen.EphemeralPublicKey, kp.SpendingPublicKey, gen.OneTimeAddress, other.ViewingPrivateKey))
	})

	t.Run("single bit flips", func(t *testing.T) {
		for bit := 0; bit < common.AddressLength*8; bit++ {
			addr := gen.OneTimeAddress
			addr[bit/8] ^= 1 << (bit % 8)
			require.False(t, Verify(gen.EphemeralPublicKey, kp.SpendingPublicKey, addr, kp.ViewingPrivateKey), "bit %d", bit)
		}
	})

	t.Run("malformed ephemeral key", func(t *testing.T) {
		require.False(t, Verify([]byte{0x02, 0x01}, kp.SpendingPublicKey, gen.OneTimeAddress, kp.ViewingPrivateKey))
	})

	t.Run("hex is case-insensitive", func(t *testing.T) {
		hexAddr := gen.OneTimeAddress.Hex()
		require.True(t, VerifyHex(gen.EphemeralPublicKey, kp.SpendingPublicKey, strings.ToLower(hexAddr), kp.ViewingPrivateKey))
		require.True(t, VerifyHex(gen.EphemeralPublicKey, kp.SpendingPublicKey, "0x"+strings.ToUpper(hexAddr[2:]), kp.ViewingPrivateKey))
	})
}

func TestComputeViewTag(t *testing.T) {
	kp := newKeyPair(t)
	meta := newMeta(t, kp)

	gen, err := Generate(meta, nil)
	require.NoError(t, err)
	tag, err := ComputeViewTag(kp.ViewingPrivateKey, gen.EphemeralPublicKey)
	require.NoError(t, err)
	require.Equal(t, gen.ViewTag, tag)

	again, err := ComputeViewTag(kp.ViewingPrivateKey, gen.EphemeralPublicKey)
	require.NoError(t, err)
	require.Equal(t, tag, again)

	_, err = ComputeViewTag(kp.ViewingPrivateKey, []byte{0x05})
	require.True(t, errors.Is(err, ErrInvalidFormat))
}

func TestComputeViewTag_Distribution(t *testing.T) {
	kp := newKeyPair(t)
	seen := make(map[byte]int)
	for i := 0; i < 1000; i++ {
		eph, err := crypto.GenerateKey()
		require.NoError(t, err)
		tag, err := ComputeViewTag(kp.ViewingPrivateKey, eph.PublicKey().SerializeCompressed())
		require.NoError(t, err)
		seen[tag]++
	}
	// 1000 uniform draws cover about 251 of 256 values.
	require.GreaterOrEqual(t, len(seen), 200)
}

func TestRecoverPrivateKey_InvalidInput(t *testing.T) {
	kp := newKeyPair(t)
	gen, err := Generate(newMeta(t, kp), nil)
	require.NoError(t, err)

	_, err = RecoverPrivateKey(make([]byte, 32), kp.ViewingPrivateKey, gen.EphemeralPublicKey)
	require.True(t, errors.Is(err, ErrInvalidFormat))

	_, err = RecoverPrivateKey(kp.SpendingPrivateKey, kp.ViewingPrivateKey, gen.StealthPublicKey[:32])
	require.True(t, errors.Is(err, ErrInvalidFormat))
}

func TestKeyPair_Check(t *testing.T) {
	kp := newKeyPair(t)
	require.NoError(t, kp.Check())

	other := newKeyPair(t)
	corrupted := *kp
	corrupted.SpendingPublicKey = other.SpendingPublicKey
	require.True(t, errors.Is(corrupted.Check(), ErrKeyCorruption))

	corrupted = *kp
	corrupted.ViewingPrivateKey = bytes.Clone(other.ViewingPrivateKey)
	require.True(t, errors.Is(corrupted.Check(), ErrKeyCorruption))
}

func TestKeyPair_Zero(t *testing.T) {
	kp := newKeyPair(t)
	kp.Zero()
	require.Equal(t, make([]byte, 32), kp.SpendingPrivateKey)
	require.Equal(t, make([]byte, 32), kp.ViewingPrivateKey)
}

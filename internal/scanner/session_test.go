package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/internal/announce"
	"github.com/Klingon-tech/klingnet-stealth/internal/persist"
	"github.com/Klingon-tech/klingnet-stealth/internal/storage"
)

var sessionWallet = common.HexToAddress("0x2B5AD5c4795c026514f8317c7a215E218DcCD6cF")

func TestSession_Sync(t *testing.T) {
	params := config.MainnetParams()
	params.StartBlock = 10
	keys := recipientKeys(t)

	first, gen1 := payment(t, keys, params, 50, 0, nil)
	src := announce.NewMemorySource(first)
	store := persist.New(storage.NewMemory())
	session := NewSession(New(src, params), store, sessionWallet)

	from, ok, err := session.Range(100)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(10), from)

	results, err := session.Sync(context.Background(), keys, 100)
	require.NoError(t, err)
	require.Len(t, results, 1)

	cursor, ok, err := store.Cursor(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), cursor)

	// A second payment after the cursor is picked up; the first is not
	// scanned again.
	second, gen2 := payment(t, keys, params, 150, 0, nil)
	src.Add(second)
	results, err = session.Sync(context.Background(), keys, 200)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, gen2.OneTimeAddress, results[0].Announcement.StealthAddress)

	payments, err := store.Payments(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.Equal(t, gen1.OneTimeAddress, payments[0].StealthAddress)
	require.Equal(t, "eoa", payments[0].WalletType)

	claims, err := store.ClaimAddresses(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.Equal(t, []common.Address{gen1.OneTimeAddress, gen2.OneTimeAddress}, claims)

	// Already synced past the target.
	results, err = session.Sync(context.Background(), keys, 150)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSession_FailureKeepsCursor(t *testing.T) {
	params := config.MainnetParams()
	keys := recipientKeys(t)
	src := announce.NewMemorySource()
	store := persist.New(storage.NewMemory())
	session := NewSession(New(src, params, WithBlockRange(10)), store, sessionWallet)

	_, err := session.Sync(context.Background(), keys, 50)
	require.NoError(t, err)

	boom := errors.New("rpc timeout")
	src.FailWith(boom)
	_, err = session.Sync(context.Background(), keys, 500)
	require.ErrorIs(t, err, boom)

	cursor, ok, err := store.Cursor(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(50), cursor, "cursor moved after a failed pass")

	payments, err := store.Payments(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.Empty(t, payments)
}

func TestSession_GenesisBlockScannedOnce(t *testing.T) {
	params := config.MainnetParams()
	params.StartBlock = 0
	keys := recipientKeys(t)
	ann, _ := payment(t, keys, params, 0, 0, nil)

	store := persist.New(storage.NewMemory())
	session := NewSession(New(announce.NewMemorySource(ann), params), store, sessionWallet)

	results, err := session.Sync(context.Background(), keys, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)

	cursor, ok, err := store.Cursor(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, cursor)

	_, ok, err = session.Range(0)
	require.NoError(t, err)
	require.False(t, ok)

	results, err = session.Sync(context.Background(), keys, 0)
	require.NoError(t, err)
	require.Empty(t, results)

	from, ok, err := session.Range(5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), from)
}

func TestSession_MigratesLegacyCursorKeys(t *testing.T) {
	params := config.MainnetParams()
	db := storage.NewMemory()
	legacy := storage.NewPrefixDB(db, []byte(persist.KeyPrefix))
	require.NoError(t, legacy.Put([]byte(persist.LegacyKey(persist.DomainClaimAddresses, sessionWallet.Hex())), []byte(`["0x00000000000000000000000000000000000000aa"]`)))

	store := persist.New(db)
	session := NewSession(New(announce.NewMemorySource(), params), store, sessionWallet)
	_, err := session.Sync(context.Background(), recipientKeys(t), 10)
	require.NoError(t, err)

	claims, err := store.ClaimAddresses(sessionWallet, params.ChainID)
	require.NoError(t, err)
	require.Equal(t, []common.Address{common.HexToAddress("0xaa")}, claims)
	for _, k := range db.Keys() {
		require.NotContains(t, k, sessionWallet.Hex()[2:])
	}
}

func TestSession_UnavailableStore(t *testing.T) {
	params := config.MainnetParams()
	keys := recipientKeys(t)
	ann, _ := payment(t, keys, params, 5, 0, nil)

	session := NewSession(New(announce.NewMemorySource(ann), params), nil, sessionWallet)
	for i := 0; i < 2; i++ {
		results, err := session.Sync(context.Background(), keys, 10)
		require.NoError(t, err)
		require.Len(t, results, 1, "without storage every sync rescans")
	}
}

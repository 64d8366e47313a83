package announce

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/ratelimit"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/internal/log"
)

// ChainReader is the subset of ethclient.Client the RPC source uses.
type ChainReader interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// RPCSource reads announcements from a node's JSON-RPC endpoint.
type RPCSource struct {
	client    ChainReader
	announcer common.Address
	timeout   time.Duration
	limiter   ratelimit.Limiter
}

// Dial connects to endpoint and returns a source for the chain's announcer.
func Dial(ctx context.Context, cfg config.RPCConfig, params *config.ChainParams) (*RPCSource, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", cfg.Endpoint, err)
	}
	return NewRPCSource(client, params.Announcer, cfg.Timeout, cfg.RateLimit), client, nil
}

// NewRPCSource wraps client. rate is the maximum number of requests per
// second; zero disables throttling. A zero timeout leaves request deadlines
// to the caller's context.
func NewRPCSource(client ChainReader, announcer common.Address, timeout time.Duration, rate int) *RPCSource {
	limiter := ratelimit.NewUnlimited()
	if rate > 0 {
		limiter = ratelimit.New(rate)
	}
	return &RPCSource{
		client:    client,
		announcer: announcer,
		timeout:   timeout,
		limiter:   limiter,
	}
}

func (s *RPCSource) call(ctx context.Context) (context.Context, context.CancelFunc) {
	s.limiter.Take()
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return context.WithCancel(ctx)
}

// Announcements fetches and decodes the Announcement logs for schemeID in
// [from, to]. Logs that fail to decode are skipped.
func (s *RPCSource) Announcements(ctx context.Context, schemeID uint64, from, to uint64) ([]Announcement, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()

	logs, err := s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.announcer},
		Topics:    [][]common.Hash{{EventID}, {SchemeTopic(schemeID)}},
	})
	if err != nil {
		return nil, fmt.Errorf("get logs %d-%d: %w", from, to, err)
	}

	out := make([]Announcement, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		a, err := DecodeLog(l)
		if err != nil {
			log.RPC.Debug().Err(err).Uint64("block", l.BlockNumber).Msg("Skipping undecodable log")
			continue
		}
		out = append(out, a)
	}
	log.RPC.Debug().
		Uint64("from", from).
		Uint64("to", to).
		Int("logs", len(logs)).
		Msg("Fetched announcements")
	return out, nil
}

// CodeAt returns the code deployed at addr in the latest block.
func (s *RPCSource) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()

	code, err := s.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	return code, nil
}

// LatestBlock returns the current chain head number.
func (s *RPCSource) LatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := s.call(ctx)
	defer cancel()

	n, err := s.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("block number: %w", err)
	}
	return n, nil
}

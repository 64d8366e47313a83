// Package scanner finds a recipient's stealth payments among Announcement
// events: a cheap view-tag filter followed by full verification of the
// surviving candidates.
package scanner

import (
	"cmp"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/klingnet-stealth/config"
	"github.com/Klingon-tech/klingnet-stealth/internal/announce"
	"github.com/Klingon-tech/klingnet-stealth/internal/log"
	"github.com/Klingon-tech/klingnet-stealth/internal/resolver"
	"github.com/Klingon-tech/klingnet-stealth/pkg/crypto"
	"github.com/Klingon-tech/klingnet-stealth/pkg/stealth"
)

// Defaults used when no option overrides them.
const (
	DefaultBlockRange = 5000
	DefaultWorkers    = 4
)

// Scanner runs scan passes for one chain. A Scanner runs one pass at a
// time; concurrent calls are serialized.
type Scanner struct {
	source     announce.Source
	params     *config.ChainParams
	resolver   *resolver.Resolver
	codes      announce.CodeSource
	blockRange uint64
	workers    int
	logger     zerolog.Logger

	run sync.Mutex // held for a whole pass

	mu    sync.Mutex
	state State
	stats Stats
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBlockRange sets how many blocks each fetch covers.
func WithBlockRange(n uint64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.blockRange = n
		}
	}
}

// WithWorkers bounds the number of candidates verified concurrently.
func WithWorkers(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithCodeSource enables EIP-7702 detection: EOA matches whose code is a
// delegation designator are reported as resolver.EIP7702.
func WithCodeSource(c announce.CodeSource) Option {
	return func(s *Scanner) {
		s.codes = c
	}
}

// New creates a scanner reading from src with the given chain parameters.
func New(src announce.Source, params *config.ChainParams, opts ...Option) *Scanner {
	s := &Scanner{
		source:     src,
		params:     params,
		resolver:   resolver.New(params),
		blockRange: DefaultBlockRange,
		workers:    DefaultWorkers,
		logger:     log.WithChain(log.Scanner, params.Name),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Params returns the scanner's chain parameters.
func (s *Scanner) Params() *config.ChainParams {
	return s.params
}

// State returns the phase of the current or last pass.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastStats returns the counters of the last pass.
func (s *Scanner) LastStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Scanner) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.logger.Debug().Stringer("from", prev).Stringer("to", st).Msg("Scan state")
}

func (s *Scanner) fail(err error) error {
	s.setState(StateFailed)
	return err
}

// matcher decides whether a view-tag candidate is the recipient's payment.
// It returns nil for a candidate that does not verify.
type matcher func(ctx context.Context, ann *announce.Announcement) (*Result, error)

// Scan returns the payments to keys among announcements in [from, to].
// The key pair is self-checked first; a mismatch fails with
// stealth.ErrKeyCorruption before anything is fetched.
func (s *Scanner) Scan(ctx context.Context, keys *stealth.KeyPair, from, to uint64) ([]Result, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: nil key pair", stealth.ErrInvalidFormat)
	}
	s.run.Lock()
	defer s.run.Unlock()

	if err := keys.Check(); err != nil {
		return nil, s.fail(err)
	}
	return s.scan(ctx, keys.ViewingPrivateKey, from, to, s.recoverMatch(keys))
}

// ScanViewOnly scans with the viewing private key and spending public key
// only. Results carry no private key.
func (s *Scanner) ScanViewOnly(ctx context.Context, viewingPriv, spendingPub []byte, from, to uint64) ([]Result, error) {
	s.run.Lock()
	defer s.run.Unlock()

	if _, err := crypto.PrivateKeyFromBytes(viewingPriv); err != nil {
		return nil, s.fail(fmt.Errorf("%w: viewing key: %v", stealth.ErrInvalidFormat, err))
	}
	if _, err := crypto.ParsePubKey(spendingPub); err != nil {
		return nil, s.fail(fmt.Errorf("%w: spending public key: %v", stealth.ErrInvalidFormat, err))
	}
	return s.scan(ctx, viewingPriv, from, to, s.viewOnlyMatch(viewingPriv, spendingPub))
}

func (s *Scanner) scan(ctx context.Context, viewingPriv []byte, from, to uint64, match matcher) ([]Result, error) {
	if from > to {
		return nil, s.fail(fmt.Errorf("%w: from block %d after to block %d", stealth.ErrInvalidFormat, from, to))
	}
	start := time.Now()
	s.mu.Lock()
	s.stats = Stats{}
	s.mu.Unlock()

	anns, chunks, err := s.fetch(ctx, from, to)
	if err != nil {
		return nil, s.fail(err)
	}

	s.setState(StateFiltering)
	candidates := filter(anns, viewingPriv)

	s.setState(StateVerifying)
	results, err := s.verify(ctx, candidates, match)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.stats = Stats{Events: len(anns), Candidates: len(candidates), Matches: len(results), Chunks: chunks}
	s.mu.Unlock()
	s.setState(StateDone)

	s.logger.Info().
		Uint64("from", from).
		Uint64("to", to).
		Int("events", len(anns)).
		Int("candidates", len(candidates)).
		Int("matches", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("Scan complete")
	return results, nil
}

// fetch reads [from, to] in blockRange chunks, checking ctx between chunks.
func (s *Scanner) fetch(ctx context.Context, from, to uint64) ([]announce.Announcement, int, error) {
	s.setState(StateFetching)
	var (
		all    []announce.Announcement
		chunks int
	)
	for lo := from; ; {
		if err := ctx.Err(); err != nil {
			return nil, chunks, err
		}
		hi := to
		if to-lo >= s.blockRange {
			hi = lo + s.blockRange - 1
		}
		anns, err := s.source.Announcements(ctx, s.params.SchemeID, lo, hi)
		if err != nil {
			return nil, chunks, fmt.Errorf("fetch announcements %d-%d: %w", lo, hi, err)
		}
		all = append(all, anns...)
		chunks++
		if hi == to {
			break
		}
		lo = hi + 1
	}
	return all, chunks, nil
}

// filter keeps the announcements whose view tag matches the one computed
// from the viewing key. Announcements without metadata or with an invalid
// ephemeral key are dropped.
func filter(anns []announce.Announcement, viewingPriv []byte) []*announce.Announcement {
	var out []*announce.Announcement
	for i := range anns {
		tag, ok := anns[i].ViewTag()
		if !ok {
			continue
		}
		expected, err := stealth.ComputeViewTag(viewingPriv, anns[i].EphemeralPubKey)
		if err != nil {
			continue
		}
		if subtle.ConstantTimeByteEq(expected, tag) == 1 {
			out = append(out, &anns[i])
		}
	}
	return out
}

func (s *Scanner) verify(ctx context.Context, candidates []*announce.Announcement, match matcher) ([]Result, error) {
	found := make([]*Result, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ann := range candidates {
		i, ann := i, ann
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := match(gctx, ann)
			if err != nil {
				return err
			}
			if r == nil {
				s.logger.Debug().Uint64("block", ann.BlockNumber).Uint("log", ann.LogIndex).Msg("View tag matched but candidate did not verify")
				return nil
			}
			tag, _ := ann.ViewTag()
			md, err := announce.DecodeMetadataFor(ann.Metadata, s.params.ChainID)
			if err != nil {
				s.logger.Debug().Err(err).Uint64("block", ann.BlockNumber).Msg("Undecodable metadata, treating as native payment")
				md = announce.Metadata{ViewTag: tag}
			}
			r.Metadata = md
			found[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, r := range found {
			if r != nil {
				r.Zero()
			}
		}
		return nil, err
	}

	var results []Result
	for _, r := range found {
		if r != nil {
			results = append(results, *r)
		}
	}
	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(a.Announcement.BlockNumber, b.Announcement.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Announcement.LogIndex, b.Announcement.LogIndex)
	})
	return results, nil
}

func (s *Scanner) recoverMatch(keys *stealth.KeyPair) matcher {
	return func(ctx context.Context, ann *announce.Announcement) (*Result, error) {
		priv, err := stealth.RecoverPrivateKey(keys.SpendingPrivateKey, keys.ViewingPrivateKey, ann.EphemeralPubKey)
		if err != nil {
			if errors.Is(err, stealth.ErrDerivationFailure) {
				return nil, err
			}
			return nil, nil
		}
		key, err := crypto.PrivateKeyFromBytes(priv)
		if err != nil {
			clear(priv)
			return nil, fmt.Errorf("%w: recovered key: %v", stealth.ErrDerivationFailure, err)
		}
		eoa := key.Address()
		key.Zero()

		typ, err := s.classify(ctx, eoa, ann.StealthAddress)
		if err != nil || typ == resolver.NoMatch {
			clear(priv)
			return nil, err
		}
		return &Result{
			Announcement: *ann,
			PrivateKey:   priv,
			StealthEOA:   eoa,
			WalletType:   typ,
			Verified:     true,
		}, nil
	}
}

func (s *Scanner) viewOnlyMatch(viewingPriv, spendingPub []byte) matcher {
	return func(ctx context.Context, ann *announce.Announcement) (*Result, error) {
		eoa, err := stealth.StealthAddress(ann.EphemeralPubKey, spendingPub, viewingPriv)
		if err != nil {
			if errors.Is(err, stealth.ErrDerivationFailure) {
				return nil, err
			}
			return nil, nil
		}
		typ, err := s.classify(ctx, eoa, ann.StealthAddress)
		if err != nil || typ == resolver.NoMatch {
			return nil, err
		}
		return &Result{
			Announcement: *ann,
			StealthEOA:   eoa,
			WalletType:   typ,
			Verified:     true,
		}, nil
	}
}

// classify resolves the announced address against eoa's variants and
// upgrades a plain EOA match to EIP7702 when its code is a delegation.
func (s *Scanner) classify(ctx context.Context, eoa, announced common.Address) (resolver.WalletType, error) {
	typ, ok := s.resolver.Classify(eoa, announced)
	if !ok {
		return resolver.NoMatch, nil
	}
	if typ != resolver.EOA || s.codes == nil {
		return typ, nil
	}
	code, err := s.codes.CodeAt(ctx, eoa)
	if err != nil {
		return resolver.NoMatch, fmt.Errorf("read code: %w", err)
	}
	if resolver.IsDelegated(code, s.resolver.Delegate()) {
		return resolver.EIP7702, nil
	}
	return typ, nil
}

// Package priceoracle implements RedundantSwapPrice: a set of price
// provider adapters raced against each other for liveness, with sticky
// preference for the first provider (in priority order) marked
// operational, using
// golang.org/x/sync/errgroup for the fan-out.
package priceoracle

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/atomiqlabs/swapengine/internal/buildlog"
	"github.com/atomiqlabs/swapengine/retry"
)

var log = buildlog.NewSubLogger("PRCO")

// Provider fetches the current price of token, in micro-sats per token
// base unit. Concrete adapters (Binance, OKX, CoinGecko, CoinPaprika,
// Kraken, or a custom HTTP endpoint) are external collaborators
// satisfying this interface; none are implemented here since they are
// simple HTTP clients outside this engine's scope.
type Provider interface {
	Name() string
	FetchPrice(ctx context.Context, chain string, token string) (uSatsPerToken uint64, err error)
}

type tristate uint8

const (
	unknown tristate = iota
	operationalTrue
	operationalFalse
)

type providerState struct {
	provider    Provider
	operational tristate
}

// RedundantSwapPrice races Providers against each other, preferring the
// first one (in priority order) marked operational, and falls back to a
// concurrent first-to-succeed race among the rest when the preferred one
// fails.
type RedundantSwapPrice struct {
	mu        sync.Mutex
	providers []*providerState

	// MaxAllowedFeeDiffPPM bounds how far a quoted price may deviate from
	// the oracle's live reference price before ValidateAmountSend/
	// ValidateAmountReceive report it with IsValid false.
	MaxAllowedFeeDiffPPM int64
}

// New builds a RedundantSwapPrice over providers, in priority order.
func New(maxAllowedFeeDiffPPM int64, providers ...Provider) *RedundantSwapPrice {
	states := make([]*providerState, len(providers))
	for i, p := range providers {
		states[i] = &providerState{provider: p, operational: unknown}
	}
	return &RedundantSwapPrice{providers: states, MaxAllowedFeeDiffPPM: maxAllowedFeeDiffPPM}
}

// GetPrice returns the current price of token on chain, in micro-sats per
// token base unit, wrapped in the standard retry policy (IntermediaryError
// aborts immediately; everything else retries up to five times with
// exponential backoff).
func (r *RedundantSwapPrice) GetPrice(ctx context.Context, chain string, token string) (uint64, error) {
	return retry.Do(ctx, retry.DefaultPolicy, func(ctx context.Context) (uint64, error) {
		return r.getPriceOnce(ctx, chain, token)
	})
}

func (r *RedundantSwapPrice) getPriceOnce(ctx context.Context, chain string, token string) (uint64, error) {
	if preferred := r.getOperational(); preferred != nil {
		price, err := preferred.provider.FetchPrice(ctx, chain, token)
		if err == nil {
			r.markOperational(preferred, true)
			return price, nil
		}
		log.Debugf("preferred price provider %s failed, falling back: %v", preferred.provider.Name(), err)
		r.markOperational(preferred, false)
	}

	return r.raceFallback(ctx, chain, token)
}

// getOperational returns the first provider marked operational, or nil.
func (r *RedundantSwapPrice) getOperational() *providerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		if p.operational == operationalTrue {
			return p
		}
	}
	return nil
}

func (r *RedundantSwapPrice) markOperational(p *providerState, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		p.operational = operationalTrue
	} else {
		p.operational = operationalFalse
	}
}

// raceFallback queries every provider not already known-dead in parallel
// and returns the first success, marking every responder along the way.
// If every candidate fails, the whole set is reset to unknown so they get
// probed again on the next call.
func (r *RedundantSwapPrice) raceFallback(ctx context.Context, chain string, token string) (uint64, error) {
	r.mu.Lock()
	var candidates []*providerState
	for _, p := range r.providers {
		if p.operational != operationalFalse {
			candidates = append(candidates, p)
		}
	}
	r.mu.Unlock()

	if len(candidates) == 0 {
		r.resetAll()
		return 0, fmt.Errorf("no price providers available")
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		winner   uint64
		winnerMu sync.Mutex
		found    bool
	)

	g, gCtx := errgroup.WithContext(raceCtx)
	for _, p := range candidates {
		p := p
		g.Go(func() error {
			price, err := p.provider.FetchPrice(gCtx, chain, token)
			if err != nil {
				r.markOperational(p, false)
				return nil
			}
			r.markOperational(p, true)

			winnerMu.Lock()
			defer winnerMu.Unlock()
			if !found {
				found = true
				winner = price
				cancel()
			}
			return nil
		})
	}

	_ = g.Wait()

	if found {
		return winner, nil
	}

	r.resetAll()
	return 0, fmt.Errorf("all %d price providers failed", len(candidates))
}

func (r *RedundantSwapPrice) resetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.providers {
		p.operational = unknown
	}
}

// Package swapbase implements SwapBase: the storage, event-emission and
// waitTillState synchronization primitive every concrete swap kind
// embeds.
package swapbase

import (
	"context"
	"sync"
	"time"

	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// WrapperHandle is the back-reference SwapBase uses to reach the Wrapper
// that owns it — relation-only, as the data model requires: a swap holds
// a reference to its wrapper but never controls its lifetime.
type WrapperHandle interface {
	SaveSwap(r storage.Record) error
	RemoveSwap(id string) error
	EmitGlobal(event StateChangeEvent)
}

// StateChangeEvent is broadcast to a Wrapper-global channel every time a
// swap's state changes, alongside the swap-local waitTillState wakeups.
type StateChangeEvent struct {
	SwapId string
	Kind   swaptypes.Kind
	State  swaptypes.State
}

type stateWaiter struct {
	target swaptypes.State
	mode   swaptypes.CompareMode
	ch     chan struct{}
}

// SwapBase is embedded by every concrete swap kind (escrowswap.Swap,
// spvvault.Swap, trustedgas.Swap) to get storage, event emission and
// waitTillState for free.
type SwapBase struct {
	swaptypes.Swap

	mu       sync.Mutex
	wrapper  WrapperHandle
	waiters  []*stateWaiter
}

// Init wires the SwapBase to its owning Wrapper. Must be called once,
// before any other SwapBase method, by the concrete swap's constructor.
func (s *SwapBase) Init(wrapper WrapperHandle) {
	s.wrapper = wrapper
}

// PriceReport is getPriceInfo's return shape: a symmetric view of the
// swap's quoted price against the oracle's live reference price, where
// higher is always better for the user regardless of direction.
type PriceReport struct {
	MarketPrice float64
	SwapPrice   float64
	Difference  float64
}

// directionTransform maps a raw micro-sats-per-token figure into the
// symmetric "higher is better" space: for TO_BTC the user is paying
// token to receive BTC, so a larger BTC-per-token figure is better,
// giving 1e14/x; for FROM_BTC the user pays BTC to receive token, so the
// roles invert and the reciprocal of that transform is used instead.
func directionTransform(direction swaptypes.Direction, uSatPerToken uint64) float64 {
	if uSatPerToken == 0 {
		return 0
	}
	toBTC := 1e14 / float64(uSatPerToken)
	if direction == swaptypes.DirectionToBTC {
		return toBTC
	}
	return 1 / toBTC
}

// GetPriceInfo returns the symmetric market/swap/difference view over the
// swap's last-known pricing info. It fails as swaperr.InvalidStateError
// if no pricing info has ever been attached.
func (s *SwapBase) GetPriceInfo() (PriceReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PricingInfo.SwapPriceUSatPerToken == 0 && s.PricingInfo.RealPriceUSatPerToken == 0 {
		return PriceReport{}, &swaperr.InvalidStateError{Have: "no pricing info", Want: "quoted swap"}
	}

	market := directionTransform(s.Direction, s.PricingInfo.RealPriceUSatPerToken)
	swapPrice := directionTransform(s.Direction, s.PricingInfo.SwapPriceUSatPerToken)

	diff := 0.0
	if market != 0 {
		diff = (swapPrice - market) / market
	}

	return PriceReport{MarketPrice: market, SwapPrice: swapPrice, Difference: diff}, nil
}

// HasValidPrice reports the last-recorded pricingInfo.isValid.
func (s *SwapBase) HasValidPrice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.PricingInfo.IsValid
}

// PriceOracle is the subset of priceoracle.RedundantSwapPrice RefreshPriceData
// needs, kept as an interface so swapbase does not import priceoracle
// directly (priceoracle has no reason to depend on swapbase, but keeping
// the dependency one-directional avoids coupling the two packages'
// release cadence).
type PriceOracle interface {
	ValidateAmountSend(ctx context.Context, chain string, sats uint64, baseFeeSats uint64, feePPM int64, tokenAmount uint64, token string) (swaptypes.PriceInfo, error)
	ValidateAmountReceive(ctx context.Context, chain string, sats uint64, baseFeeSats uint64, feePPM int64, tokenAmount uint64, token string) (swaptypes.PriceInfo, error)
}

// RefreshPriceData re-queries oracle with the swap's stored fee schedule
// and amounts, updating PricingInfo in place while preserving
// RealPriceUsdPerBitcoin (the oracle call this wraps does not report a
// USD/BTC figure, only a token price, so the previous value is kept
// rather than zeroed).
func (s *SwapBase) RefreshPriceData(ctx context.Context, oracle PriceOracle, chain string, sats uint64, tokenAmount uint64, token string) error {
	s.mu.Lock()
	send := s.Direction == swaptypes.DirectionFromBTC
	baseFee := s.PricingInfo.SatsBaseFee
	feePPM := s.PricingInfo.FeePPM
	preservedUsd := s.PricingInfo.RealPriceUsdPerBitcoin
	s.mu.Unlock()

	var (
		info swaptypes.PriceInfo
		err  error
	)
	if send {
		info, err = oracle.ValidateAmountSend(ctx, chain, sats, baseFee, feePPM, tokenAmount, token)
	} else {
		info, err = oracle.ValidateAmountReceive(ctx, chain, sats, baseFee, feePPM, tokenAmount, token)
	}
	if err != nil {
		return err
	}
	info.RealPriceUsdPerBitcoin = preservedUsd

	s.mu.Lock()
	s.PricingInfo = info
	s.mu.Unlock()
	return nil
}

// Save persists self to the owning Wrapper iff Initiated, removing it
// instead when the quote has expired.
func (s *SwapBase) Save(self storage.Record) error {
	s.mu.Lock()
	initiated := s.Initiated
	expired := s.IsQuoteExpired(time.Now())
	s.mu.Unlock()

	if !initiated {
		return nil
	}
	if expired {
		return s.wrapper.RemoveSwap(self.StorageId())
	}
	return s.wrapper.SaveSwap(self)
}

// SaveAndEmit atomically (with respect to this SwapBase's own state)
// applies newState if non-nil, persists via Save, and emits the state
// change to both waitTillState listeners and the Wrapper-global channel.
func (s *SwapBase) SaveAndEmit(self storage.Record, newState *swaptypes.State) error {
	s.mu.Lock()
	if newState != nil {
		s.State = *newState
	}
	current := s.State
	kind := s.Kind
	s.mu.Unlock()

	if err := s.Save(self); err != nil {
		return err
	}

	s.notifyWaiters(current)
	s.wrapper.EmitGlobal(StateChangeEvent{SwapId: self.StorageId(), Kind: kind, State: current})
	return nil
}

// WaitTillState blocks until State satisfies mode relative to target, or
// ctx is cancelled. On cancellation it returns context.Cause(ctx) when a
// cause was set (the cancel reason), falling back to ctx.Err().
func (s *SwapBase) WaitTillState(ctx context.Context, target swaptypes.State, mode swaptypes.CompareMode) error {
	s.mu.Lock()
	if mode.Satisfies(s.State, target) {
		s.mu.Unlock()
		return nil
	}
	waiter := &stateWaiter{target: target, mode: mode, ch: make(chan struct{})}
	s.waiters = append(s.waiters, waiter)
	s.mu.Unlock()

	select {
	case <-waiter.ch:
		return nil
	case <-ctx.Done():
		s.removeWaiter(waiter)
		if cause := context.Cause(ctx); cause != nil && cause != context.Canceled {
			return cause
		}
		return ctx.Err()
	}
}

func (s *SwapBase) notifyWaiters(current swaptypes.State) {
	s.mu.Lock()
	remaining := s.waiters[:0]
	var fire []*stateWaiter
	for _, w := range s.waiters {
		if w.mode.Satisfies(current, w.target) {
			fire = append(fire, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	s.waiters = remaining
	s.mu.Unlock()

	for _, w := range fire {
		close(w.ch)
	}
}

func (s *SwapBase) removeWaiter(target *stateWaiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, w := range s.waiters {
		if w == target {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}

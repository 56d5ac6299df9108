// Package wrapperbase implements WrapperBase: the per-kind owner that
// runs initialization, periodic ticking, chain-event subscription and
// recovery for every Swap of one kind.
package wrapperbase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/internal/buildlog"
	"github.com/atomiqlabs/swapengine/priceoracle"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

var log = buildlog.NewSubLogger("WRAP")

// KindIndexField is the storage index field name every concrete swap
// record's IndexValues() must populate with its Kind.String(), so
// WrapperBase can query its own kind's pending swaps out of a store
// shared by every other kind.
const KindIndexField = "kind"

// SwapHandle is what a concrete swap kind (escrowswap.Swap, spvvault.Swap,
// trustedgas.Swap) must expose for WrapperBase to drive it generically.
type SwapHandle interface {
	storage.Record

	GetState() swaptypes.State
	IsInitiated() bool
	IsQuoteExpired(now time.Time) bool

	// Sync reconciles this swap against current chain/LP state once,
	// used during past-swap reconciliation at init. changed reports
	// whether persisted state was mutated.
	Sync(ctx context.Context) (changed bool, err error)

	// Tick drives one periodic step of this swap's state machine.
	Tick(ctx context.Context) (changed bool, err error)

	// ProcessEvent applies a chain/LP event to this swap's state
	// machine.
	ProcessEvent(ctx context.Context, event chainevents.Event) (changed bool, err error)
}

// Deserializer loads a concrete swap from its persisted storage.Record.
type Deserializer[S SwapHandle] func(record storage.Record) (S, error)

// Config holds a WrapperBase's fixed dependencies.
type Config[S SwapHandle] struct {
	Kind        swaptypes.Kind
	Store       storage.Store
	Router      *chainevents.ChainEventRouter
	Oracle      *priceoracle.RedundantSwapPrice
	Deserialize Deserializer[S]

	// TickStates lists the states that need a periodic tick rather than
	// being purely event-driven. An empty list means this kind never
	// starts the 1Hz tick timer.
	TickStates []swaptypes.State
}

// WrapperBase owns one swap kind: its persisted index, its chain-event
// subscription, and its periodic tick.
type WrapperBase[S SwapHandle] struct {
	cfg Config[S]

	mu          sync.Mutex
	initialized bool
	pending     map[string]S // explicit registry standing in for a weak-reference map (see DESIGN.md)

	tickCancel context.CancelFunc
	tickDone   chan struct{}

	tickStates map[swaptypes.State]bool

	bus *swapbase.EventBus
}

// New builds a WrapperBase from cfg. It registers itself with cfg.Router
// as the chainevents.Listener for cfg.Kind only once Init runs.
func New[S SwapHandle](cfg Config[S]) *WrapperBase[S] {
	tickStates := make(map[swaptypes.State]bool, len(cfg.TickStates))
	for _, s := range cfg.TickStates {
		tickStates[s] = true
	}
	return &WrapperBase[S]{
		cfg:        cfg,
		pending:    make(map[string]S),
		tickStates: tickStates,
		bus:        swapbase.NewEventBus(),
	}
}

// Init is idempotent: calling it twice, without an intervening Stop, is a
// no-op the second time.
func (w *WrapperBase[S]) Init(ctx context.Context, skipTimers bool, skipPastCheck bool) error {
	w.mu.Lock()
	if w.initialized {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if !skipPastCheck {
		w.cfg.Router.StartBuffering()
		if err := w.reconcilePastSwaps(ctx); err != nil {
			w.cfg.Router.Register(w.cfg.Kind, w)
			w.cfg.Router.Drain()
			return err
		}
		w.cfg.Router.Register(w.cfg.Kind, w)
		w.cfg.Router.Drain()
	} else {
		w.cfg.Router.Register(w.cfg.Kind, w)
	}

	if !skipTimers && len(w.tickStates) > 0 {
		w.startTicking(ctx)
	}

	w.mu.Lock()
	w.initialized = true
	w.mu.Unlock()
	return nil
}

func (w *WrapperBase[S]) reconcilePastSwaps(ctx context.Context) error {
	records, err := w.cfg.Store.Query(storage.Query{{
		{Field: KindIndexField, Values: []string{w.cfg.Kind.String()}},
	}})
	if err != nil {
		return err
	}

	var toRemove []string
	for _, record := range records {
		swap, err := w.cfg.Deserialize(record)
		if err != nil {
			log.Errorf("failed to deserialize pending swap %s: %v", record.StorageId(), err)
			continue
		}

		changed, err := swap.Sync(ctx)
		if err != nil {
			log.Warnf("sync failed for swap %s: %v", swap.StorageId(), err)
		}

		if swap.IsQuoteExpired(time.Now()) {
			toRemove = append(toRemove, swap.StorageId())
			continue
		}

		w.registerPending(swap)

		if changed {
			if err := w.cfg.Store.Save(swap); err != nil {
				log.Errorf("failed to save reconciled swap %s: %v", swap.StorageId(), err)
			}
		}
	}

	if len(toRemove) > 0 {
		if err := w.cfg.Store.RemoveAll(toRemove); err != nil {
			log.Errorf("failed to remove quote-expired swaps: %v", err)
		}
	}

	return nil
}

// Stop deregisters the listener, stops the tick timer, and marks the
// wrapper uninitialized. Safe to call when not initialized.
func (w *WrapperBase[S]) Stop() {
	w.mu.Lock()
	if !w.initialized {
		w.mu.Unlock()
		return
	}
	w.initialized = false
	cancel := w.tickCancel
	done := w.tickDone
	w.tickCancel = nil
	w.tickDone = nil
	w.mu.Unlock()

	w.cfg.Router.Unregister(w.cfg.Kind)

	if cancel != nil {
		cancel()
		<-done
	}
}

func (w *WrapperBase[S]) startTicking(ctx context.Context) {
	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	w.mu.Lock()
	w.tickCancel = cancel
	w.tickDone = done
	w.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				w.Tick(tickCtx)
			}
		}
	}()
}

// Tick runs Tick(ctx) on every swap in the pending index, initiated or
// not, whose state is in TickStates (on every one when TickStates is
// empty), persisting any initiated swap that changed.
func (w *WrapperBase[S]) Tick(ctx context.Context) {
	for _, swap := range w.snapshotPending() {
		if !w.tickStates[swap.GetState()] && len(w.tickStates) > 0 {
			continue
		}
		changed, err := swap.Tick(ctx)
		if err != nil {
			log.Warnf("tick failed for swap %s: %v", swap.StorageId(), err)
			continue
		}
		if changed && swap.IsInitiated() {
			if err := w.cfg.Store.Save(swap); err != nil {
				log.Errorf("failed to save ticked swap %s: %v", swap.StorageId(), err)
			}
		}
	}
}

// OnEvent implements chainevents.Listener, applying event to the
// concerned pending swap (loading it from storage first if it is not
// already held in memory).
func (w *WrapperBase[S]) OnEvent(event chainevents.Event) {
	ctx := context.Background()

	swap, ok := w.lookupPending(event.SwapId)
	if !ok {
		records, err := w.cfg.Store.Query(storage.Query{{
			{Field: KindIndexField, Values: []string{w.cfg.Kind.String()}},
		}})
		if err != nil {
			log.Errorf("failed to load swap %s for event %s: %v", event.SwapId, event.Name, err)
			return
		}
		for _, r := range records {
			if r.StorageId() != event.SwapId {
				continue
			}
			loaded, err := w.cfg.Deserialize(r)
			if err != nil {
				log.Errorf("failed to deserialize swap %s: %v", event.SwapId, err)
				return
			}
			swap = loaded
			w.registerPending(swap)
			ok = true
			break
		}
	}
	if !ok {
		return
	}

	changed, err := swap.ProcessEvent(ctx, event)
	if err != nil {
		log.Warnf("process event %s failed for swap %s: %v", event.Name, event.SwapId, err)
		return
	}
	if changed && swap.IsInitiated() {
		if err := w.cfg.Store.Save(swap); err != nil {
			log.Errorf("failed to save swap %s after event: %v", swap.StorageId(), err)
		}
	}
}

// SaveSwapData registers swap in the pending index and, if initiated,
// persists it immediately.
func (w *WrapperBase[S]) SaveSwapData(swap S) error {
	w.registerPending(swap)
	if !swap.IsInitiated() {
		return nil
	}
	return w.cfg.Store.Save(swap)
}

// RemoveSwapData releases swap from the pending index and storage.
func (w *WrapperBase[S]) RemoveSwapData(id string) error {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
	return w.cfg.Store.Remove(id)
}

// RecordTypeMismatch builds the error a per-kind Deserializer returns
// when a storage.Record it was handed is not the concrete swap type it
// expects; want is passed only for its type, e.g. (*Swap)(nil).
func RecordTypeMismatch(got storage.Record, want any) error {
	return fmt.Errorf("wrapperbase: record %T is not a %T", got, want)
}

// SaveSwap implements swapbase.WrapperHandle, so a *WrapperBase[S] can be
// passed directly to a concrete swap's SwapBase.Init. r must be the same
// concrete type S this WrapperBase was built for.
func (w *WrapperBase[S]) SaveSwap(r storage.Record) error {
	swap, ok := r.(S)
	if !ok {
		return fmt.Errorf("wrapperbase: record %T is not a %T", r, *new(S))
	}
	return w.SaveSwapData(swap)
}

// RemoveSwap implements swapbase.WrapperHandle.
func (w *WrapperBase[S]) RemoveSwap(id string) error {
	return w.RemoveSwapData(id)
}

// EmitGlobal implements swapbase.WrapperHandle, broadcasting event to
// every subscriber registered via Subscribe.
func (w *WrapperBase[S]) EmitGlobal(event swapbase.StateChangeEvent) {
	w.bus.Emit(event)
}

// Subscribe registers a wrapper-global listener for every StateChangeEvent
// this kind's swaps emit. buffer sizes the channel backpressure rather
// than risking a slow subscriber blocking a swap's state transition.
func (w *WrapperBase[S]) Subscribe(buffer int) (<-chan swapbase.StateChangeEvent, uint64) {
	return w.bus.Subscribe(buffer)
}

// Unsubscribe deregisters a listener previously returned by Subscribe.
func (w *WrapperBase[S]) Unsubscribe(id uint64) {
	w.bus.Unsubscribe(id)
}

func (w *WrapperBase[S]) registerPending(swap S) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[swap.StorageId()] = swap
}

func (w *WrapperBase[S]) lookupPending(id string) (S, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	swap, ok := w.pending[id]
	return swap, ok
}

func (w *WrapperBase[S]) snapshotPending() []S {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]S, 0, len(w.pending))
	for _, swap := range w.pending {
		out = append(out, swap)
	}
	return out
}

// VerifyReturnedPrice validates an LP-quoted price against the oracle's
// live reference and returns the PriceInfo to persist, erroring with
// swaperr.IntermediaryError("Fee too high") if the oracle rejects it.
func (w *WrapperBase[S]) VerifyReturnedPrice(ctx context.Context, send bool, chain string, sats uint64, tokenAmount uint64, token string, baseFeeSats uint64, feePPM int64) (swaptypes.PriceInfo, error) {
	var (
		info swaptypes.PriceInfo
		err  error
	)
	if send {
		info, err = w.cfg.Oracle.ValidateAmountSend(ctx, chain, sats, baseFeeSats, feePPM, tokenAmount, token)
	} else {
		info, err = w.cfg.Oracle.ValidateAmountReceive(ctx, chain, sats, baseFeeSats, feePPM, tokenAmount, token)
	}
	if err != nil {
		return swaptypes.PriceInfo{}, err
	}
	if !info.IsValid {
		return info, &swaperr.IntermediaryError{Reason: "Fee too high"}
	}
	return info, nil
}

// PreFetchPrice fetches the oracle's current price, swallowing any error
// (logging it) and returning nil instead of propagating it — callers use
// this to warm a cache speculatively, not to gate a critical path.
func (w *WrapperBase[S]) PreFetchPrice(ctx context.Context, chain string, token string) *uint64 {
	price, err := w.cfg.Oracle.GetPrice(ctx, chain, token)
	if err != nil {
		log.Debugf("pre-fetch price failed for %s/%s: %v", chain, token, err)
		return nil
	}
	return &price
}

// UsdPriceSource supplies a USD-per-Bitcoin reference figure, separate
// from the per-token oracle, for PreFetchUsdPrice's speculative warm-up.
type UsdPriceSource interface {
	GetUsdPerBitcoin(ctx context.Context) (float64, error)
}

// PreFetchUsdPrice mirrors PreFetchPrice for a USD/BTC reference source,
// swallowing errors the same way.
func (w *WrapperBase[S]) PreFetchUsdPrice(ctx context.Context, source UsdPriceSource) *float64 {
	if source == nil {
		return nil
	}
	price, err := source.GetUsdPerBitcoin(ctx)
	if err != nil {
		log.Debugf("pre-fetch usd price failed: %v", err)
		return nil
	}
	return &price
}

package wrapperbase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/priceoracle"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

type fakeSwap struct {
	id        string
	state     swaptypes.State
	initiated bool
	expiry    time.Time

	syncCalls  int
	tickCalls  int
	eventCalls int

	syncErr  error
	tickErr  error
	onEvent  func(event chainevents.Event) (bool, error)
}

func (s *fakeSwap) StorageId() string { return s.id }

func (s *fakeSwap) IndexValues() map[string]string {
	return map[string]string{KindIndexField: swaptypes.KindFromBTC.String()}
}

func (s *fakeSwap) GetState() swaptypes.State      { return s.state }
func (s *fakeSwap) IsInitiated() bool               { return s.initiated }
func (s *fakeSwap) IsQuoteExpired(now time.Time) bool {
	return !s.expiry.IsZero() && now.After(s.expiry)
}

func (s *fakeSwap) Sync(ctx context.Context) (bool, error) {
	s.syncCalls++
	return false, s.syncErr
}

func (s *fakeSwap) Tick(ctx context.Context) (bool, error) {
	s.tickCalls++
	if s.tickErr != nil {
		return false, s.tickErr
	}
	s.state = swaptypes.StateClaimClaimed
	return true, nil
}

func (s *fakeSwap) ProcessEvent(ctx context.Context, event chainevents.Event) (bool, error) {
	s.eventCalls++
	if s.onEvent != nil {
		return s.onEvent(event)
	}
	return true, nil
}

func newHarness(t *testing.T) (*WrapperBase[*fakeSwap], *storage.MemoryStore, *chainevents.ChainEventRouter) {
	t.Helper()
	store := storage.NewMemoryStore([]storage.IndexSpec{{Field: KindIndexField}}, nil)
	router := chainevents.New()
	oracle := priceoracle.New(5000)

	w := New(Config[*fakeSwap]{
		Kind:   swaptypes.KindFromBTC,
		Store:  store,
		Router: router,
		Oracle: oracle,
		Deserialize: func(record storage.Record) (*fakeSwap, error) {
			return record.(*fakeSwap), nil
		},
		TickStates: []swaptypes.State{swaptypes.StatePRCreated},
	})
	return w, store, router
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	w, _, _ := newHarness(t)
	ctx := context.Background()

	require.NoError(t, w.Init(ctx, true, true))
	require.NoError(t, w.Init(ctx, true, true))
	require.True(t, w.initialized)
}

func TestInitReconcilesPastSwapsAndRegistersListener(t *testing.T) {
	t.Parallel()

	w, store, router := newHarness(t)
	swap := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true}
	require.NoError(t, store.Save(swap))

	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, false))

	require.Equal(t, 1, swap.syncCalls)

	router.Dispatch(chainevents.Event{SwapId: "swap-1", Kind: swaptypes.KindFromBTC, Name: "confirmed"})
	require.Equal(t, 1, swap.eventCalls)
}

func TestInitRemovesQuoteExpiredPastSwaps(t *testing.T) {
	t.Parallel()

	w, store, _ := newHarness(t)
	swap := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true, expiry: time.Now().Add(-time.Minute)}
	require.NoError(t, store.Save(swap))

	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, false))

	records, err := store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSaveSwapDataPersistsOnlyInitiated(t *testing.T) {
	t.Parallel()

	w, store, _ := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, true))

	uninitiated := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated}
	require.NoError(t, w.SaveSwapData(uninitiated))
	_, ok := w.lookupPending("swap-1")
	require.True(t, ok)

	records, err := store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Empty(t, records)

	initiated := &fakeSwap{id: "swap-2", state: swaptypes.StatePRCreated, initiated: true}
	require.NoError(t, w.SaveSwapData(initiated))
	records, err = store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestRemoveSwapDataDropsFromStoreAndIndex(t *testing.T) {
	t.Parallel()

	w, store, _ := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, true))

	swap := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true}
	require.NoError(t, w.SaveSwapData(swap))
	require.NoError(t, w.RemoveSwapData("swap-1"))

	_, ok := w.lookupPending("swap-1")
	require.False(t, ok)

	records, err := store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSaveSwapAndRemoveSwapSatisfySwapbaseWrapperHandle(t *testing.T) {
	t.Parallel()

	w, store, _ := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, true))

	var handle swapbase.WrapperHandle = w

	swap := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true}
	require.NoError(t, handle.SaveSwap(swap))

	records, err := store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.NoError(t, handle.RemoveSwap("swap-1"))
	records, err = store.Query(storage.Query{{{Field: KindIndexField, Values: []string{swaptypes.KindFromBTC.String()}}}})
	require.NoError(t, err)
	require.Empty(t, records)
}

type wrongRecordType struct{}

func (wrongRecordType) StorageId() string              { return "wrong" }
func (wrongRecordType) IndexValues() map[string]string { return nil }

func TestSaveSwapRejectsWrongConcreteType(t *testing.T) {
	t.Parallel()

	w, _, _ := newHarness(t)
	err := w.SaveSwap(wrongRecordType{})
	require.Error(t, err)
}

func TestEmitGlobalDeliversToSubscribers(t *testing.T) {
	t.Parallel()

	w, _, _ := newHarness(t)
	ch, id := w.Subscribe(1)
	defer w.Unsubscribe(id)

	w.EmitGlobal(swapbase.StateChangeEvent{SwapId: "swap-1", Kind: swaptypes.KindFromBTC, State: swaptypes.StateClaimClaimed})

	select {
	case event := <-ch:
		require.Equal(t, "swap-1", event.SwapId)
	default:
		t.Fatal("expected event to be delivered")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	w, _, _ := newHarness(t)
	ch, id := w.Subscribe(1)
	w.Unsubscribe(id)

	w.EmitGlobal(swapbase.StateChangeEvent{SwapId: "swap-1"})

	_, open := <-ch
	require.False(t, open)
}

func TestOnEventLoadsFromStoreWhenNotPending(t *testing.T) {
	t.Parallel()

	w, store, _ := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, true))

	swap := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true}
	require.NoError(t, store.Save(swap))

	w.OnEvent(chainevents.Event{SwapId: "swap-1", Kind: swaptypes.KindFromBTC, Name: "confirmed"})
	require.Equal(t, 1, swap.eventCalls)
}

func TestTickOnlyDrivesSwapsInTickStates(t *testing.T) {
	t.Parallel()

	w, _, _ := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, true, true))

	ticked := &fakeSwap{id: "swap-1", state: swaptypes.StatePRCreated, initiated: true}
	notTicked := &fakeSwap{id: "swap-2", state: swaptypes.StateClaimClaimed, initiated: true}
	require.NoError(t, w.SaveSwapData(ticked))
	require.NoError(t, w.SaveSwapData(notTicked))

	w.Tick(ctx)

	require.Equal(t, 1, ticked.tickCalls)
	require.Equal(t, 0, notTicked.tickCalls)
}

func TestStopUnregistersAndStopsTicking(t *testing.T) {
	t.Parallel()

	w, _, router := newHarness(t)
	ctx := context.Background()
	require.NoError(t, w.Init(ctx, false, true))
	require.NotNil(t, w.tickCancel)

	w.Stop()
	require.False(t, w.initialized)

	l := &countingListener{}
	router.Register(swaptypes.KindFromBTC, l)
	router.Dispatch(chainevents.Event{SwapId: "swap-1", Kind: swaptypes.KindFromBTC})
	require.Equal(t, 1, l.calls)
}

type countingListener struct{ calls int }

func (l *countingListener) OnEvent(event chainevents.Event) { l.calls++ }

package chainevents

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

type recordingListener struct {
	events []Event
}

func (l *recordingListener) OnEvent(e Event) {
	l.events = append(l.events, e)
}

func TestDispatchRoutesByKind(t *testing.T) {
	t.Parallel()

	r := New()
	fromBTC := &recordingListener{}
	toBTC := &recordingListener{}
	r.Register(swaptypes.KindFromBTC, fromBTC)
	r.Register(swaptypes.KindToBTC, toBTC)

	r.Dispatch(Event{SwapId: "a", Kind: swaptypes.KindFromBTC, Name: "confirmed"})
	r.Dispatch(Event{SwapId: "b", Kind: swaptypes.KindToBTC, Name: "claimed"})

	require.Len(t, fromBTC.events, 1)
	require.Equal(t, "confirmed", fromBTC.events[0].Name)
	require.Len(t, toBTC.events, 1)
	require.Equal(t, "claimed", toBTC.events[0].Name)
}

func TestDispatchWithNoListenerIsDropped(t *testing.T) {
	t.Parallel()

	r := New()
	require.NotPanics(t, func() {
		r.Dispatch(Event{SwapId: "a", Kind: swaptypes.KindFromLN})
	})
}

func TestBufferingQueuesUntilDrain(t *testing.T) {
	t.Parallel()

	r := New()
	l := &recordingListener{}
	r.Register(swaptypes.KindFromBTC, l)

	r.StartBuffering()
	r.Dispatch(Event{SwapId: "a", Kind: swaptypes.KindFromBTC, Name: "first"})
	r.Dispatch(Event{SwapId: "a", Kind: swaptypes.KindFromBTC, Name: "second"})
	require.Empty(t, l.events)

	r.Drain()
	require.Len(t, l.events, 2)
	require.Equal(t, "first", l.events[0].Name)
	require.Equal(t, "second", l.events[1].Name)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	t.Parallel()

	r := New()
	l := &recordingListener{}
	r.Register(swaptypes.KindFromBTC, l)
	r.Unregister(swaptypes.KindFromBTC)

	r.Dispatch(Event{SwapId: "a", Kind: swaptypes.KindFromBTC})
	require.Empty(t, l.events)
}

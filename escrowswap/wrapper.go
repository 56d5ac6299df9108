package escrowswap

import (
	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/priceoracle"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/wrapperbase"
)

// tickStates lists the escrow states Tick does anything for: quote
// expiry while PR_CREATED/QUOTE_SOFT_EXPIRED, and the FROM_LN_AUTO
// secret-broadcast schedule while CLAIM_COMMITED.
var tickStates = []swaptypes.State{
	swaptypes.StatePRCreated,
	swaptypes.StateQuoteSoftExpired,
	swaptypes.StateClaimCommitted,
}

// Wrapper owns every escrow/HTLC swap of one Kind (FROM_BTC, FROM_LN,
// FROM_LN_AUTO, TO_BTC or TO_LN — one Wrapper per Kind, since the
// storage kind index and chainevents registration are both per-Kind).
// It wires deps/messenger onto every swap it loads or is handed, so
// Sync/Tick/ProcessEvent and the claim/commit/refund operations always
// find live capabilities rather than zero values.
type Wrapper struct {
	*wrapperbase.WrapperBase[*Swap]
	deps      Deps
	messenger Messenger
}

// NewWrapper builds a Wrapper for kind, deserializing persisted records
// back into live *Swap values (MemoryStore holds the struct directly, so
// this cast is the deserializer; a byte-backed store would instead
// decode into a wire.Record and call Deserialize) and attaching deps and
// messenger to each one as it is loaded or registered.
func NewWrapper(kind swaptypes.Kind, store storage.Store, router *chainevents.ChainEventRouter, oracle *priceoracle.RedundantSwapPrice, deps Deps, messenger Messenger) *Wrapper {
	w := &Wrapper{deps: deps, messenger: messenger}
	w.WrapperBase = wrapperbase.New(wrapperbase.Config[*Swap]{
		Kind:   kind,
		Store:  store,
		Router: router,
		Oracle: oracle,
		Deserialize: func(r storage.Record) (*Swap, error) {
			swap, ok := r.(*Swap)
			if !ok {
				return nil, wrapperbase.RecordTypeMismatch(r, (*Swap)(nil))
			}
			swap.Attach(deps, messenger)
			return swap, nil
		},
		TickStates: tickStates,
	})
	return w
}

// Track wires w and deps/messenger onto a freshly constructed swap (one
// not loaded from storage), then persists it if initiated. Every
// swap-creating operation must call Track before returning the swap to
// its caller.
func (w *Wrapper) Track(s *Swap) error {
	s.Init(w)
	s.Attach(w.deps, w.messenger)
	return w.SaveSwapData(s)
}

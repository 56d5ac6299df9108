package spvvault

import (
	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/priceoracle"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/wrapperbase"
)

// tickStates lists the vault states Tick does anything for: quote
// expiry while CREATED/QUOTE_SOFT_EXPIRED, and the Bitcoin
// re-synchronization (run on every tick) while POSTED/BROADCASTED.
var tickStates = []swaptypes.State{
	swaptypes.StateCreated,
	swaptypes.StateQuoteSoftExpired,
	swaptypes.StatePosted,
	swaptypes.StateBroadcasted,
}

// Wrapper owns every SPV-vault swap this process holds. It wires deps
// onto every swap it loads or is handed before returning it.
type Wrapper struct {
	*wrapperbase.WrapperBase[*Swap]
	deps Deps
}

// NewWrapper builds a Wrapper backed by store/router/oracle, attaching
// deps to every swap it loads or registers.
func NewWrapper(store storage.Store, router *chainevents.ChainEventRouter, oracle *priceoracle.RedundantSwapPrice, deps Deps) *Wrapper {
	w := &Wrapper{deps: deps}
	w.WrapperBase = wrapperbase.New(wrapperbase.Config[*Swap]{
		Kind:   swaptypes.KindSpvVaultFromBTC,
		Store:  store,
		Router: router,
		Oracle: oracle,
		Deserialize: func(r storage.Record) (*Swap, error) {
			swap, ok := r.(*Swap)
			if !ok {
				return nil, wrapperbase.RecordTypeMismatch(r, (*Swap)(nil))
			}
			swap.Attach(deps)
			return swap, nil
		},
		TickStates: tickStates,
	})
	return w
}

// Track wires w and deps onto a freshly constructed swap, then persists
// it if initiated.
func (w *Wrapper) Track(s *Swap) error {
	s.Init(w)
	s.Attach(w.deps)
	return w.SaveSwapData(s)
}

package trustedgas

import (
	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/priceoracle"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/wrapperbase"
)

// tickStates lists the gas-drop states Tick does anything for: quote
// expiry while PR_CREATED/QUOTE_SOFT_EXPIRED, and invoice-status
// polling while PR_PAID.
var tickStates = []swaptypes.State{
	swaptypes.StatePRCreated,
	swaptypes.StateQuoteSoftExpired,
	swaptypes.StatePRPaid,
}

// Wrapper owns every trusted gas-drop swap this process holds, of
// either kind (FROM_BTC paying into a gas token directly, FROM_LN
// paying via a Lightning invoice). Both kinds share this one struct and
// its state table, so one Wrapper per Kind is still required — the same
// convention escrowswap.Wrapper uses.
type Wrapper struct {
	*wrapperbase.WrapperBase[*Swap]
	deps Deps
}

// NewWrapper builds a Wrapper for kind, attaching deps to every swap it
// loads or registers.
func NewWrapper(kind swaptypes.Kind, store storage.Store, router *chainevents.ChainEventRouter, oracle *priceoracle.RedundantSwapPrice, deps Deps) *Wrapper {
	w := &Wrapper{deps: deps}
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

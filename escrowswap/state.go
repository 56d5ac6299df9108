package escrowswap

import (
	"time"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

// event names the occurrences that drive the escrow state machine,
// shared across the commit/claim/refund lifecycle and the chain-event
// router's dispatch.
type event string

const (
	eventCommitConfirmed event = "commit_confirmed"
	eventBtcConfirmed    event = "btc_confirmed"
	eventClaimed         event = "claimed"
	eventExpired         event = "expired"
	eventRefunded        event = "refunded"
)

// transitions encodes the escrow state machine as data: (state, event)
// -> next state. Symmetric across FROM_BTC/FROM_LN/FROM_LN_AUTO/TO_BTC/
// TO_LN; only the side that triggers each event differs, not the table
// itself.
var transitions = map[swaptypes.State]map[event]swaptypes.State{
	swaptypes.StatePRCreated: {
		eventCommitConfirmed: swaptypes.StateClaimCommitted,
	},
	swaptypes.StateClaimCommitted: {
		eventBtcConfirmed: swaptypes.StateBTCTxConfirmed,
		eventExpired:      swaptypes.StateExpired,
	},
	swaptypes.StateBTCTxConfirmed: {
		eventClaimed: swaptypes.StateClaimClaimed,
	},
	swaptypes.StateExpired: {
		eventRefunded: swaptypes.StateFailed,
	},
}

// next returns the state transitions[from][e] reaches, or from unchanged
// (and false) if no such transition is defined — including every
// terminal state, which this table never lists as a source, making them
// absorbing by construction.
func next(from swaptypes.State, e event) (swaptypes.State, bool) {
	byEvent, ok := transitions[from]
	if !ok {
		return from, false
	}
	to, ok := byEvent[e]
	if !ok {
		return from, false
	}
	return to, true
}

// softExpire transitions PR_CREATED to QUOTE_SOFT_EXPIRED once the quote
// passes its soft expiry, independent of the event-driven table above
// since it is driven by wall-clock time during sync/tick, not a chain
// event.
func softExpire(s *Swap, now time.Time) bool {
	if s.State != swaptypes.StatePRCreated {
		return false
	}
	if now.Before(s.ExpiresAt) {
		return false
	}
	s.State = swaptypes.StateQuoteSoftExpired
	return true
}

// hardExpire transitions QUOTE_SOFT_EXPIRED to the terminal QUOTE_EXPIRED
// on the first sync/tick that finds the swap soft-expired. It makes no
// contract call: the contract's init-signature expiry is not checked.
func hardExpire(s *Swap) bool {
	if s.State != swaptypes.StateQuoteSoftExpired {
		return false
	}
	s.State = swaptypes.StateQuoteExpired
	return true
}

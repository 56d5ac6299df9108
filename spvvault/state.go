package spvvault

import (
	"time"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

// event names the occurrences driving the vault state machine.
type event string

const (
	eventSigned       event = "signed"
	eventPosted       event = "posted"
	eventDeclined     event = "declined"
	eventBroadcasted  event = "broadcasted"
	eventBtcConfirmed event = "btc_confirmed"
	eventClaimed      event = "claimed"
	eventFronted      event = "fronted"
	eventDoubleSpent  event = "double_spent"
	eventClosed       event = "closed"
	eventParseFailed  event = "parse_failed"
)

// transitions encodes the SpvVaultSwap state machine as data: CREATED ->
// SIGNED -> POSTED -> BROADCASTED -> BTC_TX_CONFIRMED -> {CLAIMED,
// FRONTED}, with DECLINED/CLOSED/FAILED branch-offs and a PARSE_FAILED
// terminal reached directly from CREATED or SIGNED when the signed
// transaction cannot be parsed at all.
var transitions = map[swaptypes.State]map[event]swaptypes.State{
	swaptypes.StateCreated: {
		eventSigned:      swaptypes.StateSigned,
		eventParseFailed: swaptypes.StateParseFailed,
	},
	swaptypes.StateSigned: {
		eventPosted:      swaptypes.StatePosted,
		eventDeclined:    swaptypes.StateDeclined,
		eventParseFailed: swaptypes.StateParseFailed,
	},
	swaptypes.StatePosted: {
		eventBroadcasted: swaptypes.StateBroadcasted,
	},
	swaptypes.StateBroadcasted: {
		eventBtcConfirmed: swaptypes.StateBTCTxConfirmed,
		eventDoubleSpent:  swaptypes.StateFailed,
		eventClosed:       swaptypes.StateClosed,
		eventFronted:      swaptypes.StateFronted,
	},
	swaptypes.StateBTCTxConfirmed: {
		eventClaimed: swaptypes.StateClaimed,
		eventFronted: swaptypes.StateFronted,
		eventClosed:  swaptypes.StateClosed,
	},
}

// next returns the state transitions[from][e] reaches, or from unchanged
// (and false) if no such transition is defined.
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

// softExpire transitions CREATED to QUOTE_SOFT_EXPIRED once the quote's
// soft expiry passes.
func softExpire(s *Swap, now time.Time) bool {
	if s.State != swaptypes.StateCreated {
		return false
	}
	if now.Before(s.ExpiresAt) {
		return false
	}
	s.State = swaptypes.StateQuoteSoftExpired
	return true
}

// hardExpire transitions QUOTE_SOFT_EXPIRED to the terminal
// QUOTE_EXPIRED on the first sync/tick that finds the swap soft-expired.
// It makes no further expiry check of its own.
func hardExpire(s *Swap) bool {
	if s.State != swaptypes.StateQuoteSoftExpired {
		return false
	}
	s.State = swaptypes.StateQuoteExpired
	return true
}

func eventFromName(name string) (event, bool) {
	switch event(name) {
	case eventSigned, eventPosted, eventDeclined, eventBroadcasted,
		eventBtcConfirmed, eventClaimed, eventFronted, eventDoubleSpent,
		eventClosed, eventParseFailed:
		return event(name), true
	default:
		return "", false
	}
}

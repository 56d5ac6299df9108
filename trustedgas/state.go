package trustedgas

import (
	"time"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

// InvoiceStatus mirrors the LP's /invoiceStatus response code.
type InvoiceStatus string

const (
	StatusAwaitPayment InvoiceStatus = "AWAIT_PAYMENT"
	StatusPending      InvoiceStatus = "PENDING"
	StatusTxSent       InvoiceStatus = "TX_SENT"
	StatusPaid         InvoiceStatus = "PAID"
	StatusExpired      InvoiceStatus = "EXPIRED"
	StatusRefunded     InvoiceStatus = "REFUNDED"
	StatusRefundable   InvoiceStatus = "REFUNDABLE"
)

// event names the occurrences driving the trusted-gas state machine.
type event string

const (
	eventPaid        event = "paid"
	eventFinished    event = "finished"
	eventExpired     event = "expired"
	eventFailed      event = "failed"
	eventRefunded    event = "refunded"
	eventRefundable  event = "refundable"
)

// transitions encodes the TrustedGasSwap state machine as data:
// PR_CREATED -> PR_PAID -> FINISHED, with EXPIRED/FAILED/REFUNDED/
// REFUNDABLE branches.
var transitions = map[swaptypes.State]map[event]swaptypes.State{
	swaptypes.StatePRCreated: {
		eventPaid:       swaptypes.StatePRPaid,
		eventExpired:    swaptypes.StateExpired,
		eventFailed:     swaptypes.StateFailed,
		eventRefunded:   swaptypes.StateRefunded,
		eventRefundable: swaptypes.StateRefundable,
	},
	swaptypes.StatePRPaid: {
		eventFinished:   swaptypes.StateFinished,
		eventFailed:     swaptypes.StateFailed,
		eventRefunded:   swaptypes.StateRefunded,
		eventRefundable: swaptypes.StateRefundable,
	},
	swaptypes.StateRefundable: {
		eventRefunded: swaptypes.StateRefunded,
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

// eventFromStatus maps an LP /invoiceStatus response code onto the
// state-machine event it drives. StatusPending/StatusTxSent carry no
// state transition of their own: they are intermediate polling states
// the caller observes but that do not move PR_CREATED forward until
// either PAID settles or EXPIRED/REFUNDED/REFUNDABLE definitively ends
// it.
func eventFromStatus(status InvoiceStatus) (event, bool) {
	switch status {
	case StatusPaid:
		return eventPaid, true
	case StatusExpired:
		return eventExpired, true
	case StatusRefunded:
		return eventRefunded, true
	case StatusRefundable:
		return eventRefundable, true
	default:
		return "", false
	}
}

// softExpire transitions PR_CREATED to QUOTE_SOFT_EXPIRED once the
// quote's own expiry passes without a payment ever being observed.
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

// hardExpire transitions QUOTE_SOFT_EXPIRED to the terminal
// QUOTE_EXPIRED.
func hardExpire(s *Swap) bool {
	if s.State != swaptypes.StateQuoteSoftExpired {
		return false
	}
	s.State = swaptypes.StateQuoteExpired
	return true
}

package swaptypes

// State is a kind-specific progress marker. Values are grouped below by
// the kind that introduced them, but kinds also reuse other groups' states
// (the vault and gas kinds the quote-expiry states, the vault kind
// BTC_TX_CONFIRMED, the gas kind PR_CREATED/EXPIRED/FAILED), so one kind's
// states are not one contiguous range; the transition tables that police moves
// between them live alongside each concrete swap package (escrowswap,
// spvvault, trustedgas) rather than here, since a state machine should
// be data, not inlined conditionals.
type State int32

const (
	StateUnknown State = iota

	// EscrowSwap states, shared by FROM_BTC/FROM_LN/TO_BTC/TO_LN
	// and the LightningAutoSwap variant.
	StatePRCreated
	StateClaimCommitted
	StateBTCTxConfirmed
	StateClaimClaimed
	StateQuoteSoftExpired
	StateQuoteExpired
	StateExpired
	StateFailed

	// SpvVaultSwap states.
	StateCreated
	StateSigned
	StatePosted
	StateBroadcasted
	StateClaimed
	StateFronted
	StateDeclined
	StateClosed

	// TrustedGasSwap states.
	StatePRPaid
	StateFinished
	StateRefunded
	StateRefundable

	// StateParseFailed is reached when submitPsbt's parsed SpvWithdrawalData
	// does not round-trip the broadcast transaction at all (a malformed or
	// unparseable tx, as opposed to one that parses but mismatches the
	// quote). Decided in favor of a dedicated terminal state rather than
	// collapsing into CLOSED, so callers can tell "LP/contract rejected a
	// well-formed tx" apart from "the tx itself was unparseable".
	StateParseFailed
)

func (s State) String() string {
	switch s {
	case StatePRCreated:
		return "PR_CREATED"
	case StateClaimCommitted:
		return "CLAIM_COMMITED"
	case StateBTCTxConfirmed:
		return "BTC_TX_CONFIRMED"
	case StateClaimClaimed:
		return "CLAIM_CLAIMED"
	case StateQuoteSoftExpired:
		return "QUOTE_SOFT_EXPIRED"
	case StateQuoteExpired:
		return "QUOTE_EXPIRED"
	case StateExpired:
		return "EXPIRED"
	case StateFailed:
		return "FAILED"
	case StateCreated:
		return "CREATED"
	case StateSigned:
		return "SIGNED"
	case StatePosted:
		return "POSTED"
	case StateBroadcasted:
		return "BROADCASTED"
	case StateClaimed:
		return "CLAIMED"
	case StateFronted:
		return "FRONTED"
	case StateDeclined:
		return "DECLINED"
	case StateClosed:
		return "CLOSED"
	case StatePRPaid:
		return "PR_PAID"
	case StateFinished:
		return "FINISHED"
	case StateRefunded:
		return "REFUNDED"
	case StateRefundable:
		return "REFUNDABLE"
	case StateParseFailed:
		return "PARSE_FAILED"
	default:
		return "UNKNOWN"
	}
}

// CompareMode is the relational operator waitTillState applies between the
// current state and a target
type CompareMode uint8

const (
	CompareEq CompareMode = iota
	CompareGte
	CompareNeq
)

// Satisfies reports whether current relates to target as mode demands. Gte
// compares the raw numeric State value, i.e. declaration order, which
// follows a kind's progress only among states of one group above.
func (mode CompareMode) Satisfies(current, target State) bool {
	switch mode {
	case CompareEq:
		return current == target
	case CompareGte:
		return current >= target
	case CompareNeq:
		return current != target
	default:
		return false
	}
}

// TerminalStates enumerates the absorbing states across all kinds, used by
// WrapperBase to decide whether a loaded swap still needs a tick or event
// listener.
var TerminalStates = map[State]bool{
	StateClaimClaimed: true,
	StateQuoteExpired:  true,
	StateFailed:        true,
	StateClaimed:       true,
	StateFronted:       true,
	StateDeclined:      true,
	StateClosed:        true,
	StateFinished:      true,
	StateRefunded:      true,
	StateParseFailed:   true,
}

// IsTerminal reports whether s is an absorbing state for any kind.
func IsTerminal(s State) bool {
	return TerminalStates[s]
}

// IsSuccess reports whether s is a terminal *successful* state, as
// opposed to a failed or quote-expired terminal state.
func IsSuccess(s State) bool {
	switch s {
	case StateClaimClaimed, StateClaimed, StateFronted, StateFinished:
		return true
	default:
		return false
	}
}

// Package escrowswap implements the escrow/HTLC family of swap kinds
// (FROM_BTC, FROM_LN, FROM_LN_AUTO, TO_BTC, TO_LN): a smart-chain escrow
// contract locking funds under a hash-time-locked condition, claimed by
// revealing a pre-image or, on expiry, refunded back to its depositor.
package escrowswap

import (
	"time"

	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// Swap is one escrow/HTLC swap of any of the FROM_BTC, FROM_LN,
// FROM_LN_AUTO, TO_BTC, TO_LN kinds. The same struct serves every kind;
// direction-specific behavior branches on Kind/Direction rather than
// through separate types, since the state machine and quote-verification
// shape are identical across them.
type Swap struct {
	swapbase.SwapBase

	Data swaptypes.SwapData

	// Initiator is the smart-chain address expected to sign the commit
	// transaction; Commit refuses to proceed if the configured signer's
	// address differs.
	Initiator string

	// EscrowHash identifies the on-chain escrow contract instance this
	// swap claims/refunds against.
	EscrowHash [32]byte

	// BtcAddress is the Bitcoin address (FROM_BTC/TO_BTC) or decoded
	// payment hash carrier (FROM_LN/TO_LN) the user or LP pays into.
	BtcAddress string

	// RequiredConfirmations is the number of Bitcoin confirmations the
	// watch loop waits for before considering the payment final. It may
	// be supplied directly by the quote or inferred by replaying the
	// claim-hash commitment (see InferRequiredConfirmations).
	RequiredConfirmations uint32

	// VoutHint narrows which output of the matched transaction pays the
	// escrow, when more than one output could plausibly match.
	VoutHint uint32

	CommitTxId string
	ClaimTxId  string
	RefundTxId string

	// Secret is the HTLC pre-image, known once the destination side of
	// the swap has been paid (FROM_LN/FROM_LN_AUTO) or once the user
	// reveals it to claim (TO_LN).
	Secret    [32]byte
	HasSecret bool

	// BroadcastTick counts ticks since CLAIM_COMMITED was reached, used
	// by the FROM_LN_AUTO variant to broadcast the secret over the
	// messenger gossip plane on every third tick.
	BroadcastTick uint8

	ExpiresAt time.Time

	// deps and messenger are transient capability handles, attached after
	// construction or deserialization by the owning wrapper, never
	// persisted: Sync/Tick/ProcessEvent and the user-invoked operations
	// all read them off the swap itself rather than threading them
	// through every call signature.
	deps      Deps
	messenger Messenger
}

// Attach wires deps (and, for FROM_LN_AUTO, messenger) onto the swap.
// Must be called once after construction or deserialization, before any
// operation that touches the chain or the gossip plane.
func (s *Swap) Attach(deps Deps, messenger Messenger) {
	s.deps = deps
	s.messenger = messenger
}

func (s *Swap) StorageId() string { return s.Id }

func (s *Swap) IndexValues() map[string]string {
	values := map[string]string{
		"kind":  s.Kind.String(),
		"state": s.State.String(),
	}
	if s.CommitTxId != "" {
		values["commitTxId"] = s.CommitTxId
	}
	return values
}

func (s *Swap) GetState() swaptypes.State { return s.State }

func (s *Swap) IsInitiated() bool { return s.Initiated }

// IsAutoVariant reports whether this swap is the gossip-mediated
// FROM_LN_AUTO variant, which broadcasts its secret instead of waiting
// for the user to submit a claim transaction.
func (s *Swap) IsAutoVariant() bool {
	return s.Kind == swaptypes.KindFromLNAuto
}

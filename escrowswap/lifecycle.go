package escrowswap

import (
	"context"
	"time"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/internal/buildlog"
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/watchtower"
)

var log = buildlog.NewSubLogger("ESCR")

// Deps bundles the capability set an escrow swap's commit/claim/refund
// operations and its background Sync/Tick need, resolved once by the
// owning wrapper and passed to every operation explicitly rather than
// stored on Swap (Swap must stay serializable; capabilities are not).
type Deps struct {
	Signer     swaptypes.SignerCapability
	Chain      swaptypes.ChainInterfaceCapability
	Contract   swaptypes.ContractCapability
	BtcRpc     swaptypes.BitcoinRpcCapability
	Sync       swaptypes.RelaySynchronizerCapability
	Watchtower watchtower.Config
}

// Commit drives PR_CREATED -> CLAIM_COMMITED: verifies the attached
// signer matches the swap's recorded initiator, builds and signs the
// escrow-init transaction, broadcasts it, and records CommitTxId before
// advancing state.
func (s *Swap) Commit(ctx context.Context) error {
	if s.State != swaptypes.StatePRCreated {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StatePRCreated.String()}
	}
	if s.deps.Signer.Address() != s.Initiator {
		return &swaperr.UserError{Reason: "configured signer does not match swap initiator"}
	}

	intent, err := s.deps.Contract.BuildCommitTransaction(ctx, s.Data)
	if err != nil {
		return err
	}
	signed, err := s.deps.Signer.SignTransaction(ctx, intent)
	if err != nil {
		return err
	}
	txId, err := s.deps.Chain.SendTransaction(ctx, signed)
	if err != nil {
		return err
	}

	s.CommitTxId = txId
	target := swaptypes.StateClaimCommitted
	return s.SaveAndEmit(s, &target)
}

// Claim drives BTC_TX_CONFIRMED -> CLAIM_CLAIMED using whichever proof is
// available: a known HTLC secret pre-image (FROM_LN/FROM_LN_AUTO/TO_LN),
// or an SPV proof of the matching Bitcoin payment (FROM_BTC/TO_BTC). A
// claim attempt that fails while the contract already reports the escrow
// PAID is treated as already-settled rather than an error, matching a
// watchtower having claimed first.
func (s *Swap) Claim(ctx context.Context, proof *swaptypes.BitcoinTxProof, confirmations uint32) error {
	if s.State != swaptypes.StateBTCTxConfirmed {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StateBTCTxConfirmed.String()}
	}

	var (
		intent []byte
		err    error
	)
	switch {
	case s.HasSecret:
		intent, err = s.deps.Contract.BuildClaimTransactionWithSecret(ctx, s.Data, s.Secret)
	case proof != nil:
		intent, err = s.deps.Contract.BuildClaimTransactionWithTxData(ctx, s.Data, *proof, confirmations, s.VoutHint, s.deps.Sync)
	default:
		return &swaperr.UserError{Reason: "claim requires either a known secret or an SPV proof"}
	}
	if err != nil {
		return err
	}

	signed, err := s.deps.Signer.SignTransaction(ctx, intent)
	if err != nil {
		return err
	}
	txId, sendErr := s.deps.Chain.SendTransaction(ctx, signed)
	if sendErr != nil {
		if s.alreadyPaid() {
			return s.finishClaimed(ctx, "")
		}
		return sendErr
	}

	return s.finishClaimed(ctx, txId)
}

func (s *Swap) finishClaimed(ctx context.Context, txId string) error {
	s.ClaimTxId = txId
	target := swaptypes.StateClaimClaimed
	return s.SaveAndEmit(s, &target)
}

func (s *Swap) alreadyPaid() bool {
	kind, _, err := s.deps.Contract.ObserveSettlement(s.Id)
	if err != nil {
		return false
	}
	return kind == watchtower.SettlementClaimed
}

// Refund drives EXPIRED -> FAILED once the on-chain escrow's expiry has
// passed and the LP (or user, for TO_BTC/TO_LN) reclaims the deposited
// funds.
func (s *Swap) Refund(ctx context.Context) error {
	if s.State != swaptypes.StateExpired {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StateExpired.String()}
	}

	intent, err := s.deps.Contract.BuildRefundTransaction(ctx, s.Data)
	if err != nil {
		return err
	}
	signed, err := s.deps.Signer.SignTransaction(ctx, intent)
	if err != nil {
		return err
	}
	txId, err := s.deps.Chain.SendTransaction(ctx, signed)
	if err != nil {
		return err
	}

	s.RefundTxId = txId
	target := swaptypes.StateFailed
	return s.SaveAndEmit(s, &target)
}

// Sync reconciles persisted state against current chain reality: applies
// soft/hard quote expiry, detects an on-chain escrow expiry while
// CLAIM_COMMITED, and checks for an automatic watchtower claim while
// BTC_TX_CONFIRMED.
func (s *Swap) Sync(ctx context.Context) (bool, error) {
	now := time.Now()
	if softExpire(s, now) {
		return true, nil
	}
	if hardExpire(s) {
		return true, nil
	}

	switch s.State {
	case swaptypes.StateClaimCommitted:
		if s.Data != nil && now.Unix() > s.Data.GetExpiry() {
			s.State = swaptypes.StateExpired
			return true, nil
		}
	case swaptypes.StateBTCTxConfirmed:
		if s.deps.Contract != nil && s.alreadyPaid() {
			return true, s.finishClaimed(ctx, "")
		}
	}

	return false, nil
}

// Tick drives periodic, non-user-invoked progress: soft/hard quote
// expiry while PR_CREATED, and the FROM_LN_AUTO secret-broadcast
// schedule while CLAIM_COMMITED.
func (s *Swap) Tick(ctx context.Context) (bool, error) {
	now := time.Now()
	if softExpire(s, now) {
		return true, nil
	}
	if hardExpire(s) {
		return true, nil
	}

	if s.IsAutoVariant() && s.State == swaptypes.StateClaimCommitted {
		return s.tickAutoBroadcast(ctx)
	}

	return false, nil
}

// ProcessEvent applies a chainevents.Event to the escrow state machine:
// commit confirmation, Bitcoin payment confirmation, and claim
// observation all arrive this way rather than through Commit/Claim
// directly, since the owning wrapper's chain watch loops (not the user)
// detect them.
func (s *Swap) ProcessEvent(ctx context.Context, ev chainevents.Event) (bool, error) {
	e, ok := eventFromName(ev.Name)
	if !ok {
		log.Debugf("escrow swap %s ignoring unrecognized event %q", s.Id, ev.Name)
		return false, nil
	}

	to, transitioned := next(s.State, e)
	if !transitioned {
		return false, nil
	}

	if e == eventBtcConfirmed {
		if vout, ok := ev.Payload.(uint32); ok {
			s.VoutHint = vout
		}
	}

	s.State = to
	return true, nil
}

func eventFromName(name string) (event, bool) {
	switch event(name) {
	case eventCommitConfirmed, eventBtcConfirmed, eventClaimed, eventExpired, eventRefunded:
		return event(name), true
	default:
		return "", false
	}
}

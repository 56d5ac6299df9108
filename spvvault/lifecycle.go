package spvvault

import (
	"context"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/wire"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/internal/buildlog"
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/watchtower"
)

var log = buildlog.NewSubLogger("SPVV")

// resyncInterval is the Bitcoin re-synchronization period for POSTED or
// BROADCASTED swaps. Sync and Tick do not consult it: each call of either
// re-checks bitcoin.
const resyncInterval = 120 * time.Second

// WalletSigner is the external wallet capability: given the unsigned
// vault-withdrawal transaction, it signs every input (including
// producing the vault's own unlocking witness for input 0, which only
// the LP-cosigning flow can authorize) and returns the finished raw
// transaction bytes.
type WalletSigner interface {
	SignPsbt(ctx context.Context, unsignedTx *wire.MsgTx) (rawTx []byte, err error)
}

// LpClient is the LP HTTP surface this swap kind drives:
// POST {lpUrl}/frombtc_spv/postPsbt.
type LpClient interface {
	PostPsbt(ctx context.Context, quoteId string, rawTx []byte) error
}

// Deps bundles the capability set a vault swap's operations and
// background Sync/Tick need.
type Deps struct {
	Wallet     WalletSigner
	Contract   swaptypes.SpvContractCapability
	BtcRpc     swaptypes.BitcoinRpcCapability
	Lp         LpClient
	Watchtower watchtower.Config
}

// Sign assembles the unsigned withdrawal transaction, has the wallet
// sign it, and validates the signed result against the quote before
// advancing CREATED -> SIGNED. An unparsable signed transaction moves
// the swap to the terminal StateParseFailed rather than leaving it in
// CREATED. The signed transaction's LP destination output is not compared
// against expected.BtcDestinationScript or expected.BtcAmount.
func (s *Swap) Sign(ctx context.Context, params BuildParams, expected ExpectedQuote) error {
	if s.State != swaptypes.StateCreated {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StateCreated.String()}
	}

	unsigned, err := BuildPsbt(params)
	if err != nil {
		return err
	}

	rawTx, err := s.deps.Wallet.SignPsbt(ctx, unsigned)
	if err != nil {
		return err
	}

	parsed, err := s.deps.Contract.ParseWithdrawalTransaction(ctx, rawTx)
	if err != nil {
		target := swaptypes.StateParseFailed
		if saveErr := s.SaveAndEmit(s, &target); saveErr != nil {
			return saveErr
		}
		return err
	}

	if err := VerifySubmittedWithdrawal(parsed, expected); err != nil {
		return err
	}

	spent, err := s.deps.Contract.IsVaultUtxoSpent(ctx, s.VaultUtxoTxId, s.VaultUtxoVout)
	if err != nil {
		return err
	}
	if spent {
		return &swaperr.IntermediaryError{Reason: "vault utxo already spent"}
	}

	s.RawSignedTx = rawTx
	s.PsbtTxId = parsed.GetTxId()
	target := swaptypes.StateSigned
	return s.SaveAndEmit(s, &target)
}

// Post submits the signed transaction to the LP's /frombtc_spv/postPsbt
// endpoint, driving SIGNED -> POSTED on LP acceptance or SIGNED ->
// DECLINED on LP rejection.
func (s *Swap) Post(ctx context.Context) error {
	if s.State != swaptypes.StateSigned {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StateSigned.String()}
	}

	err := s.deps.Lp.PostPsbt(ctx, s.QuoteId, s.RawSignedTx)
	if err != nil {
		var intermediary *swaperr.IntermediaryError
		if isIntermediary(err, &intermediary) {
			target := swaptypes.StateDeclined
			if saveErr := s.SaveAndEmit(s, &target); saveErr != nil {
				return saveErr
			}
		}
		return err
	}

	target := swaptypes.StatePosted
	return s.SaveAndEmit(s, &target)
}

func isIntermediary(err error, target **swaperr.IntermediaryError) bool {
	e, ok := err.(*swaperr.IntermediaryError)
	if ok {
		*target = e
	}
	return ok
}

// Broadcast submits the signed transaction to the Bitcoin network
// directly, driving POSTED -> BROADCASTED. Used when the swap wallet
// itself (rather than the LP) is responsible for broadcast.
func (s *Swap) Broadcast(ctx context.Context) error {
	if s.State != swaptypes.StatePosted {
		return &swaperr.InvalidStateError{Have: s.State.String(), Want: swaptypes.StatePosted.String()}
	}

	if err := s.deps.BtcRpc.BroadcastTransaction(ctx, s.RawSignedTx); err != nil {
		return err
	}

	target := swaptypes.StateBroadcasted
	return s.SaveAndEmit(s, &target)
}

// Sync reconciles persisted state against current chain/LP reality:
// soft/hard quote expiry, periodic Bitcoin re-synchronization while
// POSTED/BROADCASTED, and settlement observation (claimed/fronted) while
// BTC_TX_CONFIRMED. Contract closure and double-spend detection of a
// funded input arrive as chain events via ProcessEvent, not through
// polling here.
func (s *Swap) Sync(ctx context.Context) (bool, error) {
	now := time.Now()
	if softExpire(s, now) {
		return true, nil
	}
	if hardExpire(s) {
		return true, nil
	}

	switch s.State {
	case swaptypes.StatePosted, swaptypes.StateBroadcasted:
		return s.syncBitcoin(ctx)
	case swaptypes.StateBTCTxConfirmed:
		return s.syncSettlement(ctx)
	}

	return false, nil
}

func (s *Swap) syncBitcoin(ctx context.Context) (bool, error) {
	if s.deps.BtcRpc == nil {
		return false, nil
	}

	_, confs, err := s.deps.BtcRpc.GetTransaction(ctx, s.PsbtTxId)
	if err != nil {
		return false, err
	}
	if confs == 0 {
		return false, nil
	}
	if confs < s.VaultRequiredConfirmations {
		return false, nil
	}

	log.Debugf("spv vault swap %s: withdrawal tx confirmed, replaying %s",
		s.Id, dcrutil.Amount(s.VaultUtxoValue))
	s.State = swaptypes.StateBTCTxConfirmed
	return true, nil
}

func (s *Swap) syncSettlement(ctx context.Context) (bool, error) {
	if !s.ShouldCheckWithdrawalState() || s.deps.Contract == nil {
		return false, nil
	}

	kind, txId, err := s.deps.Contract.ObserveSettlement(s.Id)
	if err != nil {
		return false, err
	}

	switch kind {
	case watchtower.SettlementClaimed:
		s.State = swaptypes.StateClaimed
		_ = txId
		return true, nil
	case watchtower.SettlementFronted:
		s.State = swaptypes.StateFronted
		return true, nil
	}
	return false, nil
}

// Tick drives periodic non-event-invoked progress: soft/hard quote
// expiry while CREATED, and a Bitcoin re-synchronization on every tick
// while POSTED/BROADCASTED (resyncInterval is not applied).
func (s *Swap) Tick(ctx context.Context) (bool, error) {
	now := time.Now()
	if softExpire(s, now) {
		return true, nil
	}
	if hardExpire(s) {
		return true, nil
	}

	switch s.State {
	case swaptypes.StatePosted, swaptypes.StateBroadcasted:
		return s.syncBitcoin(ctx)
	}

	return false, nil
}

// ProcessEvent applies a chainevents.Event to the vault state machine.
func (s *Swap) ProcessEvent(ctx context.Context, ev chainevents.Event) (bool, error) {
	e, ok := eventFromName(ev.Name)
	if !ok {
		log.Debugf("spv vault swap %s ignoring unrecognized event %q", s.Id, ev.Name)
		return false, nil
	}

	to, transitioned := next(s.State, e)
	if !transitioned {
		return false, nil
	}

	if e == eventFronted {
		if addr, ok := ev.Payload.(string); ok {
			s.FronterAddress = addr
		}
	}

	s.State = to
	return true, nil
}

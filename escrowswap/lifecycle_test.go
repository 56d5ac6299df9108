package escrowswap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/storage"
	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaptypes"
	"github.com/atomiqlabs/swapengine/watchtower"
)

type fakeSwapData struct {
	claimer   string
	offerer   string
	claimHash [32]byte
	expiry    int64
}

func (d *fakeSwapData) GetClaimer() string         { return d.claimer }
func (d *fakeSwapData) GetOfferer() string         { return d.offerer }
func (d *fakeSwapData) GetAmount() uint64          { return 1000 }
func (d *fakeSwapData) GetToken() string           { return "TOKEN" }
func (d *fakeSwapData) GetDepositToken() string    { return "BTC" }
func (d *fakeSwapData) GetSecurityDeposit() uint64 { return 0 }
func (d *fakeSwapData) GetClaimerBounty() uint64   { return 0 }
func (d *fakeSwapData) GetClaimHash() [32]byte     { return d.claimHash }
func (d *fakeSwapData) GetEscrowHash() [32]byte    { return [32]byte{} }
func (d *fakeSwapData) GetExpiry() int64           { return d.expiry }
func (d *fakeSwapData) GetType() string            { return "CHAIN" }
func (d *fakeSwapData) GetSequence() uint64        { return 0 }
func (d *fakeSwapData) IsPayIn() bool              { return true }
func (d *fakeSwapData) IsPayOut() bool             { return false }
func (d *fakeSwapData) HasSuccessAction() bool     { return false }
func (d *fakeSwapData) Serialize() ([]byte, error) { return []byte("data"), nil }

type fakeSigner struct {
	address string
	signed  []byte
	signErr error
}

func (s *fakeSigner) Address() string { return s.address }
func (s *fakeSigner) SignTransaction(ctx context.Context, intent []byte) ([]byte, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	return s.signed, nil
}

type fakeChain struct {
	txId    string
	sendErr error
}

func (c *fakeChain) SendTransaction(ctx context.Context, signedTx []byte) (string, error) {
	if c.sendErr != nil {
		return "", c.sendErr
	}
	return c.txId, nil
}
func (c *fakeChain) GetTransactionConfirmations(ctx context.Context, txId string) (uint32, error) {
	return 6, nil
}
func (c *fakeChain) GetBlockHeight(ctx context.Context) (uint64, error) { return 100, nil }

type fakeContract struct {
	settlement    watchtower.SettlementKind
	settlementId  string
	settlementErr error
	commitIntent  []byte
	claimIntent   []byte
	refundIntent  []byte
}

func (c *fakeContract) ObserveSettlement(id string) (watchtower.SettlementKind, string, error) {
	if c.settlementErr != nil {
		return watchtower.SettlementNone, "", c.settlementErr
	}
	return c.settlement, c.settlementId, nil
}
func (c *fakeContract) VerifyInitSignature(ctx context.Context, quote []byte, signature []byte) (swaptypes.SwapData, error) {
	return nil, nil
}
func (c *fakeContract) BuildCommitTransaction(ctx context.Context, data swaptypes.SwapData) ([]byte, error) {
	return c.commitIntent, nil
}
func (c *fakeContract) BuildClaimTransactionWithSecret(ctx context.Context, data swaptypes.SwapData, secret [32]byte) ([]byte, error) {
	return c.claimIntent, nil
}
func (c *fakeContract) BuildClaimTransactionWithTxData(ctx context.Context, data swaptypes.SwapData, proof swaptypes.BitcoinTxProof, confirmations uint32, vout uint32, sync swaptypes.RelaySynchronizerCapability) ([]byte, error) {
	return c.claimIntent, nil
}
func (c *fakeContract) BuildRefundTransaction(ctx context.Context, data swaptypes.SwapData) ([]byte, error) {
	return c.refundIntent, nil
}
func (c *fakeContract) HashHTLC(secret [32]byte) [32]byte {
	return ComputeClaimHash(secret[:], 0, 0)
}

type fakeWrapper struct {
	saved   map[string]storage.Record
	removed map[string]bool
	emitted int
}

func newFakeWrapper() *fakeWrapper {
	return &fakeWrapper{saved: make(map[string]storage.Record), removed: make(map[string]bool)}
}
func (w *fakeWrapper) SaveSwap(r storage.Record) error {
	w.saved[r.StorageId()] = r
	return nil
}
func (w *fakeWrapper) RemoveSwap(id string) error {
	w.removed[id] = true
	return nil
}
func (w *fakeWrapper) EmitGlobal(e swapbase.StateChangeEvent) {
	w.emitted++
}

func newTestSwap(t *testing.T) *Swap {
	t.Helper()
	s := &Swap{}
	s.Id = "swap-1"
	s.Kind = swaptypes.KindFromBTC
	s.Direction = swaptypes.DirectionFromBTC
	s.Initiated = true
	s.Expiry = time.Now().Add(time.Hour).UnixMilli()
	s.ExpiresAt = time.Now().Add(time.Hour)
	s.Initiator = "user-address"
	s.Data = &fakeSwapData{claimer: "user-address", offerer: "lp-address", expiry: time.Now().Add(time.Hour).Unix()}
	return s
}

func TestCommitAdvancesStateOnSuccess(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	wrapper := newFakeWrapper()
	s.Init(wrapper)
	s.Attach(Deps{
		Signer:   &fakeSigner{address: "user-address", signed: []byte("tx")},
		Chain:    &fakeChain{txId: "commit-tx"},
		Contract: &fakeContract{commitIntent: []byte("intent")},
	}, nil)

	require.NoError(t, s.Commit(context.Background()))
	require.Equal(t, swaptypes.StateClaimCommitted, s.State)
	require.Equal(t, "commit-tx", s.CommitTxId)
}

func TestCommitRejectsWrongSigner(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.Init(newFakeWrapper())
	s.Attach(Deps{Signer: &fakeSigner{address: "someone-else"}}, nil)

	require.Error(t, s.Commit(context.Background()))
	require.Equal(t, swaptypes.StatePRCreated, s.State)
}

func TestClaimFallsBackToAlreadyPaidOnSendFailure(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.State = swaptypes.StateBTCTxConfirmed
	s.HasSecret = true
	s.Secret = [32]byte{0x01}
	s.Init(newFakeWrapper())
	s.Attach(Deps{
		Signer:   &fakeSigner{address: "user-address", signed: []byte("tx")},
		Chain:    &fakeChain{sendErr: errAlreadyClaimed},
		Contract: &fakeContract{claimIntent: []byte("intent"), settlement: watchtower.SettlementClaimed},
	}, nil)

	require.NoError(t, s.Claim(context.Background(), nil, 0))
	require.Equal(t, swaptypes.StateClaimClaimed, s.State)
}

func TestRefundAdvancesToFailed(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.State = swaptypes.StateExpired
	s.Init(newFakeWrapper())
	s.Attach(Deps{
		Signer:   &fakeSigner{address: "user-address", signed: []byte("tx")},
		Chain:    &fakeChain{txId: "refund-tx"},
		Contract: &fakeContract{refundIntent: []byte("intent")},
	}, nil)

	require.NoError(t, s.Refund(context.Background()))
	require.Equal(t, swaptypes.StateFailed, s.State)
	require.Equal(t, "refund-tx", s.RefundTxId)
}

func TestSyncSoftExpiresPastQuoteExpiry(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.ExpiresAt = time.Now().Add(-time.Minute)
	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateQuoteSoftExpired, s.State)
}

func TestSyncExpiresEscrowPastContractExpiry(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.State = swaptypes.StateClaimCommitted
	s.Data = &fakeSwapData{expiry: time.Now().Add(-time.Hour).Unix()}

	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateExpired, s.State)
}

func TestProcessEventTransitionsOnRecognizedEvent(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	changed, err := s.ProcessEvent(context.Background(), chainevents.Event{Name: "commit_confirmed"})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateClaimCommitted, s.State)
}

func TestProcessEventIgnoresUnrecognizedEvent(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	changed, err := s.ProcessEvent(context.Background(), chainevents.Event{Name: "something_else"})
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, swaptypes.StatePRCreated, s.State)
}

func TestTickBroadcastsSecretOnThirdTickForAutoVariant(t *testing.T) {
	t.Parallel()

	s := newTestSwap(t)
	s.Kind = swaptypes.KindFromLNAuto
	s.State = swaptypes.StateClaimCommitted
	s.HasSecret = true
	s.Secret = [32]byte{0x01}
	s.Data = &fakeSwapData{expiry: time.Now().Add(time.Hour).Unix(), claimHash: ComputeClaimHash(s.Secret[:], 0, 0)}

	messenger := &recordingMessenger{}
	s.Attach(Deps{Contract: &fakeContract{}}, messenger)

	for i := 0; i < 2; i++ {
		changed, err := s.Tick(context.Background())
		require.NoError(t, err)
		require.True(t, changed)
		require.Empty(t, messenger.broadcasts)
	}

	changed, err := s.Tick(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Len(t, messenger.broadcasts, 1)
}

type recordingMessenger struct {
	broadcasts []ClaimWitnessMessage
}

func (m *recordingMessenger) Broadcast(ctx context.Context, msg ClaimWitnessMessage) error {
	m.broadcasts = append(m.broadcasts, msg)
	return nil
}

var errAlreadyClaimed = &sendError{"already claimed by watchtower"}

type sendError struct{ msg string }

func (e *sendError) Error() string { return e.msg }

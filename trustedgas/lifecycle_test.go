package trustedgas

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

type fakeLpClient struct {
	responses []InvoiceStatusResponse
	i         int
	err       error
}

func (l *fakeLpClient) GetInvoiceStatus(ctx context.Context, paymentHash string) (InvoiceStatusResponse, error) {
	if l.err != nil {
		return InvoiceStatusResponse{}, l.err
	}
	if l.i >= len(l.responses) {
		return l.responses[len(l.responses)-1], nil
	}
	r := l.responses[l.i]
	l.i++
	return r, nil
}

type fakeChainStatus struct {
	status string
	err    error
}

func (c *fakeChainStatus) GetTxIdStatus(ctx context.Context, txId string) (string, error) {
	return c.status, c.err
}

func newTestSwap() *Swap {
	s := &Swap{}
	s.Id = "payment-hash-1"
	s.Kind = swaptypes.KindTrustedFromLN
	s.Direction = swaptypes.DirectionFromBTC
	s.State = swaptypes.StatePRCreated
	s.ExpiresAt = time.Now().Add(time.Hour)
	s.Expiry = s.ExpiresAt.UnixMilli()
	s.Total = 1_000_000
	s.SwapFeeSats = 1
	return s
}

// TestHappyPathWalksAwaitPaymentThroughFinished replays spec §8 scenario
// 1's exact status sequence: AWAIT_PAYMENT -> PENDING -> TX_SENT("abc")
// -> PAID("abc"), with chain.GetTxIdStatus("abc") == "success" completing
// the swap at FINISHED with the observed output tx id retained.
func TestHappyPathWalksAwaitPaymentThroughFinished(t *testing.T) {
	t.Parallel()

	s := newTestSwap()
	lp := &fakeLpClient{responses: []InvoiceStatusResponse{
		{Code: StatusAwaitPayment},
	}}
	chain := &fakeChainStatus{status: "success"}
	s.Attach(Deps{Lp: lp, Chain: chain})

	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, swaptypes.StatePRCreated, s.State)

	lp.responses = []InvoiceStatusResponse{{Code: StatusPending}}
	lp.i = 0
	changed, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, swaptypes.StatePRCreated, s.State)

	lp.responses = []InvoiceStatusResponse{{Code: StatusTxSent, TxId: "abc"}}
	lp.i = 0
	changed, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, swaptypes.StatePRCreated, s.State)
	require.Equal(t, "", s.OutputTxId, "TX_SENT carries no transition; txid is only adopted on the PAID event")

	lp.responses = []InvoiceStatusResponse{{Code: StatusPaid, TxId: "abc"}}
	lp.i = 0
	changed, err = s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateFinished, s.State)
	require.Equal(t, "abc", s.GetOutputTxId())
}

func TestPaidWithoutSuccessfulChainStatusStaysAtPrPaid(t *testing.T) {
	t.Parallel()

	s := newTestSwap()
	lp := &fakeLpClient{responses: []InvoiceStatusResponse{{Code: StatusPaid, TxId: "abc"}}}
	chain := &fakeChainStatus{status: "pending"}
	s.Attach(Deps{Lp: lp, Chain: chain})

	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StatePRPaid, s.State)
	require.Equal(t, "abc", s.OutputTxId)
}

func TestSyncAppliesQuoteExpiryBeforePolling(t *testing.T) {
	t.Parallel()

	s := newTestSwap()
	s.ExpiresAt = time.Now().Add(-time.Minute)
	s.Attach(Deps{Lp: &fakeLpClient{err: assertNoCallErr}})

	changed, err := s.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateQuoteSoftExpired, s.State)
}

func TestProcessEventAppliesPushedStatus(t *testing.T) {
	t.Parallel()

	s := newTestSwap()
	s.State = swaptypes.StatePRPaid
	s.Attach(Deps{Chain: &fakeChainStatus{status: "unrelated"}})

	changed, err := s.ProcessEvent(context.Background(), chainevents.Event{
		Name:    "invoiceStatus",
		Payload: InvoiceStatusResponse{Code: StatusRefundable},
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, swaptypes.StateRefundable, s.State)
}

func TestProcessEventIgnoresUnrelatedPayload(t *testing.T) {
	t.Parallel()

	s := newTestSwap()
	changed, err := s.ProcessEvent(context.Background(), chainevents.Event{Name: "other", Payload: 42})
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, swaptypes.StatePRCreated, s.State)
}

var assertNoCallErr = errLpShouldNotBeCalled{}

type errLpShouldNotBeCalled struct{}

func (errLpShouldNotBeCalled) Error() string { return "LP must not be polled once the quote has expired" }

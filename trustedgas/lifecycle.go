package trustedgas

import (
	"context"
	"time"

	"github.com/atomiqlabs/swapengine/chainevents"
	"github.com/atomiqlabs/swapengine/internal/buildlog"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

var log = buildlog.NewSubLogger("TGAS")

// InvoiceStatusResponse is the LP's GET /invoiceStatus response.
type InvoiceStatusResponse struct {
	Code InvoiceStatus
	TxId string
	Msg  string
}

// LpClient is the LP HTTP surface this swap kind drives:
// GET {lpUrl}/invoiceStatus?paymentHash=….
type LpClient interface {
	GetInvoiceStatus(ctx context.Context, paymentHash string) (InvoiceStatusResponse, error)
}

// ChainStatusClient verifies a destination-chain transaction actually
// settled before a gas-drop swap moves to FINISHED.
type ChainStatusClient interface {
	GetTxIdStatus(ctx context.Context, txId string) (string, error)
}

// Deps bundles the capability set a trusted gas swap's background
// Sync/Tick need.
type Deps struct {
	Lp    LpClient
	Chain ChainStatusClient
}

const txStatusSuccess = "success"

// Sync polls the LP's invoice status and, on PAID, verifies the
// destination transaction before advancing PR_PAID -> FINISHED (a PAID
// seen again while PR_PAID re-checks it); EXPIRED/REFUNDED/REFUNDABLE
// advance directly per the state table. Soft/hard quote expiry is also
// applied.
func (s *Swap) Sync(ctx context.Context) (bool, error) {
	now := time.Now()
	if softExpire(s, now) {
		return true, nil
	}
	if hardExpire(s) {
		return true, nil
	}

	if s.deps.Lp == nil {
		return false, nil
	}
	if s.State != swaptypes.StatePRCreated && s.State != swaptypes.StatePRPaid {
		return false, nil
	}

	resp, err := s.deps.Lp.GetInvoiceStatus(ctx, s.Id)
	if err != nil {
		return false, err
	}

	return s.applyStatus(ctx, resp)
}

func (s *Swap) applyStatus(ctx context.Context, resp InvoiceStatusResponse) (bool, error) {
	e, ok := eventFromStatus(resp.Code)
	if !ok {
		return false, nil
	}

	prevState, prevTxId := s.State, s.OutputTxId
	to, transitioned := next(s.State, e)
	if !transitioned && !(e == eventPaid && s.State == swaptypes.StatePRPaid) {
		return false, nil
	}

	if resp.TxId != "" {
		s.OutputTxId = resp.TxId
	}

	if e == eventPaid && s.deps.Chain != nil && s.OutputTxId != "" {
		status, err := s.deps.Chain.GetTxIdStatus(ctx, s.OutputTxId)
		if err != nil {
			return false, err
		}
		if status == txStatusSuccess {
			to = swaptypes.StateFinished
		}
	}

	s.State = to
	return s.State != prevState || s.OutputTxId != prevTxId, nil
}

// Tick mirrors Sync's polling for the periodic, non-event-driven tick
// path (the same endpoint, the same transitions).
func (s *Swap) Tick(ctx context.Context) (bool, error) {
	return s.Sync(ctx)
}

// ProcessEvent applies a chainevents.Event carrying an invoice-status
// push notification (where the messenger/LP side supports push instead
// of poll) to the same state table Sync/Tick use.
func (s *Swap) ProcessEvent(ctx context.Context, ev chainevents.Event) (bool, error) {
	resp, ok := ev.Payload.(InvoiceStatusResponse)
	if !ok {
		log.Debugf("trusted gas swap %s ignoring event %q with unexpected payload", s.Id, ev.Name)
		return false, nil
	}
	return s.applyStatus(ctx, resp)
}

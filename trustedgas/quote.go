package trustedgas

import (
	"encoding/hex"
	"time"

	"github.com/atomiqlabs/swapengine/lninvoice"
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// LnQuote is the LP's POST /lnforgas/getQuote response.
type LnQuote struct {
	PaymentRequest string
	Total          uint64
	SwapFeeSats    uint64
	ExpiresAt      time.Time
}

// BtcQuote is the LP's POST /onchainforgas/getQuote response.
type BtcQuote struct {
	BtcAddress  string
	AmountSats  uint64
	Total       uint64
	SwapFeeSats uint64
	ExpiresAt   time.Time
}

// NewFromLnQuote builds a TRUSTED_FROM_LN swap from an LP quote. The
// swap id is the invoice's payment hash, which stays stable across
// retries of the same Lightning gas swap.
func NewFromLnQuote(recipient string, amountSats uint64, q LnQuote) (*Swap, error) {
	inv, err := lninvoice.Decode(q.PaymentRequest)
	if err != nil {
		return nil, &swaperr.IntermediaryError{Reason: "LP returned an unparsable payment request"}
	}

	s := &Swap{
		Recipient:      recipient,
		PaymentRequest: q.PaymentRequest,
		AmountSats:     amountSats,
		Total:          q.Total,
		SwapFeeSats:    q.SwapFeeSats,
		ExpiresAt:      q.ExpiresAt,
	}
	s.Id = hex.EncodeToString(inv.PaymentHash[:])
	s.Kind = swaptypes.KindTrustedFromLN
	s.Direction = swaptypes.DirectionFromBTC
	s.State = swaptypes.StatePRCreated
	s.Expiry = q.ExpiresAt.UnixMilli()
	return s, nil
}

// NewFromBtcQuote builds a TRUSTED_FROM_BTC swap from an LP quote. Its
// id is the caller-supplied id rather than a payment hash, since there
// is no Lightning invoice to anchor it to.
func NewFromBtcQuote(id, recipient string, q BtcQuote) *Swap {
	s := &Swap{
		Recipient:   recipient,
		BtcAddress:  q.BtcAddress,
		AmountSats:  q.AmountSats,
		Total:       q.Total,
		SwapFeeSats: q.SwapFeeSats,
		ExpiresAt:   q.ExpiresAt,
	}
	s.Id = id
	s.Kind = swaptypes.KindTrustedFromBTC
	s.Direction = swaptypes.DirectionFromBTC
	s.State = swaptypes.StatePRCreated
	s.Expiry = q.ExpiresAt.UnixMilli()
	return s
}

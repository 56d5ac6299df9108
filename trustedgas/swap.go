// Package trustedgas implements TrustedGasSwap: Lightning and on-chain
// "gas drop" swaps for tiny amounts into a destination chain's native
// gas token, where the LP is trusted to send the destination
// transaction directly rather than being bound by an escrow or vault.
// Settlement is observed through a status-polling loop against the LP's
// /invoiceStatus endpoint, with no claim/refund arbitration step.
package trustedgas

import (
	"time"

	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// Swap is one trusted gas-drop swap, either TRUSTED_FROM_BTC (on-chain
// payment) or TRUSTED_FROM_LN (Lightning payment).
type Swap struct {
	swapbase.SwapBase

	// Recipient is the smart-chain address receiving the gas drop.
	Recipient string

	// PaymentRequest is the BOLT-11-equivalent invoice the user pays for
	// TRUSTED_FROM_LN; empty for TRUSTED_FROM_BTC.
	PaymentRequest string

	// BtcAddress is the Bitcoin address the user pays for
	// TRUSTED_FROM_BTC; empty for TRUSTED_FROM_LN.
	BtcAddress string

	// AmountSats is the quoted BTC-side amount.
	AmountSats uint64

	// Total and SwapFeeSats mirror the LP quote response's total/fee
	// fields.
	Total       uint64
	SwapFeeSats uint64

	// OutputTxId is the destination-chain transaction id the LP reports
	// once it has sent the gas drop, populated on the PAID status and
	// confirmed via the chain client before FINISHED.
	OutputTxId string

	ExpiresAt time.Time

	deps Deps
}

// Attach wires deps onto the swap. Must be called once after
// construction or deserialization before any chain/LP-touching
// operation.
func (s *Swap) Attach(deps Deps) {
	s.deps = deps
}

func (s *Swap) StorageId() string { return s.Id }

func (s *Swap) IndexValues() map[string]string {
	return map[string]string{
		"kind":  s.Kind.String(),
		"state": s.State.String(),
	}
}

func (s *Swap) GetState() swaptypes.State { return s.State }

func (s *Swap) IsInitiated() bool { return s.Initiated }

// GetOutputTxId returns the destination-chain transaction id once known
// (populated no later than PR_PAID, confirmed by FINISHED).
func (s *Swap) GetOutputTxId() string { return s.OutputTxId }

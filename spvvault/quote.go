package spvvault

import (
	"github.com/atomiqlabs/swapengine/swaperr"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// ExpectedQuote is the subset of a /frombtc_spv/getQuote response the
// submission pipeline checks the parsed SpvWithdrawalData against.
type ExpectedQuote struct {
	Recipient string

	// RawSwapAmount/RawGasAmount are OutputTotalSwap/OutputTotalGas
	// scaled down by VaultTokenMultipliers, the inverse of the scaling
	// applied when decoding the OP_RETURN.
	RawSwapAmount uint64
	RawGasAmount  uint64

	CallerFeeRate    uint32
	FrontingFeeRate  uint32
	ExecutionFeeRate uint32

	SpentVaultUtxoTxId [32]byte
	SpentVaultUtxoVout uint32

	NewVaultBtcAmount int64
	NewVaultScript    []byte

	BtcDestinationScript []byte
	BtcAmount            uint64
}

// VerifySubmittedWithdrawal checks the fields SpvWithdrawalData exposes
// directly against the quote: recipient, scaled raw amounts, fee-share
// rates, the spent vault UTXO, the replayed vault amount and script, and
// the absence of any execution payload. It does not check the LP
// destination output (q.BtcDestinationScript, q.BtcAmount), and neither
// does its caller Sign.
func VerifySubmittedWithdrawal(data swaptypes.SpvWithdrawalData, q ExpectedQuote) error {
	if !data.IsRecipient(q.Recipient) {
		return &swaperr.IntermediaryError{Reason: "parsed withdrawal recipient does not match quote"}
	}

	swapAmount, gasAmount := data.RawAmounts()
	if swapAmount != q.RawSwapAmount || gasAmount != q.RawGasAmount {
		return &swaperr.IntermediaryError{Reason: "parsed raw amounts do not match quote"}
	}

	if data.CallerFeeRate() != q.CallerFeeRate {
		return &swaperr.IntermediaryError{Reason: "caller fee rate does not match quote"}
	}
	if data.FrontingFeeRate() != q.FrontingFeeRate {
		return &swaperr.IntermediaryError{Reason: "fronting fee rate does not match quote"}
	}
	if data.ExecutionFeeRate() != q.ExecutionFeeRate {
		return &swaperr.IntermediaryError{Reason: "execution fee rate does not match quote"}
	}

	spentTxId, spentVout := data.GetSpentVaultUtxo()
	if spentTxId != q.SpentVaultUtxoTxId || spentVout != q.SpentVaultUtxoVout {
		return &swaperr.IntermediaryError{Reason: "spent vault utxo does not match quote"}
	}

	if data.GetNewVaultBtcAmount() != q.NewVaultBtcAmount {
		return &swaperr.IntermediaryError{Reason: "replayed vault amount does not match quote"}
	}
	if string(data.GetNewVaultScript()) != string(q.NewVaultScript) {
		return &swaperr.IntermediaryError{Reason: "replayed vault script does not match quote"}
	}

	if len(data.GetExecutionData()) != 0 {
		return &swaperr.IntermediaryError{Reason: "unexpected execution data on withdrawal transaction"}
	}

	return nil
}

// ScaleDown divides total by multiplier, used to derive the raw
// OP_RETURN integer amount a quoted token total must encode to.
// multiplier == 0 is treated as 1 (no scaling), mirroring a quote that
// never set a multiplier for an unused (e.g. zero gas-drop) output.
func ScaleDown(total, multiplier uint64) uint64 {
	if multiplier == 0 {
		return total
	}
	return total / multiplier
}

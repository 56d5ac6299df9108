// Package spvvault implements SpvVaultSwap: the UTXO-vault BTC->SC
// protocol that needs no on-chain pre-initiation from the user. A
// Bitcoin vault UTXO is replayed forward by a transaction the user signs
// and posts to the LP; the destination-chain contract parses that
// transaction's SPV proof to release funds, with a watchtower optionally
// fronting the payout before Bitcoin confirmations finalize.
package spvvault

import (
	"time"

	"github.com/atomiqlabs/swapengine/swapbase"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// WalletMode selects how the swap obtains its Bitcoin funding input(s).
type WalletMode uint8

const (
	// WalletModeNone means the user funds the transaction with their own
	// wallet outside this engine; the SDK only assembles and validates.
	WalletModeNone WalletMode = iota

	// WalletModeWaitPayment means the SDK generated a dedicated deposit
	// address and watches it for the first UTXO matching btcAmount plus
	// the expected network fee.
	WalletModeWaitPayment

	// WalletModePrefunded means the SDK generated a dedicated deposit
	// address that was already funded before the swap was created; the
	// existingUtxos snapshot itself is spent exactly.
	WalletModePrefunded
)

// Utxo mirrors swaptypes.Utxo for the swap-wallet snapshot fields, kept
// as its own type so spvvault doesn't need a capability import just to
// describe a persisted UTXO reference.
type Utxo struct {
	TxId   [32]byte
	Vout   uint32
	Value  int64
	Script []byte
}

// Swap is one SPV-vault BTC->SC swap (KindSpvVaultFromBTC).
type Swap struct {
	swapbase.SwapBase

	QuoteId string

	VaultOwner                string
	VaultId                   string
	VaultRequiredConfirmations uint32

	// VaultTokenMultipliers scales the OP_RETURN's raw integer amounts
	// back into token base units: [0] for the swap output, [1] for the
	// gas-drop output.
	VaultTokenMultipliers [2]uint64

	VaultBtcAddress string
	VaultScript     []byte
	VaultUtxoTxId   [32]byte
	VaultUtxoVout   uint32
	VaultUtxoValue  int64

	BtcDestinationAddress string
	BtcDestinationScript  []byte
	BtcAmount             uint64
	BtcAmountSwap         uint64
	BtcAmountGas          uint64

	MinimumBtcFeeRate float64

	OutputTotalSwap uint64
	OutputSwapToken string
	OutputTotalGas  uint64
	OutputGasToken  string

	GasSwapFeeBtc uint64
	GasSwapFee    uint64

	// CallerFeeShare, FrontingFeeShare, ExecutionFeeShare are 20-bit
	// fractions of FeeShareScale packed into the PSBT's nSequence fields
	// (see psbt.go).
	CallerFeeShare   uint32
	FrontingFeeShare uint32
	ExecutionFeeShare uint32

	// RecipientAddress is the smart-chain address the OP_RETURN output
	// names as the swap/gas recipient.
	RecipientAddress string

	// Locktime is the random salt chosen at PSBT build time to ensure
	// txid uniqueness across otherwise-identical vault replays.
	Locktime uint32

	// PsbtTxId and RawSignedTx are populated once the wallet has signed
	// the assembled transaction.
	PsbtTxId    [32]byte
	RawSignedTx []byte

	// WalletMode, WalletWIF and ExistingUtxos describe the optional
	// dedicated swap-wallet deposit address. ExistingUtxos is the
	// snapshot taken at swap creation; it is scoped to this swap
	// instance only, never shared across swaps using the same address.
	WalletMode    WalletMode
	WalletWIF     string
	WalletAddress string
	ExistingUtxos []Utxo

	// FronterAddress, if non-empty, records the watchtower address that
	// fronted the settlement, used by ShouldCheckWithdrawalState to
	// avoid redundant contract polling.
	FronterAddress string

	// LatestVaultUtxoConfirmationHeight is the confirmation height of
	// the vault's latest UTXO as of the last sync, used by the same
	// heuristic.
	LatestVaultUtxoConfirmationHeight uint64
	SwapTxConfirmationHeight          uint64

	ExpiresAt time.Time

	deps Deps
}

// Attach wires deps onto the swap. Must be called once after
// construction or deserialization before any chain-touching operation.
func (s *Swap) Attach(deps Deps) {
	s.deps = deps
}

func (s *Swap) StorageId() string { return s.Id }

func (s *Swap) IndexValues() map[string]string {
	values := map[string]string{
		"kind":    s.Kind.String(),
		"state":   s.State.String(),
		"quoteId": s.QuoteId,
	}
	if s.RawSignedTx != nil {
		values["psbtTxId"] = string(s.PsbtTxId[:])
	}
	return values
}

func (s *Swap) GetState() swaptypes.State { return s.State }

func (s *Swap) IsInitiated() bool { return s.Initiated }

// ShouldCheckWithdrawalState reports whether the contract is worth
// polling for a settlement: it skips the check when no fronter is
// recorded AND the vault's latest UTXO confirmed strictly before the
// swap transaction did, since the contract cannot yet have observed a
// settlement it would report.
func (s *Swap) ShouldCheckWithdrawalState() bool {
	if s.FronterAddress == "" && s.LatestVaultUtxoConfirmationHeight < s.SwapTxConfirmationHeight {
		return false
	}
	return true
}

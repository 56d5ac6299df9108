package spvvault

import (
	"time"

	"github.com/atomiqlabs/swapengine/internal/wire"
	"github.com/atomiqlabs/swapengine/swaptypes"
)

// vaultUpgradeSteps fills defaults for vault-specific keys absent from a
// record written under an older schema version. Currently empty: this
// kind's schema has not changed since CurrentVersion 1.
var vaultUpgradeSteps = map[uint32]wire.UpgradeFunc{}

func serializeUtxo(u Utxo) wire.Record {
	rec := make(wire.Record, 4)
	rec.SetBytes("txId", u.TxId[:])
	rec.SetInt("vout", int64(u.Vout))
	rec.SetInt("value", u.Value)
	rec.SetBytes("script", u.Script)
	return rec
}

func deserializeUtxo(rec wire.Record) Utxo {
	r := wire.NewReader(rec)
	var u Utxo
	copy(u.TxId[:], r.Bytes("txId"))
	u.Vout = uint32(r.Int("vout"))
	u.Value = r.Int("value")
	u.Script = r.Bytes("script")
	return u
}

// Serialize produces the canonical persisted-record form of s: the
// shared envelope fields plus the vault/PSBT/swap-wallet state. WalletWIF
// is persisted since, unlike Deps, the swap-wallet key is the SDK's own
// state rather than an externally supplied capability.
func (s *Swap) Serialize() wire.Record {
	rec := make(wire.Record, 40)
	s.SerializeBase(rec)

	rec.SetString("quoteId", s.QuoteId)
	rec.SetString("vaultOwner", s.VaultOwner)
	rec.SetString("vaultId", s.VaultId)
	rec.SetInt("vaultRequiredConfirmations", int64(s.VaultRequiredConfirmations))
	rec.SetBigInt("vaultTokenMultiplier0", s.VaultTokenMultipliers[0])
	rec.SetBigInt("vaultTokenMultiplier1", s.VaultTokenMultipliers[1])
	rec.SetString("vaultBtcAddress", s.VaultBtcAddress)
	rec.SetBytes("vaultScript", s.VaultScript)
	rec.SetBytes("vaultUtxoTxId", s.VaultUtxoTxId[:])
	rec.SetInt("vaultUtxoVout", int64(s.VaultUtxoVout))
	rec.SetInt("vaultUtxoValue", s.VaultUtxoValue)

	rec.SetString("btcDestinationAddress", s.BtcDestinationAddress)
	rec.SetBytes("btcDestinationScript", s.BtcDestinationScript)
	rec.SetBigInt("btcAmount", s.BtcAmount)
	rec.SetBigInt("btcAmountSwap", s.BtcAmountSwap)
	rec.SetBigInt("btcAmountGas", s.BtcAmountGas)
	rec.SetFloat("minimumBtcFeeRate", s.MinimumBtcFeeRate)

	rec.SetBigInt("outputTotalSwap", s.OutputTotalSwap)
	rec.SetString("outputSwapToken", s.OutputSwapToken)
	rec.SetBigInt("outputTotalGas", s.OutputTotalGas)
	rec.SetString("outputGasToken", s.OutputGasToken)

	rec.SetBigInt("gasSwapFeeBtc", s.GasSwapFeeBtc)
	rec.SetBigInt("gasSwapFee", s.GasSwapFee)

	rec.SetInt("callerFeeShare", int64(s.CallerFeeShare))
	rec.SetInt("frontingFeeShare", int64(s.FrontingFeeShare))
	rec.SetInt("executionFeeShare", int64(s.ExecutionFeeShare))

	rec.SetString("recipientAddress", s.RecipientAddress)
	rec.SetInt("locktime", int64(s.Locktime))

	rec.SetBytes("psbtTxId", s.PsbtTxId[:])
	rec.SetBytes("rawSignedTx", s.RawSignedTx)

	rec.SetInt("walletMode", int64(s.WalletMode))
	rec.SetString("walletWIF", s.WalletWIF)
	rec.SetString("walletAddress", s.WalletAddress)
	utxos := make([]wire.Record, len(s.ExistingUtxos))
	for i, u := range s.ExistingUtxos {
		utxos[i] = serializeUtxo(u)
	}
	rec["existingUtxos"] = utxos

	rec.SetString("fronterAddress", s.FronterAddress)
	rec.SetInt("latestVaultUtxoConfirmationHeight", int64(s.LatestVaultUtxoConfirmationHeight))
	rec.SetInt("swapTxConfirmationHeight", int64(s.SwapTxConfirmationHeight))
	rec.SetInt("expiresAt", s.ExpiresAt.UnixMilli())

	return rec
}

// Deserialize reconstructs a Swap from a record Serialize produced
// (possibly under an older schema version, in which case it is first
// routed through wire.Upgrade, once, before the fields are re-read).
// Attach must still be called before any chain/LP-touching operation.
func Deserialize(rec wire.Record) (*Swap, error) {
	s, missing := decodeVault(rec)
	if missing {
		steps := mergeSteps(swaptypes.BaseUpgradeSteps, vaultUpgradeSteps)
		upgraded := wire.Upgrade(rec, swaptypes.CurrentVersion, steps)
		s, _ = decodeVault(upgraded)
	}
	return s, nil
}

func decodeVault(rec wire.Record) (*Swap, bool) {
	s := &Swap{}
	r := wire.NewReader(rec)
	s.DeserializeBase(r)

	s.QuoteId = r.String("quoteId")
	s.VaultOwner = r.String("vaultOwner")
	s.VaultId = r.String("vaultId")
	s.VaultRequiredConfirmations = uint32(r.Int("vaultRequiredConfirmations"))
	s.VaultTokenMultipliers[0] = r.BigInt("vaultTokenMultiplier0")
	s.VaultTokenMultipliers[1] = r.BigInt("vaultTokenMultiplier1")
	s.VaultBtcAddress = r.String("vaultBtcAddress")
	s.VaultScript = r.Bytes("vaultScript")
	copy(s.VaultUtxoTxId[:], r.Bytes("vaultUtxoTxId"))
	s.VaultUtxoVout = uint32(r.Int("vaultUtxoVout"))
	s.VaultUtxoValue = r.Int("vaultUtxoValue")

	s.BtcDestinationAddress = r.String("btcDestinationAddress")
	s.BtcDestinationScript = r.Bytes("btcDestinationScript")
	s.BtcAmount = r.BigInt("btcAmount")
	s.BtcAmountSwap = r.BigInt("btcAmountSwap")
	s.BtcAmountGas = r.BigInt("btcAmountGas")
	s.MinimumBtcFeeRate = r.Float("minimumBtcFeeRate")

	s.OutputTotalSwap = r.BigInt("outputTotalSwap")
	s.OutputSwapToken = r.String("outputSwapToken")
	s.OutputTotalGas = r.BigInt("outputTotalGas")
	s.OutputGasToken = r.String("outputGasToken")

	s.GasSwapFeeBtc = r.BigInt("gasSwapFeeBtc")
	s.GasSwapFee = r.BigInt("gasSwapFee")

	s.CallerFeeShare = uint32(r.Int("callerFeeShare"))
	s.FrontingFeeShare = uint32(r.Int("frontingFeeShare"))
	s.ExecutionFeeShare = uint32(r.Int("executionFeeShare"))

	s.RecipientAddress = r.String("recipientAddress")
	s.Locktime = uint32(r.Int("locktime"))

	copy(s.PsbtTxId[:], r.Bytes("psbtTxId"))
	s.RawSignedTx = r.Bytes("rawSignedTx")

	s.WalletMode = WalletMode(r.Int("walletMode"))
	s.WalletWIF = r.String("walletWIF")
	s.WalletAddress = r.String("walletAddress")
	if raw, ok := rec["existingUtxos"].([]wire.Record); ok {
		s.ExistingUtxos = make([]Utxo, len(raw))
		for i, u := range raw {
			s.ExistingUtxos[i] = deserializeUtxo(u)
		}
	}

	s.FronterAddress = r.String("fronterAddress")
	s.LatestVaultUtxoConfirmationHeight = uint64(r.Int("latestVaultUtxoConfirmationHeight"))
	s.SwapTxConfirmationHeight = uint64(r.Int("swapTxConfirmationHeight"))
	s.ExpiresAt = time.UnixMilli(r.Int("expiresAt"))

	return s, r.NeedsUpgrade()
}

func mergeSteps(sets ...map[uint32]wire.UpgradeFunc) map[uint32]wire.UpgradeFunc {
	out := make(map[uint32]wire.UpgradeFunc)
	for _, set := range sets {
		for k, v := range set {
			out[k] = v
		}
	}
	return out
}

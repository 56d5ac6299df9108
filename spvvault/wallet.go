package spvvault

import (
	"github.com/atomiqlabs/swapengine/swaperr"
)

// expectedNetworkFee estimates the Bitcoin miner fee a single-input,
// three-output funding transaction of this shape pays at feeRate
// satoshis/vbyte, using a fixed typical-size estimate rather than a
// fully weight-accounted calculator — adequate for the "does this UTXO's
// value match btcAmount plus its fee" watch-loop comparison, not for fee
// bumping.
func expectedNetworkFee(feeRate float64) uint64 {
	const typicalFundingVsize = 150
	return uint64(feeRate * typicalFundingVsize)
}

// MatchDepositUtxo implements the waitpayment swap-wallet variant's
// matching rule: the first UTXO paying the dedicated deposit address
// whose value equals btcAmount plus the expected network fee at
// feeRate, and which was not already present in existingUtxos, is the
// one to spend — provided feeRate meets the minimum the quote demands.
func MatchDepositUtxo(candidates []Utxo, existing []Utxo, btcAmount uint64, feeRate, minimumFeeRate float64) (*Utxo, error) {
	if feeRate < minimumFeeRate {
		return nil, &swaperr.UserError{Reason: "effective fee rate below minimum required by quote"}
	}

	seen := make(map[[36]byte]bool, len(existing))
	for _, u := range existing {
		seen[outpointKey(u.TxId, u.Vout)] = true
	}

	want := int64(btcAmount + expectedNetworkFee(feeRate))
	for _, u := range candidates {
		if seen[outpointKey(u.TxId, u.Vout)] {
			continue
		}
		if u.Value == want {
			match := u
			return &match, nil
		}
	}
	return nil, nil
}

func outpointKey(txid [32]byte, vout uint32) [36]byte {
	var key [36]byte
	copy(key[:32], txid[:])
	key[32] = byte(vout)
	key[33] = byte(vout >> 8)
	key[34] = byte(vout >> 16)
	key[35] = byte(vout >> 24)
	return key
}

// FundingInputsFromUtxos converts a fixed set of UTXOs (the waitpayment
// match, or the whole prefunded snapshot) into the FundingInput list
// BuildPsbt needs, enforcing NotEnoughBalanceError if the set is empty.
func FundingInputsFromUtxos(utxos []Utxo) ([]FundingInput, error) {
	if len(utxos) == 0 {
		return nil, &swaperr.NotEnoughBalanceError{Needed: 1, Have: 0}
	}
	out := make([]FundingInput, len(utxos))
	for i, u := range utxos {
		out[i] = FundingInput{TxId: u.TxId, Vout: u.Vout, Value: u.Value, Script: u.Script}
	}
	return out, nil
}

// SelectFundingInputs resolves this swap's funding inputs according to
// its WalletMode: prefunded spends the existingUtxos snapshot exactly;
// waitpayment spends exactly the matched deposit UTXO found by a prior
// MatchDepositUtxo call (passed in as matched); WalletModeNone is an
// error here, since a wallet-external funding flow never calls this.
func (s *Swap) SelectFundingInputs(matched *Utxo) ([]FundingInput, error) {
	switch s.WalletMode {
	case WalletModePrefunded:
		return FundingInputsFromUtxos(s.ExistingUtxos)
	case WalletModeWaitPayment:
		if matched == nil {
			return nil, &swaperr.UserError{Reason: "no matching deposit utxo found yet"}
		}
		return FundingInputsFromUtxos([]Utxo{*matched})
	default:
		return nil, &swaperr.InvalidStateError{Have: "WalletModeNone", Want: "a swap-wallet mode"}
	}
}

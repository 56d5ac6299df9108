package spvvault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchDepositUtxoFindsFirstNewMatch(t *testing.T) {
	existing := []Utxo{{TxId: [32]byte{1}, Vout: 0, Value: 100}}
	candidates := []Utxo{
		{TxId: [32]byte{1}, Vout: 0, Value: 100}, // already known
		{TxId: [32]byte{2}, Vout: 0, Value: 41_500}, // 40,000 + 10 sat/vB * 150 vB
	}

	match, err := MatchDepositUtxo(candidates, existing, 40_000, 10, 1)
	require.NoError(t, err)
	require.NotNil(t, match)
	require.Equal(t, [32]byte{2}, match.TxId)
}

func TestMatchDepositUtxoRejectsBelowMinimumFeeRate(t *testing.T) {
	_, err := MatchDepositUtxo(nil, nil, 40_000, 1, 5)
	require.Error(t, err)
}

func TestMatchDepositUtxoNoMatch(t *testing.T) {
	match, err := MatchDepositUtxo([]Utxo{{Value: 1}}, nil, 40_000, 10, 1)
	require.NoError(t, err)
	require.Nil(t, match)
}

func TestSelectFundingInputsPrefunded(t *testing.T) {
	s := &Swap{WalletMode: WalletModePrefunded, ExistingUtxos: []Utxo{{Value: 1}}}
	inputs, err := s.SelectFundingInputs(nil)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
}

func TestSelectFundingInputsWaitPaymentRequiresMatch(t *testing.T) {
	s := &Swap{WalletMode: WalletModeWaitPayment}
	_, err := s.SelectFundingInputs(nil)
	require.Error(t, err)

	match := &Utxo{Value: 1}
	inputs, err := s.SelectFundingInputs(match)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
}

func TestSelectFundingInputsNoneModeErrors(t *testing.T) {
	s := &Swap{WalletMode: WalletModeNone}
	_, err := s.SelectFundingInputs(nil)
	require.Error(t, err)
}

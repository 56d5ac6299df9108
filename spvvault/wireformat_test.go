package spvvault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

func TestVaultSerializeRoundTrip(t *testing.T) {
	s := &Swap{
		QuoteId:                    "quote-1",
		VaultOwner:                 "owner",
		VaultId:                    "vault-1",
		VaultRequiredConfirmations: 6,
		VaultTokenMultipliers:      [2]uint64{1000, 1},
		VaultBtcAddress:            "bc1qvault",
		VaultScript:                []byte{0xa9, 0x14},
		VaultUtxoTxId:              [32]byte{1, 2, 3},
		VaultUtxoVout:              2,
		VaultUtxoValue:             150000,
		BtcDestinationAddress:      "bc1qdest",
		BtcDestinationScript:       []byte{0x00, 0x14},
		BtcAmount:                  100000,
		BtcAmountSwap:              90000,
		BtcAmountGas:               10000,
		MinimumBtcFeeRate:          12.5,
		OutputTotalSwap:            90_000_000,
		OutputSwapToken:            "TOKEN",
		OutputTotalGas:             10_000_000,
		OutputGasToken:             "GAS",
		GasSwapFeeBtc:              500,
		GasSwapFee:                 5000,
		CallerFeeShare:             1000,
		FrontingFeeShare:           2000,
		ExecutionFeeShare:          3000,
		RecipientAddress:           "0xrecipient",
		Locktime:                   123456,
		PsbtTxId:                   [32]byte{9, 9},
		RawSignedTx:                []byte{0x02, 0x00, 0x00, 0x00},
		WalletMode:                 WalletModePrefunded,
		WalletWIF:                  "wif-secret",
		WalletAddress:              "bc1qwallet",
		ExistingUtxos: []Utxo{
			{TxId: [32]byte{4, 5, 6}, Vout: 1, Value: 20000, Script: []byte{0x51}},
		},
		FronterAddress:                    "0xfronter",
		LatestVaultUtxoConfirmationHeight: 800000,
		SwapTxConfirmationHeight:          800010,
		ExpiresAt:                         time.UnixMilli(1_700_000_000_000),
	}
	s.Id = "vault-swap-1"
	s.Kind = swaptypes.KindSpvVaultFromBTC
	s.State = swaptypes.StateBroadcasted
	s.Initiated = true

	rec := s.Serialize()
	got, err := Deserialize(rec)
	require.NoError(t, err)

	require.Equal(t, s.Id, got.Id)
	require.Equal(t, s.State, got.State)
	require.Equal(t, s.VaultTokenMultipliers, got.VaultTokenMultipliers)
	require.Equal(t, s.VaultUtxoTxId, got.VaultUtxoTxId)
	require.Equal(t, s.BtcAmount, got.BtcAmount)
	require.Equal(t, s.MinimumBtcFeeRate, got.MinimumBtcFeeRate)
	require.Equal(t, s.CallerFeeShare, got.CallerFeeShare)
	require.Equal(t, s.WalletMode, got.WalletMode)
	require.Equal(t, s.ExistingUtxos, got.ExistingUtxos)
	require.Equal(t, s.FronterAddress, got.FronterAddress)
	require.Equal(t, s.RawSignedTx, got.RawSignedTx)
	require.Equal(t, swaptypes.CurrentVersion, got.Version)
}

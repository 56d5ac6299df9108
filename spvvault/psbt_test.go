package spvvault

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSequenceEncodingRoundTrip pins down spec §8 scenario 2's literal
// inputs: callerFeeShare=0x12345, frontingFeeShare=0x3FFFF,
// executionFeeShare=0xABCDE.
func TestSequenceEncodingRoundTrip(t *testing.T) {
	callerFeeShare := uint32(0x12345)
	frontingFeeShare := uint32(0x3FFFF)
	executionFeeShare := uint32(0xABCDE)

	seq0 := EncodeSequence0(callerFeeShare, frontingFeeShare)
	seq1 := EncodeSequence1(executionFeeShare, frontingFeeShare)

	require.Equal(t, localityBit|0x12345|((0x3FFFF&0xFFC00)<<10), seq0)
	require.Equal(t, localityBit|0xABCDE|((0x3FFFF&0x3FF)<<20), seq1)

	require.NotZero(t, seq0&localityBit)
	require.NotZero(t, seq1&localityBit)

	require.Equal(t, callerFeeShare, DecodeCallerFeeShare(seq0))
	require.Equal(t, executionFeeShare, DecodeExecutionFeeShare(seq1))
	require.Equal(t, frontingFeeShare, DecodeFrontingFeeShare(seq0, seq1))
}

func TestOpReturnPayloadRoundTrip(t *testing.T) {
	payload, err := EncodeOpReturnPayload("sc1recipientaddress", 123456, 789)
	require.NoError(t, err)

	recipient, swapAmt, gasAmt, err := DecodeOpReturnPayload(payload)
	require.NoError(t, err)
	require.Equal(t, "sc1recipientaddress", recipient)
	require.Equal(t, uint64(123456), swapAmt)
	require.Equal(t, uint64(789), gasAmt)
}

func TestBuildPsbtShape(t *testing.T) {
	vaultScript := []byte{0x00, 0x14, 1, 2, 3, 4}
	destScript := []byte{0x00, 0x14, 5, 6, 7, 8}

	params := BuildParams{
		VaultUtxoTxId: [32]byte{1, 2, 3},
		VaultUtxoVout: 0,
		VaultScript:   vaultScript,
		VaultValue:    100_000,
		FundingInputs: []FundingInput{
			{TxId: [32]byte{4, 5, 6}, Vout: 1, Value: 50_000},
		},
		RecipientAddress:    "0xRecipient",
		RawSwapAmount:       1000,
		RawGasAmount:        5,
		BtcDestinationScript: destScript,
		BtcAmount:           40_000,
		CallerFeeShare:      0x100,
		FrontingFeeShare:    0x200,
		ExecutionFeeShare:   0x300,
	}

	tx, err := BuildPsbt(params)
	require.NoError(t, err)

	require.Len(t, tx.TxIn, 2)
	require.NotZero(t, tx.TxIn[0].Sequence&localityBit)
	require.NotZero(t, tx.TxIn[1].Sequence&localityBit)
	require.Equal(t, EncodeSequence0(0x100, 0x200), tx.TxIn[0].Sequence)
	require.Equal(t, EncodeSequence1(0x300, 0x200), tx.TxIn[1].Sequence)

	require.Len(t, tx.TxOut, 3)
	require.Equal(t, vaultScript, tx.TxOut[0].PkScript)
	require.Equal(t, int64(100_000), tx.TxOut[0].Value)

	require.Equal(t, byte(0x6a), tx.TxOut[1].PkScript[0])

	require.Equal(t, destScript, tx.TxOut[2].PkScript)
	require.Equal(t, int64(40_000), tx.TxOut[2].Value)

	require.GreaterOrEqual(t, tx.LockTime, uint32(minLocktime))
	require.LessOrEqual(t, tx.LockTime, uint32(maxLocktime))
}

func TestBuildPsbtRejectsOversizedFeeShare(t *testing.T) {
	_, err := BuildPsbt(BuildParams{
		VaultScript:          []byte{0x00},
		FundingInputs:        []FundingInput{{Value: 1}},
		BtcDestinationScript: []byte{0x00},
		CallerFeeShare:       1 << 20,
	})
	require.Error(t, err)
}

func TestBuildPsbtRejectsNoFundingInputs(t *testing.T) {
	_, err := BuildPsbt(BuildParams{VaultScript: []byte{0x00}})
	require.Error(t, err)
}

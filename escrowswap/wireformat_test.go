package escrowswap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atomiqlabs/swapengine/swaptypes"
)

func TestEscrowSerializeRoundTrip(t *testing.T) {
	s := &Swap{
		Initiator:             "0xinitiator",
		EscrowHash:            [32]byte{1, 2, 3},
		BtcAddress:            "bc1qexample",
		RequiredConfirmations: 3,
		VoutHint:              1,
		CommitTxId:            "committx",
		ClaimTxId:             "claimtx",
		RefundTxId:            "",
		Secret:                [32]byte{9, 9, 9},
		HasSecret:             true,
		BroadcastTick:         2,
		ExpiresAt:             time.UnixMilli(1_700_000_000_123),
	}
	s.Id = "swap-1"
	s.Kind = swaptypes.KindFromLN
	s.Direction = swaptypes.DirectionFromBTC
	s.State = swaptypes.StateClaimCommitted
	s.Initiated = true
	s.CreatedAt = time.UnixMilli(1_699_000_000_000)
	s.Expiry = 1_700_000_000_000
	s.SwapFee = 1234
	s.SwapFeeBtc = 5678
	s.PricingInfo = swaptypes.PriceInfo{
		IsValid:                true,
		SwapPriceUSatPerToken:  1000,
		RealPriceUSatPerToken:  1010,
		RealPriceUsdPerBitcoin: 65000.5,
		DifferencePPM:          -500,
		SatsBaseFee:            100,
		FeePPM:                 250,
	}

	rec := s.Serialize()

	for _, key := range []string{"id", "type", "state", "version", "initiated", "escrowHash", "initiator", "swapFee", "_realPriceUsdPerBitcoin"} {
		require.Truef(t, rec.Has(key), "missing canonical key %q", key)
	}
	require.Equal(t, "1234", rec["swapFee"])

	got, err := Deserialize(rec)
	require.NoError(t, err)

	require.Equal(t, s.Id, got.Id)
	require.Equal(t, s.State, got.State)
	require.Equal(t, s.Initiated, got.Initiated)
	require.Equal(t, s.EscrowHash, got.EscrowHash)
	require.Equal(t, s.Initiator, got.Initiator)
	require.Equal(t, s.Secret, got.Secret)
	require.Equal(t, s.HasSecret, got.HasSecret)
	require.Equal(t, s.SwapFee, got.SwapFee)
	require.Equal(t, s.SwapFeeBtc, got.SwapFeeBtc)
	require.Equal(t, s.PricingInfo, got.PricingInfo)
	require.WithinDuration(t, s.ExpiresAt, got.ExpiresAt, time.Millisecond)
	require.Equal(t, s.CreatedAt.UnixMilli(), got.CreatedAt.UnixMilli())
	require.Equal(t, swaptypes.CurrentVersion, got.Version)
}

func TestEscrowDeserializeMissingKeyUpgrades(t *testing.T) {
	s := &Swap{Initiator: "0xinitiator", CommitTxId: "committx"}
	s.Id = "swap-2"
	s.Kind = swaptypes.KindFromBTC
	s.State = swaptypes.StateCreated
	s.Initiated = true

	rec := s.Serialize()
	delete(rec, "broadcastTick")

	got, err := Deserialize(rec)
	require.NoError(t, err)
	require.Equal(t, s.Id, got.Id)
	require.Equal(t, uint8(0), got.BroadcastTick)
	require.Equal(t, swaptypes.CurrentVersion, got.Version)
}

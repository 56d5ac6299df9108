package swaptypes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompareModeSatisfies(t *testing.T) {
	t.Parallel()

	require.True(t, CompareEq.Satisfies(StateSigned, StateSigned))
	require.False(t, CompareEq.Satisfies(StateSigned, StatePosted))

	require.True(t, CompareGte.Satisfies(StatePosted, StateSigned))
	require.False(t, CompareGte.Satisfies(StateSigned, StatePosted))

	require.True(t, CompareNeq.Satisfies(StateSigned, StatePosted))
	require.False(t, CompareNeq.Satisfies(StateSigned, StateSigned))
}

func TestIsTerminalAndSuccess(t *testing.T) {
	t.Parallel()

	require.True(t, IsTerminal(StateClaimClaimed))
	require.True(t, IsSuccess(StateClaimClaimed))

	require.True(t, IsTerminal(StateFailed))
	require.False(t, IsSuccess(StateFailed))

	require.False(t, IsTerminal(StateClaimCommitted))
}

func TestDirectionOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, DirectionFromBTC, DirectionOf(KindFromBTC))
	require.Equal(t, DirectionFromBTC, DirectionOf(KindSpvVaultFromBTC))
	require.Equal(t, DirectionToBTC, DirectionOf(KindToBTC))
	require.Equal(t, DirectionToBTC, DirectionOf(KindToLN))
}

func TestSwapQuoteExpiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := &Swap{Expiry: now.Add(-time.Minute).UnixMilli()}
	require.True(t, s.IsQuoteExpired(now))

	s.Expiry = now.Add(time.Minute).UnixMilli()
	require.False(t, s.IsQuoteExpired(now))
}

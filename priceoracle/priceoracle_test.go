package priceoracle

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	price   uint64
	fail    bool
	calls   atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchPrice(ctx context.Context, chain string, token string) (uint64, error) {
	f.calls.Add(1)
	if f.fail {
		return 0, fmt.Errorf("%s: unavailable", f.name)
	}
	return f.price, nil
}

func TestGetPricePrefersOperationalProvider(t *testing.T) {
	t.Parallel()

	good := &fakeProvider{name: "binance", price: 1000}
	bad := &fakeProvider{name: "okx", fail: true}
	r := New(10_000, good, bad)

	price, err := r.GetPrice(context.Background(), "bitcoin", "tok")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), price)

	// Second call should go straight to the now-operational provider
	// without consulting the failing one first.
	price, err = r.GetPrice(context.Background(), "bitcoin", "tok")
	require.NoError(t, err)
	require.Equal(t, uint64(1000), price)
	require.Equal(t, int32(1), bad.calls.Load())
}

func TestGetPriceFallsBackOnPreferredFailure(t *testing.T) {
	t.Parallel()

	good := &fakeProvider{name: "binance", price: 1000}
	r := New(10_000, good)

	_, err := r.GetPrice(context.Background(), "bitcoin", "tok")
	require.NoError(t, err)

	good.fail = true
	backup := &fakeProvider{name: "okx", price: 2000}
	r.providers = append(r.providers, &providerState{provider: backup, operational: unknown})

	price, err := r.GetPrice(context.Background(), "bitcoin", "tok")
	require.NoError(t, err)
	require.Equal(t, uint64(2000), price)
}

func TestGetPriceAllProvidersFailResetsToUnknown(t *testing.T) {
	t.Parallel()

	a := &fakeProvider{name: "a", fail: true}
	b := &fakeProvider{name: "b", fail: true}
	r := New(10_000, a, b)
	r.providers[0].operational = operationalFalse
	r.providers[1].operational = operationalFalse

	// Force a single attempt so the test doesn't pay real retry backoff.
	_, err := r.getPriceOnce(context.Background(), "bitcoin", "tok")
	require.Error(t, err)

	require.Equal(t, unknown, r.providers[0].operational)
	require.Equal(t, unknown, r.providers[1].operational)
}

func TestValidateAmountSendWithinTolerance(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "binance", price: 1_000_000}
	r := New(50_000, p) // 5% tolerance

	info, err := r.ValidateAmountSend(context.Background(), "bitcoin", 1_000_000, 0, 0, 1_000_000, "tok")
	require.NoError(t, err)
	require.True(t, info.IsValid)
}

func TestValidateAmountReceiveOutsideTolerance(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{name: "binance", price: 1_000_000}
	r := New(1_000, p) // 0.1% tolerance

	// Quoted price implied here is 1,500,000 uSat/token vs a real price
	// of 1,000,000 -- a 50% deviation, far outside tolerance.
	info, err := r.ValidateAmountReceive(context.Background(), "bitcoin", 1_500_000, 0, 0, 1_000_000, "tok")
	require.NoError(t, err)
	require.False(t, info.IsValid)
	require.Equal(t, int64(500_000), info.DifferencePPM)
}

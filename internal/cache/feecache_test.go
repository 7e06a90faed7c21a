package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owlscommerce/shipping/internal/cache"
	"github.com/owlscommerce/shipping/pkg/carrier"
)

func testTTLs() cache.TTLs {
	return cache.TTLs{Quote: time.Hour, Fallback: 10 * time.Minute}
}

func carrierQuote(fee int64) *carrier.FeeQuote {
	return &carrier.FeeQuote{
		Carrier:    "ghn",
		Fee:        decimal.NewFromInt(fee),
		Source:     carrier.SourceCarrier,
		ObtainedAt: time.Now(),
	}
}

func TestMemoryFeeCache_HitSkipsCompute(t *testing.T) {
	c := cache.NewMemoryFeeCache(testTTLs())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) (*carrier.FeeQuote, error) {
		calls.Add(1)
		return carrierQuote(35000), nil
	}

	first, cached, err := c.GetOrCompute(ctx, "route-a", compute)
	require.NoError(t, err)
	assert.False(t, cached)
	second, cached, err := c.GetOrCompute(ctx, "route-a", compute)
	require.NoError(t, err)
	assert.True(t, cached)

	assert.Equal(t, int64(1), calls.Load())
	assert.True(t, first.Fee.Equal(second.Fee))
}

func TestMemoryFeeCache_DistinctKeysComputeSeparately(t *testing.T) {
	c := cache.NewMemoryFeeCache(testTTLs())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) (*carrier.FeeQuote, error) {
		calls.Add(1)
		return carrierQuote(20000), nil
	}

	_, _, err := c.GetOrCompute(ctx, "route-a", compute)
	require.NoError(t, err)
	_, _, err = c.GetOrCompute(ctx, "route-b", compute)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
}

func TestMemoryFeeCache_ExpiredEntryRecomputed(t *testing.T) {
	c := cache.NewMemoryFeeCache(cache.TTLs{Quote: 10 * time.Millisecond, Fallback: 10 * time.Millisecond})
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) (*carrier.FeeQuote, error) {
		calls.Add(1)
		return carrierQuote(35000), nil
	}

	_, _, err := c.GetOrCompute(ctx, "route-a", compute)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, cached, err := c.GetOrCompute(ctx, "route-a", compute)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(2), calls.Load())
}

func TestMemoryFeeCache_FailedComputeNotCached(t *testing.T) {
	c := cache.NewMemoryFeeCache(testTTLs())
	ctx := context.Background()

	boom := errors.New("store unavailable")
	_, _, err := c.GetOrCompute(ctx, "route-a", func(ctx context.Context) (*carrier.FeeQuote, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// The failure must not poison the key.
	quote, cached, err := c.GetOrCompute(ctx, "route-a", func(ctx context.Context) (*carrier.FeeQuote, error) {
		return carrierQuote(27500), nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, int64(27500), quote.Fee.IntPart())
	assert.Equal(t, 1, c.Len())
}

func TestMemoryFeeCache_StampedeSingleCompute(t *testing.T) {
	c := cache.NewMemoryFeeCache(testTTLs())
	ctx := context.Background()

	var calls atomic.Int64
	compute := func(ctx context.Context) (*carrier.FeeQuote, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond) // hold the flight open
		return carrierQuote(35000), nil
	}

	const callers = 32
	var wg sync.WaitGroup
	results := make([]*carrier.FeeQuote, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quote, _, err := c.GetOrCompute(ctx, "route-a", compute)
			assert.NoError(t, err)
			results[i] = quote
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	for _, quote := range results {
		require.NotNil(t, quote)
		assert.Equal(t, int64(35000), quote.Fee.IntPart())
	}
}

func TestMemoryFeeCache_FlightJoinerNotReportedCached(t *testing.T) {
	c := cache.NewMemoryFeeCache(testTTLs())
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	leaderDone := make(chan struct{})
	go func() {
		defer close(leaderDone)
		_, cached, err := c.GetOrCompute(ctx, "route-a", func(ctx context.Context) (*carrier.FeeQuote, error) {
			close(entered)
			<-release
			return carrierQuote(35000), nil
		})
		assert.NoError(t, err)
		assert.False(t, cached)
	}()

	<-entered
	joinerDone := make(chan struct{})
	go func() {
		defer close(joinerDone)
		// The joiner waits on the leader's computation; it was not served
		// from a stored entry and must not report a hit.
		quote, cached, err := c.GetOrCompute(ctx, "route-a", func(ctx context.Context) (*carrier.FeeQuote, error) {
			return carrierQuote(99999), nil
		})
		assert.NoError(t, err)
		assert.False(t, cached)
		assert.Equal(t, int64(35000), quote.Fee.IntPart())
	}()

	time.Sleep(10 * time.Millisecond) // let the joiner reach the flight
	close(release)
	<-leaderDone
	<-joinerDone
}

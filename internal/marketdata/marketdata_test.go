package marketdata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/marketdata/providers"
)

// fakeProvider is a hand-written test double implementing
// providers.Provider, in the teacher's style (no mocking library).
type fakeProvider struct {
	name      string
	failPrice bool
	calls     int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, decimal.Decimal, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.failPrice {
		return decimal.Zero, decimal.Zero, errors.New("boom")
	}
	return decimal.NewFromFloat(5.50), decimal.NewFromFloat(12.3), nil
}

func (f *fakeProvider) FetchRVOL(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	if f.failPrice { // a failing fake fails RVOL too, so fallback can be observed
		return decimal.Zero, 0, errors.New("boom")
	}
	return decimal.NewFromFloat(3.2), 1_000_000, nil
}

func (f *fakeProvider) FetchFloat(ctx context.Context, ticker string) (int64, error) {
	return 8_000_000, nil
}

func (f *fakeProvider) FetchVWAP(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(5.42), nil
}

var _ providers.Provider = (*fakeProvider)(nil)

func TestBatchGetPrices_ReturnsResultsForEachTicker(t *testing.T) {
	p := &fakeProvider{name: "vendor-a"}
	c := NewClient([]providers.Provider{p}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	out := c.BatchGetPrices(ctx, []string{"ACME", "BETA"})
	if len(out) != 2 {
		t.Fatalf("expected 2 price results, got %d", len(out))
	}
	if !out["ACME"].Value.Equal(decimal.NewFromFloat(5.50)) {
		t.Errorf("unexpected price for ACME: %v", out["ACME"].Value)
	}
}

func TestBatchGetPrices_PartialResultsOnProviderFailure(t *testing.T) {
	p := &fakeProvider{name: "vendor-a", failPrice: true}
	c := NewClient([]providers.Provider{p}, nil)

	out := c.BatchGetPrices(context.Background(), []string{"ACME"})
	if len(out) != 0 {
		t.Fatalf("expected no results when the sole provider fails, got %v", out)
	}
}

func TestGetPrice_CachesWithinTTL(t *testing.T) {
	p := &fakeProvider{name: "vendor-a"}
	c := NewClient([]providers.Provider{p}, nil)

	ctx := context.Background()
	if _, _, err := c.getPrice(ctx, "ACME"); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.getPrice(ctx, "ACME"); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&p.calls) != 1 {
		t.Errorf("expected provider to be called once due to caching, got %d calls", p.calls)
	}
}

func TestGetRVOL_FallsThroughProviderPriorityOrder(t *testing.T) {
	failing := &fakeProvider{name: "vendor-a", failPrice: true}
	working := &fakeProvider{name: "vendor-b"}
	c := NewClient([]providers.Provider{failing, working}, nil)

	res, err := c.GetRVOL(context.Background(), "ACME")
	if err != nil {
		t.Fatalf("expected fallback to second provider to succeed, got %v", err)
	}
	if res.AvgVolume != 1_000_000 {
		t.Errorf("unexpected avg volume: %d", res.AvgVolume)
	}
}

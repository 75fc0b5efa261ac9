package enrichment

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/marketdata"
	"alertwatcher/internal/marketdata/providers"
)

type stubProvider struct{ name string }

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, decimal.Decimal, error) {
	return decimal.NewFromFloat(3.14), decimal.NewFromFloat(8.0), nil
}

func (s *stubProvider) FetchRVOL(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	return decimal.NewFromFloat(2.5), 500_000, nil
}

func (s *stubProvider) FetchFloat(ctx context.Context, ticker string) (int64, error) {
	return 12_000_000, nil
}

func (s *stubProvider) FetchVWAP(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(3.20), nil
}

var _ providers.Provider = (*stubProvider)(nil)

func TestEnrich_PopulatesAllFieldsPerTicker(t *testing.T) {
	market := marketdata.NewClient([]providers.Provider{&stubProvider{name: "vendor"}}, nil)
	pool := NewPool(market, Config{FloatWorkers: 2, RVOLWorkers: 2, VWAPWorkers: 2, PerTickerTime: time.Second})

	ctx := context.Background()
	prices := market.BatchGetPrices(ctx, []string{"ACME"})
	out := pool.Enrich(ctx, []string{"ACME"}, prices)

	rec, ok := out["ACME"]
	if !ok {
		t.Fatal("expected an EnrichmentRecord for ACME")
	}
	if rec.LastPrice == nil || rec.RVOLMultiplier == nil || rec.FloatShares == nil || rec.VWAP == nil {
		t.Errorf("expected all fields populated, got %+v", rec)
	}
}

func TestEnrich_MissingTickerYieldsNilFieldsNotError(t *testing.T) {
	market := marketdata.NewClient(nil, nil) // no providers at all
	pool := NewPool(market, Config{})

	ctx := context.Background()
	out := pool.Enrich(ctx, []string{"NOPE"}, map[string]marketdata.Price{})

	rec := out["NOPE"]
	if rec.LastPrice != nil || rec.RVOLMultiplier != nil {
		t.Errorf("expected nil fields when no provider is configured, got %+v", rec)
	}
}

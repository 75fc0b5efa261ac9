// Package enrichment fans out float/RVOL/VWAP lookups for the unique
// tickers of a cycle across three independently-sized worker pools, and
// fans the results back in to one EnrichmentRecord per ticker.
package enrichment

import (
	"context"
	"sync"
	"time"

	"alertwatcher/internal/marketdata"
	"alertwatcher/internal/models"
)

// Config carries the per-pool worker counts and per-ticker timeout from
// internal/config.
type Config struct {
	FloatWorkers  int
	RVOLWorkers   int
	VWAPWorkers   int
	PerTickerTime time.Duration
}

func (c Config) floatWorkers() int {
	if c.FloatWorkers > 0 {
		return c.FloatWorkers
	}
	return 10
}

func (c Config) rvolWorkers() int {
	if c.RVOLWorkers > 0 {
		return c.RVOLWorkers
	}
	return 15
}

func (c Config) vwapWorkers() int {
	if c.VWAPWorkers > 0 {
		return c.VWAPWorkers
	}
	return 15
}

func (c Config) perTickerTimeout() time.Duration {
	if c.PerTickerTime > 0 {
		return c.PerTickerTime
	}
	return 30 * time.Second
}

// Pool is the Enrichment Pool described in spec.md §4.9. It is stateless
// and safe to reuse across cycles; all the mutable state lives in the
// marketdata.Client's caches, not here.
type Pool struct {
	market *marketdata.Client
	cfg    Config
}

// NewPool builds a Pool fronting market for the given worker/timeout
// configuration.
func NewPool(market *marketdata.Client, cfg Config) *Pool {
	return &Pool{market: market, cfg: cfg}
}

// Enrich runs the three inner fan-outs in parallel and merges their
// results into one EnrichmentRecord per ticker. Any individual per-ticker
// field failure simply leaves that field nil; the cycle continues with a
// neutral (1.0 multiplier) treatment downstream.
func (p *Pool) Enrich(ctx context.Context, tickers []string, prices map[string]marketdata.Price) map[string]models.EnrichmentRecord {
	now := time.Now().UTC()

	var wg sync.WaitGroup
	var mu sync.Mutex

	floatResults := make(map[string]marketdata.FloatResult)
	rvolResults := make(map[string]marketdata.RVOLResult)
	vwapResults := make(map[string]marketdata.VWAPResult)

	wg.Add(3)
	go func() {
		defer wg.Done()
		res := runPool(ctx, tickers, p.cfg.floatWorkers(), p.cfg.perTickerTimeout(), func(ctx context.Context, t string) (marketdata.FloatResult, error) {
			return p.market.GetFloat(ctx, t)
		})
		mu.Lock()
		for k, v := range res {
			floatResults[k] = v
		}
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		res := runPool(ctx, tickers, p.cfg.rvolWorkers(), p.cfg.perTickerTimeout(), func(ctx context.Context, t string) (marketdata.RVOLResult, error) {
			return p.market.GetRVOL(ctx, t)
		})
		mu.Lock()
		for k, v := range res {
			rvolResults[k] = v
		}
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		res := runPool(ctx, tickers, p.cfg.vwapWorkers(), p.cfg.perTickerTimeout(), func(ctx context.Context, t string) (marketdata.VWAPResult, error) {
			return p.market.GetVWAP(ctx, t)
		})
		mu.Lock()
		for k, v := range res {
			vwapResults[k] = v
		}
		mu.Unlock()
	}()
	wg.Wait()

	out := make(map[string]models.EnrichmentRecord, len(tickers))
	for _, t := range tickers {
		var pricePtr *marketdata.Price
		if pr, ok := prices[t]; ok {
			pr := pr
			pricePtr = &pr
		}
		var rvolPtr *marketdata.RVOLResult
		if r, ok := rvolResults[t]; ok {
			r := r
			rvolPtr = &r
		}
		var floatPtr *marketdata.FloatResult
		if f, ok := floatResults[t]; ok {
			f := f
			floatPtr = &f
		}
		var vwapPtr *marketdata.VWAPResult
		if v, ok := vwapResults[t]; ok {
			v := v
			vwapPtr = &v
		}
		out[t] = marketdata.ToEnrichmentRecord(t, pricePtr, rvolPtr, floatPtr, vwapPtr, now, sourcesUsed(pricePtr, rvolPtr, floatPtr, vwapPtr))
	}
	return out
}

func sourcesUsed(price *marketdata.Price, rvol *marketdata.RVOLResult, float *marketdata.FloatResult, vwap *marketdata.VWAPResult) []string {
	var s []string
	if price != nil {
		s = append(s, "price")
	}
	if rvol != nil {
		s = append(s, "rvol")
	}
	if float != nil {
		s = append(s, "float")
	}
	if vwap != nil {
		s = append(s, "vwap")
	}
	return s
}

// runPool fans a single field's lookups out across a bounded worker pool,
// giving each ticker its own per-ticker timeout sub-context. It is a free
// function (not a method) because Go methods cannot carry their own type
// parameters.
func runPool[T any](ctx context.Context, tickers []string, workers int, perTickerTimeout time.Duration, fetch func(context.Context, string) (T, error)) map[string]T {
	sem := make(chan struct{}, workers)
	var mu sync.Mutex
	var wg sync.WaitGroup
	out := make(map[string]T)

	for _, t := range tickers {
		ticker := t
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			tctx, cancel := context.WithTimeout(ctx, perTickerTimeout)
			defer cancel()

			val, err := fetch(tctx, ticker)
			if err != nil {
				return
			}
			mu.Lock()
			out[ticker] = val
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

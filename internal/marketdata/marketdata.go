// Package marketdata is the cycle's single source of truth for price,
// RVOL, float and VWAP, fronted by per-field TTL caches and a
// priority-ordered, circuit-breaker-guarded provider chain.
package marketdata

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/marketdata/providers"
	"alertwatcher/internal/models"
)

// decimalDecimal and decimalZero are local aliases so the guard helpers
// below read a bit less noisily; they are exactly decimal.Decimal /
// decimal.Zero.
type decimalDecimal = decimal.Decimal

var decimalZero = decimal.Zero

const (
	priceTTL = 60 * time.Second
	floatTTL = 24 * time.Hour
	rvolTTL  = 5 * time.Minute
	vwapTTL  = 60 * time.Second

	// BatchDeadline is the default cycle-level deadline for a whole
	// batch_get_prices call.
	BatchDeadline = 10 * time.Second
)

// guardedProvider wraps a Provider with its own circuit breaker and token
// bucket so one flaky vendor never starves the others.
type guardedProvider struct {
	providers.Provider
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func newGuardedProvider(p providers.Provider, ratePerMinute int) *guardedProvider {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	return &guardedProvider{
		Provider: p,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        p.Name(),
			MaxRequests: 1,
			Interval:    0,
			Timeout:     5 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute),
	}
}

// Client is the Market-Data Client described in spec.md §4.8.
type Client struct {
	providers []*guardedProvider

	priceCache *gocache.Cache
	floatCache *gocache.Cache
	rvolCache  *gocache.Cache
	vwapCache  *gocache.Cache
}

// NewClient builds a Client over providers in priority order (first
// success wins); ratesPerMinute, if provided, maps 1:1 with providers.
func NewClient(provs []providers.Provider, ratesPerMinute []int) *Client {
	guarded := make([]*guardedProvider, len(provs))
	for i, p := range provs {
		rateLimit := 0
		if i < len(ratesPerMinute) {
			rateLimit = ratesPerMinute[i]
		}
		guarded[i] = newGuardedProvider(p, rateLimit)
	}
	return &Client{
		providers:  guarded,
		priceCache: gocache.New(priceTTL, priceTTL),
		floatCache: gocache.New(floatTTL, time.Hour),
		rvolCache:  gocache.New(rvolTTL, rvolTTL),
		vwapCache:  gocache.New(vwapTTL, vwapTTL),
	}
}

// Price is one ticker's batch_get_prices entry. A named struct (rather
// than two bare return values) so BatchGetPrices's map value is
// self-documenting at call sites in the enrichment pool.
type Price struct {
	Value     decimalDecimal
	ChangePct decimalDecimal
}

// BatchGetPrices fans out concurrently across tickers (not providers —
// each ticker still tries providers in priority order), bounded by ctx's
// deadline (BatchDeadline when ctx has none), and returns whatever
// completed, even if the deadline expired first.
func (c *Client) BatchGetPrices(ctx context.Context, tickers []string) map[string]Price {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, BatchDeadline)
		defer cancel()
	}
	out := make(map[string]Price)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tickers {
		ticker := t
		g.Go(func() error {
			price, changePct, err := c.getPrice(gctx, ticker)
			if err != nil {
				return nil // partial results: a single ticker failure never aborts the batch
			}
			mu.Lock()
			out[ticker] = Price{Value: price, ChangePct: changePct}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // errors are swallowed per-ticker above; Wait only surfaces ctx cancellation bookkeeping
	return out
}

func (c *Client) getPrice(ctx context.Context, ticker string) (decimalDecimal, decimalDecimal, error) {
	if cached, ok := c.priceCache.Get(ticker); ok {
		p := cached.(Price)
		return p.Value, p.ChangePct, nil
	}

	for _, p := range c.providers {
		price, change, err := fetchWithGuard(ctx, p, func(ctx context.Context) (decimalDecimal, decimalDecimal, error) {
			return p.FetchPrice(ctx, ticker)
		})
		if err != nil {
			continue
		}
		c.priceCache.Set(ticker, Price{Value: price, ChangePct: change}, priceTTL)
		return price, change, nil
	}
	return decimalZero, decimalZero, errs.New(errs.DataGap, "no provider returned a price for "+ticker)
}

// RVOLResult is get_rvol's output.
type RVOLResult struct {
	Multiplier decimalDecimal
	AvgVolume  int64
}

func (c *Client) GetRVOL(ctx context.Context, ticker string) (RVOLResult, error) {
	if cached, ok := c.rvolCache.Get(ticker); ok {
		return cached.(RVOLResult), nil
	}
	for _, p := range c.providers {
		rvol, avgVol, err := fetchRVOLWithGuard(ctx, p, ticker)
		if err != nil {
			continue
		}
		res := RVOLResult{Multiplier: rvol, AvgVolume: avgVol}
		c.rvolCache.Set(ticker, res, rvolTTL)
		return res, nil
	}
	return RVOLResult{}, errs.New(errs.DataGap, "no provider returned rvol for "+ticker)
}

// FloatResult is get_float's output.
type FloatResult struct {
	Shares int64
}

func (c *Client) GetFloat(ctx context.Context, ticker string) (FloatResult, error) {
	if cached, ok := c.floatCache.Get(ticker); ok {
		return cached.(FloatResult), nil
	}
	for _, p := range c.providers {
		shares, err := fetchFloatWithGuard(ctx, p, ticker)
		if err != nil {
			continue
		}
		res := FloatResult{Shares: shares}
		c.floatCache.Set(ticker, res, floatTTL)
		return res, nil
	}
	return FloatResult{}, errs.New(errs.DataGap, "no provider returned float for "+ticker)
}

// VWAPResult is get_vwap's output.
type VWAPResult struct {
	VWAP decimalDecimal
}

func (c *Client) GetVWAP(ctx context.Context, ticker string) (VWAPResult, error) {
	if cached, ok := c.vwapCache.Get(ticker); ok {
		return cached.(VWAPResult), nil
	}
	for _, p := range c.providers {
		vwap, err := fetchVWAPWithGuard(ctx, p, ticker)
		if err != nil {
			continue
		}
		res := VWAPResult{VWAP: vwap}
		c.vwapCache.Set(ticker, res, vwapTTL)
		return res, nil
	}
	return VWAPResult{}, errs.New(errs.DataGap, "no provider returned vwap for "+ticker)
}

// fetchWithGuard applies the provider's rate limiter and circuit breaker
// around a price fetch.
func fetchWithGuard(ctx context.Context, p *guardedProvider, fn func(context.Context) (decimalDecimal, decimalDecimal, error)) (decimalDecimal, decimalDecimal, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return decimalZero, decimalZero, err
	}
	type result struct {
		price, change decimalDecimal
	}
	r, err := p.breaker.Execute(func() (interface{}, error) {
		price, change, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return result{price, change}, nil
	})
	if err != nil {
		return decimalZero, decimalZero, err
	}
	res := r.(result)
	return res.price, res.change, nil
}

func fetchRVOLWithGuard(ctx context.Context, p *guardedProvider, ticker string) (decimalDecimal, int64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return decimalZero, 0, err
	}
	type result struct {
		rvol   decimalDecimal
		avgVol int64
	}
	r, err := p.breaker.Execute(func() (interface{}, error) {
		rvol, avgVol, err := p.FetchRVOL(ctx, ticker)
		if err != nil {
			return nil, err
		}
		return result{rvol, avgVol}, nil
	})
	if err != nil {
		return decimalZero, 0, err
	}
	res := r.(result)
	return res.rvol, res.avgVol, nil
}

func fetchFloatWithGuard(ctx context.Context, p *guardedProvider, ticker string) (int64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	r, err := p.breaker.Execute(func() (interface{}, error) {
		return p.FetchFloat(ctx, ticker)
	})
	if err != nil {
		return 0, err
	}
	return r.(int64), nil
}

func fetchVWAPWithGuard(ctx context.Context, p *guardedProvider, ticker string) (decimalDecimal, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return decimalZero, err
	}
	r, err := p.breaker.Execute(func() (interface{}, error) {
		return p.FetchVWAP(ctx, ticker)
	})
	if err != nil {
		return decimalZero, err
	}
	return r.(decimalDecimal), nil
}

// ToEnrichmentRecord folds a set of per-field results into the shared
// models.EnrichmentRecord shape the classifier and alert formatter expect.
func ToEnrichmentRecord(ticker string, price *Price, rvol *RVOLResult, float *FloatResult, vwap *VWAPResult, asOf time.Time, sources []string) models.EnrichmentRecord {
	rec := models.EnrichmentRecord{Ticker: ticker, AsOf: asOf, SourcesUsed: sources}
	if price != nil {
		p := price.Value
		c := price.ChangePct
		rec.LastPrice = &p
		rec.ChangePct = &c
	}
	if rvol != nil {
		m := rvol.Multiplier
		av := rvol.AvgVolume
		rec.RVOLMultiplier = &m
		rec.AvgVolume = &av
	}
	if float != nil {
		fs := float.Shares
		rec.FloatShares = &fs
	}
	if vwap != nil {
		v := vwap.VWAP
		rec.VWAP = &v
	}
	return rec
}

// Package llm is the SEC-filing analysis client: tiered routing, a
// persistent result cache, size-or-time batching, and a daily cost
// accumulator that disables expensive tiers once spend crosses configured
// thresholds. Modeled on the teacher's internal/ai/client.go REST pattern
// (plain net/http + encoding/json), generalized from one-shot portfolio
// analysis calls to a batched document-analysis contract.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"alertwatcher/internal/errs"
)

// CacheTTL is the spec default for cached SEC-doc analyses.
const CacheTTL = 72 * time.Hour

// SECDoc is one filing submitted for analysis.
type SECDoc struct {
	DocID       string // fingerprint, also the cache key
	ItemCode    string
	Text        string
	AccessionNo string
}

// Analysis is the LLM's structured read on one filing.
type Analysis struct {
	Tier             Tier
	Summary          string
	ExtractedMetrics map[string]string
}

type analyzeRequestItem struct {
	DocID string `json:"doc_id"`
	Text  string `json:"text"`
	Tier  string `json:"tier"`
}

type analyzeRequest struct {
	Items []analyzeRequestItem `json:"items"`
}

type analyzeResponseItem struct {
	DocID            string            `json:"doc_id"`
	Summary          string            `json:"summary"`
	ExtractedMetrics map[string]string `json:"extracted_metrics"`
}

type analyzeResponse struct {
	Items []analyzeResponseItem `json:"items"`
}

// Client is the LLM Client described in spec.md §4.10.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	cache    *gocache.Cache
	cost     *CostAccumulator

	mu         sync.Mutex
	batch      []SECDoc
	batchSize  int
	flushEvery time.Duration
}

// Option configures a Client at construction time.
type Option func(*Client)

func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.flushEvery = d
		}
	}
}

// NewClient builds a Client against endpoint/apiKey with the given daily
// cost thresholds and a default-minute rate budget.
func NewClient(endpoint, apiKey string, thresholds CostThresholds, ratePerMinute int, opts ...Option) *Client {
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}
	c := &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute),
		cache:      gocache.New(CacheTTL, time.Hour),
		cost:       NewCostAccumulator(thresholds),
		batchSize:  5,
		flushEvery: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CostLevel exposes the accumulator's current level, mostly for the health
// endpoint and orchestrator logging.
func (c *Client) CostLevel(now time.Time) CostLevel { return c.cost.Level(now) }

// Analyze processes docs in batches of c.batchSize, released on size or
// c.flushEvery (whichever first — here modeled as a straightforward
// chunked loop since the caller already owns the full doc set for a
// cycle; there is no standing queue to drain between cycles). Every doc's
// tier is computed, cost-gated, cache-checked and, only on a miss, sent
// over the wire.
func (c *Client) Analyze(ctx context.Context, docs []SECDoc) (map[string]Analysis, error) {
	out := make(map[string]Analysis, len(docs))
	var pending []SECDoc

	now := time.Now()
	level := c.cost.Level(now)

	for _, d := range docs {
		if cached, ok := c.cache.Get(d.DocID); ok {
			out[d.DocID] = cached.(Analysis)
			continue
		}
		tier := RouteTier(d.ItemCode, len(d.Text))
		if !AllowedTier(level, tier) {
			continue // cost-gated: skip rather than downgrade silently
		}
		pending = append(pending, d)
	}

	for start := 0; start < len(pending); start += c.batchSize {
		end := start + c.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		results, err := c.analyzeBatch(ctx, chunk)
		if err != nil {
			continue // a failed batch degrades to "no analysis" for those docs, not a cycle abort
		}
		for id, a := range results {
			out[id] = a
			c.cache.Set(id, a, CacheTTL)
		}
	}
	return out, nil
}

func (c *Client) analyzeBatch(ctx context.Context, chunk []SECDoc) (map[string]Analysis, error) {
	if c.endpoint == "" {
		return nil, errs.New(errs.ConfigErr, "llm endpoint not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := analyzeRequest{Items: make([]analyzeRequestItem, len(chunk))}
	tierByDoc := make(map[string]Tier, len(chunk))
	for i, d := range chunk {
		tier := RouteTier(d.ItemCode, len(d.Text))
		tierByDoc[d.DocID] = tier
		req.Items[i] = analyzeRequestItem{DocID: d.DocID, Text: d.Text, Tier: tier.String()}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, "marshal llm request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build llm request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "call llm endpoint", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.TransientNetwork, fmt.Sprintf("llm endpoint returned status %d", resp.StatusCode))
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, errs.Wrap(errs.Parse, "decode llm response", err)
	}

	out := make(map[string]Analysis, len(ar.Items))
	now := time.Now()
	for _, item := range ar.Items {
		tier := tierByDoc[item.DocID]
		c.cost.Add(now, CostPerDoc(tier))
		out[item.DocID] = Analysis{
			Tier:             tier,
			Summary:          item.Summary,
			ExtractedMetrics: item.ExtractedMetrics,
		}
	}
	return out, nil
}

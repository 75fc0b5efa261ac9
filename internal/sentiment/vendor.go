package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

// VendorCacheTTL matches the spec's 24h external-sentiment cache window.
const VendorCacheTTL = 24 * time.Hour

// VendorClient calls an external vendor sentiment API and caches results
// per (source_id, url) so the same syndicated story is never re-scored
// across a day's worth of cycles.
type VendorClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cache    *gocache.Cache
}

// NewVendorClient builds a client with its own bounded 3s timeout and a 24h
// TTL cache, purged every hour.
func NewVendorClient(endpoint, apiKey string) *VendorClient {
	return &VendorClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 3 * time.Second},
		cache:    gocache.New(VendorCacheTTL, time.Hour),
	}
}

func vendorCacheKey(sourceID, url string) string {
	return sourceID + "|" + url
}

type vendorResponse struct {
	Polarity   float64 `json:"polarity"`
	Confidence float64 `json:"confidence"`
}

// Score returns the cached or freshly-fetched sentiment for (sourceID, url).
// A missing apiKey/endpoint is treated as "source unavailable", matching
// the optional-source semantics of the aggregator, not an error.
func (v *VendorClient) Score(ctx context.Context, sourceID, url string) (*models.SentimentComponent, error) {
	if v.endpoint == "" || v.apiKey == "" {
		return nil, nil
	}

	key := vendorCacheKey(sourceID, url)
	if cached, ok := v.cache.Get(key); ok {
		comp := cached.(models.SentimentComponent)
		return &comp, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?source_id=%s&url=%s", v.endpoint, sourceID, url), nil)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build vendor sentiment request", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "call vendor sentiment api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.TransientNetwork, fmt.Sprintf("vendor sentiment api returned status %d", resp.StatusCode))
	}

	var vr vendorResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, errs.Wrap(errs.Parse, "decode vendor sentiment response", err)
	}

	comp := models.SentimentComponent{Value: clamp(vr.Polarity), Confidence: clamp01(vr.Confidence)}
	v.cache.Set(key, comp, VendorCacheTTL)
	return &comp, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

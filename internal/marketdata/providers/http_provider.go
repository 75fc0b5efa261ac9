package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProvider is a generic REST vendor client. It mirrors the teacher's
// alpaca Provider: a typed client wrapping net/http, with decimal-safe
// nil-pointer field dereferencing so a vendor omitting a field never
// panics the caller.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPProvider builds a provider named name against baseURL, with a
// conservative per-request timeout (the spec's per-provider budget, not
// the batch-level cycle deadline).
func NewHTTPProvider(name, baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string { return p.name }

type quoteResponse struct {
	Price     *decimal.Decimal `json:"price"`
	ChangePct *decimal.Decimal `json:"change_pct"`
}

func (p *HTTPProvider) FetchPrice(ctx context.Context, ticker string) (decimal.Decimal, decimal.Decimal, error) {
	var qr quoteResponse
	if err := p.getJSON(ctx, fmt.Sprintf("/v1/quote/%s", ticker), &qr); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if qr.Price == nil {
		return decimal.Zero, decimal.Zero, ErrUnsupported
	}
	price := *qr.Price
	change := decimal.Zero
	if qr.ChangePct != nil {
		change = *qr.ChangePct
	}
	return price, change, nil
}

type rvolResponse struct {
	RVOL      *decimal.Decimal `json:"rvol"`
	AvgVolume *int64           `json:"avg_volume"`
}

func (p *HTTPProvider) FetchRVOL(ctx context.Context, ticker string) (decimal.Decimal, int64, error) {
	var rr rvolResponse
	if err := p.getJSON(ctx, fmt.Sprintf("/v1/rvol/%s", ticker), &rr); err != nil {
		return decimal.Zero, 0, err
	}
	if rr.RVOL == nil {
		return decimal.Zero, 0, ErrUnsupported
	}
	rvol := *rr.RVOL
	var avgVol int64
	if rr.AvgVolume != nil {
		avgVol = *rr.AvgVolume
	}
	return rvol, avgVol, nil
}

type floatResponse struct {
	FloatShares *int64 `json:"float_shares"`
}

func (p *HTTPProvider) FetchFloat(ctx context.Context, ticker string) (int64, error) {
	var fr floatResponse
	if err := p.getJSON(ctx, fmt.Sprintf("/v1/float/%s", ticker), &fr); err != nil {
		return 0, err
	}
	if fr.FloatShares == nil {
		return 0, ErrUnsupported
	}
	return *fr.FloatShares, nil
}

type vwapResponse struct {
	VWAP *decimal.Decimal `json:"vwap"`
}

func (p *HTTPProvider) FetchVWAP(ctx context.Context, ticker string) (decimal.Decimal, error) {
	var vr vwapResponse
	if err := p.getJSON(ctx, fmt.Sprintf("/v1/vwap/%s", ticker), &vr); err != nil {
		return decimal.Zero, err
	}
	if vr.VWAP == nil {
		return decimal.Zero, ErrUnsupported
	}
	return *vr.VWAP, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", p.name, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

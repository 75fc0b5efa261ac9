// Package vendorjson fetches a vendor's proprietary JSON news endpoint
// and maps its documented field names into models.NewsItem. The mapping
// is spelled out as JSON struct tags on wireItem below (spec.md §4.2
// calls this "documented field mapping, not code"); a new vendor with a
// different JSON shape gets its own wireItem/toNewsItem pair rather than
// a runtime-configurable mapper, matching how the teacher's ai/types.go
// binds one fixed wire shape per provider.
package vendorjson

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

type Source struct {
	name    string
	url     string
	weight  int
	timeout time.Duration
	apiKey  string
	client  *http.Client
}

func New(name, url, apiKey string, weight int, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Source{
		name:    name,
		url:     url,
		weight:  weight,
		timeout: timeout,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return s.name }
func (s *Source) Weight() int  { return s.weight }

// wireItem is this package's one fixed vendor shape; JSON fields not
// listed here are ignored on decode.
type wireItem struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Headline    string   `json:"headline"`
	Body        string   `json:"body"`
	PublishedAt string   `json:"published_at"`
	Tickers     []string `json:"tickers"`
}

type wireResponse struct {
	Items []wireItem `json:"items"`
}

func (s *Source) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build vendor json request", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "fetch vendor feed "+s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := errs.TransientNetwork
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = errs.PermanentNetwork
		}
		return nil, errs.New(kind, "vendor feed "+s.name+" returned non-200 status")
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, errs.Wrap(errs.Parse, "decode vendor feed "+s.name, err)
	}

	items := make([]models.NewsItem, 0, len(wr.Items))
	for _, wi := range wr.Items {
		items = append(items, s.toNewsItem(wi))
	}
	return items, nil
}

func (s *Source) toNewsItem(wi wireItem) models.NewsItem {
	published, err := time.Parse(time.RFC3339, wi.PublishedAt)
	if err != nil {
		published = time.Now().UTC()
	}
	return models.NewsItem{
		Source:       s.name,
		SourceID:     wi.ID,
		CanonicalURL: wi.URL,
		Title:        wi.Headline,
		Summary:      wi.Body,
		PublishedAt:  published.UTC(),
		Tickers:      wi.Tickers,
	}
}

// Package secfilings polls a SEC EDGAR-style full-text-search JSON
// endpoint for new filings and normalizes them into NewsItems carrying
// the accession number in raw_fields, per spec.md §4.2.
package secfilings

import (
	"context"
	"encoding/json"
	"fmt"
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
	client  *http.Client
}

// New builds a SEC filings Source. The spec assigns SEC items a longer
// freshness budget (240 min vs 30 min) at intake, handled by the feeds
// package's FreshnessConfig, not here.
func New(name, url string, weight int, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Source{
		name:    name,
		url:     url,
		weight:  weight,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *Source) Name() string { return s.name }
func (s *Source) Weight() int  { return s.weight }

type wireFiling struct {
	AccessionNo string   `json:"accession_no"`
	FormType    string   `json:"form_type"`
	ItemCode    string   `json:"item_code"`
	CompanyName string   `json:"company_name"`
	Tickers     []string `json:"tickers"`
	FiledAt     string   `json:"filed_at"` // RFC3339
	URL         string   `json:"filing_url"`
	Summary     string   `json:"summary"`
}

type wireResponse struct {
	Filings []wireFiling `json:"filings"`
}

func (s *Source) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build sec filings request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "fetch sec filings "+s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := errs.TransientNetwork
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = errs.PermanentNetwork
		}
		return nil, errs.New(kind, "sec filings source "+s.name+" returned non-200 status")
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, errs.Wrap(errs.Parse, "decode sec filings response", err)
	}

	items := make([]models.NewsItem, 0, len(wr.Filings))
	for _, f := range wr.Filings {
		items = append(items, s.toNewsItem(f))
	}
	return items, nil
}

func (s *Source) toNewsItem(f wireFiling) models.NewsItem {
	filedAt, err := time.Parse(time.RFC3339, f.FiledAt)
	if err != nil {
		filedAt = time.Now().UTC()
	}

	title := fmt.Sprintf("%s files %s", f.CompanyName, f.FormType)

	return models.NewsItem{
		Source:       s.name,
		SourceID:     f.AccessionNo,
		CanonicalURL: f.URL,
		Title:        title,
		Summary:      f.Summary,
		PublishedAt:  filedAt.UTC(),
		Tickers:      f.Tickers,
		RawFields: map[string]models.FieldValue{
			"accession_number": models.StringField(f.AccessionNo),
			"filing_type":      models.StringField(f.FormType),
			"item_code":        models.StringField(f.ItemCode),
		},
	}
}

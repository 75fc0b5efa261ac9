// Package rss fetches an RSS/Atom press-release feed and normalizes its
// entries into models.NewsItem, stripping HTML from summaries and
// honoring conditional-GET caching headers when the server offers them.
package rss

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

// Source polls one RSS/Atom feed URL.
type Source struct {
	name    string
	url     string
	weight  int
	timeout time.Duration

	parser   *gofeed.Parser
	stripper *bluemonday.Policy

	mu           sync.Mutex
	etag         string
	lastModified string
}

// New builds a feed Source. timeout defaults to 8s per spec if zero.
func New(name, url string, weight int, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Source{
		name:     name,
		url:      url,
		weight:   weight,
		timeout:  timeout,
		parser:   gofeed.NewParser(),
		stripper: bluemonday.StrictPolicy(),
	}
}

func (s *Source) Name() string { return s.name }
func (s *Source) Weight() int  { return s.weight }

// Fetch performs one conditional GET against the feed URL and parses any
// returned entries. A 304 Not Modified yields an empty, error-free
// result. Any other failure is wrapped with a stable Kind and returned
// to the caller, which logs and discards it without propagating.
func (s *Source) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build rss request", err)
	}

	s.mu.Lock()
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	if s.lastModified != "" {
		req.Header.Set("If-Modified-Since", s.lastModified)
	}
	s.mu.Unlock()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "fetch rss feed "+s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		kind := errs.TransientNetwork
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = errs.PermanentNetwork
		}
		return nil, errs.New(kind, "rss feed "+s.name+" returned non-200 status")
	}

	s.mu.Lock()
	s.etag = resp.Header.Get("ETag")
	s.lastModified = resp.Header.Get("Last-Modified")
	s.mu.Unlock()

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, "parse rss feed "+s.name, err)
	}

	items := make([]models.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		items = append(items, s.toNewsItem(entry))
	}
	return items, nil
}

func (s *Source) toNewsItem(entry *gofeed.Item) models.NewsItem {
	published := time.Now().UTC()
	if entry.PublishedParsed != nil {
		published = entry.PublishedParsed.UTC()
	}

	summary := s.stripper.Sanitize(entry.Description)
	summary = strings.TrimSpace(summary)

	rawFields := map[string]models.FieldValue{}
	if entry.GUID != "" {
		rawFields["guid"] = models.StringField(entry.GUID)
	}

	return models.NewsItem{
		Source:       s.name,
		SourceID:     entry.GUID,
		CanonicalURL: entry.Link,
		Title:        strings.TrimSpace(entry.Title),
		Summary:      summary,
		PublishedAt:  published,
		RawFields:    rawFields,
	}
}

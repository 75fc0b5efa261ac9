package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<item>
  <title>Acme Corp Announces FDA Approval</title>
  <description>&lt;p&gt;Acme Corp announced &lt;b&gt;today&lt;/b&gt; that the FDA approved Drug X.&lt;/p&gt;</description>
  <link>https://example.com/press/1</link>
  <guid>press-1</guid>
  <pubDate>Thu, 30 Jul 2026 09:00:00 GMT</pubDate>
</item>
</channel></rss>`

func TestFetch_ParsesEntriesAndStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	s := New("prnewswire", srv.URL, 5, 0)
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.SourceID != "press-1" {
		t.Errorf("expected guid as source id, got %q", item.SourceID)
	}
	if item.Summary == "" {
		t.Fatal("expected a non-empty stripped summary")
	}
	for _, forbidden := range []string{"<p>", "<b>", "</b>"} {
		if strings.Contains(item.Summary, forbidden) {
			t.Errorf("expected HTML stripped from summary, found %q in %q", forbidden, item.Summary)
		}
	}
}

func TestFetch_NotModifiedReturnsEmptyWithoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	s := New("prnewswire", srv.URL, 5, 0)
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("expected no error on 304, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items on 304, got %d", len(items))
	}
}

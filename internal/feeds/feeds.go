// Package feeds defines the small polymorphic capability every news
// source implements, and a registry the orchestrator iterates over each
// cycle. Modeled on the teacher's market.Provider interface
// (internal/market/market.go), generalized from one trading venue to many
// heterogeneous feed sources.
package feeds

import (
	"context"
	"time"

	"alertwatcher/internal/models"
)

// Source is one configured news feed: RSS/Atom, a vendor JSON API, or a
// SEC filing stream. Implementations never propagate an error from
// Fetch for a single bad item; a source failure yields an empty slice
// plus a logged error at the call site.
type Source interface {
	// Fetch performs one poll of the source and returns freshly-normalized
	// NewsItems. ctx carries the per-request timeout.
	Fetch(ctx context.Context) ([]models.NewsItem, error)
	Name() string
	// Weight is this source's dedup tie-break priority; higher wins when
	// two sources report the same fingerprint.
	Weight() int
}

// Registry is the ordered set of configured sources the orchestrator
// fans out to each cycle.
type Registry struct {
	sources []Source
}

func NewRegistry(sources ...Source) *Registry {
	return &Registry{sources: sources}
}

func (r *Registry) Sources() []Source { return r.sources }

// FreshnessConfig bounds how old an item may be at intake before it is
// discarded, per spec.md §4.2 (regular feeds vs. SEC filings get
// different MaxAge budgets).
type FreshnessConfig struct {
	MaxArticleAge time.Duration
	MaxSECAge     time.Duration
}

func DefaultFreshnessConfig() FreshnessConfig {
	return FreshnessConfig{
		MaxArticleAge: 30 * time.Minute,
		MaxSECAge:     240 * time.Minute,
	}
}

// IsFresh reports whether item clears the freshness gate at intake,
// given now. SEC-sourced items (source prefixed "sec_") get the longer
// MaxSECAge budget.
func (cfg FreshnessConfig) IsFresh(item models.NewsItem, now time.Time) bool {
	maxAge := cfg.MaxArticleAge
	if isSECSource(item.Source) {
		maxAge = cfg.MaxSECAge
	}
	return now.Sub(item.PublishedAt) <= maxAge
}

func isSECSource(source string) bool {
	return len(source) >= 4 && source[:4] == "sec_"
}

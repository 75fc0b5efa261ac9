// Package models holds the data types shared across the ingestion,
// classification, enrichment and alerting stages of the pipeline.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FieldKind discriminates which member of FieldValue is populated.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldNumber
	FieldBool
	FieldBytes
)

// FieldValue is a typed variant for NewsItem.RawFields. Fetchers translate
// whatever wire representation a source uses (string, number, bool, raw
// bytes) into this before a NewsItem ever leaves the feed package.
type FieldValue struct {
	Str   string
	Num   float64
	Bool  bool
	Bytes []byte
	Kind  FieldKind
}

func StringField(s string) FieldValue  { return FieldValue{Str: s, Kind: FieldString} }
func NumberField(n float64) FieldValue { return FieldValue{Num: n, Kind: FieldNumber} }
func BoolField(b bool) FieldValue      { return FieldValue{Bool: b, Kind: FieldBool} }
func BytesField(b []byte) FieldValue   { return FieldValue{Bytes: b, Kind: FieldBytes} }

// NewsItem is produced by a feed fetcher and is immutable thereafter.
type NewsItem struct {
	Source       string // short source identifier, e.g. "prnewswire", "sec_8k"
	SourceID     string // vendor id, may be empty
	CanonicalURL string // URL with tracking/query params normalized away
	Title        string
	Summary      string
	PublishedAt  time.Time // UTC
	Tickers      []string  // ordered list of symbols as carried by the source, may be empty
	RawFields    map[string]FieldValue
}

// Valid reports whether the item satisfies the NewsItem invariant: at least
// one of SourceID or CanonicalURL must be non-empty.
func (n NewsItem) Valid() bool {
	return n.SourceID != "" || n.CanonicalURL != ""
}

// SentimentComponent is one scored sentiment source, value in [-1,1] with a
// confidence in [0,1].
type SentimentComponent struct {
	Value      float64
	Confidence float64
}

// Sentiment aggregates the per-source sentiment signals for one item.
type Sentiment struct {
	Local     *SentimentComponent
	ML        *SentimentComponent
	External  *SentimentComponent
	PreAfter  *SentimentComponent
	Aggregate *SentimentComponent // weighted mean of whichever of the above are non-nil
}

// ScoredItem is a NewsItem after ticker resolution, classification and
// sentiment scoring, prior to enrichment and gating.
type ScoredItem struct {
	Item             NewsItem
	PrimaryTicker    string
	SecondaryTickers []string
	RelevanceScores  map[string]int     // ticker -> 0..100
	KeywordHits      map[string]float64 // category -> weight contribution
	CatalystScore    float64            // clamp(sum(KeywordHits), 0, 10); each hit already carries its dynamic weight
	Sentiment        Sentiment
	ClassificationTS time.Time
}

// EnrichmentRecord holds per-ticker, per-cycle market-data signals. A
// missing field is nil, never a zero value, per spec.
type EnrichmentRecord struct {
	Ticker         string
	LastPrice      *decimal.Decimal
	ChangePct      *decimal.Decimal
	AvgVolume      *int64
	RVOLMultiplier *decimal.Decimal
	FloatShares    *int64
	VWAP           *decimal.Decimal
	AsOf           time.Time
	SourcesUsed    []string
}

// EmbedField is one rendered field inside an Alert's embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is the structured portion of an Alert, rendered deterministically:
// stable field order, stable keys, deterministic truncation.
type Embed struct {
	Title       string
	URL         string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
	Timestamp   time.Time
}

// Component is an optional interactive element attached to an Alert.
type Component struct {
	Type  string // e.g. "button"
	Label string
	Value string // opaque action token, interpreted by an external collaborator
}

// Alert is the payload produced by the Formatter and posted to the webhook.
type Alert struct {
	Ticker         string
	Title          string
	Link           string
	ContentText    string
	Embed          Embed
	Components     []Component
	IdempotencyKey string // = Fingerprint; lets the poster retry safely
}

// DynamicWeights is a read-only category -> weight map, loaded at cycle
// start from an external file. Absent entries fall back to Baseline.
type DynamicWeights struct {
	Weights  map[string]float64
	Baseline float64
}

// Weight returns the configured weight for a category, or Baseline if the
// category has no entry.
func (d DynamicWeights) Weight(category string) float64 {
	if w, ok := d.Weights[category]; ok {
		return w
	}
	return d.Baseline
}

// CycleStats are the per-cycle counters reset at cycle start and appended
// to a rolling log at cycle end.
type CycleStats struct {
	CycleID       string
	StartedAt     time.Time
	Fetched       int
	Deduped       int
	Skipped       map[string]int // reason -> count, e.g. "no_ticker", "stale", "low_score"
	Classified    int
	Enriched      int
	AlertsSent    int
	AlertsFailed  int
	DroppedError  int
	CycleDuration time.Duration

	// Supplemented rollups (SPEC_FULL §6), observational only.
	BySource   map[string]int
	ByCategory map[string]int
	Sentiment  SentimentStats
}

// SentimentStats is a per-cycle sentiment rollup, purely observational; it
// never feeds back into classification or gating.
type SentimentStats struct {
	PositiveCount int
	NeutralCount  int
	NegativeCount int
	AvgSentiment  float64
}

// NewCycleStats returns a zeroed CycleStats ready for one cycle.
func NewCycleStats(cycleID string, startedAt time.Time) CycleStats {
	return CycleStats{
		CycleID:    cycleID,
		StartedAt:  startedAt,
		Skipped:    make(map[string]int),
		BySource:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
}

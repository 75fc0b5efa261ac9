// Package gates implements the fixed-order filter pipeline applied to each
// ScoredItem after classification. Every gate either passes the item
// through or rejects it with a stable reason tag used for cycle counters.
package gates

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/models"
)

// Reason is the stable gate-name tag attached to a rejection, used both
// for per-cycle counters and structured log entries.
type Reason string

const (
	NoTicker               Reason = "no_ticker"
	CryptoUnlisted         Reason = "crypto_unless_watchlisted"
	RelevanceBelowThresh   Reason = "relevance_below_threshold"
	PriceAboveCeiling      Reason = "price_above_ceiling"
	PriceBelowFloor        Reason = "price_below_floor"
	DerivativeInstrument   Reason = "derivative_instrument"
	SourceInSkipList       Reason = "source_in_skip_list"
	CatalystScoreTooLow    Reason = "catalyst_score_too_low"
	SentimentTooWeak       Reason = "sentiment_too_weak"
	CategoryNotAllowed     Reason = "category_not_in_allow_list"
	OTCDisabled            Reason = "otc_disabled"
	VolumeBelowThreshold   Reason = "avg_volume_below_threshold"
)

// Config holds every gate's tunable threshold, all with spec.md §6
// defaults.
type Config struct {
	MinRelevance      int
	PriceFloor        float64
	PriceCeiling      float64 // 0 means unset/no ceiling
	MinScore          float64
	MinSentAbs        float64
	CategoriesAllow   []string // nil or containing "*" means all categories allowed
	SkipSources       []string
	AllowOTC          bool
	MinAvgVolume      int64 // 0 means no volume floor
	WatchlistedCrypto []string
}

// derivativeSuffixes match common warrant/rights/unit ticker conventions
// (e.g. ABCD.WS, ABCDW, ABCDR, ABCDU) without requiring a full instrument
// database.
var derivativeSuffixes = []string{".WS", "W", "R", "U"}

// cryptoTickers is a small built-in set of common crypto-asset tickers
// that only pass if explicitly present in WatchlistedCrypto.
var cryptoTickers = map[string]bool{
	"BTC": true, "ETH": true, "DOGE": true, "XRP": true, "SOL": true,
}

// Decision is the outcome of running an item through the full gate chain.
type Decision struct {
	Passed bool
	Reason Reason // empty when Passed
}

// Evaluate runs item through all 12 gates in spec order, stopping at the
// first rejection. enrich may be the zero value when enrichment never
// returned data for the ticker (volume/price gates then pass by default,
// since a missing field must never itself cause rejection).
func Evaluate(item models.ScoredItem, enrich models.EnrichmentRecord, cfg Config) Decision {
	if item.PrimaryTicker == "" {
		return Decision{Reason: NoTicker}
	}

	if cryptoTickers[strings.ToUpper(item.PrimaryTicker)] && !isWatchlisted(item.PrimaryTicker, cfg.WatchlistedCrypto) {
		return Decision{Reason: CryptoUnlisted}
	}

	if rel, ok := item.RelevanceScores[item.PrimaryTicker]; ok && rel < minRelevance(cfg) {
		return Decision{Reason: RelevanceBelowThresh}
	}

	if cfg.PriceCeiling > 0 && enrich.LastPrice != nil {
		if gt(*enrich.LastPrice, cfg.PriceCeiling) {
			return Decision{Reason: PriceAboveCeiling}
		}
	}

	if enrich.LastPrice != nil && lt(*enrich.LastPrice, cfg.PriceFloor) {
		return Decision{Reason: PriceBelowFloor}
	}

	if isDerivativeTicker(item.PrimaryTicker) {
		return Decision{Reason: DerivativeInstrument}
	}

	if inList(item.Item.Source, cfg.SkipSources) {
		return Decision{Reason: SourceInSkipList}
	}

	if item.CatalystScore < cfg.MinScore {
		return Decision{Reason: CatalystScoreTooLow}
	}

	if item.Sentiment.Aggregate != nil && math.Abs(item.Sentiment.Aggregate.Value) < cfg.MinSentAbs {
		return Decision{Reason: SentimentTooWeak}
	}

	if !categoryAllowed(item.KeywordHits, cfg.CategoriesAllow) {
		return Decision{Reason: CategoryNotAllowed}
	}

	if !cfg.AllowOTC && isOTCTicker(item.PrimaryTicker) {
		return Decision{Reason: OTCDisabled}
	}

	if cfg.MinAvgVolume > 0 && enrich.AvgVolume != nil && *enrich.AvgVolume < cfg.MinAvgVolume {
		return Decision{Reason: VolumeBelowThreshold}
	}

	return Decision{Passed: true}
}

func minRelevance(cfg Config) int {
	if cfg.MinRelevance <= 0 {
		return 40
	}
	return cfg.MinRelevance
}

func isWatchlisted(ticker string, watchlist []string) bool {
	return inList(ticker, watchlist)
}

func inList(needle string, list []string) bool {
	for _, v := range list {
		if strings.EqualFold(v, needle) {
			return true
		}
	}
	return false
}

func categoryAllowed(hits map[string]float64, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, a := range allow {
		if a == "*" {
			return true
		}
	}
	for cat := range hits {
		if inList(cat, allow) {
			return true
		}
	}
	return false
}

// isDerivativeTicker flags warrant/rights/unit tickers by suffix
// convention, since the pipeline has no authoritative instrument-type
// feed to consult.
func isDerivativeTicker(ticker string) bool {
	for _, suf := range derivativeSuffixes {
		if strings.HasSuffix(ticker, suf) && len(ticker) > len(suf) {
			return true
		}
	}
	return false
}

// isOTCTicker uses the common convention that 5-letter OTC tickers end in
// F (foreign ordinary shares) or Y (ADRs) — a heuristic, not an
// authoritative venue lookup.
func isOTCTicker(ticker string) bool {
	return len(ticker) == 5 && (strings.HasSuffix(ticker, "F") || strings.HasSuffix(ticker, "Y"))
}

func gt(d decimal.Decimal, f float64) bool {
	return d.GreaterThan(decimal.NewFromFloat(f))
}

func lt(d decimal.Decimal, f float64) bool {
	return d.LessThan(decimal.NewFromFloat(f))
}

// Package alert renders a ScoredItem plus its enrichment and optional SEC
// analysis into the deterministic Alert embed the webhook poster sends.
package alert

import (
	"fmt"
	"sort"
	"strings"

	"alertwatcher/internal/dedup"
	"alertwatcher/internal/llm"
	"alertwatcher/internal/models"
)

// Options toggles optional embed content.
type Options struct {
	TradePlanHintEnabled bool
}

// catalystCategory picks the highest-weighted keyword hit as the embed's
// single catalyst badge. Ties break alphabetically for determinism.
func catalystCategory(hits map[string]float64) string {
	best := ""
	var bestWeight float64
	for cat, w := range hits {
		if best == "" || w > bestWeight || (w == bestWeight && cat < best) {
			best = cat
			bestWeight = w
		}
	}
	return best
}

// sentimentGauge renders a 10-discrete-cell bar over [-1,1], filled from
// the left in proportion to (value+1)/2: -1 fills no cells, 0 fills five,
// +1 fills all ten.
func sentimentGauge(value float64) string {
	const cells = 10
	filled := int((value + 1) / 2 * cells)
	if filled < 0 {
		filled = 0
	}
	if filled > cells {
		filled = cells
	}
	return strings.Repeat("#", filled) + strings.Repeat("-", cells-filled)
}

// Format builds the deterministic Alert for one gated ScoredItem. enrich
// may be the zero value if enrichment never returned data for the ticker;
// analysis is nil for non-SEC items.
func Format(item models.ScoredItem, enrich models.EnrichmentRecord, analysis *llm.Analysis, opts Options) models.Alert {
	fields := []models.EmbedField{
		{Name: "Ticker", Value: item.PrimaryTicker, Inline: true},
	}

	if cat := catalystCategory(item.KeywordHits); cat != "" {
		fields = append(fields, models.EmbedField{Name: "Catalyst", Value: cat, Inline: true})
	}

	if enrich.LastPrice != nil {
		changeStr := "n/a"
		if enrich.ChangePct != nil {
			changeStr = fmt.Sprintf("%s%%", enrich.ChangePct.StringFixed(2))
		}
		fields = append(fields, models.EmbedField{
			Name:   "Price",
			Value:  fmt.Sprintf("$%s (%s)", enrich.LastPrice.StringFixed(2), changeStr),
			Inline: true,
		})
	}

	if item.Sentiment.Aggregate != nil {
		fields = append(fields, models.EmbedField{
			Name:   "Sentiment",
			Value:  sentimentGauge(item.Sentiment.Aggregate.Value),
			Inline: false,
		})
	}

	if enrich.RVOLMultiplier != nil {
		fields = append(fields, models.EmbedField{Name: "RVOL", Value: enrich.RVOLMultiplier.StringFixed(1) + "x", Inline: true})
	}
	if enrich.FloatShares != nil {
		fields = append(fields, models.EmbedField{Name: "Float", Value: formatShareCount(*enrich.FloatShares), Inline: true})
	}

	if opts.TradePlanHintEnabled {
		fields = append(fields, models.EmbedField{Name: "Trade Plan", Value: tradePlanHint(item, enrich), Inline: false})
	}

	isSEC := strings.HasPrefix(item.Item.Source, "sec_")
	if isSEC && analysis != nil {
		fields = append(fields, secFields(item.Item, analysis)...)
	}

	embed := models.Embed{
		Title:       item.Item.Title,
		URL:         item.Item.CanonicalURL,
		Description: truncate(item.Item.Summary, 400),
		Color:       embedColor(item.CatalystScore),
		Fields:      fields,
		Footer:      item.Item.Source,
		Timestamp:   item.Item.PublishedAt,
	}

	return models.Alert{
		Ticker:         item.PrimaryTicker,
		Title:          item.Item.Title,
		Link:           item.Item.CanonicalURL,
		ContentText:    contentLine(item, enrich),
		Embed:          embed,
		IdempotencyKey: dedup.Fingerprint(item.Item),
	}
}

func contentLine(item models.ScoredItem, enrich models.EnrichmentRecord) string {
	price := "n/a"
	if enrich.LastPrice != nil {
		price = "$" + enrich.LastPrice.StringFixed(2)
	}
	return fmt.Sprintf("%s: %s (score %.1f, price %s)", item.PrimaryTicker, item.Item.Title, item.CatalystScore, price)
}

func secFields(item models.NewsItem, analysis *llm.Analysis) []models.EmbedField {
	fields := []models.EmbedField{
		{Name: "Filing Type", Value: rawField(item, "filing_type"), Inline: true},
		{Name: "Item Code", Value: rawField(item, "item_code"), Inline: true},
		{Name: "Priority Tier", Value: analysis.Tier.String(), Inline: true},
	}
	if len(analysis.ExtractedMetrics) > 0 {
		keys := make([]string, 0, len(analysis.ExtractedMetrics))
		for k := range analysis.ExtractedMetrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, analysis.ExtractedMetrics[k]))
		}
		fields = append(fields, models.EmbedField{Name: "Extracted Metrics", Value: strings.Join(parts, ", "), Inline: false})
	}
	return fields
}

func rawField(item models.NewsItem, key string) string {
	if fv, ok := item.RawFields[key]; ok && fv.Kind == models.FieldString {
		return fv.Str
	}
	return "n/a"
}

func tradePlanHint(item models.ScoredItem, enrich models.EnrichmentRecord) string {
	if enrich.LastPrice == nil {
		return "insufficient data"
	}
	if item.CatalystScore >= 7 {
		return "high-conviction catalyst; confirm volume before entry"
	}
	return "moderate catalyst; watch for follow-through volume"
}

func formatShareCount(shares int64) string {
	switch {
	case shares >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", float64(shares)/1_000_000_000)
	case shares >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(shares)/1_000_000)
	case shares >= 1_000:
		return fmt.Sprintf("%.1fK", float64(shares)/1_000)
	default:
		return fmt.Sprintf("%d", shares)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

// embedColor maps catalyst_score to a Discord-style decimal color: a dim
// gray below MinScore territory, brightening toward green as the score
// climbs toward 10.
func embedColor(score float64) int {
	switch {
	case score >= 8:
		return 0x2ECC71 // green
	case score >= 5:
		return 0xF1C40F // yellow
	default:
		return 0x95A5A6 // gray
	}
}

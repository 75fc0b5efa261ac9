// Package classifier scores a NewsItem against a fixed catalyst taxonomy.
// The taxonomy and phrase lists are configuration, not code: Taxonomy is a
// value callers load once (e.g. from an embedded default or an external
// JSON file) and pass in, rather than something this package hardcodes.
package classifier

import (
	"regexp"
	"strings"

	"alertwatcher/internal/models"
)

// Category is one entry in the catalyst taxonomy: a name plus an ordered
// list of phrases/patterns, first match wins.
type Category struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Taxonomy is the set of categories consulted by Fast and Full. Category
// order does not affect scoring: every category is independently tested,
// and KeywordHits is a map, so it carries no category order either.
type Taxonomy []Category

// DefaultTaxonomy returns the built-in catalyst categories compiled from
// case-insensitive phrase lists. Deployments that want to tune phrases
// without a redeploy should load their own Taxonomy from config instead.
func DefaultTaxonomy() Taxonomy {
	raw := map[string][]string{
		"fda":          {`fda approv`, `fda clearance`, `breakthrough therapy`, `fast track designation`, `orphan drug`, `\bpdufa\b`},
		"clinical":     {`phase (?:1|2|3|i|ii|iii) (?:trial|study|results)`, `topline (?:data|results)`, `clinical trial`, `primary endpoint`},
		"m_and_a":      {`merger`, `acquisition`, `to be acquired`, `definitive agreement to acquire`, `all-stock deal`, `tender offer`},
		"partnership":  {`strategic partnership`, `licensing agreement`, `collaboration agreement`, `joint venture`},
		"offering":     {`public offering`, `private placement`, `registered direct offering`, `shelf registration`, `dilutive`},
		"uplisting":    {`uplist`, `nasdaq listing`, `nyse american listing`, `approved for listing`},
		"earnings":     {`quarterly results`, `earnings report`, `reports (?:q[1-4]|fourth quarter|third quarter|second quarter|first quarter)`, `record revenue`},
		"guidance":     {`raises guidance`, `lowers guidance`, `updates guidance`, `full[- ]year outlook`},
		"contract":     {`awarded (?:a |the )?contract`, `purchase order`, `supply agreement`, `government contract`},
		"leadership":   {`appoints (?:new )?(?:ceo|cfo|coo|president)`, `names new chief`, `resignation of`, `steps down as`},
		"regulatory":   {`sec investigation`, `regulatory approval`, `granted patent`, `ce mark`, `510\(k\)`},
		"legal":        {`files lawsuit`, `class action`, `settlement agreement`, `patent infringement`},
		"reverse_split": {`reverse stock split`, `reverse split`},
		"short_report":  {`short report`, `short seller`, `activist short`},
	}

	tax := make(Taxonomy, 0, len(raw))
	for name, phrases := range raw {
		cat := Category{Name: name}
		for _, p := range phrases {
			cat.Patterns = append(cat.Patterns, regexp.MustCompile(`(?i)`+p))
		}
		tax = append(tax, cat)
	}
	return tax
}

// Result is the classifier's output shape, shared by Fast and Full.
type Result struct {
	CatalystScore float64
	KeywordHits   map[string]float64

	// SentimentAdjustment is the signed nudge Full derived from the
	// sentiment aggregate's confidence. It is informational only — never
	// folded into CatalystScore, which per the data model is always
	// exactly clamp(sum(KeywordHits), 0, 10) — and is meant for callers
	// that want a secondary ordering signal or a log field, not a gate
	// input (SentimentTooWeak already gates on Sentiment.Aggregate
	// directly).
	SentimentAdjustment float64
}

// Fast scores an item using only keyword matching against the taxonomy —
// no sentiment lookup, suitable for a first filtering pass over a large
// cycle before the more expensive sentiment/enrichment stages run.
func Fast(item models.NewsItem, tax Taxonomy, weights models.DynamicWeights) Result {
	text := strings.ToLower(item.Title + " " + item.Summary)

	hits := make(map[string]float64)
	for _, cat := range tax {
		for _, pat := range cat.Patterns {
			if pat.MatchString(text) {
				hits[cat.Name] = weights.Weight(cat.Name)
				break // first match wins per category
			}
		}
	}

	return Result{
		CatalystScore: clampScore(sumHits(hits)),
		KeywordHits:   hits,
	}
}

// Full runs the same keyword scoring as Fast — catalyst_score is always
// exactly clamp(sum(KeywordHits), 0, 10), per the data-model invariant —
// and additionally derives a SentimentAdjustment from the sentiment
// aggregator's confidence, for callers that want a secondary ordering
// signal without perturbing the score itself. It never changes which
// categories were matched or the score they produce.
func Full(item models.NewsItem, tax Taxonomy, weights models.DynamicWeights, sentiment models.Sentiment) Result {
	base := Fast(item, tax, weights)
	if sentiment.Aggregate == nil || len(base.KeywordHits) == 0 {
		return base
	}

	nudge := 0.25 * sentiment.Aggregate.Confidence
	if sentiment.Aggregate.Value < 0 {
		nudge = -nudge
	}
	base.SentimentAdjustment = nudge
	return base
}

func sumHits(hits map[string]float64) float64 {
	var sum float64
	for _, v := range hits {
		sum += v
	}
	return sum
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

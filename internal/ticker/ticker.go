// Package ticker resolves the ticker(s) an article is actually about and
// scores how central each one is, so a single wire story comparing two
// stocks does not get treated as equally about both.
package ticker

import (
	"regexp"
	"sort"
	"strings"
)

// dollarSign matches "$XYZ" style cash-tag tickers.
var dollarSign = regexp.MustCompile(`\$([A-Z]{1,5})\b`)

// exchangeQualified matches "(NASDAQ: XYZ)", "(NYSE American: XYZ)" etc.
var exchangeQualified = regexp.MustCompile(`\((?:NASDAQ|NYSE|NYSE American|OTC|OTCQB|OTCQX)\s*:\s*([A-Z]{1,5})\)`)

// upperRun matches a bare leading uppercase run of 2-5 letters, the
// weakest signal, used only when nothing more specific is found.
var upperRun = regexp.MustCompile(`\b([A-Z]{2,5})\b`)

// Universe validates candidate symbols against a known ticker universe.
// Implementations are expected to be cheap, in-memory lookups refreshed out
// of band; nothing in this package fetches one.
type Universe interface {
	Valid(symbol string) bool
}

// StaticUniverse is a Universe backed by a fixed set, adequate for tests
// and for small deployments that snapshot a ticker list to disk.
type StaticUniverse map[string]bool

func (u StaticUniverse) Valid(symbol string) bool { return u[symbol] }

// Config carries the MinRelevance/MaxPrimary/ScoreDiff gates from
// internal/config.
type Config struct {
	MinRelevance       int
	MaxPrimary         int
	ScoreDiffThreshold int
}

// Resolved is the ticker-resolver's output for one item.
type Resolved struct {
	Primary         []string
	RelevanceScores map[string]int // all candidates that cleared MinRelevance, not just primaries
}

// candidateHit tracks where and how often a symbol appeared, so relevance
// can be scored once extraction is done.
type candidateHit struct {
	symbol           string
	firstPosition    int // rune offset of first mention in title+summary
	inTitle          bool
	inFirstParagraph bool
	mentionCount     int
}

// Resolve extracts and scores candidate tickers for one article. If the
// item already carries tickers, those are validated against universe and
// re-scored from their position in the combined text; otherwise tickers
// are extracted from title/summary text.
func Resolve(title, summary string, carried []string, universe Universe, cfg Config) Resolved {
	combined := title + "\n" + summary
	firstParagraph := summary
	if idx := strings.Index(summary, "\n\n"); idx >= 0 {
		firstParagraph = summary[:idx]
	} else if len(summary) > 200 {
		firstParagraph = summary[:200]
	}

	var symbols []string
	if len(carried) > 0 {
		for _, s := range carried {
			sym := strings.ToUpper(strings.TrimSpace(s))
			if sym == "" {
				continue
			}
			if universe != nil && !universe.Valid(sym) {
				continue
			}
			symbols = append(symbols, sym)
		}
	} else {
		symbols = extract(combined, universe)
	}

	hits := scoreHits(title, firstParagraph, combined, symbols)

	scores := make(map[string]int, len(hits))
	for _, h := range hits {
		s := relevanceScore(h, len(combined))
		if s >= cfg.minRelevance() {
			scores[h.symbol] = s
		}
	}

	return Resolved{
		Primary:         choosePrimary(scores, cfg),
		RelevanceScores: scores,
	}
}

func (c Config) minRelevance() int {
	if c.MinRelevance > 0 {
		return c.MinRelevance
	}
	return 40
}

func (c Config) maxPrimary() int {
	if c.MaxPrimary > 0 {
		return c.MaxPrimary
	}
	return 2
}

func (c Config) scoreDiff() int {
	if c.ScoreDiffThreshold > 0 {
		return c.ScoreDiffThreshold
	}
	return 30
}

// extract runs the three extractor patterns in priority order (cash-tag,
// exchange-qualified, bare uppercase run), deduplicating as it goes, then
// drops anything the universe rejects.
func extract(text string, universe Universe) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(matches [][]string) {
		for _, m := range matches {
			sym := m[1]
			if seen[sym] {
				continue
			}
			if universe != nil && !universe.Valid(sym) {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
		}
	}

	add(dollarSign.FindAllStringSubmatch(text, -1))
	add(exchangeQualified.FindAllStringSubmatch(text, -1))
	if universe != nil {
		// The bare-uppercase-run heuristic is noisy (matches "FDA", "CEO",
		// etc.) so it's only trusted when a universe can filter it.
		add(upperRun.FindAllStringSubmatch(text, -1))
	}
	return out
}

func scoreHits(title, firstParagraph, combined string, symbols []string) []candidateHit {
	hits := make([]candidateHit, 0, len(symbols))
	for _, sym := range symbols {
		h := candidateHit{symbol: sym, firstPosition: -1}
		h.inTitle = strings.Contains(title, sym)
		h.inFirstParagraph = strings.Contains(firstParagraph, sym)
		h.mentionCount = strings.Count(combined, sym)
		if idx := strings.Index(combined, sym); idx >= 0 {
			h.firstPosition = idx
		}
		hits = append(hits, h)
	}
	return hits
}

// relevanceScore implements the spec formula:
//
//	50*position + 30*in_first_paragraph + 20*min(5, mention_count)*0.2
//
// where `position` is 1.0 when the ticker appears in the title, else a
// linear falloff by how early in the combined text it first appears.
func relevanceScore(h candidateHit, textLen int) int {
	var position float64
	switch {
	case h.inTitle:
		position = 1.0
	case h.firstPosition >= 0 && textLen > 0:
		position = 1.0 - float64(h.firstPosition)/float64(textLen)
	}

	var inParagraph float64
	if h.inFirstParagraph {
		inParagraph = 1.0
	}

	mentionFactor := float64(h.mentionCount)
	if mentionFactor > 5 {
		mentionFactor = 5
	}

	score := 50*position + 30*inParagraph + 20*mentionFactor*0.2
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return int(score + 0.5)
}

// choosePrimary ranks candidates by score (ties broken by earlier title
// position is already baked into the score via `position`), then applies
// MaxPrimary and the ScoreDiff single-vs-multi-ticker rule.
func choosePrimary(scores map[string]int, cfg Config) []string {
	type ranked struct {
		symbol string
		score  int
	}
	all := make([]ranked, 0, len(scores))
	for sym, sc := range scores {
		all = append(all, ranked{sym, sc})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].symbol < all[j].symbol
	})

	if len(all) == 0 {
		return nil
	}
	if len(all) == 1 {
		return []string{all[0].symbol}
	}

	if all[0].score-all[1].score >= cfg.scoreDiff() {
		return []string{all[0].symbol}
	}

	max := cfg.maxPrimary()
	if max > len(all) {
		max = len(all)
	}
	out := make([]string, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, all[i].symbol)
	}
	return out
}

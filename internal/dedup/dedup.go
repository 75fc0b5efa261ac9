// Package dedup collapses duplicate NewsItems within a single cycle: first
// an exact pass keyed by Fingerprint, then a fuzzy pass within ticker
// buckets for near-duplicate titles that hashed differently (e.g. a wire
// service and a syndicating outlet with distinct URLs and no shared
// source_id).
package dedup

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"

	"alertwatcher/internal/models"
)

// Config holds the tunables the orchestrator passes in from
// internal/config.
type Config struct {
	FuzzyThreshold float64 // token-set similarity in [0,1], default 0.80
}

// SourceWeights maps a source identifier to its configured tie-break
// weight. Sources absent from the map are treated as weight 0.
type SourceWeights map[string]int

// candidate pairs a NewsItem with its precomputed fingerprint so it is
// only ever hashed once per cycle.
type candidate struct {
	item models.NewsItem
	fp   string
}

// Dedup runs the two-pass algorithm described in spec.md §4.3 and returns
// the deduped subset, plus the chosen fingerprint for each survivor so the
// orchestrator can carry it through to the seen-store mark without
// recomputing it.
func Dedup(items []models.NewsItem, weights SourceWeights, cfg Config) ([]models.NewsItem, map[string]string) {
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = 0.80
	}

	cands := make([]candidate, len(items))
	for i, it := range items {
		cands[i] = candidate{item: it, fp: Fingerprint(it)}
	}

	exact := exactPass(cands, weights)
	fuzzy := fuzzyPass(exact, weights, threshold)

	out := make([]models.NewsItem, len(fuzzy))
	fps := make(map[string]string, len(fuzzy))
	for i, c := range fuzzy {
		out[i] = c.item
		fps[fingerprintKey(c.item)] = c.fp
	}
	return out, fps
}

// fingerprintKey gives callers a stable map key even though NewsItem is not
// itself comparable-by-value-safe as a map key (it contains a map field).
func fingerprintKey(item models.NewsItem) string {
	return item.Source + "|" + item.SourceID + "|" + item.CanonicalURL
}

// exactPass groups candidates by fingerprint and keeps one survivor per
// group: the highest-weighted source, tie-broken by earliest PublishedAt.
// Iteration order over the input is preserved for the first occurrence of
// each group so output is deterministic.
func exactPass(cands []candidate, weights SourceWeights) []candidate {
	bestIdx := make(map[string]int)
	order := make([]string, 0, len(cands))

	for i, c := range cands {
		prevIdx, ok := bestIdx[c.fp]
		if !ok {
			bestIdx[c.fp] = i
			order = append(order, c.fp)
			continue
		}
		if betterCandidate(cands[i], cands[prevIdx], weights) {
			bestIdx[c.fp] = i
		}
	}

	out := make([]candidate, 0, len(order))
	for _, fp := range order {
		out = append(out, cands[bestIdx[fp]])
	}
	return out
}

// betterCandidate reports whether a should replace b as the group's
// survivor.
func betterCandidate(a, b candidate, weights SourceWeights) bool {
	wa, wb := weights[a.item.Source], weights[b.item.Source]
	if wa != wb {
		return wa > wb
	}
	return a.item.PublishedAt.Before(b.item.PublishedAt)
}

// fuzzyPass performs pairwise token-set comparison within ticker buckets
// and collapses pairs at or above threshold, keeping the same survivor the
// exact pass would: the higher-weighted source, then the earlier-published,
// then (on an exact tie) the first-seen in input order.
func fuzzyPass(cands []candidate, weights SourceWeights, threshold float64) []candidate {
	buckets := make(map[string][]int)
	untickered := make([]int, 0)

	for i, c := range cands {
		if len(c.item.Tickers) == 0 {
			untickered = append(untickered, i)
			continue
		}
		for _, t := range c.item.Tickers {
			buckets[t] = append(buckets[t], i)
		}
	}

	dropped := make(map[int]bool)
	for _, idxs := range buckets {
		collapseSimilar(cands, idxs, weights, threshold, dropped)
	}

	// Survivors are collected in input order (not bucket-map order) so the
	// stable sort below keeps equal-time items in a deterministic order.
	out := make([]candidate, 0, len(cands))
	for i := range cands {
		if dropped[i] {
			continue
		}
		out = append(out, cands[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].item.PublishedAt.Before(out[j].item.PublishedAt)
	})
	return out
}

// collapseSimilar marks the losing member of every similar pair (per
// betterCandidate) as dropped, mutating dropped in place.
func collapseSimilar(cands []candidate, idxs []int, weights SourceWeights, threshold float64, dropped map[int]bool) {
	for a := 0; a < len(idxs); a++ {
		if dropped[idxs[a]] {
			continue
		}
		for b := a + 1; b < len(idxs); b++ {
			if dropped[idxs[b]] {
				continue
			}
			i, j := idxs[a], idxs[b]
			sim := titleSimilarity(cands[i].item.Title, cands[j].item.Title)
			if sim < threshold {
				continue
			}
			if betterCandidate(cands[j], cands[i], weights) {
				dropped[i] = true
			} else {
				dropped[j] = true
			}
		}
	}
}

// titleSimilarity approximates a token-set ratio: both titles are reduced
// to a sorted, deduplicated token sequence before comparison, so word
// reordering and repeated words never lower the score.
func titleSimilarity(a, b string) float64 {
	return levenshtein.Match(tokenSet(a), tokenSet(b), nil)
}

func tokenSet(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	uniq := make(map[string]bool, len(fields))
	for _, f := range fields {
		uniq[f] = true
	}
	tokens := make([]string, 0, len(uniq))
	for t := range uniq {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

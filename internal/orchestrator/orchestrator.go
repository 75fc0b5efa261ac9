// Package orchestrator drives the per-cycle pipeline: concurrent fetch,
// dedup, seen-check, ticker resolution, batch price, per-item classify /
// sentiment / enrich, gate, format, post, mark. Modeled on the teacher's
// main poll loop (cmd/alpha_watcher/main.go) generalized from a single
// hourly position-check into a multi-stage news pipeline with bounded
// fan-out at each stage.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"alertwatcher/internal/alert"
	"alertwatcher/internal/classifier"
	"alertwatcher/internal/config"
	"alertwatcher/internal/dedup"
	"alertwatcher/internal/enrichment"
	"alertwatcher/internal/feeds"
	"alertwatcher/internal/gates"
	"alertwatcher/internal/llm"
	"alertwatcher/internal/logger"
	"alertwatcher/internal/marketdata"
	"alertwatcher/internal/models"
	"alertwatcher/internal/seenstore"
	"alertwatcher/internal/sentiment"
	"alertwatcher/internal/ticker"
	"alertwatcher/internal/weights"
	"alertwatcher/internal/webhook"
)

// Deps bundles every collaborator the orchestrator drives. Built once at
// process start and threaded in by constructor injection, never resolved
// via ambient globals.
type Deps struct {
	Registry       *feeds.Registry
	Freshness      feeds.FreshnessConfig
	SourceWeights  dedup.SourceWeights
	DedupCfg       dedup.Config
	SeenStore      *seenstore.Store
	Universe       ticker.Universe
	TickerCfg      ticker.Config
	Taxonomy       classifier.Taxonomy
	Weights        *weights.Loader
	MLScorer       *sentiment.MLScorer // optional, may be nil
	VendorClient   *sentiment.VendorClient
	SourceWeightsS sentiment.SourceWeights
	Market         *marketdata.Client
	Enrichment     *enrichment.Pool
	LLM            *llm.Client
	GatesCfg       gates.Config
	AlertOpts      alert.Options
	Poster         *webhook.Poster
	JitterMaxMs    int
	MaxAlertsCycle int
	Log            *log.Logger

	// Events, when set, receives one structured JSONL line per sub-stage
	// failure with a stable reason tag (spec.md §2.2/§6), so a failure
	// is never only a bare log.Printf. Optional; may be nil.
	Events *logger.EventLogger

	// OnCycle, when set, is called with each cycle's final stats before
	// RunCycle returns. Used by the health endpoint to publish a snapshot
	// without the orchestrator importing net/http itself.
	OnCycle func(models.CycleStats)
}

// logFailure records a sub-stage failure to the rotating text log and,
// when Deps.Events is configured, as a structured event carrying a stable
// reason tag — the only path failures should ever go through, per
// spec.md §2.2.
func (o *Orchestrator) logFailure(cycleID, stage, reason, msg string, err error) {
	if err != nil {
		o.deps.Log.Printf("%s: %s: %v", stage, msg, err)
	} else {
		o.deps.Log.Printf("%s: %s", stage, msg)
	}
	if o.deps.Events != nil {
		fields := map[string]any{"message": msg}
		if err != nil {
			fields["error"] = err.Error()
		}
		o.deps.Events.Log(stage, reason, cycleID, fields)
	}
}

// Orchestrator is the single-threaded-across-cycles cycle driver.
type Orchestrator struct {
	deps Deps
	cfg  *config.Config

	emptyCycleCount int
	deferred        []models.ScoredItem // carried to the next cycle when MaxAlertsPerCycle is exceeded
}

func New(deps Deps, cfg *config.Config) *Orchestrator {
	if deps.Log == nil {
		deps.Log = log.Default()
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// RunForever loops cycles at a cadence determined by market status until
// ctx is cancelled, at which point the in-flight cycle finishes and the
// loop returns.
func (o *Orchestrator) RunForever(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.deps.Log.Println("shutdown signal received, exiting after current cycle")
			return
		default:
		}

		stats := o.RunCycle(ctx)
		o.deps.Log.Printf("cycle %s done: fetched=%d deduped=%d classified=%d enriched=%d alerts_sent=%d alerts_failed=%d dropped_error=%d duration=%s",
			stats.CycleID, stats.Fetched, stats.Deduped, stats.Classified, stats.Enriched, stats.AlertsSent, stats.AlertsFailed, stats.DroppedError, stats.CycleDuration)

		status := CurrentMarketStatus(time.Now())
		interval := CycleInterval(status,
			time.Duration(o.cfg.CycleSecondsRegular)*time.Second,
			time.Duration(o.cfg.CycleSecondsExtended)*time.Second,
			time.Duration(o.cfg.CycleSecondsClosed)*time.Second,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// RunCycle executes exactly one pipeline pass. Every sub-stage failure is
// caught at its boundary and attributed to a stats counter; nothing here
// panics the cycle.
func (o *Orchestrator) RunCycle(ctx context.Context) models.CycleStats {
	start := time.Now()
	cycleID := uuid.NewString()
	stats := models.NewCycleStats(cycleID, start)

	if o.deps.SeenStore != nil {
		if evicted, err := o.deps.SeenStore.MaybePurgeExpired(start); err != nil {
			o.logFailure(cycleID, "seen_store", "purge_failed", "seen-store purge failed", err)
		} else if evicted > 0 {
			o.deps.Log.Printf("seen-store purge evicted %d expired records", evicted)
		}
	}

	if o.deps.Weights != nil {
		if err := o.deps.Weights.Reload(); err != nil {
			o.logFailure(cycleID, "weights", "reload_failed", "dynamic weights reload failed, keeping previous snapshot", err)
		}
	}

	items := o.fetchAll(ctx, stats)
	stats.Fetched = len(items)

	fresh := o.filterFresh(items, start, stats)

	deduped, _ := dedup.Dedup(fresh, o.deps.SourceWeights, o.deps.DedupCfg)
	stats.Deduped = len(deduped)

	unseen := o.filterSeen(deduped, stats)

	var dynamicWeights models.DynamicWeights
	if o.deps.Weights != nil {
		dynamicWeights = o.deps.Weights.Current()
	} else {
		dynamicWeights = models.DynamicWeights{Baseline: 0.50}
	}

	scored := o.classifyAndScore(ctx, unseen, dynamicWeights, stats)
	stats.Classified = len(scored)

	tickers := uniqueTickers(scored)
	prices := map[string]marketdata.Price{}
	if o.deps.Market != nil {
		prices = o.deps.Market.BatchGetPrices(ctx, tickers)
	}
	enrichByTicker := map[string]models.EnrichmentRecord{}
	if o.deps.Enrichment != nil {
		enrichByTicker = o.deps.Enrichment.Enrich(ctx, tickers, prices)
	}
	stats.Enriched = len(enrichByTicker)

	toAlert := o.gateAndOrder(scored, enrichByTicker, stats)

	analyses := o.analyzeSECFilings(ctx, toAlert, cycleID)

	o.postAlerts(ctx, toAlert, enrichByTicker, analyses, &stats)

	if stats.Fetched == 0 {
		o.emptyCycleCount++
		if o.emptyCycleCount == o.emptyCycleThreshold() {
			o.logFailure(cycleID, "cycle", "consecutive_empty_cycles",
				fmt.Sprintf("%d consecutive empty cycles", o.emptyCycleCount), nil)
		}
	} else {
		o.emptyCycleCount = 0
	}

	stats.CycleDuration = time.Since(start)
	if o.deps.OnCycle != nil {
		o.deps.OnCycle(stats)
	}
	return stats
}

func (o *Orchestrator) emptyCycleThreshold() int {
	if o.cfg.EmptyCycleWarnAfter > 0 {
		return o.cfg.EmptyCycleWarnAfter
	}
	return 5
}

// fetchAll fans out to every configured source with bounded concurrency
// (spec default 10).
func (o *Orchestrator) fetchAll(ctx context.Context, stats models.CycleStats) []models.NewsItem {
	sources := o.deps.Registry.Sources()
	const maxConcurrent = 10

	results := make([][]models.NewsItem, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, 8*time.Second)
			defer cancel()
			items, err := src.Fetch(fetchCtx)
			if err != nil {
				// A fetcher failure never propagates past the cycle; it
				// contributes zero items and is only logged here.
				o.logFailure(stats.CycleID, "feed_fetch", "fetch_error", "feed "+src.Name()+" fetch error", err)
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait() // every Go func above always returns nil; errors are logged, not surfaced

	var all []models.NewsItem
	for i, src := range sources {
		all = append(all, results[i]...)
		stats.BySource[src.Name()] += len(results[i])
	}
	return all
}

func (o *Orchestrator) filterFresh(items []models.NewsItem, now time.Time, stats models.CycleStats) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if o.deps.Freshness.IsFresh(it, now) {
			out = append(out, it)
		} else {
			stats.Skipped["stale"]++
		}
	}
	return out
}

func (o *Orchestrator) filterSeen(items []models.NewsItem, stats models.CycleStats) []models.NewsItem {
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		fp := dedup.Fingerprint(it)
		if o.deps.SeenStore != nil && o.deps.SeenStore.Seen(fp) {
			stats.Skipped["already_seen"]++
			continue
		}
		out = append(out, it)
	}
	return out
}

// resolvedItem pairs a NewsItem with its ticker resolution, carried between
// the two passes of classifyAndScore.
type resolvedItem struct {
	item     models.NewsItem
	resolved ticker.Resolved
}

// classifyAndScore runs ticker resolution, then scores every item that
// resolved a ticker. The ML sentiment scorer is consulted once per cycle in
// MLBatchSize-sized batches across every resolved item (spec.md §4.7),
// never per item; items with no valid ticker are rejected and counted here
// rather than deferred to the gate pipeline, per spec.md §4.5.
func (o *Orchestrator) classifyAndScore(ctx context.Context, items []models.NewsItem, dw models.DynamicWeights, stats models.CycleStats) []models.ScoredItem {
	resolvable := make([]resolvedItem, 0, len(items))
	for _, it := range items {
		resolved := ticker.Resolve(it.Title, it.Summary, it.Tickers, o.deps.Universe, o.deps.TickerCfg)
		if len(resolved.Primary) == 0 {
			stats.Skipped["no_ticker"]++
			continue
		}
		resolvable = append(resolvable, resolvedItem{item: it, resolved: resolved})
	}

	mlScores := o.batchScoreML(ctx, resolvable, stats.CycleID)

	out := make([]models.ScoredItem, 0, len(resolvable))
	for _, ri := range resolvable {
		it := ri.item

		local := sentiment.Local(it)
		var ml, ext, preAfter *models.SentimentComponent
		if comp, ok := mlScores[it.SourceID]; ok {
			mlCopy := comp
			ml = &mlCopy
		}
		if o.deps.VendorClient != nil {
			if comp, err := o.deps.VendorClient.Score(ctx, it.SourceID, it.CanonicalURL); err == nil {
				ext = comp
			}
		}

		sent := sentiment.BuildSentiment(&local, ml, ext, preAfter, o.deps.SourceWeightsS)
		result := classifier.Full(it, o.deps.Taxonomy, dw, sent)

		primary := ri.resolved.Primary[0]
		var secondary []string
		if len(ri.resolved.Primary) > 1 {
			secondary = ri.resolved.Primary[1:]
		}

		out = append(out, models.ScoredItem{
			Item:             it,
			PrimaryTicker:    primary,
			SecondaryTickers: secondary,
			RelevanceScores:  ri.resolved.RelevanceScores,
			KeywordHits:      result.KeywordHits,
			CatalystScore:    result.CatalystScore,
			Sentiment:        sent,
			ClassificationTS: time.Now().UTC(),
		})
	}

	return out
}

// batchScoreML chunks every resolved item into sentiment.MLBatchSize groups
// and calls ScoreBatch once per chunk, so a cycle with N items issues
// ceil(N/MLBatchSize) requests rather than N.
func (o *Orchestrator) batchScoreML(ctx context.Context, resolvable []resolvedItem, cycleID string) map[string]models.SentimentComponent {
	out := make(map[string]models.SentimentComponent)
	if o.deps.MLScorer == nil || len(resolvable) == 0 {
		return out
	}

	for start := 0; start < len(resolvable); start += sentiment.MLBatchSize {
		end := start + sentiment.MLBatchSize
		if end > len(resolvable) {
			end = len(resolvable)
		}
		chunk := resolvable[start:end]

		ids := make([]string, len(chunk))
		texts := make([]string, len(chunk))
		for i, ri := range chunk {
			ids[i] = ri.item.SourceID
			texts[i] = ri.item.Title + " " + ri.item.Summary
		}

		batch, err := o.deps.MLScorer.ScoreBatch(ctx, ids, texts)
		if err != nil {
			o.logFailure(cycleID, "ml_scorer", "batch_failed", fmt.Sprintf("ml scorer batch of %d failed", len(chunk)), err)
			continue
		}
		for id, comp := range batch {
			out[id] = comp
		}
	}
	return out
}

func uniqueTickers(scored []models.ScoredItem) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range scored {
		if !seen[s.PrimaryTicker] {
			seen[s.PrimaryTicker] = true
			out = append(out, s.PrimaryTicker)
		}
	}
	return out
}

// gateAndOrder evaluates every gate, orders survivors by descending
// (catalyst_score, recency) per spec.md §5, and defers any item beyond
// MaxAlertsPerCycle to the next cycle rather than dropping it.
func (o *Orchestrator) gateAndOrder(scored []models.ScoredItem, enrich map[string]models.EnrichmentRecord, stats models.CycleStats) []models.ScoredItem {
	candidates := append([]models.ScoredItem{}, o.deferred...)
	o.deferred = nil
	candidates = append(candidates, scored...)

	passed := make([]models.ScoredItem, 0, len(candidates))
	for _, item := range candidates {
		rec := enrich[item.PrimaryTicker]
		decision := gates.Evaluate(item, rec, o.deps.GatesCfg)
		if !decision.Passed {
			stats.Skipped[string(decision.Reason)]++
			continue
		}
		passed = append(passed, item)
	}

	sort.SliceStable(passed, func(i, j int) bool {
		if passed[i].CatalystScore != passed[j].CatalystScore {
			return passed[i].CatalystScore > passed[j].CatalystScore
		}
		return passed[i].Item.PublishedAt.After(passed[j].Item.PublishedAt)
	})

	maxPerCycle := o.deps.MaxAlertsCycle
	if maxPerCycle <= 0 {
		maxPerCycle = 40
	}
	if len(passed) > maxPerCycle {
		o.deferred = append(o.deferred, passed[maxPerCycle:]...)
		passed = passed[:maxPerCycle]
	}
	return passed
}

// analyzeSECFilings batches every sec_-prefixed surviving item through the
// LLM client in one call, keyed by fingerprint (doc fingerprint doubles as
// the LLM cache key, per spec.md §4.10). Items from non-SEC sources never
// reach this stage. A nil Deps.LLM or an analysis error yields no entries;
// the formatter renders SEC items without the extra fields in that case
// rather than failing the alert.
func (o *Orchestrator) analyzeSECFilings(ctx context.Context, items []models.ScoredItem, cycleID string) map[string]llm.Analysis {
	if o.deps.LLM == nil {
		return nil
	}
	var docs []llm.SECDoc
	for _, item := range items {
		if !isSECSource(item.Item.Source) {
			continue
		}
		fp := dedup.Fingerprint(item.Item)
		docs = append(docs, llm.SECDoc{
			DocID:       fp,
			ItemCode:    rawFieldString(item.Item, "item_code"),
			Text:        item.Item.Title + "\n" + item.Item.Summary,
			AccessionNo: rawFieldString(item.Item, "accession_number"),
		})
	}
	if len(docs) == 0 {
		return nil
	}
	results, err := o.deps.LLM.Analyze(ctx, docs)
	if err != nil {
		o.logFailure(cycleID, "llm_analyze", "analyze_failed", fmt.Sprintf("llm analyze failed for %d sec filings", len(docs)), err)
		return nil
	}
	return results
}

func isSECSource(source string) bool {
	return len(source) >= 4 && source[:4] == "sec_"
}

func rawFieldString(item models.NewsItem, key string) string {
	if fv, ok := item.RawFields[key]; ok {
		return fv.Str
	}
	return ""
}

// postAlerts formats and posts each surviving item, marking the seen-store
// only after a successful 2xx response, per spec.md §4.4/§4.12.
func (o *Orchestrator) postAlerts(ctx context.Context, items []models.ScoredItem, enrich map[string]models.EnrichmentRecord, analyses map[string]llm.Analysis, stats *models.CycleStats) {
	for _, item := range items {
		rec := enrich[item.PrimaryTicker]

		var analysis *llm.Analysis
		if analyses != nil {
			fp := dedup.Fingerprint(item.Item)
			if a, ok := analyses[fp]; ok {
				analysis = &a
			}
		}
		a := alert.Format(item, rec, analysis, o.deps.AlertOpts)

		jitter := o.deps.JitterMaxMs
		if jitter > 0 {
			jitter = rand.Intn(jitter)
		}

		if o.deps.Poster == nil {
			stats.AlertsFailed++
			continue
		}

		_, err := o.deps.Poster.Post(ctx, a, jitter)
		if err != nil {
			o.logFailure(stats.CycleID, "webhook_post", "post_failed", "webhook post failed for "+item.PrimaryTicker, err)
			stats.AlertsFailed++
			continue
		}

		stats.AlertsSent++
		stats.ByCategory[primaryCategory(item.KeywordHits)]++

		if o.deps.SeenStore != nil {
			fp := dedup.Fingerprint(item.Item)
			if err := o.deps.SeenStore.Mark(fp, item.Item.Source, o.deps.SourceWeights[item.Item.Source], time.Now()); err != nil {
				o.logFailure(stats.CycleID, "seen_store", "mark_failed", "seen-store mark failed for "+item.PrimaryTicker, err)
			}
		}
	}
}

func primaryCategory(hits map[string]float64) string {
	best := ""
	var bestWeight float64
	for cat, w := range hits {
		if best == "" || w > bestWeight {
			best = cat
			bestWeight = w
		}
	}
	if best == "" {
		return "uncategorized"
	}
	return best
}

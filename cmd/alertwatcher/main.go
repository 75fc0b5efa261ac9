// Command alertwatcher is the process entrypoint: load config, wire every
// collaborator by constructor injection, start the health mux, run the
// orchestrator loop until a shutdown signal arrives, then release
// resources in reverse order. Modeled on the teacher's
// cmd/alpha_watcher/main.go shape (load env, install signal handling,
// main loop, graceful exit) generalized from a single hourly position
// check into the multi-stage cycle pipeline.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"alertwatcher/internal/alert"
	"alertwatcher/internal/classifier"
	"alertwatcher/internal/config"
	"alertwatcher/internal/dedup"
	"alertwatcher/internal/enrichment"
	"alertwatcher/internal/feeds"
	"alertwatcher/internal/feeds/rss"
	"alertwatcher/internal/feeds/secfilings"
	"alertwatcher/internal/feeds/vendorjson"
	"alertwatcher/internal/gates"
	"alertwatcher/internal/health"
	"alertwatcher/internal/llm"
	"alertwatcher/internal/logger"
	"alertwatcher/internal/marketdata"
	"alertwatcher/internal/marketdata/providers"
	"alertwatcher/internal/orchestrator"
	"alertwatcher/internal/seenstore"
	"alertwatcher/internal/sentiment"
	"alertwatcher/internal/ticker"
	"alertwatcher/internal/weights"
	"alertwatcher/internal/webhook"
)

const version = "1.0.0"

func main() {
	logger.Setup("alertwatcher.log", 5, 3)
	log.Printf("Alert Watcher v%s starting", version)

	cfg := config.Load()
	if cfg.WebhookURL == "" {
		log.Println("Warning: WEBHOOK_URL not set; alerts will be formatted but never posted")
	}

	seenStore, err := seenstore.Open(cfg.SeenStorePath, time.Duration(cfg.SeenTTLDays)*24*time.Hour)
	if err != nil {
		log.Fatalf("CRITICAL: could not open seen-store at %s: %v", cfg.SeenStorePath, err)
	}
	defer seenStore.Close()

	eventLog, err := logger.NewEventLogger("events.log", 5, 3)
	if err != nil {
		log.Printf("Warning: could not open events.log, structured events will not be persisted: %v", err)
	} else {
		eventLog.Log("process", "start", "", map[string]any{"version": version})
		defer eventLog.Log("process", "shutdown", "", nil)
	}

	recorder := health.NewRecorder()
	deps := buildDeps(cfg, seenStore, recorder, eventLog)
	orch := orchestrator.New(deps, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	installSignalHandler(cancel)

	heartbeat := startHeartbeat(cfg.HeartbeatIntervalMin, recorder)
	defer heartbeat.Stop()

	healthSrv := startHealthServer(cfg.HealthAddr, recorder)
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("health server shutdown error: %v", err)
		}
	}()

	log.Println("entering cycle loop")
	orch.RunForever(ctx)
	log.Println("shutdown complete, exiting")
}

// buildDeps wires every collaborator once, at process start, per
// spec.md §9's "acquire at process start; release on shutdown in reverse
// order" resource-ownership rule.
func buildDeps(cfg *config.Config, seenStore *seenstore.Store, recorder *health.Recorder, eventLog *logger.EventLogger) orchestrator.Deps {
	registry := feeds.NewRegistry(buildFeedSources(cfg)...)

	universe := loadTickerUniverse()

	marketProviders, providerRates := buildMarketProviders(cfg)
	marketClient := marketdata.NewClient(marketProviders, providerRates)

	enrichPool := enrichment.NewPool(marketClient, enrichment.Config{
		FloatWorkers:  cfg.EnrichmentFloatWorkers,
		RVOLWorkers:   cfg.EnrichmentRVOLWorkers,
		VWAPWorkers:   cfg.EnrichmentVWAPWorkers,
		PerTickerTime: time.Duration(cfg.EnrichmentPerTickerSec) * time.Second,
	})

	var llmClient *llm.Client
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewClient(
			"https://api.alertwatcher-llm.internal/v1/analyze",
			cfg.LLMAPIKey,
			llm.CostThresholds{Warn: cfg.CostWarnUSD, Crit: cfg.CostCritUSD, Emergency: cfg.CostEmergencyUSD},
			30,
			llm.WithBatchSize(cfg.LLMBatchSize),
			llm.WithFlushInterval(time.Duration(cfg.LLMBatchFlushMs)*time.Millisecond),
		)
	} else {
		log.Println("LLM_API_KEY not set; SEC filings will alert without LLM-extracted fields")
	}

	var mlScorer *sentiment.MLScorer
	var vendorClient *sentiment.VendorClient
	if cfg.SentimentVendorAPIKey != "" {
		mlScorer = sentiment.NewMLScorer("https://api.alertwatcher-ml.internal/v1/score", cfg.SentimentVendorAPIKey)
		vendorClient = sentiment.NewVendorClient("https://api.alertwatcher-sentiment.internal/v1/score", cfg.SentimentVendorAPIKey)
	}

	poster := webhook.New(cfg.WebhookURL, webhook.Config{
		MaxRetries:    cfg.WebhookMaxRetries,
		Timeout:       time.Duration(cfg.WebhookTimeoutSec) * time.Second,
		MaxBackoff:    3 * time.Second,
		JitterMaxMs:   cfg.AlertsJitterMs,
		RatePerMinute: 30,
	}, log.Default())

	return orchestrator.Deps{
		Registry:      registry,
		Freshness:     feedFreshness(cfg),
		SourceWeights: sourceWeights(),
		DedupCfg:      dedup.Config{FuzzyThreshold: cfg.DedupFuzzyThreshold},
		SeenStore:     seenStore,
		Universe:      universe,
		TickerCfg: ticker.Config{
			MinRelevance:       cfg.MinRelevance,
			MaxPrimary:         cfg.MaxPrimary,
			ScoreDiffThreshold: cfg.ScoreDiffThreshold,
		},
		Taxonomy:       classifier.DefaultTaxonomy(),
		Weights:        weights.NewLoader(cfg.WeightsPath),
		MLScorer:       mlScorer,
		VendorClient:   vendorClient,
		SourceWeightsS: sentiment.DefaultSourceWeights(),
		Market:         marketClient,
		Enrichment:     enrichPool,
		LLM:            llmClient,
		GatesCfg: gates.Config{
			MinRelevance:    cfg.MinRelevance,
			PriceFloor:      cfg.PriceFloor,
			PriceCeiling:    cfg.PriceCeiling,
			MinScore:        cfg.MinScore,
			CategoriesAllow: cfg.CategoriesAllow,
			SkipSources:     cfg.SkipSources,
			AllowOTC:        cfg.AllowOTC,
		},
		AlertOpts:      alert.Options{TradePlanHintEnabled: true},
		Poster:         poster,
		JitterMaxMs:    cfg.AlertsJitterMs,
		MaxAlertsCycle: cfg.MaxAlertsPerCycle,
		Log:            log.Default(),
		Events:         eventLog,
		OnCycle:        recorder.Record,
	}
}

// buildFeedSources constructs the registered feed sources from config. A
// production deployment points FEED_RSS_URLS/FEED_VENDOR_URLS/
// FEED_SEC_URL at real endpoints; defaults are empty so a fresh checkout
// starts up cleanly with zero sources (an empty cycle, not a crash).
func buildFeedSources(cfg *config.Config) []feeds.Source {
	var sources []feeds.Source
	for _, url := range splitNonEmpty(os.Getenv("FEED_RSS_URLS")) {
		sources = append(sources, rss.New(rssSourceName(url), url, 10, 8*time.Second))
	}
	for _, url := range splitNonEmpty(os.Getenv("FEED_VENDOR_URLS")) {
		sources = append(sources, vendorjson.New(vendorSourceName(url), url, cfg.MarketDataAPIKey, 10, 8*time.Second))
	}
	if secURL := os.Getenv("FEED_SEC_URL"); secURL != "" {
		sources = append(sources, secfilings.New("sec_edgar", secURL, 15, 8*time.Second))
	}
	return sources
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func rssSourceName(url string) string    { return "rss_" + hostHint(url) }
func vendorSourceName(url string) string { return "vendor_" + hostHint(url) }

// hostHint is a cheap, dependency-free stand-in for a full URL parse; it
// only needs to produce a stable, readable source tag for logs and
// source-weight lookups.
func hostHint(url string) string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if idx := strings.IndexAny(trimmed, "/?"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.ReplaceAll(trimmed, ".", "_")
}

// sourceWeights is the dedup/seen-store tie-break table (spec.md §3's
// SeenRecord.weight): wire-service sources that commonly break news first
// outrank syndicating aggregators.
func sourceWeights() dedup.SourceWeights {
	return dedup.SourceWeights{
		"sec_edgar":      100,
		"prnewswire":     80,
		"globenewswire":  75,
		"businesswire":   75,
	}
}

func feedFreshness(cfg *config.Config) feeds.FreshnessConfig {
	return feeds.FreshnessConfig{
		MaxArticleAge: time.Duration(cfg.MaxArticleAgeMinutes) * time.Minute,
		MaxSECAge:     time.Duration(cfg.MaxSECFilingAgeMinutes) * time.Minute,
	}
}

// buildMarketProviders wires the configured priority-ordered vendor chain.
// Absent an API key, the chain is empty and batch price/enrichment simply
// return nothing for every ticker (spec.md B2, all-nil enrichment).
func buildMarketProviders(cfg *config.Config) ([]providers.Provider, []int) {
	if cfg.MarketDataAPIKey == "" {
		log.Println("MARKET_DATA_API_KEY not set; enrichment and price gates will see nil data")
		return nil, nil
	}
	primary := providers.NewHTTPProvider("vendor_a", "https://api.alertwatcher-market.internal/v1", cfg.MarketDataAPIKey, 5*time.Second)
	return []providers.Provider{primary}, []int{120}
}

// loadTickerUniverse returns no universe: no ticker snapshot is loaded.
// ticker.Resolve treats a nil Universe as "accept every candidate", so
// carried, cash-tag and exchange-qualified symbols are all accepted
// unchecked, and the bare-uppercase-run extractor is not used.
func loadTickerUniverse() ticker.Universe {
	return nil
}

// startHeartbeat schedules a periodic "still alive" log line on a cron
// schedule, the admin-channel-facing counterpart to the teacher's
// 24h-equity heartbeat, generalized to the configurable
// HEARTBEAT_INTERVAL_MIN cadence rather than a hardcoded 24h.
func startHeartbeat(intervalMin int, recorder *health.Recorder) *cron.Cron {
	if intervalMin <= 0 {
		intervalMin = 60
	}
	c := cron.New()
	spec := "@every " + time.Duration(intervalMin*int(time.Minute)).String()
	if _, err := c.AddFunc(spec, func() {
		log.Printf("HEARTBEAT: watcher alive, cycles_completed=%d", recorder.CyclesCompleted())
	}); err != nil {
		log.Printf("Warning: could not schedule heartbeat: %v", err)
	}
	c.Start()
	return c
}

func startHealthServer(addr string, recorder *health.Recorder) *http.Server {
	srv := &http.Server{Addr: addr, Handler: recorder.Mux()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()
	log.Printf("health endpoint listening on %s", addr)
	return srv
}

func installSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("shutdown signal received (%s); finishing in-flight cycle", sig)
		cancel()
	}()
}

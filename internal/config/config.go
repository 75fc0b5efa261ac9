package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all tweakable pipeline parameters. Values are loaded from
// environment variables or set to sensible defaults; nothing here is
// required to have a secret, unlike the teacher's broker/bot credentials,
// so Load never calls log.Fatalf for a missing key — a missing optional
// vendor key just disables that source or sentiment component.
type Config struct {
	LogLevel      string // WATCHER_LOG_LEVEL
	MaxLogSizeMB  int64  // WATCHER_MAX_LOG_SIZE_MB
	MaxLogBackups int    // WATCHER_MAX_LOG_BACKUPS

	// Cycle cadence
	CycleSecondsRegular  int // CYCLE_SECONDS_REGULAR, in-session cadence
	CycleSecondsExtended int // CYCLE_SECONDS_EXTENDED, pre/post-market cadence
	CycleSecondsClosed   int // CYCLE_SECONDS_CLOSED, market-closed cadence
	EmptyCycleWarnAfter  int // EMPTY_CYCLE_WARN_AFTER, consecutive empty cycles before a warning
	HeartbeatIntervalMin int // HEARTBEAT_INTERVAL_MIN, admin-channel heartbeat cadence

	// Intake / freshness
	MaxArticleAgeMinutes    int  // MAX_ARTICLE_AGE_MINUTES
	MaxSECFilingAgeMinutes  int  // MAX_SEC_FILING_AGE_MINUTES
	AllowOTC                bool // ALLOW_OTC

	// Gates
	MinScore        float64  // MIN_SCORE
	PriceFloor      float64  // PRICE_FLOOR
	PriceCeiling    float64  // PRICE_CEILING
	CategoriesAllow []string // CATEGORIES_ALLOW, comma-separated; empty means allow all
	SkipSources     []string // SKIP_SOURCES, comma-separated

	// Multi-ticker resolution
	MinRelevance        int     // MIN_RELEVANCE, 0..100
	MaxPrimary          int     // MAX_PRIMARY
	ScoreDiffThreshold  int     // SCORE_DIFF_THRESHOLD
	DedupFuzzyThreshold float64 // DEDUP_FUZZY_THRESHOLD, token-set similarity in [0,1]

	// Alerting / webhook
	MaxAlertsPerCycle int // MAX_ALERTS_PER_CYCLE
	AlertsJitterMs    int // ALERTS_JITTER_MS, upper bound of a 0..N ms random delay
	WebhookURL        string
	WebhookMaxRetries int
	WebhookTimeoutSec int

	// Enrichment
	EnrichmentBatchSize    int // ENRICHMENT_BATCH_SIZE
	EnrichmentFloatWorkers int // ENRICHMENT_FLOAT_WORKERS
	EnrichmentRVOLWorkers  int // ENRICHMENT_RVOL_WORKERS
	EnrichmentVWAPWorkers  int // ENRICHMENT_VWAP_WORKERS
	EnrichmentPerTickerSec int // ENRICHMENT_PER_TICKER_SEC

	// LLM / cost controls
	LLMBatchSize     int     // LLM_BATCH_SIZE
	LLMBatchFlushMs  int     // LLM_BATCH_FLUSH_MS
	LLMCacheTTLHours int     // LLM_CACHE_TTL_HOURS
	CostWarnUSD      float64 // COST_WARN_USD
	CostCritUSD      float64 // COST_CRIT_USD
	CostEmergencyUSD float64 // COST_EMERGENCY_USD
	LLMAPIKey        string  // LLM_API_KEY

	// Seen-store
	SeenTTLDays   int    // SEEN_TTL_DAYS
	SeenStorePath string // SEEN_STORE_PATH

	// Vendor sentiment / market data
	SentimentVendorAPIKey string // SENTIMENT_VENDOR_API_KEY
	MarketDataAPIKey      string // MARKET_DATA_API_KEY

	// Dynamic weights snapshot
	WeightsPath string // WEIGHTS_PATH

	// Health server
	HealthAddr string // HEALTH_ADDR
}

// Load reads .env, then populates Config from the environment, falling back
// to defaults for anything unset.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := &Config{
		LogLevel:      getEnv("WATCHER_LOG_LEVEL", "INFO"),
		MaxLogSizeMB:  getEnvAsInt64("WATCHER_MAX_LOG_SIZE_MB", 5),
		MaxLogBackups: getEnvAsInt("WATCHER_MAX_LOG_BACKUPS", 3),

		CycleSecondsRegular:  getEnvAsInt("CYCLE_SECONDS_REGULAR", 60),
		CycleSecondsExtended: getEnvAsInt("CYCLE_SECONDS_EXTENDED", 120),
		CycleSecondsClosed:   getEnvAsInt("CYCLE_SECONDS_CLOSED", 900),
		EmptyCycleWarnAfter:  getEnvAsInt("EMPTY_CYCLE_WARN_AFTER", 5),
		HeartbeatIntervalMin: getEnvAsInt("HEARTBEAT_INTERVAL_MIN", 60),

		MaxArticleAgeMinutes:   getEnvAsInt("MAX_ARTICLE_AGE_MINUTES", 30),
		MaxSECFilingAgeMinutes: getEnvAsInt("MAX_SEC_FILING_AGE_MINUTES", 240),
		AllowOTC:               getEnvAsBool("ALLOW_OTC", true),

		MinScore:        getEnvAsFloat64("MIN_SCORE", 4.0),
		PriceFloor:      getEnvAsFloat64("PRICE_FLOOR", 0.10),
		PriceCeiling:    getEnvAsFloat64("PRICE_CEILING", 10.0),
		CategoriesAllow: getEnvAsList("CATEGORIES_ALLOW", nil),
		SkipSources:     getEnvAsList("SKIP_SOURCES", nil),

		MinRelevance:        getEnvAsInt("MIN_RELEVANCE", 40),
		MaxPrimary:          getEnvAsInt("MAX_PRIMARY", 2),
		ScoreDiffThreshold:  getEnvAsInt("SCORE_DIFF_THRESHOLD", 20),
		DedupFuzzyThreshold: getEnvAsFloat64("DEDUP_FUZZY_THRESHOLD", 0.80),

		MaxAlertsPerCycle: getEnvAsInt("MAX_ALERTS_PER_CYCLE", 15),
		AlertsJitterMs:    getEnvAsInt("ALERTS_JITTER_MS", 0),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookMaxRetries: getEnvAsInt("WEBHOOK_MAX_RETRIES", 2),
		WebhookTimeoutSec: getEnvAsInt("WEBHOOK_TIMEOUT_SEC", 10),

		EnrichmentBatchSize:    getEnvAsInt("ENRICHMENT_BATCH_SIZE", 10),
		EnrichmentFloatWorkers: getEnvAsInt("ENRICHMENT_FLOAT_WORKERS", 10),
		EnrichmentRVOLWorkers:  getEnvAsInt("ENRICHMENT_RVOL_WORKERS", 15),
		EnrichmentVWAPWorkers:  getEnvAsInt("ENRICHMENT_VWAP_WORKERS", 15),
		EnrichmentPerTickerSec: getEnvAsInt("ENRICHMENT_PER_TICKER_SEC", 30),

		LLMBatchSize:     getEnvAsInt("LLM_BATCH_SIZE", 5),
		LLMBatchFlushMs:  getEnvAsInt("LLM_BATCH_FLUSH_MS", 2000),
		LLMCacheTTLHours: getEnvAsInt("LLM_CACHE_TTL_HOURS", 72),
		CostWarnUSD:      getEnvAsFloat64("COST_WARN_USD", 5.0),
		CostCritUSD:      getEnvAsFloat64("COST_CRIT_USD", 10.0),
		CostEmergencyUSD: getEnvAsFloat64("COST_EMERGENCY_USD", 20.0),
		LLMAPIKey:        os.Getenv("LLM_API_KEY"),

		SeenTTLDays:   getEnvAsInt("SEEN_TTL_DAYS", 7),
		SeenStorePath: getEnv("SEEN_STORE_PATH", "data/seen.db"),

		SentimentVendorAPIKey: os.Getenv("SENTIMENT_VENDOR_API_KEY"),
		MarketDataAPIKey:      os.Getenv("MARKET_DATA_API_KEY"),

		WeightsPath: getEnv("WEIGHTS_PATH", "data/weights.json"),

		HealthAddr: getEnv("HEALTH_ADDR", ":8090"),
	}

	log.Printf("Configuration Loaded: LogLevel=%s, CycleRegular=%ds, MinScore=%.1f, PriceBand=[%.2f,%.2f], MaxAlertsPerCycle=%d",
		cfg.LogLevel, cfg.CycleSecondsRegular, cfg.MinScore, cfg.PriceFloor, cfg.PriceCeiling, cfg.MaxAlertsPerCycle)

	return cfg
}

// Helper to get string env with default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma-separated env var, trimming whitespace around
// each element. An unset var returns fallback; a set-but-empty var returns
// an empty (non-nil) slice, meaning "allow nothing matched" for allow-lists.
func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if strings.TrimSpace(valueStr) == "" {
		return []string{}
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Helper to get int env with default
func getEnvAsInt(key string, fallback int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt(key, valueStr, fallback)
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return parseInt64(key, valueStr, fallback)
}

func getEnvAsBool(key string, fallback bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return fallback
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid bool for config %s, using default %v", key, fallback)
		return fallback
	}
	return val
}

func parseInt(key, s string, fallback int) int {
	val, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Warning: Invalid int for config %s, using default %d", key, fallback)
		return fallback
	}
	return val
}

func parseInt64(key, s string, fallback int64) int64 {
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Printf("Warning: Invalid int64 for config %s, using default %d", key, fallback)
		return fallback
	}
	return val
}

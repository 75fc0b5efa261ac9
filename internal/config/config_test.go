package config

import (
	"os"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	optionals := []string{
		"WATCHER_LOG_LEVEL",
		"CYCLE_SECONDS_REGULAR",
		"MIN_SCORE",
		"PRICE_FLOOR",
		"PRICE_CEILING",
		"MAX_ALERTS_PER_CYCLE",
		"CATEGORIES_ALLOW",
		"SEEN_TTL_DAYS",
	}
	for _, k := range optionals {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.LogLevel != "INFO" {
		t.Errorf("expected LogLevel INFO, got %q", cfg.LogLevel)
	}
	if cfg.CycleSecondsRegular != 60 {
		t.Errorf("expected CycleSecondsRegular 60, got %d", cfg.CycleSecondsRegular)
	}
	if cfg.MinScore != 4.0 {
		t.Errorf("expected MinScore 4.0, got %f", cfg.MinScore)
	}
	if cfg.PriceFloor != 0.10 || cfg.PriceCeiling != 10.0 {
		t.Errorf("expected price band [0.10,10.0], got [%f,%f]", cfg.PriceFloor, cfg.PriceCeiling)
	}
	if cfg.MaxAlertsPerCycle != 15 {
		t.Errorf("expected MaxAlertsPerCycle 15, got %d", cfg.MaxAlertsPerCycle)
	}
	if cfg.CategoriesAllow != nil {
		t.Errorf("expected CategoriesAllow nil when unset, got %v", cfg.CategoriesAllow)
	}
	if cfg.SeenTTLDays != 7 {
		t.Errorf("expected SeenTTLDays 7, got %d", cfg.SeenTTLDays)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	overrides := map[string]string{
		"WATCHER_LOG_LEVEL":     "DEBUG",
		"CYCLE_SECONDS_REGULAR": "30",
		"MIN_SCORE":             "6.5",
		"CATEGORIES_ALLOW":      "fda_catalyst, reverse_split ,offering",
		"MAX_ALERTS_PER_CYCLE":  "5",
	}
	for k, v := range overrides {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.LogLevel != "DEBUG" {
		t.Errorf("expected LogLevel DEBUG, got %q", cfg.LogLevel)
	}
	if cfg.CycleSecondsRegular != 30 {
		t.Errorf("expected CycleSecondsRegular 30, got %d", cfg.CycleSecondsRegular)
	}
	if cfg.MinScore != 6.5 {
		t.Errorf("expected MinScore 6.5, got %f", cfg.MinScore)
	}
	wantCategories := []string{"fda_catalyst", "reverse_split", "offering"}
	if len(cfg.CategoriesAllow) != len(wantCategories) {
		t.Fatalf("expected %d categories, got %v", len(wantCategories), cfg.CategoriesAllow)
	}
	for i, c := range wantCategories {
		if cfg.CategoriesAllow[i] != c {
			t.Errorf("category[%d] = %q, want %q", i, cfg.CategoriesAllow[i], c)
		}
	}
	if cfg.MaxAlertsPerCycle != 5 {
		t.Errorf("expected MaxAlertsPerCycle 5, got %d", cfg.MaxAlertsPerCycle)
	}
}

func TestLoadConfig_InvalidNumericFallsBackToDefault(t *testing.T) {
	os.Setenv("MIN_SCORE", "not-a-number")
	defer os.Unsetenv("MIN_SCORE")

	cfg := Load()

	if cfg.MinScore != 4.0 {
		t.Errorf("expected invalid MIN_SCORE to fall back to 4.0, got %f", cfg.MinScore)
	}
}

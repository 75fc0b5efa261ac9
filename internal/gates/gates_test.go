package gates

import (
	"testing"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/models"
)

func baseItem() models.ScoredItem {
	return models.ScoredItem{
		Item:            models.NewsItem{Source: "prnewswire"},
		PrimaryTicker:   "ABCD",
		RelevanceScores: map[string]int{"ABCD": 80},
		KeywordHits:     map[string]float64{"fda": 3.0},
		CatalystScore:   5.0,
	}
}

func TestEvaluate_NoTickerRejects(t *testing.T) {
	item := baseItem()
	item.PrimaryTicker = ""
	d := Evaluate(item, models.EnrichmentRecord{}, Config{})
	if d.Passed || d.Reason != NoTicker {
		t.Errorf("expected NoTicker rejection, got %+v", d)
	}
}

func TestEvaluate_CryptoRejectsUnlessWatchlisted(t *testing.T) {
	item := baseItem()
	item.PrimaryTicker = "BTC"
	item.RelevanceScores = map[string]int{"BTC": 80}

	d := Evaluate(item, models.EnrichmentRecord{}, Config{})
	if d.Passed || d.Reason != CryptoUnlisted {
		t.Errorf("expected CryptoUnlisted rejection, got %+v", d)
	}

	d2 := Evaluate(item, models.EnrichmentRecord{}, Config{WatchlistedCrypto: []string{"BTC"}, MinScore: 0})
	if !d2.Passed {
		t.Errorf("expected watchlisted crypto to pass, got %+v", d2)
	}
}

func TestEvaluate_RelevanceBelowThresholdRejects(t *testing.T) {
	item := baseItem()
	item.RelevanceScores["ABCD"] = 10
	d := Evaluate(item, models.EnrichmentRecord{}, Config{MinRelevance: 40})
	if d.Passed || d.Reason != RelevanceBelowThresh {
		t.Errorf("expected RelevanceBelowThresh, got %+v", d)
	}
}

func TestEvaluate_PriceCeilingRejectsAboveCeiling(t *testing.T) {
	price := decimal.NewFromFloat(42.10)
	enrich := models.EnrichmentRecord{LastPrice: &price}
	d := Evaluate(baseItem(), enrich, Config{PriceCeiling: 10.0})
	if d.Passed || d.Reason != PriceAboveCeiling {
		t.Errorf("expected PriceAboveCeiling, got %+v", d)
	}
}

func TestEvaluate_PriceFloorRejectsBelowFloor(t *testing.T) {
	price := decimal.NewFromFloat(0.001)
	enrich := models.EnrichmentRecord{LastPrice: &price}
	d := Evaluate(baseItem(), enrich, Config{PriceFloor: 0.10})
	if d.Passed || d.Reason != PriceBelowFloor {
		t.Errorf("expected PriceBelowFloor, got %+v", d)
	}
}

func TestEvaluate_MissingPriceNeverTriggersPriceGates(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{PriceFloor: 0.10, PriceCeiling: 10.0})
	if !d.Passed {
		t.Errorf("expected a missing price to never trigger price gates, got %+v", d)
	}
}

func TestEvaluate_DerivativeTickerRejects(t *testing.T) {
	item := baseItem()
	item.PrimaryTicker = "ABCDW"
	item.RelevanceScores = map[string]int{"ABCDW": 80}
	d := Evaluate(item, models.EnrichmentRecord{}, Config{})
	if d.Passed || d.Reason != DerivativeInstrument {
		t.Errorf("expected DerivativeInstrument, got %+v", d)
	}
}

func TestEvaluate_SourceInSkipListRejects(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{SkipSources: []string{"prnewswire"}})
	if d.Passed || d.Reason != SourceInSkipList {
		t.Errorf("expected SourceInSkipList, got %+v", d)
	}
}

func TestEvaluate_CatalystScoreBelowMinRejects(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{MinScore: 8.0})
	if d.Passed || d.Reason != CatalystScoreTooLow {
		t.Errorf("expected CatalystScoreTooLow, got %+v", d)
	}
}

func TestEvaluate_SentimentBelowMinAbsRejects(t *testing.T) {
	item := baseItem()
	item.Sentiment.Aggregate = &models.SentimentComponent{Value: 0.05, Confidence: 0.5}
	d := Evaluate(item, models.EnrichmentRecord{}, Config{MinSentAbs: 0.2})
	if d.Passed || d.Reason != SentimentTooWeak {
		t.Errorf("expected SentimentTooWeak, got %+v", d)
	}
}

func TestEvaluate_CategoryNotInAllowListRejects(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{CategoriesAllow: []string{"earnings"}})
	if d.Passed || d.Reason != CategoryNotAllowed {
		t.Errorf("expected CategoryNotAllowed, got %+v", d)
	}
}

func TestEvaluate_WildcardAllowListAllowsEverything(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{CategoriesAllow: []string{"*"}})
	if !d.Passed {
		t.Errorf("expected wildcard allow-list to pass, got %+v", d)
	}
}

func TestEvaluate_OTCRejectsWhenDisabled(t *testing.T) {
	item := baseItem()
	item.PrimaryTicker = "ABCDF"
	item.RelevanceScores = map[string]int{"ABCDF": 80}
	d := Evaluate(item, models.EnrichmentRecord{}, Config{AllowOTC: false})
	if d.Passed || d.Reason != OTCDisabled {
		t.Errorf("expected OTCDisabled, got %+v", d)
	}
}

func TestEvaluate_VolumeBelowThresholdRejects(t *testing.T) {
	vol := int64(1000)
	enrich := models.EnrichmentRecord{AvgVolume: &vol}
	d := Evaluate(baseItem(), enrich, Config{MinAvgVolume: 5000})
	if d.Passed || d.Reason != VolumeBelowThreshold {
		t.Errorf("expected VolumeBelowThreshold, got %+v", d)
	}
}

func TestEvaluate_PassesAllGatesWithPermissiveConfig(t *testing.T) {
	d := Evaluate(baseItem(), models.EnrichmentRecord{}, Config{})
	if !d.Passed {
		t.Errorf("expected item to pass with permissive default config, got %+v", d)
	}
}

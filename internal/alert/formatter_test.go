package alert

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/llm"
	"alertwatcher/internal/models"
)

func sampleItem() models.ScoredItem {
	return models.ScoredItem{
		Item: models.NewsItem{
			Source:       "prnewswire",
			CanonicalURL: "https://example.com/a",
			Title:        "Company Announces FDA Approval",
			Summary:      "Lorem ipsum",
			PublishedAt:  time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		},
		PrimaryTicker: "ABCD",
		KeywordHits:   map[string]float64{"fda": 4, "partnership": 1},
		CatalystScore: 7.5,
		Sentiment: models.Sentiment{
			Aggregate: &models.SentimentComponent{Value: 0.6, Confidence: 0.8},
		},
	}
}

func TestFormat_PicksHighestWeightedCatalystBadge(t *testing.T) {
	a := Format(sampleItem(), models.EnrichmentRecord{}, nil, Options{})
	found := false
	for _, f := range a.Embed.Fields {
		if f.Name == "Catalyst" {
			found = true
			if f.Value != "fda" {
				t.Errorf("expected highest-weighted category 'fda', got %q", f.Value)
			}
		}
	}
	if !found {
		t.Fatal("expected a Catalyst field")
	}
}

func TestFormat_IncludesPriceWhenEnriched(t *testing.T) {
	price := decimal.NewFromFloat(3.21)
	change := decimal.NewFromFloat(12.5)
	enrich := models.EnrichmentRecord{LastPrice: &price, ChangePct: &change}

	a := Format(sampleItem(), enrich, nil, Options{})
	var priceField string
	for _, f := range a.Embed.Fields {
		if f.Name == "Price" {
			priceField = f.Value
		}
	}
	if !strings.Contains(priceField, "3.21") || !strings.Contains(priceField, "12.50") {
		t.Errorf("expected price field to contain price and change, got %q", priceField)
	}
}

func TestFormat_OmitsPriceFieldWhenUnenriched(t *testing.T) {
	a := Format(sampleItem(), models.EnrichmentRecord{}, nil, Options{})
	for _, f := range a.Embed.Fields {
		if f.Name == "Price" {
			t.Fatal("expected no Price field with an empty EnrichmentRecord")
		}
	}
}

func TestFormat_SentimentGaugeIsTenCells(t *testing.T) {
	a := Format(sampleItem(), models.EnrichmentRecord{}, nil, Options{})
	for _, f := range a.Embed.Fields {
		if f.Name == "Sentiment" {
			if len(f.Value) != 10 {
				t.Errorf("expected a 10-cell gauge, got %q (len %d)", f.Value, len(f.Value))
			}
			return
		}
	}
	t.Fatal("expected a Sentiment field")
}

func TestFormat_TradePlanHintOnlyWhenEnabled(t *testing.T) {
	withHint := Format(sampleItem(), models.EnrichmentRecord{}, nil, Options{TradePlanHintEnabled: true})
	withoutHint := Format(sampleItem(), models.EnrichmentRecord{}, nil, Options{TradePlanHintEnabled: false})

	hasField := func(a models.Alert, name string) bool {
		for _, f := range a.Embed.Fields {
			if f.Name == name {
				return true
			}
		}
		return false
	}
	if !hasField(withHint, "Trade Plan") {
		t.Error("expected Trade Plan field when enabled")
	}
	if hasField(withoutHint, "Trade Plan") {
		t.Error("expected no Trade Plan field when disabled")
	}
}

func TestFormat_SECItemsGetExtraFieldsOnlyWithSecPrefix(t *testing.T) {
	item := sampleItem()
	item.Item.Source = "sec_8k"
	item.Item.RawFields = map[string]models.FieldValue{
		"filing_type": models.StringField("8-K"),
		"item_code":   models.StringField("5.01"),
	}
	analysis := &llm.Analysis{Tier: llm.TierCritical, ExtractedMetrics: map[string]string{"change_pct": "12.5"}}

	a := Format(item, models.EnrichmentRecord{}, analysis, Options{})
	var sawFilingType, sawMetrics bool
	for _, f := range a.Embed.Fields {
		if f.Name == "Filing Type" && f.Value == "8-K" {
			sawFilingType = true
		}
		if f.Name == "Extracted Metrics" {
			sawMetrics = true
		}
	}
	if !sawFilingType || !sawMetrics {
		t.Error("expected SEC-specific fields when source is sec_-prefixed and analysis is present")
	}
}

func TestFormat_NonSECSourceNeverGetsSECFields(t *testing.T) {
	item := sampleItem()
	analysis := &llm.Analysis{Tier: llm.TierCritical}

	a := Format(item, models.EnrichmentRecord{}, analysis, Options{})
	for _, f := range a.Embed.Fields {
		if f.Name == "Filing Type" || f.Name == "Item Code" || f.Name == "Priority Tier" {
			t.Errorf("unexpected SEC field %q on a non-sec_ source", f.Name)
		}
	}
}

func TestFormat_IdempotencyKeyMatchesFingerprint(t *testing.T) {
	item := sampleItem()
	a1 := Format(item, models.EnrichmentRecord{}, nil, Options{})
	a2 := Format(item, models.EnrichmentRecord{}, nil, Options{})
	if a1.IdempotencyKey == "" {
		t.Fatal("expected a non-empty idempotency key")
	}
	if a1.IdempotencyKey != a2.IdempotencyKey {
		t.Error("expected idempotency key to be deterministic for the same item")
	}
}

func TestFormat_DescriptionTruncatesLongSummaries(t *testing.T) {
	item := sampleItem()
	item.Item.Summary = strings.Repeat("x", 500)

	a := Format(item, models.EnrichmentRecord{}, nil, Options{})
	if len(a.Embed.Description) >= len(item.Item.Summary) {
		t.Errorf("expected description shorter than the 500-char summary, got len %d", len(a.Embed.Description))
	}
	if !strings.HasSuffix(a.Embed.Description, "…") {
		t.Errorf("expected truncated description to end with an ellipsis, got %q", a.Embed.Description[len(a.Embed.Description)-10:])
	}
}

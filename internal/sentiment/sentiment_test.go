package sentiment

import (
	"testing"

	"github.com/shopspring/decimal"

	"alertwatcher/internal/models"
)

func TestLocal_PositiveWordsYieldPositiveValue(t *testing.T) {
	item := models.NewsItem{Title: "Acme wins FDA approval", Summary: "A breakthrough for patients."}
	comp := Local(item)
	if comp.Value <= 0 {
		t.Errorf("expected positive lexicon value, got %f", comp.Value)
	}
	if comp.Confidence != 0.5 {
		t.Errorf("expected fixed confidence 0.5, got %f", comp.Confidence)
	}
}

func TestLocal_NoMatchingWordsYieldsZero(t *testing.T) {
	item := models.NewsItem{Title: "Company updates website", Summary: "New look, same content."}
	comp := Local(item)
	if comp.Value != 0 {
		t.Errorf("expected zero value with no lexicon hits, got %f", comp.Value)
	}
}

func TestPriceAction_NilInputDropsOut(t *testing.T) {
	if PriceAction(nil) != nil {
		t.Error("expected nil changePct to yield nil component")
	}
}

func TestPriceAction_LargeMoveSaturatesValue(t *testing.T) {
	pct := decimal.NewFromFloat(25.0)
	comp := PriceAction(&pct)
	if comp.Value != 1.0 {
		t.Errorf("expected value to saturate at 1.0, got %f", comp.Value)
	}
}

func TestAggregate_NoSourcesYieldsNil(t *testing.T) {
	if Aggregate(nil, nil, nil, nil, DefaultSourceWeights()) != nil {
		t.Error("expected nil aggregate with no sources available")
	}
}

func TestAggregate_RenormalizesOverAvailableSources(t *testing.T) {
	local := &models.SentimentComponent{Value: 1.0, Confidence: 0.5}
	ml := &models.SentimentComponent{Value: -1.0, Confidence: 0.9}

	// Only local and ml present; weights should renormalize over just these two.
	agg := Aggregate(local, ml, nil, nil, DefaultSourceWeights())
	if agg == nil {
		t.Fatal("expected a non-nil aggregate")
	}
	// local weight 0.20, ml weight 0.40 -> normalized local=1/3, ml=2/3
	want := (1.0)*(0.20/0.60) + (-1.0)*(0.40/0.60)
	if diff := agg.Value - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected renormalized value %f, got %f", want, agg.Value)
	}
}

func TestAggregate_SingleSourceEqualsThatSourceExactly(t *testing.T) {
	local := &models.SentimentComponent{Value: 0.42, Confidence: 0.5}
	agg := Aggregate(local, nil, nil, nil, DefaultSourceWeights())
	if agg.Value != 0.42 {
		t.Errorf("expected single-source aggregate to equal that source, got %f", agg.Value)
	}
}

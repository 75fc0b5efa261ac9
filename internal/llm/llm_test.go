package llm

import (
	"context"
	"testing"
	"time"
)

func TestRouteTier_CriticalItemCodeOverridesLength(t *testing.T) {
	if tier := RouteTier("1.03", 100); tier != TierCritical {
		t.Errorf("expected bankruptcy item code to route Critical regardless of length, got %v", tier)
	}
}

func TestRouteTier_LengthBuckets(t *testing.T) {
	cases := []struct {
		length int
		want   Tier
	}{
		{100, TierSimple},
		{6000, TierMedium},
		{25000, TierComplex},
	}
	for _, c := range cases {
		if got := RouteTier("8.01", c.length); got != c.want {
			t.Errorf("length %d: expected %v, got %v", c.length, c.want, got)
		}
	}
}

func TestCostAccumulator_CrossesThresholds(t *testing.T) {
	acc := NewCostAccumulator(CostThresholds{Warn: 5, Crit: 10, Emergency: 20})
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if acc.Level(now) != CostOK {
		t.Fatal("expected CostOK with no spend")
	}
	acc.Add(now, 6.0)
	if acc.Level(now) != CostWarn {
		t.Fatalf("expected CostWarn after $6 spend, got %v", acc.Level(now))
	}
	acc.Add(now, 5.0)
	if acc.Level(now) != CostCrit {
		t.Fatalf("expected CostCrit after $11 spend, got %v", acc.Level(now))
	}
	acc.Add(now, 10.0)
	if acc.Level(now) != CostEmergency {
		t.Fatalf("expected CostEmergency after $21 spend, got %v", acc.Level(now))
	}
}

func TestCostAccumulator_ResetsAtUTCMidnight(t *testing.T) {
	acc := NewCostAccumulator(DefaultCostThresholds())
	day1 := time.Date(2026, 1, 1, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 2, 0, 1, 0, 0, time.UTC)

	acc.Add(day1, 15.0)
	if acc.Level(day1) != CostCrit {
		t.Fatalf("expected CostCrit on day1 (%f spent), got %v", acc.Spent(day1), acc.Level(day1))
	}
	if acc.Level(day2) != CostOK {
		t.Fatalf("expected spend to reset on UTC day rollover, got %v", acc.Level(day2))
	}
}

func TestAllowedTier_EmergencyOnlyAllowsSimple(t *testing.T) {
	if !AllowedTier(CostEmergency, TierSimple) {
		t.Error("expected Simple tier allowed under Emergency")
	}
	if AllowedTier(CostEmergency, TierMedium) {
		t.Error("expected Medium tier disabled under Emergency")
	}
}

func TestAllowedTier_CritDisablesOnlyCritical(t *testing.T) {
	if !AllowedTier(CostCrit, TierComplex) {
		t.Error("expected Complex tier still allowed under Crit")
	}
	if AllowedTier(CostCrit, TierCritical) {
		t.Error("expected Critical tier disabled under Crit")
	}
}

func TestClient_AnalyzeWithNoEndpointReturnsEmptyWithoutError(t *testing.T) {
	c := NewClient("", "", DefaultCostThresholds(), 0)
	docs := []SECDoc{{DocID: "d1", ItemCode: "8.01", Text: "short filing text"}}

	out, err := c.Analyze(context.Background(), docs)
	if err != nil {
		t.Fatalf("expected no top-level error even though no docs could be analyzed, got %v", err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty result set with no endpoint configured, got %v", out)
	}
}

package llm

import (
	"sync"
	"time"
)

// CostLevel reports how close the day's spend is to the emergency cutoff.
type CostLevel int

const (
	CostOK CostLevel = iota
	CostWarn
	CostCrit
	CostEmergency
)

// CostThresholds are the WARN/CRIT/EMERGENCY USD cutoffs, defaults per
// spec ($5/$10/$20).
type CostThresholds struct {
	Warn      float64
	Crit      float64
	Emergency float64
}

func DefaultCostThresholds() CostThresholds {
	return CostThresholds{Warn: 5.0, Crit: 10.0, Emergency: 20.0}
}

// CostAccumulator tracks USD spend per UTC day and resets at UTC midnight.
// Crossing thresholds progressively disables the more expensive tiers
// until the reset.
type CostAccumulator struct {
	mu         sync.Mutex
	thresholds CostThresholds
	spentUSD   float64
	day        string // YYYY-MM-DD in UTC
}

func NewCostAccumulator(thresholds CostThresholds) *CostAccumulator {
	return &CostAccumulator{thresholds: thresholds}
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Add records spend for now, rolling over the accumulator if the UTC day
// has changed since the last call.
func (c *CostAccumulator) Add(now time.Time, usd float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked(now)
	c.spentUSD += usd
}

func (c *CostAccumulator) rolloverLocked(now time.Time) {
	key := dayKey(now)
	if c.day != key {
		c.day = key
		c.spentUSD = 0
	}
}

// Level reports the current CostLevel for now, after rolling over if
// needed.
func (c *CostAccumulator) Level(now time.Time) CostLevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked(now)

	switch {
	case c.spentUSD >= c.thresholds.Emergency:
		return CostEmergency
	case c.spentUSD >= c.thresholds.Crit:
		return CostCrit
	case c.spentUSD >= c.thresholds.Warn:
		return CostWarn
	default:
		return CostOK
	}
}

// Spent returns today's accumulated USD spend.
func (c *CostAccumulator) Spent(now time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked(now)
	return c.spentUSD
}

// AllowedTier reports whether a request at tier t should be allowed given
// the current cost level. WARN still allows everything (it's informational);
// CRIT disables Critical; EMERGENCY disables everything but Simple.
func AllowedTier(level CostLevel, t Tier) bool {
	switch level {
	case CostEmergency:
		return t == TierSimple
	case CostCrit:
		return t != TierCritical
	default:
		return true
	}
}

package orchestrator

import "time"

// MarketStatus is the coarse US-equities session used to pick cycle
// cadence, per spec.md §4.1.
type MarketStatus int

const (
	StatusClosed MarketStatus = iota
	StatusExtended
	StatusRegular
)

var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()

// CurrentMarketStatus classifies now into regular/extended/closed hours.
// Weekends are always closed. This is a coarse heuristic (no market
// holiday calendar) adequate for picking a polling cadence, not for
// trading decisions.
func CurrentMarketStatus(now time.Time) MarketStatus {
	local := now.In(newYork)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return StatusClosed
	}

	minutesSinceMidnight := local.Hour()*60 + local.Minute()
	const (
		preMarketOpen  = 4 * 60        // 04:00
		regularOpen    = 9*60 + 30     // 09:30
		regularClose   = 16 * 60       // 16:00
		afterHoursShut = 20 * 60       // 20:00
	)

	switch {
	case minutesSinceMidnight >= regularOpen && minutesSinceMidnight < regularClose:
		return StatusRegular
	case minutesSinceMidnight >= preMarketOpen && minutesSinceMidnight < regularOpen:
		return StatusExtended
	case minutesSinceMidnight >= regularClose && minutesSinceMidnight < afterHoursShut:
		return StatusExtended
	default:
		return StatusClosed
	}
}

// CycleInterval picks the configured cadence for the current market
// status.
func CycleInterval(status MarketStatus, regular, extended, closed time.Duration) time.Duration {
	switch status {
	case StatusRegular:
		return regular
	case StatusExtended:
		return extended
	default:
		return closed
	}
}

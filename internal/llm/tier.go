package llm

// Tier is a routing bucket selected per document by length/item-code
// heuristics, cheapest to most expensive.
type Tier int

const (
	TierSimple Tier = iota
	TierMedium
	TierComplex
	TierCritical
)

func (t Tier) String() string {
	switch t {
	case TierSimple:
		return "simple"
	case TierMedium:
		return "medium"
	case TierComplex:
		return "complex"
	case TierCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// criticalItemCodes are SEC 8-K item codes whose filings are routed to the
// top tier regardless of length (material events: bankruptcy, delisting,
// change in control).
var criticalItemCodes = map[string]bool{
	"1.03": true, // bankruptcy
	"3.01": true, // delisting notice
	"5.01": true, // change in control
}

// RouteTier picks a tier for a SEC document using doc length and item
// code. Item code takes priority over length.
func RouteTier(itemCode string, textLength int) Tier {
	if criticalItemCodes[itemCode] {
		return TierCritical
	}
	switch {
	case textLength > 20000:
		return TierComplex
	case textLength > 5000:
		return TierMedium
	default:
		return TierSimple
	}
}

// CostPerDoc is the configured per-document USD cost for a tier, used by
// the cost accumulator. These are placeholder vendor rates; real values
// come from the LLM provider's pricing page and should be set via config
// in a production deployment.
func CostPerDoc(t Tier) float64 {
	switch t {
	case TierSimple:
		return 0.01
	case TierMedium:
		return 0.05
	case TierComplex:
		return 0.20
	case TierCritical:
		return 0.50
	default:
		return 0.01
	}
}

package sentiment

import (
	"github.com/shopspring/decimal"

	"alertwatcher/internal/models"
)

// priceActionSaturation is the percent move beyond which price-action
// sentiment is considered maximally confident (saturates at |value|=1).
const priceActionSaturation = 10.0 // percent

// PriceAction derives sign/magnitude sentiment from a ticker's post-publish
// price move within the relevant session window. changePct is the percent
// move already computed by the enrichment pool (EnrichmentRecord.ChangePct);
// a nil input means the ticker/window wasn't available, so this source
// drops out of the aggregate rather than contributing a false zero.
func PriceAction(changePct *decimal.Decimal) *models.SentimentComponent {
	if changePct == nil {
		return nil
	}
	pct, _ := changePct.Float64()

	value := pct / priceActionSaturation
	value = clamp(value)

	magnitude := pct
	if magnitude < 0 {
		magnitude = -magnitude
	}
	confidence := magnitude / priceActionSaturation
	confidence = clamp01(confidence)

	return &models.SentimentComponent{Value: value, Confidence: confidence}
}

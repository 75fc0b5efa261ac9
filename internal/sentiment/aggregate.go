package sentiment

import "alertwatcher/internal/models"

// SourceWeights is the configured contribution of each sentiment source to
// the aggregate; per spec these are expected to sum to 1 but Aggregate
// renormalizes regardless so a missing source never silently underweights
// the remaining ones.
type SourceWeights struct {
	Local    float64
	ML       float64
	External float64
	PreAfter float64
}

// DefaultSourceWeights matches spec.md's "earnings/ml/local/external/
// premarket sum to 1" note, read as four sources here (there is no
// separate post-earnings source in this pipeline — earnings catalysts flow
// through the classifier, not a fifth sentiment input).
func DefaultSourceWeights() SourceWeights {
	return SourceWeights{Local: 0.20, ML: 0.40, External: 0.20, PreAfter: 0.20}
}

// Aggregate computes the weighted mean of whichever sources are non-nil,
// renormalizing weights over the sources actually present. Returns nil when
// no source is available, per spec ("If no sources available, sentiment is
// nil, not zero").
func Aggregate(local, ml, external, preAfter *models.SentimentComponent, w SourceWeights) *models.SentimentComponent {
	type weighted struct {
		comp   *models.SentimentComponent
		weight float64
	}
	all := []weighted{
		{local, w.Local},
		{ml, w.ML},
		{external, w.External},
		{preAfter, w.PreAfter},
	}

	var totalWeight float64
	for _, a := range all {
		if a.comp != nil {
			totalWeight += a.weight
		}
	}
	if totalWeight == 0 {
		return nil
	}

	var valueSum, confSum float64
	for _, a := range all {
		if a.comp == nil {
			continue
		}
		norm := a.weight / totalWeight
		valueSum += a.comp.Value * norm
		confSum += a.comp.Confidence * norm
	}

	return &models.SentimentComponent{
		Value:      clamp(valueSum),
		Confidence: clamp01(confSum),
	}
}

// BuildSentiment assembles the full models.Sentiment struct for one item
// from its individually-scored components.
func BuildSentiment(local, ml, external, preAfter *models.SentimentComponent, w SourceWeights) models.Sentiment {
	return models.Sentiment{
		Local:     local,
		ML:        ml,
		External:  external,
		PreAfter:  preAfter,
		Aggregate: Aggregate(local, ml, external, preAfter, w),
	}
}

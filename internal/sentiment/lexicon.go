package sentiment

import (
	"strings"

	"alertwatcher/internal/models"
)

// lexiconWeights is a small VADER-style polarity lexicon. It is
// intentionally compact: this is a fast, always-available baseline, not a
// replacement for the ML scorer.
var lexiconWeights = map[string]float64{
	"approval": 0.8, "approved": 0.8, "breakthrough": 0.9, "surge": 0.7,
	"soar": 0.8, "record": 0.6, "beat": 0.5, "beats": 0.5, "raises": 0.4,
	"growth": 0.4, "expands": 0.3, "wins": 0.5, "awarded": 0.5, "positive": 0.5,
	"rejection": -0.8, "rejected": -0.8, "delay": -0.5, "delayed": -0.5,
	"lawsuit": -0.6, "investigation": -0.7, "decline": -0.5, "plunge": -0.8,
	"plunges": -0.8, "misses": -0.5, "miss": -0.5, "recall": -0.7,
	"dilution": -0.6, "dilutive": -0.6, "bankruptcy": -0.95, "fraud": -0.9,
	"warning": -0.4, "lowers": -0.4, "halts": -0.5, "halted": -0.5,
}

// Local computes a VADER-style lexicon score over title+summary. It is
// always available and always reports confidence 0.5 per spec.
func Local(item models.NewsItem) models.SentimentComponent {
	text := strings.ToLower(item.Title + " " + item.Summary)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	var sum float64
	var hits int
	for _, w := range words {
		if v, ok := lexiconWeights[w]; ok {
			sum += v
			hits++
		}
	}

	value := 0.0
	if hits > 0 {
		value = sum / float64(hits)
	}
	return models.SentimentComponent{Value: clamp(value), Confidence: 0.5}
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

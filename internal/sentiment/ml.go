package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

// MLBatchSize is the spec default for the FinBERT-style batched scorer.
const MLBatchSize = 10

type mlRequestItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type mlRequest struct {
	Items []mlRequestItem `json:"items"`
}

type mlResponseItem struct {
	ID              string  `json:"id"`
	Polarity        float64 `json:"polarity"`          // [-1,1]
	SoftmaxMargin   float64 `json:"softmax_margin"`     // used to derive confidence
}

type mlResponse struct {
	Items []mlResponseItem `json:"items"`
}

// MLScorer calls an external FinBERT-style sentiment classifier, modeled on
// the teacher's plain net/http + encoding/json REST client shape
// (internal/ai/client.go in the teacher).
type MLScorer struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewMLScorer builds a scorer bound to endpoint, timing every call out at
// the 3s budget spec.md allots each sentiment source.
func NewMLScorer(endpoint, apiKey string) *MLScorer {
	return &MLScorer{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 3 * time.Second},
	}
}

// ScoreBatch scores up to MLBatchSize items in a single request. Callers
// are responsible for chunking a cycle's item set into batches of this
// size; the orchestrator does this once per cycle for every item that
// resolved a ticker, before classification, so items are not filtered by
// their classifier result first.
func (m *MLScorer) ScoreBatch(ctx context.Context, ids []string, texts []string) (map[string]models.SentimentComponent, error) {
	if m.endpoint == "" {
		return nil, errs.New(errs.ConfigErr, "ml scorer endpoint not configured")
	}
	if len(ids) != len(texts) {
		return nil, errs.New(errs.ConfigErr, "ml scorer ids/texts length mismatch")
	}

	req := mlRequest{Items: make([]mlRequestItem, len(ids))}
	for i := range ids {
		req.Items[i] = mlRequestItem{ID: ids[i], Text: texts[i]}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errs.Wrap(errs.Parse, "marshal ml scorer request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ConfigErr, "build ml scorer request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, errs.Wrap(errs.TransientNetwork, "call ml scorer", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.TransientNetwork, fmt.Sprintf("ml scorer returned status %d", resp.StatusCode))
	}

	var out mlResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errs.Wrap(errs.Parse, "decode ml scorer response", err)
	}

	result := make(map[string]models.SentimentComponent, len(out.Items))
	for _, item := range out.Items {
		result[item.ID] = models.SentimentComponent{
			Value:      clamp(item.Polarity),
			Confidence: softmaxMarginToConfidence(item.SoftmaxMargin),
		}
	}
	return result, nil
}

// softmaxMarginToConfidence maps a softmax margin (difference between the
// top two class probabilities, in [0,1]) onto a confidence score. A margin
// near 0 means the model was nearly torn between two classes.
func softmaxMarginToConfidence(margin float64) float64 {
	if margin < 0 {
		return 0
	}
	if margin > 1 {
		return 1
	}
	return margin
}

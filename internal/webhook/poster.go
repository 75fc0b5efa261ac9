// Package webhook posts formatted Alerts to the configured collaborator
// webhook, retrying transient failures with bounded backoff and honoring
// rate-limit responses. Grounded on the teacher's outbound-HTTP style
// (internal/ai, internal/market clients all build one *http.Client and
// wrap it with context deadlines); retry/backoff here is handled by
// hashicorp/go-retryablehttp rather than hand-rolled, since no pack repo
// implements retrying HTTP from scratch and go-retryablehttp is the
// standard ecosystem choice for exactly this job.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

// Config controls retry/backoff/jitter behavior, all with spec defaults.
type Config struct {
	MaxRetries   int
	Timeout      time.Duration
	MaxBackoff   time.Duration
	JitterMaxMs  int
	RatePerMinute int
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:    2,
		Timeout:       10 * time.Second,
		MaxBackoff:    3 * time.Second,
		JitterMaxMs:   1000,
		RatePerMinute: 30,
	}
}

// Result is what the poster learned about a post attempt, used by the
// orchestrator to update per-cycle stats.
type Result struct {
	MessageID string
	Retries   int
}

// Poster posts Alerts to one webhook URL with a shared token bucket
// across all posts (per-key here means per-Poster instance; callers that
// fan out to multiple webhook URLs should build one Poster each).
type Poster struct {
	url     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	log     *log.Logger
}

type wireEmbed struct {
	Title       string            `json:"title"`
	URL         string            `json:"url,omitempty"`
	Description string            `json:"description,omitempty"`
	Color       int               `json:"color"`
	Fields      []wireEmbedField  `json:"fields"`
	Footer      map[string]string `json:"footer,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

type wireEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type wirePayload struct {
	Content         string      `json:"content"`
	Embeds          []wireEmbed `json:"embeds"`
	IdempotencyKey  string      `json:"idempotency_key"`
}

type wireResponse struct {
	ID string `json:"id"`
}

// New builds a Poster targeting url. logger may be nil, in which case a
// discard logger is used.
func New(url string, cfg Config, logger *log.Logger) *Poster {
	if logger == nil {
		logger = log.New(nilWriter{}, "", 0)
	}
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMax = cfg.MaxBackoff
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.Logger = nil // the teacher's clients log at the call site, not inside the transport

	ratePerMinute := cfg.RatePerMinute
	if ratePerMinute <= 0 {
		ratePerMinute = 30
	}

	return &Poster{
		url:     url,
		client:  rc,
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute),
		log:     logger,
	}
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }

// Post sends one Alert, returning the vendor message id on success. It
// applies up to cfg.JitterMaxMs of jitter before sending (spreads a burst
// of same-cycle alerts) and respects Retry-After on 429 responses via
// go-retryablehttp's default backoff, which already reads that header.
func (p *Poster) Post(ctx context.Context, alert models.Alert, jitterMaxMs int) (Result, error) {
	if p.url == "" {
		return Result{}, errs.New(errs.ConfigErr, "webhook url not configured")
	}

	if jitterMaxMs > 0 {
		d := time.Duration(rand.Intn(jitterMaxMs)) * time.Millisecond
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	payload := toWirePayload(alert)
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, errs.Wrap(errs.Parse, "marshal alert payload", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, errs.Wrap(errs.ConfigErr, "build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", alert.IdempotencyKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{}, errs.Wrap(errs.TransientNetwork, "post webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := errs.TransientNetwork
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			kind = errs.PermanentNetwork
		}
		return Result{}, errs.New(kind, fmt.Sprintf("webhook returned status %d", resp.StatusCode))
	}

	var wr wireResponse
	_ = json.NewDecoder(resp.Body).Decode(&wr) // a missing body is not itself an error; the post already succeeded

	retries := 0
	if s := resp.Header.Get("X-Retry-Count"); s != "" {
		if n, convErr := strconv.Atoi(s); convErr == nil {
			retries = n
		}
	}

	p.log.Printf("posted alert ticker=%s message_id=%s", alert.Ticker, wr.ID)
	return Result{MessageID: wr.ID, Retries: retries}, nil
}

func toWirePayload(a models.Alert) wirePayload {
	fields := make([]wireEmbedField, len(a.Embed.Fields))
	for i, f := range a.Embed.Fields {
		fields[i] = wireEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline}
	}
	return wirePayload{
		Content:        a.ContentText,
		IdempotencyKey: a.IdempotencyKey,
		Embeds: []wireEmbed{{
			Title:       a.Embed.Title,
			URL:         a.Embed.URL,
			Description: a.Embed.Description,
			Color:       a.Embed.Color,
			Fields:      fields,
			Footer:      map[string]string{"text": a.Embed.Footer},
			Timestamp:   a.Embed.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
}

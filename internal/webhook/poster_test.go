package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

func sampleAlert() models.Alert {
	return models.Alert{
		Ticker:         "ABCD",
		ContentText:    "ABCD: something happened",
		IdempotencyKey: "fp-1",
		Embed: models.Embed{
			Title:     "Something happened",
			Timestamp: time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestPost_SucceedsAndReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg-123"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.JitterMaxMs = 0
	p := New(srv.URL, cfg, nil)

	res, err := p.Post(context.Background(), sampleAlert(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MessageID != "msg-123" {
		t.Errorf("expected message id msg-123, got %q", res.MessageID)
	}
}

func TestPost_RetriesOnTransientFailureThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg-ok"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.JitterMaxMs = 0
	cfg.MaxRetries = 2
	p := New(srv.URL, cfg, nil)

	res, err := p.Post(context.Background(), sampleAlert(), 0)
	if err != nil {
		t.Fatalf("expected eventual success after retry, got %v", err)
	}
	if res.MessageID != "msg-ok" {
		t.Errorf("expected msg-ok, got %q", res.MessageID)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Errorf("expected at least 2 attempts, got %d", calls)
	}
}

func TestPost_PermanentClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.JitterMaxMs = 0
	cfg.MaxRetries = 2
	p := New(srv.URL, cfg, nil)

	_, err := p.Post(context.Background(), sampleAlert(), 0)
	if err == nil {
		t.Fatal("expected an error for a 400 response")
	}
	if errs.KindOf(err) != errs.PermanentNetwork {
		t.Errorf("expected PermanentNetwork kind, got %v", errs.KindOf(err))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected exactly 1 attempt for a 400 response, got %d", n)
	}
}

func TestPost_NoURLConfiguredReturnsConfigError(t *testing.T) {
	p := New("", DefaultConfig(), nil)
	_, err := p.Post(context.Background(), sampleAlert(), 0)
	if errs.KindOf(err) != errs.ConfigErr {
		t.Errorf("expected ConfigErr, got %v", errs.KindOf(err))
	}
}

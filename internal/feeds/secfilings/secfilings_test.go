package secfilings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch_ParsesFilingsAndCarriesAccessionNumber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"filings":[{"accession_no":"0001-26-000123","form_type":"8-K","item_code":"5.01","company_name":"Acme Corp","tickers":["ACME"],"filed_at":"2026-07-30T09:00:00Z","filing_url":"https://sec.gov/a","summary":"change in control"}]}`))
	}))
	defer srv.Close()

	s := New("sec_8k", srv.URL, 5, 0)
	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.SourceID != "0001-26-000123" {
		t.Errorf("expected source id to be the accession number, got %q", item.SourceID)
	}
	if item.RawFields["accession_number"].Str != "0001-26-000123" {
		t.Errorf("expected accession_number raw field, got %+v", item.RawFields)
	}
	if item.RawFields["item_code"].Str != "5.01" {
		t.Errorf("expected item_code raw field 5.01, got %+v", item.RawFields)
	}
}

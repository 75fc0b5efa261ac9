package main

import "testing"

func TestHostHint(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://www.prnewswire.com/rss/news-releases-list.rss", "www_prnewswire_com"},
		{"http://api.example.com/v1/feed?key=abc", "api_example_com"},
		{"https://bare-host.io", "bare-host_io"},
	}
	for _, c := range cases {
		if got := hostHint(c.url); got != c.want {
			t.Errorf("hostHint(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestSplitNonEmpty(t *testing.T) {
	if got := splitNonEmpty(""); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	got := splitNonEmpty(" https://a.example, https://b.example ,")
	want := []string{"https://a.example", "https://b.example"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSourceWeightsKnownSources(t *testing.T) {
	w := sourceWeights()
	if w["sec_edgar"] <= w["globenewswire"] {
		t.Error("expected sec_edgar to outrank globenewswire as a dedup tie-break")
	}
}

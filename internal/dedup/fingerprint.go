package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"alertwatcher/internal/models"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeTitle lowercases and collapses whitespace so that cosmetic
// differences ("Acme  Corp." vs "acme corp.") don't split the same event
// into two fingerprints.
func normalizeTitle(title string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	return whitespaceRun.ReplaceAllString(t, " ")
}

// canonicalURLWithoutQuery strips the query string and fragment, the part
// most likely to carry per-placement tracking params that otherwise defeat
// fingerprint matching across syndication partners.
func canonicalURLWithoutQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// accessionNumber pulls the SEC accession number out of RawFields, if the
// fetcher recorded one (see internal/feeds/secfilings).
func accessionNumber(item models.NewsItem) string {
	if fv, ok := item.RawFields["accession_number"]; ok && fv.Kind == models.FieldString {
		return fv.Str
	}
	return ""
}

// Fingerprint computes the stable SHA-1 identity of a NewsItem: over
// (source, source_id) when source_id is present, else over
// (normalized_title, canonical_url_without_query, accession_number).
func Fingerprint(item models.NewsItem) string {
	h := sha1.New()
	if item.SourceID != "" {
		h.Write([]byte(item.Source))
		h.Write([]byte{0})
		h.Write([]byte(item.SourceID))
	} else {
		h.Write([]byte(normalizeTitle(item.Title)))
		h.Write([]byte{0})
		h.Write([]byte(canonicalURLWithoutQuery(item.CanonicalURL)))
		h.Write([]byte{0})
		h.Write([]byte(accessionNumber(item)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

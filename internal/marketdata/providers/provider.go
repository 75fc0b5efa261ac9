// Package providers defines the Provider capability consulted by
// internal/marketdata, and an HTTP-backed implementation of it. Providers
// are tried in priority order by the client; a provider need not implement
// every field faithfully (zero-value/ErrUnsupported is fine) as long as it
// returns an error rather than a fabricated value.
package providers

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnsupported signals a provider does not carry a given field at all
// (as opposed to a transient failure to fetch it).
var ErrUnsupported = errors.New("field not supported by this provider")

// Provider is one market-data vendor. Every method takes its own
// ctx-scoped deadline; callers never wait past it.
type Provider interface {
	Name() string
	FetchPrice(ctx context.Context, ticker string) (price, changePct decimal.Decimal, err error)
	FetchRVOL(ctx context.Context, ticker string) (rvol decimal.Decimal, avgVolume int64, err error)
	FetchFloat(ctx context.Context, ticker string) (floatShares int64, err error)
	FetchVWAP(ctx context.Context, ticker string) (vwap decimal.Decimal, err error)
}

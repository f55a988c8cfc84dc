package gex

import (
	"context"
	"time"
)

// EventKind identifies a real-time feed subscription channel.
type EventKind string

const (
	EventTrade   EventKind = "Trade"
	EventQuote   EventKind = "Quote"
	EventGreeks  EventKind = "Greeks"
	EventSummary EventKind = "Summary"
)

// Provider is the market-data gateway the pipeline consumes. Implemented by
// tasty.Client; tests supply fakes.
type Provider interface {
	// OptionChain returns the flattened chain for an underlying. The
	// implementation resolves the provider's polymorphic response shapes
	// before returning; downstream code only ever sees a flat list.
	OptionChain(ctx context.Context, symbol string) ([]Contract, error)

	// MarketDataSnapshot fetches a point-in-time OI/volume snapshot for the
	// given identifying symbols. Best effort: partial coverage is fine.
	MarketDataSnapshot(ctx context.Context, symbols []string) (map[string]Snapshot, error)

	// OpenFeed opens a real-time event feed session.
	OpenFeed(ctx context.Context) (Feed, error)
}

// Feed is a live event stream session. Channels deliver the latest decoded
// events until Close.
type Feed interface {
	Subscribe(ctx context.Context, kind EventKind, symbols []string) error
	Trades() <-chan TradeTick
	Quotes() <-chan QuoteTick
	Greeks() <-chan GreeksUpdate
	Summaries() <-chan SummaryUpdate
	Close() error
}

// Snapshot is one record of the batched point-in-time market-data request.
// Fields the provider omitted stay zero.
type Snapshot struct {
	OpenInterest int64
	Volume       int64
}

// TradeTick is a last-trade event for an underlying.
type TradeTick struct {
	Symbol string
	Price  float64
}

// QuoteTick is a top-of-book quote event for an underlying.
type QuoteTick struct {
	Symbol   string
	BidPrice float64
	AskPrice float64
}

// GreeksUpdate carries per-contract gamma, keyed by streamer symbol.
type GreeksUpdate struct {
	Symbol string
	Gamma  float64
}

// SummaryUpdate carries per-contract day stats, keyed by streamer symbol.
type SummaryUpdate struct {
	Symbol       string
	OpenInterest int64
	DayVolume    int64
}

// OptionKind distinguishes calls from puts.
type OptionKind string

const (
	Call OptionKind = "Call"
	Put  OptionKind = "Put"
)

// Contract is one option contract from the provider's chain, immutable for
// the duration of a run. Symbol identifies the contract on REST endpoints;
// StreamerSymbol identifies it on the real-time feed.
type Contract struct {
	Symbol         string
	StreamerSymbol string
	Expiration     time.Time
	Strike         float64
	Kind           OptionKind
}

// eligible reports whether the contract carries everything the pipeline
// needs. Contracts missing any required field are dropped, not defaulted.
func (c Contract) eligible() bool {
	if c.Symbol == "" || c.Expiration.IsZero() {
		return false
	}
	if c.Strike <= 0 {
		return false
	}
	return c.Kind == Call || c.Kind == Put
}

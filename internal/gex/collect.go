package gex

import (
	"context"
	"errors"
	"time"
)

// spotTimeout bounds the trade/quote race during spot resolution.
const spotTimeout = 5 * time.Second

var errNoSpot = errors.New("no usable spot event")

// resolveSpot subscribes to both the trade and quote feeds for the underlying
// and takes whichever event arrives first. Trade price is preferred because
// it is the last true market-clearing price; the quote mid is the fallback
// when no trade has printed recently. An event without usable fields fails
// the resolution outright.
func resolveSpot(ctx context.Context, feed Feed, symbol string) (float64, error) {
	if err := feed.Subscribe(ctx, EventQuote, []string{symbol}); err != nil {
		return 0, err
	}
	if err := feed.Subscribe(ctx, EventTrade, []string{symbol}); err != nil {
		return 0, err
	}

	timer := time.NewTimer(spotTimeout)
	defer timer.Stop()

	select {
	case t, ok := <-feed.Trades():
		if !ok {
			return 0, errNoSpot
		}
		if t.Price > 0 {
			return t.Price, nil
		}
		return 0, errNoSpot
	case q, ok := <-feed.Quotes():
		if !ok {
			return 0, errNoSpot
		}
		if q.BidPrice > 0 && q.AskPrice > 0 {
			return (q.BidPrice + q.AskPrice) / 2.0, nil
		}
		return 0, errNoSpot
	case <-timer.C:
		return 0, errNoSpot
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// collectEvents runs the bounded real-time collection window: two listener
// goroutines drain the greeks and summary channels into append-only slices,
// the subscriptions go out, the window elapses, and only after both listeners
// acknowledge cancellation are the slices read. The maps are last-write-wins:
// only the final event per streamer symbol survives the window.
func collectEvents(ctx context.Context, feed Feed, symbols []string, window time.Duration) (map[string]GreeksUpdate, map[string]SummaryUpdate) {
	var greeksEvents []GreeksUpdate
	var summaryEvents []SummaryUpdate

	lctx, cancel := context.WithCancel(ctx)
	greeksDone := make(chan struct{})
	summaryDone := make(chan struct{})

	go func() {
		defer close(greeksDone)
		for {
			select {
			case <-lctx.Done():
				return
			case ev, ok := <-feed.Greeks():
				if !ok {
					return
				}
				greeksEvents = append(greeksEvents, ev)
			}
		}
	}()
	go func() {
		defer close(summaryDone)
		for {
			select {
			case <-lctx.Done():
				return
			case ev, ok := <-feed.Summaries():
				if !ok {
					return
				}
				summaryEvents = append(summaryEvents, ev)
			}
		}
	}()

	// Subscription failures shrink coverage but never fail the run.
	_ = feed.Subscribe(ctx, EventGreeks, symbols)
	_ = feed.Subscribe(ctx, EventSummary, symbols)

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	// Cancel, then await both acknowledgements before touching the slices.
	cancel()
	<-greeksDone
	<-summaryDone

	greeks := make(map[string]GreeksUpdate, len(greeksEvents))
	for _, ev := range greeksEvents {
		greeks[ev.Symbol] = ev
	}
	summaries := make(map[string]SummaryUpdate, len(summaryEvents))
	for _, ev := range summaryEvents {
		summaries[ev.Symbol] = ev
	}
	return greeks, summaries
}

// resolved holds the reconciled market data for one contract.
type resolved struct {
	gamma  float64
	oi     int64
	volume int64
}

// reconcile merges the streamed window and the snapshot for one contract.
// Streamed values win only when non-zero; the snapshot is the baseline and
// absence everywhere degrades to zero rather than failing the contract.
func reconcile(c Contract, greeks map[string]GreeksUpdate, summaries map[string]SummaryUpdate, snapshot map[string]Snapshot) resolved {
	var r resolved

	if g, ok := greeks[c.StreamerSymbol]; ok {
		r.gamma = g.Gamma
	}

	if md, ok := snapshot[c.Symbol]; ok {
		r.oi = md.OpenInterest
		r.volume = md.Volume
	}
	if s, ok := summaries[c.StreamerSymbol]; ok {
		if s.OpenInterest != 0 {
			r.oi = s.OpenInterest
		}
		if s.DayVolume != 0 {
			r.volume = s.DayVolume
		}
	}
	return r
}

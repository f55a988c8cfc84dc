package gex

import (
	"context"
	"testing"
	"time"
)

// fakeFeed satisfies Feed with pre-loaded buffered channels.
type fakeFeed struct {
	trades    chan TradeTick
	quotes    chan QuoteTick
	greeks    chan GreeksUpdate
	summaries chan SummaryUpdate

	subscribed map[EventKind][]string
	subErr     error
	closed     bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		trades:     make(chan TradeTick, 64),
		quotes:     make(chan QuoteTick, 64),
		greeks:     make(chan GreeksUpdate, 64),
		summaries:  make(chan SummaryUpdate, 64),
		subscribed: make(map[EventKind][]string),
	}
}

func (f *fakeFeed) Subscribe(_ context.Context, kind EventKind, symbols []string) error {
	if f.subErr != nil {
		return f.subErr
	}
	f.subscribed[kind] = append(f.subscribed[kind], symbols...)
	return nil
}

func (f *fakeFeed) Trades() <-chan TradeTick        { return f.trades }
func (f *fakeFeed) Quotes() <-chan QuoteTick        { return f.quotes }
func (f *fakeFeed) Greeks() <-chan GreeksUpdate     { return f.greeks }
func (f *fakeFeed) Summaries() <-chan SummaryUpdate { return f.summaries }
func (f *fakeFeed) Close() error                    { f.closed = true; return nil }

func (f *fakeFeed) closeAll() {
	close(f.trades)
	close(f.quotes)
	close(f.greeks)
	close(f.summaries)
}

func TestResolveSpot_TradePrice(t *testing.T) {
	feed := newFakeFeed()
	feed.trades <- TradeTick{Symbol: "SPY", Price: 450.25}

	spot, err := resolveSpot(context.Background(), feed, "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spot != 450.25 {
		t.Errorf("expected 450.25, got %v", spot)
	}
}

func TestResolveSpot_QuoteMid(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes <- QuoteTick{Symbol: "SPY", BidPrice: 449, AskPrice: 451}

	spot, err := resolveSpot(context.Background(), feed, "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spot != 450 {
		t.Errorf("expected 450, got %v", spot)
	}
}

func TestResolveSpot_ZeroPriceFails(t *testing.T) {
	feed := newFakeFeed()
	feed.trades <- TradeTick{Symbol: "SPY", Price: 0}

	if _, err := resolveSpot(context.Background(), feed, "SPY"); err == nil {
		t.Fatal("expected error for zero trade price")
	}
}

func TestResolveSpot_OneSidedQuoteFails(t *testing.T) {
	feed := newFakeFeed()
	feed.quotes <- QuoteTick{Symbol: "SPY", BidPrice: 449, AskPrice: 0}

	if _, err := resolveSpot(context.Background(), feed, "SPY"); err == nil {
		t.Fatal("expected error for one-sided quote")
	}
}

func TestResolveSpot_ClosedFeedFails(t *testing.T) {
	feed := newFakeFeed()
	feed.closeAll()

	if _, err := resolveSpot(context.Background(), feed, "SPY"); err == nil {
		t.Fatal("expected error for closed feed")
	}
}

func TestCollectEvents_LastWriteWins(t *testing.T) {
	feed := newFakeFeed()
	feed.greeks <- GreeksUpdate{Symbol: ".A", Gamma: 0.01}
	feed.greeks <- GreeksUpdate{Symbol: ".A", Gamma: 0.02}
	feed.summaries <- SummaryUpdate{Symbol: ".A", OpenInterest: 100, DayVolume: 5}

	greeks, summaries := collectEvents(context.Background(), feed, []string{".A"}, 50*time.Millisecond)

	if got := greeks[".A"].Gamma; got != 0.02 {
		t.Errorf("expected latest gamma 0.02, got %v", got)
	}
	if got := summaries[".A"].OpenInterest; got != 100 {
		t.Errorf("expected OI 100, got %v", got)
	}
}

func TestCollectEvents_SubscribesBothKinds(t *testing.T) {
	feed := newFakeFeed()
	collectEvents(context.Background(), feed, []string{".A", ".B"}, 10*time.Millisecond)

	if len(feed.subscribed[EventGreeks]) != 2 {
		t.Errorf("expected greeks subscription for 2 symbols, got %v", feed.subscribed[EventGreeks])
	}
	if len(feed.subscribed[EventSummary]) != 2 {
		t.Errorf("expected summary subscription for 2 symbols, got %v", feed.subscribed[EventSummary])
	}
}

func TestReconcile_SnapshotBaseline(t *testing.T) {
	c := contract("OPT", day(5), 100, Call)
	snapshot := map[string]Snapshot{"OPT": {OpenInterest: 50, Volume: 7}}

	r := reconcile(c, nil, nil, snapshot)
	if r.oi != 50 || r.volume != 7 {
		t.Errorf("expected snapshot baseline (50, 7), got (%d, %d)", r.oi, r.volume)
	}
	if r.gamma != 0 {
		t.Errorf("expected default gamma 0, got %v", r.gamma)
	}
}

func TestReconcile_StreamedZeroFallsBackToSnapshot(t *testing.T) {
	c := contract("OPT", day(5), 100, Call)
	snapshot := map[string]Snapshot{"OPT": {OpenInterest: 50, Volume: 7}}
	summaries := map[string]SummaryUpdate{".OPT": {Symbol: ".OPT", OpenInterest: 0, DayVolume: 0}}

	// A streamed zero is not trusted over the snapshot value.
	r := reconcile(c, nil, summaries, snapshot)
	if r.oi != 50 {
		t.Errorf("expected snapshot OI 50, got %d", r.oi)
	}
	if r.volume != 7 {
		t.Errorf("expected snapshot volume 7, got %d", r.volume)
	}
}

func TestReconcile_StreamedValueWins(t *testing.T) {
	c := contract("OPT", day(5), 100, Call)
	snapshot := map[string]Snapshot{"OPT": {OpenInterest: 50, Volume: 7}}
	greeks := map[string]GreeksUpdate{".OPT": {Symbol: ".OPT", Gamma: 0.03}}
	summaries := map[string]SummaryUpdate{".OPT": {Symbol: ".OPT", OpenInterest: 80, DayVolume: 9}}

	r := reconcile(c, greeks, summaries, snapshot)
	if r.oi != 80 || r.volume != 9 {
		t.Errorf("expected streamed values (80, 9), got (%d, %d)", r.oi, r.volume)
	}
	if r.gamma != 0.03 {
		t.Errorf("expected streamed gamma 0.03, got %v", r.gamma)
	}
}

func TestReconcile_NoDataDefaultsToZero(t *testing.T) {
	c := contract("OPT", day(5), 100, Call)

	r := reconcile(c, nil, nil, nil)
	if r.oi != 0 || r.volume != 0 || r.gamma != 0 {
		t.Errorf("expected all zeros, got %+v", r)
	}
}

package gex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCollectWindow is how long a run listens for streamed greeks and
// summaries before reconciling. The UI layer bounds this to [2s, 10s]; the
// engine accepts any positive duration.
const DefaultCollectWindow = 5 * time.Second

// ConnectFunc builds an authenticated provider session. Implementations
// return ErrMissingCredentials before touching the network when credentials
// are absent.
type ConnectFunc func(ctx context.Context) (Provider, error)

// Params configures one profile run.
type Params struct {
	Symbol    string
	Selection Selection

	// MajorLevelThreshold is the minimum absolute net GEX ($M) for a strike
	// to count as a major level.
	MajorLevelThreshold float64

	// CollectWindow bounds the real-time collection phase. Zero means
	// DefaultCollectWindow.
	CollectWindow time.Duration

	// Provider reuses an existing authenticated session. When nil the engine
	// connects through its ConnectFunc.
	Provider Provider

	// Progress, when set, receives human-readable milestone strings during
	// the run. Purely observational.
	Progress func(msg string)
}

// Engine computes GEX profiles. One ComputeProfile call is one bounded run;
// the engine itself keeps no state between runs.
type Engine struct {
	connect ConnectFunc
	logger  *zap.Logger
	now     func() time.Time
}

// NewEngine creates an engine that authenticates via connect when a run does
// not supply its own session.
func NewEngine(connect ConnectFunc, logger *zap.Logger) *Engine {
	return &Engine{
		connect: connect,
		logger:  logger,
		now:     time.Now,
	}
}

// ComputeProfile runs the whole pipeline for one underlying: spot
// resolution, chain selection, snapshot + streamed reconciliation,
// aggregation, level finding and signal classification. Failures come back
// on Result.Err; no error escapes as a Go error.
func (e *Engine) ComputeProfile(ctx context.Context, p Params) *Result {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("run", runID), zap.String("symbol", p.Symbol))

	progress := func(msg string) {
		log.Debug(msg)
		if p.Progress != nil {
			p.Progress(msg)
		}
	}

	if p.CollectWindow <= 0 {
		p.CollectWindow = DefaultCollectWindow
	}

	provider := p.Provider
	if provider != nil {
		progress("Using existing session...")
	} else {
		progress("Authenticating...")
		var err error
		provider, err = e.connect(ctx)
		if err != nil {
			if errors.Is(err, ErrMissingCredentials) {
				return errResult(p.Symbol, 0, p.Selection.MaxDTE,
					"Missing API credentials. Please configure TT_CLIENT_SECRET and TT_REFRESH_TOKEN")
			}
			return errResult(p.Symbol, 0, p.Selection.MaxDTE,
				fmt.Sprintf("Authentication failed: %v", err))
		}
	}

	progress(fmt.Sprintf("Fetching data for %s...", p.Symbol))

	feed, err := provider.OpenFeed(ctx)
	if err != nil {
		return errResult(p.Symbol, 0, p.Selection.MaxDTE,
			fmt.Sprintf("Failed to open market data feed: %v", err))
	}
	defer func() { _ = feed.Close() }()

	progress("Getting spot price...")
	spot, err := resolveSpot(ctx, feed, p.Symbol)
	if err != nil {
		return errResult(p.Symbol, 0, p.Selection.MaxDTE, "Could not fetch spot price")
	}

	progress("Fetching option chain...")
	chain, err := provider.OptionChain(ctx, p.Symbol)
	if err != nil {
		return errResult(p.Symbol, spot, p.Selection.MaxDTE, err.Error())
	}
	if len(chain) == 0 {
		return errResult(p.Symbol, spot, p.Selection.MaxDTE, "No chain data returned")
	}

	progress(fmt.Sprintf("Filtering options (closest %d strikes)...", p.Selection.StrikeCount))
	eligible := filterEligible(chain, p.Selection, e.now())
	windowed, bounds := windowStrikes(eligible, spot, p.Selection.StrikeCount)
	if len(windowed) == 0 {
		return errResult(p.Symbol, spot, p.Selection.MaxDTE, "No options found after filtering")
	}

	progress(fmt.Sprintf("Found %d options to analyze...", len(windowed)))

	progress("Fetching market data (OI, Volume)...")
	symbols := make([]string, len(windowed))
	for i, c := range windowed {
		symbols[i] = c.Symbol
	}
	snapshot, err := provider.MarketDataSnapshot(ctx, symbols)
	if err != nil {
		// Reduced coverage, not a failed run: streamed summaries may still
		// fill the gap.
		log.Warn("market data snapshot failed", zap.Error(err))
		snapshot = map[string]Snapshot{}
	}

	progress("Subscribing to real-time data...")
	streamerSymbols := make([]string, len(windowed))
	for i, c := range windowed {
		streamerSymbols[i] = c.StreamerSymbol
	}

	progress(fmt.Sprintf("Collecting data (%.0fs)...", p.CollectWindow.Seconds()))
	greeks, summaries := collectEvents(ctx, feed, streamerSymbols, p.CollectWindow)

	progress("Calculating GEX...")
	rows := make([]ContractRow, 0, len(windowed))
	for _, c := range windowed {
		rows = append(rows, contractGEX(c, reconcile(c, greeks, summaries, snapshot), spot))
	}
	if len(rows) == 0 {
		return errResult(p.Symbol, spot, p.Selection.MaxDTE, "No GEX data calculated")
	}

	strikes := aggregateStrikes(rows)
	total := totalGEX(rows)
	callWall, putWall := findWalls(strikes)
	flip := zeroGamma(strikes)

	progress("Done!")

	return &Result{
		Symbol:         p.Symbol,
		SpotPrice:      spot,
		TotalGEX:       roundTo(total, 2),
		ZeroGammaLevel: flip,
		CallWall:       callWall,
		PutWall:        putWall,
		MaxDTE:         p.Selection.MaxDTE,
		StrikeRange:    bounds,
		Contracts:      rows,
		Strikes:        strikes,
		MajorLevels:    majorLevels(strikes, p.MajorLevelThreshold),
		Strategy:       classify(total, spot, callWall, putWall, flip, e.now()),
	}
}

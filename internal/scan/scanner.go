// Package scan runs the GEX pipeline across a universe of symbols.
package scan

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

// Computer is satisfied by *gex.Engine.
type Computer interface {
	ComputeProfile(ctx context.Context, p gex.Params) *gex.Result
}

// Scanner computes profiles for many symbols sequentially. Sequential on
// purpose: one provider session, no rate-limit pressure, and the collection
// window already dominates per-symbol latency.
type Scanner struct {
	engine Computer
	logger *zap.Logger
}

// Summary condenses one scan for reporting.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int

	// MostPositive and MostNegative point at the successful results with the
	// extreme total net GEX, nil when no run succeeded.
	MostPositive *gex.Result
	MostNegative *gex.Result

	Duration time.Duration
}

func New(engine Computer, logger *zap.Logger) *Scanner {
	return &Scanner{engine: engine, logger: logger}
}

// Run computes one profile per symbol using base as the parameter template.
// A failed symbol contributes its error result and never aborts the scan.
func (s *Scanner) Run(ctx context.Context, symbols []string, base gex.Params) ([]*gex.Result, Summary) {
	start := time.Now()
	results := make([]*gex.Result, 0, len(symbols))
	summary := Summary{Total: len(symbols)}

	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}

		params := base
		params.Symbol = symbol
		res := s.engine.ComputeProfile(ctx, params)
		results = append(results, res)

		if res.Err != "" {
			summary.Failed++
			s.logger.Warn("scan symbol failed",
				zap.String("symbol", symbol),
				zap.String("error", res.Err))
			continue
		}

		summary.Succeeded++
		if summary.MostPositive == nil || res.TotalGEX > summary.MostPositive.TotalGEX {
			summary.MostPositive = res
		}
		if summary.MostNegative == nil || res.TotalGEX < summary.MostNegative.TotalGEX {
			summary.MostNegative = res
		}
	}

	summary.Duration = time.Since(start)
	return results, summary
}

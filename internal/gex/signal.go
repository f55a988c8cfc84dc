package gex

import (
	"fmt"
	"math"
	"time"
)

// reversionThresholdM is the net GEX level ($1B, in the pipeline's $M units)
// above which the positive-gamma regime is considered strong enough to fade.
const reversionThresholdM = 1_000.0

// pinDistancePct is how close spot must sit to a wall for late-day pinning.
const pinDistancePct = 0.005

// classify runs the signal rule cascade in fixed priority order: mean
// reversion, then acceleration, then late-day magnet pinning. The first
// matching rule wins; no match yields nil.
func classify(totalGEX, spot float64, callWall, putWall, zeroGammaLevel *float64, now time.Time) *Signal {
	// 1. Mean reversion: strong positive gamma with spot boxed between the
	// walls dampens volatility.
	if totalGEX > reversionThresholdM && callWall != nil && putWall != nil {
		if *putWall < spot && spot < *callWall {
			return &Signal{
				Signal:   "MEAN_REVERSION",
				Bias:     "NEUTRAL",
				Message:  "Market in Positive Gamma ($1B+). Volatility dampened. Fade moves to walls.",
				Validity: "High",
				Color:    "emerald",
			}
		}
	}

	// 2. Acceleration: negative gamma, or spot under the flip point, means
	// dealer hedging chases price.
	priceBelowFlip := zeroGammaLevel != nil && spot < *zeroGammaLevel
	if totalGEX < 0 || priceBelowFlip {
		return &Signal{
			Signal:   "ACCELERATION",
			Bias:     "BEARISH_VOL",
			Message:  "Negative Gamma detected. Dealers chasing price. Expect range expansion.",
			Validity: "High",
			Color:    "rose",
		}
	}

	// 3. Magnet pin: after 14:00 spot tends to stick to a nearby wall.
	if now.Hour() >= 14 {
		var nearest *float64
		for _, w := range []*float64{callWall, putWall} {
			if w == nil {
				continue
			}
			if nearest == nil || math.Abs(*w-spot) < math.Abs(*nearest-spot) {
				nearest = w
			}
		}
		if nearest != nil && spot > 0 && math.Abs(spot-*nearest)/spot < pinDistancePct {
			return &Signal{
				Signal:   "MAGNET_PIN",
				Bias:     "NEUTRAL",
				Message:  fmt.Sprintf("Price pinning to %v wall into close.", *nearest),
				Validity: "Medium",
				Color:    "amber",
			}
		}
	}

	return nil
}

package gex

import (
	"math"
	"sort"
	"time"
)

// Selection controls which part of the chain a run analyzes. Expirations and
// MaxDTE are mutually exclusive: a non-nil Expirations set wins.
type Selection struct {
	// Expirations keeps only contracts expiring on one of these dates.
	Expirations []time.Time

	// MaxDTE keeps contracts expiring within [0, MaxDTE] days of today.
	// Ignored when Expirations is set.
	MaxDTE int

	// StrikeCount selects this many strikes below and above the strike
	// closest to spot, per expiration. Clamped to the available range.
	StrikeCount int
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// filterEligible applies the eligibility and expiration filters.
func filterEligible(contracts []Contract, sel Selection, today time.Time) []Contract {
	var expSet map[string]bool
	if sel.Expirations != nil {
		expSet = make(map[string]bool, len(sel.Expirations))
		for _, d := range sel.Expirations {
			expSet[dateKey(d)] = true
		}
	}

	today = midnight(today)

	var out []Contract
	for _, c := range contracts {
		if !c.eligible() {
			continue
		}
		if expSet != nil {
			if !expSet[dateKey(c.Expiration)] {
				continue
			}
		} else {
			dte := int(midnight(c.Expiration).Sub(today).Hours() / 24)
			if dte < 0 || dte > sel.MaxDTE {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// windowStrikes narrows the eligible contracts to a window of strikes around
// spot, independently per expiration: the StrikeCount strikes below and above
// the strike closest to spot, clamped at the edges of the available range.
// Every contract at a selected strike is kept regardless of kind. Returns the
// windowed contracts plus the realized [min, max] strike bounds.
func windowStrikes(contracts []Contract, spot float64, strikeCount int) ([]Contract, [2]float64) {
	byExp := make(map[string][]Contract)
	var expOrder []string
	for _, c := range contracts {
		k := dateKey(c.Expiration)
		if _, seen := byExp[k]; !seen {
			expOrder = append(expOrder, k)
		}
		byExp[k] = append(byExp[k], c)
	}
	sort.Strings(expOrder)

	var selected []Contract
	minStrike := math.Inf(1)
	maxStrike := math.Inf(-1)

	for _, exp := range expOrder {
		byStrike := make(map[float64][]Contract)
		for _, c := range byExp[exp] {
			byStrike[c.Strike] = append(byStrike[c.Strike], c)
		}

		strikes := make([]float64, 0, len(byStrike))
		for s := range byStrike {
			strikes = append(strikes, s)
		}
		sort.Float64s(strikes)
		if len(strikes) == 0 {
			continue
		}

		// First minimal-distance strike wins ties.
		closest := 0
		for i, s := range strikes {
			if math.Abs(s-spot) < math.Abs(strikes[closest]-spot) {
				closest = i
			}
		}

		start := closest - strikeCount
		if start < 0 {
			start = 0
		}
		end := closest + strikeCount + 1
		if end > len(strikes) {
			end = len(strikes)
		}

		for _, s := range strikes[start:end] {
			selected = append(selected, byStrike[s]...)
			if s < minStrike {
				minStrike = s
			}
			if s > maxStrike {
				maxStrike = s
			}
		}
	}

	if len(selected) == 0 {
		return nil, [2]float64{0, 0}
	}
	return selected, [2]float64{minStrike, maxStrike}
}

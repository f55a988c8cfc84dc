package gex

import "sort"

// contractGEX applies the dollar-gamma exposure formula for one contract.
// 100 is the share multiplier, spot^2 * 0.01 converts per-1%-move gamma to
// dollar terms, and the result is rescaled to $M. Calls carry positive sign
// (dealer long gamma), puts negative. The sign convention and the 4-place
// rounding are part of the output contract.
func contractGEX(c Contract, r resolved, spot float64) ContractRow {
	rawM := (float64(r.oi) * r.gamma * 100 * spot * spot * 0.01) / 1_000_000

	net := rawM
	callGEX := rawM
	putGEX := 0.0
	if c.Kind == Put {
		net = -rawM
		callGEX = 0.0
		putGEX = -rawM
	}

	return ContractRow{
		Symbol:       c.Symbol,
		Expiration:   c.Expiration,
		Strike:       c.Strike,
		Kind:         c.Kind,
		OpenInterest: r.oi,
		Volume:       r.volume,
		Gamma:        r.gamma,
		NetGEX:       roundTo(net, 4),
		CallGEX:      roundTo(callGEX, 4),
		PutGEX:       roundTo(putGEX, 4),
	}
}

// aggregateStrikes groups contract rows by strike, collapsing expirations and
// kinds, and returns the rows sorted ascending by strike. Level finding
// depends on that ordering.
func aggregateStrikes(rows []ContractRow) []StrikeRow {
	byStrike := make(map[float64]*StrikeRow)
	for _, row := range rows {
		agg, ok := byStrike[row.Strike]
		if !ok {
			agg = &StrikeRow{Strike: row.Strike}
			byStrike[row.Strike] = agg
		}
		agg.NetGEX += row.NetGEX
		agg.CallGEX += row.CallGEX
		agg.PutGEX += row.PutGEX
		agg.TotalOI += row.OpenInterest
		agg.TotalVolume += row.Volume
		if row.Kind == Call {
			agg.CallOI += row.OpenInterest
			agg.CallVolume += row.Volume
		} else {
			agg.PutOI += row.OpenInterest
			agg.PutVolume += row.Volume
		}
	}

	out := make([]StrikeRow, 0, len(byStrike))
	for _, agg := range byStrike {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strike < out[j].Strike })

	// Volume-weighted GEX scales each strike's net exposure by its share of
	// the day's volume. Relative metric only: the weighted values do not sum
	// back to total net GEX, and that is intentional.
	var totalVolume int64
	for _, s := range out {
		totalVolume += s.TotalVolume
	}
	for i := range out {
		if totalVolume > 0 {
			w := out[i].NetGEX * (float64(out[i].TotalVolume) / float64(totalVolume))
			out[i].VolWeightedGEX = roundTo(w, 6)
		} else {
			out[i].VolWeightedGEX = 0
		}
	}
	return out
}

// totalGEX sums the per-contract net exposures.
func totalGEX(rows []ContractRow) float64 {
	var total float64
	for _, row := range rows {
		total += row.NetGEX
	}
	return total
}

// majorLevels filters strikes whose absolute net GEX clears the threshold,
// tagging each by the sign of its exposure.
func majorLevels(strikes []StrikeRow, threshold float64) []MajorLevel {
	var out []MajorLevel
	for _, s := range strikes {
		abs := s.NetGEX
		if abs < 0 {
			abs = -abs
		}
		if abs <= threshold {
			continue
		}
		kind := Put
		if s.NetGEX > 0 {
			kind = Call
		}
		out = append(out, MajorLevel{
			Strike: s.Strike,
			Kind:   kind,
			NetGEX: roundTo(s.NetGEX, 1),
		})
	}
	return out
}

package gex

// findWalls locates the call wall (strike with the maximum strictly positive
// net GEX) and the put wall (strike with the most negative net GEX). Either
// is nil when no strike qualifies.
func findWalls(strikes []StrikeRow) (callWall, putWall *float64) {
	var maxPos, minNeg float64
	for _, s := range strikes {
		if s.NetGEX > 0 && (callWall == nil || s.NetGEX > maxPos) {
			maxPos = s.NetGEX
			strike := s.Strike
			callWall = &strike
		}
		if s.NetGEX < 0 && (putWall == nil || s.NetGEX < minNeg) {
			minNeg = s.NetGEX
			strike := s.Strike
			putWall = &strike
		}
	}
	return callWall, putWall
}

// zeroGamma finds the underlying price where aggregate net GEX flips sign,
// by linear interpolation between the first adjacent pair of strikes with
// strictly opposite signs. Strikes must already be sorted ascending. A
// profile with multiple sign flips yields only the lowest-strike crossing;
// a monotone-sign profile yields nil.
func zeroGamma(strikes []StrikeRow) *float64 {
	for i := 0; i+1 < len(strikes); i++ {
		y1 := strikes[i].NetGEX
		y2 := strikes[i+1].NetGEX
		if y1*y2 >= 0 {
			continue
		}
		x1 := strikes[i].Strike
		x2 := strikes[i+1].Strike
		cross := roundTo(x1-y1*(x2-x1)/(y2-y1), 2)
		return &cross
	}
	return nil
}

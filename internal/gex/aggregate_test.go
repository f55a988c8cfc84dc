package gex

import (
	"math"
	"testing"
)

func TestContractGEX_Formula(t *testing.T) {
	c := contract("OPT", day(5), 105, Call)
	row := contractGEX(c, resolved{oi: 10000, gamma: 0.05}, 100)

	// (10000 * 0.05 * 100 * 100^2 * 0.01) / 1e6 = 5.0
	if row.NetGEX != 5.0 {
		t.Errorf("expected net GEX 5.0, got %v", row.NetGEX)
	}
	if row.CallGEX != 5.0 || row.PutGEX != 0 {
		t.Errorf("expected call-only exposure, got call=%v put=%v", row.CallGEX, row.PutGEX)
	}
}

func TestContractGEX_SignConvention(t *testing.T) {
	r := resolved{oi: 10, gamma: 0.01}

	call := contractGEX(contract("C", day(5), 100, Call), r, 100)
	put := contractGEX(contract("P", day(5), 100, Put), r, 100)

	if call.NetGEX <= 0 {
		t.Errorf("call net GEX must be positive, got %v", call.NetGEX)
	}
	if put.NetGEX >= 0 {
		t.Errorf("put net GEX must be negative, got %v", put.NetGEX)
	}
	if put.CallGEX != 0 || put.PutGEX != put.NetGEX {
		t.Errorf("put exposure split wrong: %+v", put)
	}
}

func TestContractGEX_RoundsToFourPlaces(t *testing.T) {
	c := contract("OPT", day(5), 100, Call)
	row := contractGEX(c, resolved{oi: 3, gamma: 0.000123}, 99.5)

	if row.NetGEX != roundTo(row.NetGEX, 4) {
		t.Errorf("net GEX not rounded to 4 places: %v", row.NetGEX)
	}
}

func TestAggregateStrikes_Conservation(t *testing.T) {
	rows := []ContractRow{
		{Strike: 100, Kind: Call, NetGEX: 1.2345, CallGEX: 1.2345, OpenInterest: 10, Volume: 2},
		{Strike: 100, Kind: Put, NetGEX: -0.5, PutGEX: -0.5, OpenInterest: 4, Volume: 1},
		{Strike: 110, Kind: Call, NetGEX: 2.0, CallGEX: 2.0, OpenInterest: 8, Volume: 3},
	}

	strikes := aggregateStrikes(rows)

	var strikeSum float64
	for _, s := range strikes {
		strikeSum += s.NetGEX
	}
	if math.Abs(strikeSum-totalGEX(rows)) > 1e-9 {
		t.Errorf("strike sum %v != contract sum %v", strikeSum, totalGEX(rows))
	}
}

func TestAggregateStrikes_CollapsesExpirationsAndSorts(t *testing.T) {
	rows := []ContractRow{
		{Strike: 110, Expiration: day(5), Kind: Call, NetGEX: 1, CallGEX: 1, OpenInterest: 5, Volume: 1},
		{Strike: 100, Expiration: day(5), Kind: Put, NetGEX: -2, PutGEX: -2, OpenInterest: 3, Volume: 4},
		{Strike: 100, Expiration: day(12), Kind: Call, NetGEX: 3, CallGEX: 3, OpenInterest: 7, Volume: 2},
	}

	strikes := aggregateStrikes(rows)
	if len(strikes) != 2 {
		t.Fatalf("expected 2 strikes, got %d", len(strikes))
	}
	if strikes[0].Strike != 100 || strikes[1].Strike != 110 {
		t.Fatalf("strikes not sorted ascending: %+v", strikes)
	}

	s100 := strikes[0]
	if s100.NetGEX != 1 {
		t.Errorf("expected net 1 at 100, got %v", s100.NetGEX)
	}
	if s100.TotalOI != 10 || s100.CallOI != 7 || s100.PutOI != 3 {
		t.Errorf("OI split wrong: %+v", s100)
	}
	if s100.TotalVolume != 6 || s100.CallVolume != 2 || s100.PutVolume != 4 {
		t.Errorf("volume split wrong: %+v", s100)
	}
}

func TestAggregateStrikes_VolumeWeighting(t *testing.T) {
	rows := []ContractRow{
		{Strike: 100, Kind: Call, NetGEX: 10, CallGEX: 10, Volume: 30},
		{Strike: 110, Kind: Call, NetGEX: 4, CallGEX: 4, Volume: 10},
	}

	strikes := aggregateStrikes(rows)
	if got := strikes[0].VolWeightedGEX; got != 7.5 {
		t.Errorf("expected 10 * 30/40 = 7.5, got %v", got)
	}
	if got := strikes[1].VolWeightedGEX; got != 1.0 {
		t.Errorf("expected 4 * 10/40 = 1.0, got %v", got)
	}
}

func TestAggregateStrikes_ZeroVolumeGuard(t *testing.T) {
	rows := []ContractRow{
		{Strike: 100, Kind: Call, NetGEX: 10, CallGEX: 10, Volume: 0},
	}

	strikes := aggregateStrikes(rows)
	if strikes[0].VolWeightedGEX != 0 {
		t.Errorf("expected 0 weighted GEX with no volume, got %v", strikes[0].VolWeightedGEX)
	}
}

func TestMajorLevels_ThresholdAndTagging(t *testing.T) {
	strikes := []StrikeRow{
		{Strike: 90, NetGEX: -75.26},
		{Strike: 100, NetGEX: 49.9},
		{Strike: 110, NetGEX: 50.0},
		{Strike: 120, NetGEX: 62.71},
	}

	levels := majorLevels(strikes, 50)
	if len(levels) != 2 {
		t.Fatalf("expected 2 major levels, got %d", len(levels))
	}

	if levels[0].Kind != Put || levels[0].NetGEX != -75.3 {
		t.Errorf("expected put level -75.3, got %+v", levels[0])
	}
	if levels[1].Kind != Call || levels[1].NetGEX != 62.7 {
		t.Errorf("expected call level 62.7, got %+v", levels[1])
	}
}

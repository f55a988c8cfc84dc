package gex

import (
	"testing"
	"time"
)

func day(offset int) time.Time {
	return midnight(time.Now().UTC()).AddDate(0, 0, offset)
}

func contract(symbol string, exp time.Time, strike float64, kind OptionKind) Contract {
	return Contract{
		Symbol:         symbol,
		StreamerSymbol: "." + symbol,
		Expiration:     exp,
		Strike:         strike,
		Kind:           kind,
	}
}

func TestFilterEligible_DropsIncompleteContracts(t *testing.T) {
	exp := day(5)
	contracts := []Contract{
		contract("OK1", exp, 100, Call),
		{Symbol: "", Expiration: exp, Strike: 100, Kind: Call},
		{Symbol: "NOEXP", Strike: 100, Kind: Call},
		{Symbol: "NOSTRIKE", Expiration: exp, Kind: Call},
		{Symbol: "NOKIND", Expiration: exp, Strike: 100},
	}

	got := filterEligible(contracts, Selection{MaxDTE: 30}, time.Now())
	if len(got) != 1 || got[0].Symbol != "OK1" {
		t.Fatalf("expected only OK1, got %v", got)
	}
}

func TestFilterEligible_MaxDTEBounds(t *testing.T) {
	contracts := []Contract{
		contract("PAST", day(-1), 100, Call),
		contract("TODAY", day(0), 100, Call),
		contract("EDGE", day(30), 100, Call),
		contract("FAR", day(31), 100, Call),
	}

	got := filterEligible(contracts, Selection{MaxDTE: 30}, time.Now())
	if len(got) != 2 {
		t.Fatalf("expected 2 contracts, got %d", len(got))
	}
	for _, c := range got {
		if c.Symbol == "PAST" || c.Symbol == "FAR" {
			t.Errorf("contract %s should have been filtered", c.Symbol)
		}
	}
}

func TestFilterEligible_ExplicitExpirationsOverrideMaxDTE(t *testing.T) {
	keep := day(45)
	contracts := []Contract{
		contract("KEEP", keep, 100, Call),
		contract("DROP", day(5), 100, Call),
	}

	// MaxDTE would keep DROP and exclude KEEP; the explicit set wins.
	got := filterEligible(contracts, Selection{Expirations: []time.Time{keep}, MaxDTE: 30}, time.Now())
	if len(got) != 1 || got[0].Symbol != "KEEP" {
		t.Fatalf("expected only KEEP, got %v", got)
	}
}

func TestWindowStrikes_ClampsToAvailableRange(t *testing.T) {
	exp := day(5)
	var contracts []Contract
	for i := 0; i < 10; i++ {
		strike := 90.0 + float64(i)
		contracts = append(contracts,
			contract("C", exp, strike, Call),
			contract("P", exp, strike, Put),
		)
	}

	selected, bounds := windowStrikes(contracts, 95, 1000)
	if len(selected) != 20 {
		t.Fatalf("expected all 20 contracts, got %d", len(selected))
	}
	if bounds[0] != 90 || bounds[1] != 99 {
		t.Errorf("expected bounds [90, 99], got %v", bounds)
	}
}

func TestWindowStrikes_SelectsAroundClosest(t *testing.T) {
	exp := day(5)
	var contracts []Contract
	for _, strike := range []float64{90, 95, 100, 105, 110} {
		contracts = append(contracts, contract("C", exp, strike, Call))
	}

	selected, bounds := windowStrikes(contracts, 101, 1)
	if len(selected) != 3 {
		t.Fatalf("expected 3 contracts, got %d", len(selected))
	}
	if bounds[0] != 95 || bounds[1] != 105 {
		t.Errorf("expected bounds [95, 105], got %v", bounds)
	}
}

func TestWindowStrikes_TieBreaksToLowerStrike(t *testing.T) {
	exp := day(5)
	contracts := []Contract{
		contract("LOW", exp, 95, Call),
		contract("HIGH", exp, 105, Call),
	}

	// Both strikes are 5 away from spot; the first minimal candidate in
	// ascending order wins.
	selected, _ := windowStrikes(contracts, 100, 0)
	if len(selected) != 1 || selected[0].Strike != 95 {
		t.Fatalf("expected the 95 strike, got %v", selected)
	}
}

func TestWindowStrikes_UnionsKindsAtSelectedStrike(t *testing.T) {
	exp := day(5)
	contracts := []Contract{
		contract("C100", exp, 100, Call),
		contract("P100", exp, 100, Put),
		contract("C120", exp, 120, Call),
	}

	selected, _ := windowStrikes(contracts, 100, 0)
	if len(selected) != 2 {
		t.Fatalf("expected both kinds at strike 100, got %v", selected)
	}
}

func TestWindowStrikes_PerExpirationIndependence(t *testing.T) {
	near := day(5)
	far := day(10)
	contracts := []Contract{
		contract("N100", near, 100, Call),
		contract("N110", near, 110, Call),
		// The far expiration only lists strikes away from spot; its own
		// closest strike still anchors its window.
		contract("F130", far, 130, Call),
		contract("F140", far, 140, Call),
	}

	selected, bounds := windowStrikes(contracts, 100, 0)
	if len(selected) != 2 {
		t.Fatalf("expected one contract per expiration, got %v", selected)
	}
	if bounds[0] != 100 || bounds[1] != 130 {
		t.Errorf("expected bounds [100, 130], got %v", bounds)
	}
}

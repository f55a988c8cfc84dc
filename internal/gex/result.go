package gex

import (
	"math"
	"time"
)

// ContractRow is one resolved contract after reconciliation, with its
// computed exposure in $M.
type ContractRow struct {
	Symbol       string     `json:"symbol"`
	Expiration   time.Time  `json:"expiration"`
	Strike       float64    `json:"strike"`
	Kind         OptionKind `json:"type"`
	OpenInterest int64      `json:"oi"`
	Volume       int64      `json:"volume"`
	Gamma        float64    `json:"gamma"`
	NetGEX       float64    `json:"net_gex"`
	CallGEX      float64    `json:"call_gex"`
	PutGEX       float64    `json:"put_gex"`
}

// StrikeRow aggregates all contracts at one strike across expirations.
type StrikeRow struct {
	Strike         float64 `json:"strike"`
	NetGEX         float64 `json:"net_gex"`
	CallGEX        float64 `json:"call_gex"`
	PutGEX         float64 `json:"put_gex"`
	TotalOI        int64   `json:"total_oi"`
	CallOI         int64   `json:"call_oi"`
	PutOI          int64   `json:"put_oi"`
	TotalVolume    int64   `json:"total_volume"`
	CallVolume     int64   `json:"call_volume"`
	PutVolume      int64   `json:"put_volume"`
	VolWeightedGEX float64 `json:"vol_weighted_gex"`
}

// MajorLevel is a strike whose absolute net GEX clears the caller's
// threshold. Kind is assigned by the sign of the net exposure, not by the
// contract mix at the strike.
type MajorLevel struct {
	Strike float64    `json:"strike"`
	Kind   OptionKind `json:"type"`
	NetGEX float64    `json:"net_gex"`
}

// Signal is an advisory classification of the current gamma regime. The
// message, validity and color strings are presentation hints only.
type Signal struct {
	Signal   string `json:"signal"`
	Bias     string `json:"bias"`
	Message  string `json:"message"`
	Validity string `json:"validity"`
	Color    string `json:"color"`
}

// Result is the terminal output of one profile run. When Err is non-empty
// every other field holds its zero value; callers must check Err before
// reading tables (an empty table with Err == "" is a legitimate result).
type Result struct {
	Symbol         string        `json:"symbol"`
	SpotPrice      float64       `json:"spot_price"`
	TotalGEX       float64       `json:"total_gex"`
	ZeroGammaLevel *float64      `json:"zero_gamma_level"`
	CallWall       *float64      `json:"call_wall"`
	PutWall        *float64      `json:"put_wall"`
	MaxDTE         int           `json:"max_dte"`
	StrikeRange    [2]float64    `json:"strike_range"`
	Contracts      []ContractRow `json:"contracts"`
	Strikes        []StrikeRow   `json:"strikes"`
	MajorLevels    []MajorLevel  `json:"major_levels"`
	Strategy       *Signal       `json:"strategy,omitempty"`
	Err            string        `json:"error,omitempty"`
}

// errResult builds a short-circuited Result carrying only the error string.
func errResult(symbol string, spot float64, maxDTE int, msg string) *Result {
	return &Result{
		Symbol:    symbol,
		SpotPrice: spot,
		MaxDTE:    maxDTE,
		Err:       msg,
	}
}

// roundTo rounds to the given number of decimal places. The per-contract
// 4-place and major-level 1-place roundings are part of the output contract.
func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

package tasty

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

// wireNumber tolerates both JSON numbers and string-encoded decimals, which
// the API mixes freely.
type wireNumber float64

func (n *wireNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parsing number %q: %w", s, err)
	}
	*n = wireNumber(f)
	return nil
}

type wireOption struct {
	Symbol         string     `json:"symbol"`
	StreamerSymbol string     `json:"streamer-symbol"`
	ExpirationDate string     `json:"expiration-date"`
	ExpiresAt      string     `json:"expires-at"`
	StrikePrice    wireNumber `json:"strike-price"`
	OptionType     string     `json:"option-type"`
}

// hasExpirationPair reports whether the entry carries both expiration wire
// fields. Entries without the pair fail the provider SDK's validation and
// have to be filtered on the fallback path.
func (w wireOption) hasExpirationPair() bool {
	return w.ExpirationDate != "" && w.ExpiresAt != ""
}

func (w wireOption) toContract() (gex.Contract, bool) {
	exp, err := time.Parse("2006-01-02", w.ExpirationDate)
	if err != nil {
		return gex.Contract{}, false
	}

	var kind gex.OptionKind
	switch w.OptionType {
	case "C", "Call":
		kind = gex.Call
	case "P", "Put":
		kind = gex.Put
	default:
		return gex.Contract{}, false
	}

	streamer := w.StreamerSymbol
	if streamer == "" {
		streamer = w.Symbol
	}

	return gex.Contract{
		Symbol:         w.Symbol,
		StreamerSymbol: streamer,
		Expiration:     exp,
		Strike:         float64(w.StrikePrice),
		Kind:           kind,
	}, true
}

// chainPayload accepts the two wire shapes the chain endpoint is known to
// produce: an object carrying an "options" list, or a plain mapping of
// expiration date to contract list. The ambiguity is resolved here and never
// propagated downstream.
type chainPayload struct {
	Options []wireOption
}

func (p *chainPayload) UnmarshalJSON(b []byte) error {
	var withList struct {
		Options []wireOption `json:"options"`
	}
	if err := json.Unmarshal(b, &withList); err == nil && withList.Options != nil {
		p.Options = withList.Options
		return nil
	}

	var byExpiration map[string]json.RawMessage
	if err := json.Unmarshal(b, &byExpiration); err != nil {
		return fmt.Errorf("unrecognized chain payload: %w", err)
	}

	keys := make([]string, 0, len(byExpiration))
	for k := range byExpiration {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		var opts []wireOption
		if err := json.Unmarshal(byExpiration[k], &opts); err != nil {
			// A single contract rather than a list.
			var one wireOption
			if err := json.Unmarshal(byExpiration[k], &one); err != nil {
				continue
			}
			opts = []wireOption{one}
		}
		p.Options = append(p.Options, opts...)
	}
	return nil
}

// OptionChain fetches and flattens the chain for an underlying. When the
// nested endpoint returns entries missing the expiration timestamp pair, the
// raw endpoint is fetched instead and the incomplete entries are dropped with
// a logged count. The skipped count is a diagnostic, not an error.
func (c *Client) OptionChain(ctx context.Context, symbol string) ([]gex.Contract, error) {
	contracts, err := c.nestedChain(ctx, symbol)
	if err == nil {
		return contracts, nil
	}
	if err != errIncompleteChain {
		return nil, fmt.Errorf("failed to fetch option chain: %w", err)
	}

	c.logger.Info("option chain had incomplete rows, retrying after filtering invalid entries",
		zap.String("symbol", symbol))

	contracts, skipped, fallbackErr := c.rawChain(ctx, symbol)
	if fallbackErr != nil {
		return nil, fmt.Errorf("failed to fetch option chain: %v (fallback also failed: %v)", err, fallbackErr)
	}
	if len(contracts) == 0 {
		return nil, fmt.Errorf("no valid options after filtering incomplete data")
	}
	if skipped > 0 {
		c.logger.Info("filtered out options missing expiration fields",
			zap.String("symbol", symbol),
			zap.Int("skipped", skipped))
	}
	return contracts, nil
}

func (c *Client) nestedChain(ctx context.Context, symbol string) ([]gex.Contract, error) {
	var resp struct {
		Data chainPayload `json:"data"`
	}
	if err := c.get(ctx, "/option-chains/"+url.PathEscape(symbol)+"/compact", &resp); err != nil {
		return nil, err
	}

	contracts := make([]gex.Contract, 0, len(resp.Data.Options))
	for _, w := range resp.Data.Options {
		if !w.hasExpirationPair() {
			return nil, errIncompleteChain
		}
		if contract, ok := w.toContract(); ok {
			contracts = append(contracts, contract)
		}
	}
	return contracts, nil
}

// rawChain reconstructs the chain from the lower-level items endpoint,
// keeping only entries that carry both expiration fields.
func (c *Client) rawChain(ctx context.Context, symbol string) ([]gex.Contract, int, error) {
	var resp struct {
		Data struct {
			Items []wireOption `json:"items"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/option-chains/"+url.PathEscape(symbol), &resp); err != nil {
		return nil, 0, err
	}

	var contracts []gex.Contract
	skipped := 0
	for _, w := range resp.Data.Items {
		if !w.hasExpirationPair() {
			skipped++
			continue
		}
		contract, ok := w.toContract()
		if !ok {
			skipped++
			continue
		}
		contracts = append(contracts, contract)
	}
	return contracts, skipped, nil
}

// AvailableExpirations lists the distinct expiration dates in the chain,
// sorted ascending.
func (c *Client) AvailableExpirations(ctx context.Context, symbol string) ([]time.Time, error) {
	contracts, err := c.OptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, contract := range contracts {
		if !seen[contract.Expiration] {
			seen[contract.Expiration] = true
			out = append(out, contract.Expiration)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

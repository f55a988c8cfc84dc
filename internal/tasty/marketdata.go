package tasty

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

// snapshotChunkSize is the provider-imposed cap on symbols per market-data
// request.
const snapshotChunkSize = 100

type wireMarketData struct {
	Symbol       string     `json:"symbol"`
	OpenInterest wireNumber `json:"open-interest"`
	Volume       wireNumber `json:"volume"`
}

// MarketDataSnapshot fetches OI and volume for the given option symbols in
// chunks. A failed chunk reduces coverage and is logged, never propagated;
// the snapshot is a baseline the streamed summaries get reconciled against.
func (c *Client) MarketDataSnapshot(ctx context.Context, symbols []string) (map[string]gex.Snapshot, error) {
	out := make(map[string]gex.Snapshot, len(symbols))

	for start := 0; start < len(symbols); start += snapshotChunkSize {
		end := start + snapshotChunkSize
		if end > len(symbols) {
			end = len(symbols)
		}
		chunk := symbols[start:end]

		var resp struct {
			Data struct {
				Items []wireMarketData `json:"items"`
			} `json:"data"`
		}
		path := "/market-data/by-type?option=" + url.QueryEscape(strings.Join(chunk, ","))
		if err := c.get(ctx, path, &resp); err != nil {
			c.logger.Warn("market data chunk failed",
				zap.Int("offset", start),
				zap.Int("size", len(chunk)),
				zap.Error(err))
			continue
		}

		for _, md := range resp.Data.Items {
			if md.Symbol == "" {
				continue
			}
			out[md.Symbol] = gex.Snapshot{
				OpenInterest: int64(md.OpenInterest),
				Volume:       int64(md.Volume),
			}
		}
	}
	return out, nil
}

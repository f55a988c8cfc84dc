package tasty

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func marketDataBody(symbols []string) []byte {
	items := make([]map[string]any, len(symbols))
	for i, s := range symbols {
		items[i] = map[string]any{
			"symbol":        s,
			"open-interest": fmt.Sprintf("%d", 10*(i+1)),
			"volume":        5,
		}
	}
	body, _ := json.Marshal(map[string]any{"data": map[string]any{"items": items}})
	return body
}

func TestMarketDataSnapshot_SingleChunk(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /market-data/by-type", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("option")
		_, _ = w.Write(marketDataBody(strings.Split(gotQuery, ",")))
	})
	c, _ := newTestClient(t, mux)

	snap, err := c.MarketDataSnapshot(context.Background(), []string{"A", "B"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "A,B" {
		t.Errorf("expected comma-joined symbols, got %q", gotQuery)
	}
	if snap["A"].OpenInterest != 10 || snap["B"].OpenInterest != 20 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if snap["A"].Volume != 5 {
		t.Errorf("expected volume 5, got %d", snap["A"].Volume)
	}
}

func TestMarketDataSnapshot_ChunksAtOneHundred(t *testing.T) {
	var chunkSizes []int
	mux := http.NewServeMux()
	mux.HandleFunc("GET /market-data/by-type", func(w http.ResponseWriter, r *http.Request) {
		symbols := strings.Split(r.URL.Query().Get("option"), ",")
		chunkSizes = append(chunkSizes, len(symbols))
		_, _ = w.Write(marketDataBody(symbols))
	})
	c, _ := newTestClient(t, mux)

	symbols := make([]string, 250)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("OPT%03d", i)
	}

	snap, err := c.MarketDataSnapshot(context.Background(), symbols)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunkSizes) != 3 || chunkSizes[0] != 100 || chunkSizes[1] != 100 || chunkSizes[2] != 50 {
		t.Errorf("expected chunks of 100,100,50, got %v", chunkSizes)
	}
	if len(snap) != 250 {
		t.Errorf("expected 250 snapshot entries, got %d", len(snap))
	}
}

func TestMarketDataSnapshot_FailedChunkIsSkipped(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /market-data/by-type", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream timeout", http.StatusBadGateway)
			return
		}
		_, _ = w.Write(marketDataBody(strings.Split(r.URL.Query().Get("option"), ",")))
	})
	c, _ := newTestClient(t, mux)

	symbols := make([]string, 150)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("OPT%03d", i)
	}

	snap, err := c.MarketDataSnapshot(context.Background(), symbols)
	if err != nil {
		t.Fatalf("chunk failure must not propagate: %v", err)
	}
	// Only the second chunk's 50 symbols made it in.
	if len(snap) != 50 {
		t.Errorf("expected 50 entries from the surviving chunk, got %d", len(snap))
	}
}

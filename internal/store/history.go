// Package store appends computed GEX results to per-symbol daily history
// files (JSONL, optionally zstd-compressed). The pipeline itself never
// persists anything; the daemon and CLI feed this store.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

// Record is one stored profile observation.
type Record struct {
	Timestamp int64       `json:"timestamp"`
	Result    *gex.Result `json:"result"`
}

// History appends and reads profile records under dir/<SYMBOL>/<date>.jsonl
// (with a .zst suffix when compression is on). Appended zstd frames are
// independently encoded; concatenated frames decode as one stream.
type History struct {
	dir      string
	compress bool
	logger   *zap.Logger

	mu      sync.Mutex
	encoder *zstd.Encoder
}

func New(dir string, compress bool, logger *zap.Logger) (*History, error) {
	h := &History{dir: dir, compress: compress, logger: logger}
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		h.encoder = enc
	}
	return h, nil
}

func (h *History) path(symbol, date string) string {
	name := date + ".jsonl"
	if h.compress {
		name += ".zst"
	}
	return filepath.Join(h.dir, strings.ToUpper(symbol), name)
}

// Append stores one result under its symbol and observation date.
func (h *History) Append(res *gex.Result, ts time.Time) error {
	line, err := json.Marshal(Record{Timestamp: ts.Unix(), Result: res})
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	line = append(line, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.compress {
		line = h.encoder.EncodeAll(line, nil)
	}

	path := h.path(res.Symbol, ts.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}

// Read returns all records stored for a symbol on a date (YYYY-MM-DD).
// A missing file is an empty history, not an error.
func (h *History) Read(symbol, date string) ([]Record, error) {
	h.mu.Lock()
	path := h.path(symbol, date)
	h.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history file: %w", err)
	}

	if h.compress {
		dec, err := zstd.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		return decodeRecords(bufio.NewScanner(dec))
	}
	return decodeRecords(bufio.NewScanner(bytes.NewReader(raw)))
}

func decodeRecords(sc *bufio.Scanner) ([]Record, error) {
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var out []Record
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning history: %w", err)
	}
	return out, nil
}

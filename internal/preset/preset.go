// Package preset persists named pipeline parameter presets as JSON on disk.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Preset is one saved set of dashboard parameters.
type Preset struct {
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	MaxDTE         int     `json:"max_dte"`
	StrikeCount    int     `json:"strike_count"`
	MajorThreshold float64 `json:"major_threshold"`
	CollectSeconds int     `json:"collect_seconds"`
	AutoUpdate     bool    `json:"auto_update"`
}

// presetFile tolerates the legacy on-disk shape that stored a strike range
// percentage instead of a strike count.
type presetFile struct {
	Preset
	StrikeRangePct *float64 `json:"strike_range_pct,omitempty"`
}

// Store reads and writes presets under a single JSON file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "presets.json")}
}

// List returns all saved presets sorted by name. A missing or corrupted file
// yields an empty list, not an error: presets are a convenience, losing them
// must never block a run.
func (s *Store) List() []Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []Preset {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var items []presetFile
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	out := make([]Preset, 0, len(items))
	for _, item := range items {
		p := item.Preset
		// Legacy migration: drop the percentage, fall back to 20 strikes.
		if item.StrikeRangePct != nil && p.StrikeCount == 0 {
			p.StrikeCount = 20
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Save inserts or replaces the preset with the same name.
func (s *Store) Save(p Preset) error {
	if p.Name == "" {
		return fmt.Errorf("preset name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	presets := s.load()
	replaced := false
	for i := range presets {
		if presets[i].Name == p.Name {
			presets[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, p)
	}
	return s.write(presets)
}

// Delete removes a preset by name; reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets := s.load()
	kept := presets[:0]
	found := false
	for _, p := range presets {
		if p.Name == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return false, nil
	}
	return true, s.write(kept)
}

// write replaces the file atomically via a temp file rename.
func (s *Store) write(presets []Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("creating preset directory: %w", err)
	}

	raw, err := json.MarshalIndent(presets, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding presets: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("writing presets: %w", err)
	}
	return os.Rename(tmp, s.path)
}

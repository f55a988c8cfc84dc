package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/config"
	"github.com/dgnsrekt/gexscope/internal/gex"
	"github.com/dgnsrekt/gexscope/internal/preset"
	"github.com/dgnsrekt/gexscope/internal/scan"
)

// ExpirationLister is the optional provider capability backing the
// expirations endpoint. *tasty.Client implements it.
type ExpirationLister interface {
	AvailableExpirations(ctx context.Context, symbol string) ([]time.Time, error)
}

type Server struct {
	engine   *gex.Engine
	scanner  *scan.Scanner
	connect  gex.ConnectFunc
	presets  *preset.Store
	defaults config.ProfileConfig
	logger   *zap.Logger

	// Cached provider session, reused across requests to avoid
	// re-authenticating on every call. Dropped after an unauthorized run.
	mu      sync.Mutex
	session gex.Provider
}

func NewServer(engine *gex.Engine, scanner *scan.Scanner, connect gex.ConnectFunc, presets *preset.Store, defaults config.ProfileConfig, logger *zap.Logger) *Server {
	return &Server{
		engine:   engine,
		scanner:  scanner,
		connect:  connect,
		presets:  presets,
		defaults: defaults,
		logger:   logger,
	}
}

type calculateRequest struct {
	Symbol         string   `json:"symbol"`
	MaxDTE         *int     `json:"max_dte"`
	Expirations    []string `json:"expirations"`
	StrikeCount    *int     `json:"strike_count"`
	MajorThreshold *float64 `json:"major_threshold"`
	DataWait       *float64 `json:"data_wait"`
}

type scanRequest struct {
	Symbols        []string `json:"symbols"`
	MaxDTE         *int     `json:"max_dte"`
	StrikeCount    *int     `json:"strike_count"`
	MajorThreshold *float64 `json:"major_threshold"`
	DataWait       *float64 `json:"data_wait"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "gexscope-api"})
}

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Symbol == "" {
		req.Symbol = s.defaults.Symbol
	}

	params, err := s.params(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	result := s.computeWithRetry(r.Context(), params)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if len(req.Symbols) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "symbols is required"})
		return
	}

	params, err := s.params(calculateRequest{
		MaxDTE:         req.MaxDTE,
		StrikeCount:    req.StrikeCount,
		MajorThreshold: req.MajorThreshold,
		DataWait:       req.DataWait,
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	// One session for the whole scan. A stale token fails every symbol the
	// same way, so one unauthorized result is enough to drop the session and
	// repeat the scan once with a fresh one.
	params.Provider = s.cachedSession(r.Context())
	results, _ := s.scanner.Run(r.Context(), req.Symbols, params)

	if params.Provider != nil && anyUnauthorized(results) {
		s.logger.Info("session rejected during scan, retrying with a fresh session",
			zap.Int("symbols", len(req.Symbols)))
		s.dropSession()
		params.Provider = s.cachedSession(r.Context())
		results, _ = s.scanner.Run(r.Context(), req.Symbols, params)
	}

	writeJSON(w, http.StatusOK, results)
}

func anyUnauthorized(results []*gex.Result) bool {
	for _, res := range results {
		if isUnauthorized(res.Err) {
			return true
		}
	}
	return false
}

func (s *Server) handleExpirations(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	provider := s.cachedSession(r.Context())
	lister, ok := provider.(ExpirationLister)
	if !ok {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "provider session unavailable"})
		return
	}

	expirations, err := lister.AvailableExpirations(r.Context(), symbol)
	if err != nil {
		if isUnauthorized(err.Error()) {
			s.dropSession()
		}
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	out := make([]string, len(expirations))
	for i, d := range expirations {
		out[i] = d.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, map[string][]string{"expirations": out})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.presets.List())
}

func (s *Server) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	var p preset.Preset
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := s.presets.Save(p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	found, err := s.presets.Delete(name)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "preset not found: " + name})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// params merges request overrides onto the configured defaults.
func (s *Server) params(req calculateRequest) (gex.Params, error) {
	sel := gex.Selection{
		MaxDTE:      s.defaults.MaxDTE,
		StrikeCount: s.defaults.StrikeCount,
	}
	if req.MaxDTE != nil {
		sel.MaxDTE = *req.MaxDTE
	}
	if req.StrikeCount != nil {
		sel.StrikeCount = *req.StrikeCount
	}
	for _, raw := range req.Expirations {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return gex.Params{}, err
		}
		sel.Expirations = append(sel.Expirations, d)
	}

	p := gex.Params{
		Symbol:              req.Symbol,
		Selection:           sel,
		MajorLevelThreshold: s.defaults.MajorThreshold,
		CollectWindow:       s.defaults.CollectWindow(),
	}
	if req.MajorThreshold != nil {
		p.MajorLevelThreshold = *req.MajorThreshold
	}
	if req.DataWait != nil {
		p.CollectWindow = time.Duration(*req.DataWait * float64(time.Second))
	}
	return p, nil
}

// computeWithRetry runs the pipeline with the cached session. On an
// unauthorized failure the session is discarded and the run repeated once
// with a fresh one; this retry policy lives here, never in the pipeline.
func (s *Server) computeWithRetry(ctx context.Context, params gex.Params) *gex.Result {
	params.Provider = s.cachedSession(ctx)
	result := s.engine.ComputeProfile(ctx, params)

	if params.Provider != nil && isUnauthorized(result.Err) {
		s.logger.Info("session rejected, retrying with a fresh session",
			zap.String("symbol", params.Symbol))
		s.dropSession()
		params.Provider = s.cachedSession(ctx)
		result = s.engine.ComputeProfile(ctx, params)
	}
	return result
}

// cachedSession returns the shared provider session, connecting lazily. A
// failed connect returns nil; the engine then connects itself and reports
// the proper error on the result.
func (s *Server) cachedSession(ctx context.Context) gex.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		return s.session
	}
	provider, err := s.connect(ctx)
	if err != nil {
		s.logger.Debug("session connect failed", zap.Error(err))
		return nil
	}
	s.session = provider
	return provider
}

func (s *Server) dropSession() {
	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()
}

func isUnauthorized(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "unauthorized")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

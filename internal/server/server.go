package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"slipsentinel/internal/config"
	"slipsentinel/internal/metrics"
	"slipsentinel/internal/model"
	"slipsentinel/internal/slippage"
)

// Engine is the estimation surface the server exposes.
type Engine interface {
	Estimate(ctx context.Context, chainID uint64, tokenIn, tokenOut string, amountIn *big.Int, hint string) (model.Recommendation, error)
	EstimateMultiHop(ctx context.Context, chainID uint64, path []model.TokenPair, amountIn *big.Int) (model.MultiHopResult, error)
}

// RouteLister exposes diagnostic multi-route discovery.
type RouteLister interface {
	FindAllRoutes(ctx context.Context, chainID uint64, tokenIn, tokenOut string) ([]model.Route, error)
}

// Server is the HTTP boundary around the estimation engine.
type Server struct {
	engine   Engine
	routes   RouteLister
	registry *config.Registry
	logger   *zap.Logger
	mux      *http.ServeMux
}

// New builds the server and registers its routes.
func New(engine Engine, routes RouteLister, registry *config.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		routes:   routes,
		registry: registry,
		logger:   logger,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/chains", s.handleChains)
	s.mux.HandleFunc("/slippage/estimate", s.handleEstimate)
	s.mux.HandleFunc("/slippage/multihop", s.handleMultiHop)
	s.mux.HandleFunc("/routes", s.handleRoutes)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type estimateRequest struct {
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	Chain     uint64 `json:"chain"`
	RouteHint string `json:"route_hint,omitempty"`
}

type estimateResponse struct {
	model.Recommendation
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.EstimatesTotal.WithLabelValues("invalid_request").Inc()
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := slippage.ParseAmount(req.AmountIn)
	if err != nil {
		metrics.EstimatesTotal.WithLabelValues("invalid_amount").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now()
	rec, err := s.engine.Estimate(r.Context(), req.Chain, req.TokenIn, req.TokenOut, amount, req.RouteHint)
	metrics.EstimateLatency.Observe(time.Since(started).Seconds())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	metrics.EstimatesTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, estimateResponse{
		Recommendation: rec,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

type multiHopRequest struct {
	Chain    uint64            `json:"chain"`
	Path     []model.TokenPair `json:"path"`
	AmountIn string            `json:"amount_in"`
}

func (s *Server) handleMultiHop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req multiHopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := slippage.ParseAmount(req.AmountIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.engine.EstimateMultiHop(r.Context(), req.Chain, req.Path, amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	query := r.URL.Query()
	chainID, err := strconv.ParseUint(query.Get("chain"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chain")
		return
	}

	routes, err := s.routes.FindAllRoutes(r.Context(), chainID, query.Get("token_in"), query.Get("token_out"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"routes": routes,
		"count":  len(routes),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type chainEntry struct {
	ChainID      uint64   `json:"chain_id"`
	Name         string   `json:"name"`
	NativeSymbol string   `json:"native_symbol"`
	Exchanges    []string `json:"exchanges"`
}

func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	entries := make([]chainEntry, 0)
	for _, chainID := range s.registry.ChainIDs() {
		meta, _ := s.registry.ChainMeta(chainID)
		exchanges := s.registry.Exchanges(chainID)
		names := make([]string, 0, len(exchanges))
		for _, ex := range exchanges {
			names = append(names, ex.Name)
		}
		entries = append(entries, chainEntry{
			ChainID:      chainID,
			Name:         meta.Name,
			NativeSymbol: meta.NativeSymbol,
			Exchanges:    names,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chains": entries})
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidChain):
		metrics.EstimatesTotal.WithLabelValues("invalid_chain").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrInvalidAmount):
		metrics.EstimatesTotal.WithLabelValues("invalid_amount").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrEmptyPath):
		metrics.EstimatesTotal.WithLabelValues("empty_path").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNoRoute):
		metrics.EstimatesTotal.WithLabelValues("no_route").Inc()
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrReservesUnavailable):
		metrics.EstimatesTotal.WithLabelValues("reserves_unavailable").Inc()
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		metrics.EstimatesTotal.WithLabelValues("error").Inc()
		s.logger.Error("estimate failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

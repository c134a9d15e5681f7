// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/anshukrra07/CampusCare-sub001/internal/alert"
	"github.com/anshukrra07/CampusCare-sub001/internal/metrics"
	"github.com/anshukrra07/CampusCare-sub001/internal/observability"
	"github.com/anshukrra07/CampusCare-sub001/internal/pipeline"
	"github.com/anshukrra07/CampusCare-sub001/internal/types"
)

const (
	defaultAlertLimit = 50
	maxAlertLimit     = 500
	maxBodyBytes      = 64 << 10
)

// Processor runs the safety pipeline for one message.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (*types.Result, error)
}

// Server is the HTTP surface of the safety pipeline.
type Server struct {
	pipeline      Processor
	alerts        alert.Store
	metrics       *metrics.Metrics
	providerReady bool
	mux           *http.ServeMux
}

// Options configures optional endpoints. A nil Alerts store disables
// /v1/alerts and a nil Metrics disables /metrics.
type Options struct {
	Alerts        alert.Store
	Metrics       *metrics.Metrics
	ProviderReady bool
}

// New creates a Server routing to p.
func New(p Processor, opts Options) *Server {
	s := &Server{
		pipeline:      p,
		alerts:        opts.Alerts,
		metrics:       opts.Metrics,
		providerReady: opts.ProviderReady,
		mux:           http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /v1/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /v1/alerts", s.handleAlerts)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": s.providerReady,
	})
}

// analyzeRequest is the JSON body for POST /v1/analyze.
type analyzeRequest struct {
	ID      string `json:"id"`
	UserID  string `json:"user_id"`
	Text    string `json:"text"`
	Channel string `json:"channel"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ctx := r.Context()
	if id := r.Header.Get("X-Request-ID"); id != "" {
		ctx = observability.WithRequestID(ctx, id)
	}

	res, err := s.pipeline.Process(ctx, types.Message{
		ID:      types.MessageID(req.ID),
		UserID:  req.UserID,
		Text:    req.Text,
		Channel: types.Channel(req.Channel),
	})
	if errors.Is(err, pipeline.ErrInvalidMessage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Error("analyze failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("X-Request-ID", string(res.RequestID))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alerts == nil {
		writeError(w, http.StatusServiceUnavailable, "alert store not configured")
		return
	}

	limit := defaultAlertLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAlertLimit)
	}

	alerts, err := s.alerts.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("list alerts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if alerts == nil {
		alerts = []*types.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/models"
)

// historyDefaultLimit and historyMaxLimit bound the history page size.
const (
	historyDefaultLimit = 10
	historyMaxLimit     = 100
)

type analyzeRequest struct {
	Address string `json:"address"`
	Network string `json:"network"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	start := time.Now()
	result, cached, err := s.analyzer.Analyze(r.Context(), req.Address, req.Network)
	if err != nil {
		s.logger.Error("analysis failed",
			zap.String("address", req.Address),
			zap.String("network", req.Network),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    result,
		Cached:  &cached,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > historyMaxLimit {
			s.writeError(w, models.NewValidationError("limit must be an integer between 1 and 100"))
			return
		}
		limit = n
	}

	summaries, err := s.analyzer.Recent(limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	total, err := s.analyzer.HistoryCount()
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Data:    summaries,
		Total:   &total,
	})
}

func (s *Server) handleAnalysisByID(w http.ResponseWriter, r *http.Request) {
	result, err := s.analyzer.ByID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, result)
}

func (s *Server) handleAnalysisByAddress(w http.ResponseWriter, r *http.Request) {
	network := r.URL.Query().Get("network")
	if network == "" {
		s.writeError(w, models.NewValidationError("Network query parameter is required"))
		return
	}

	result, err := s.analyzer.ByAddress(r.PathValue("address"), network)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analyzer.StatsSnapshot()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSuccess(w, http.StatusOK, stats)
}

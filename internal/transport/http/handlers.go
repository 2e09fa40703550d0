package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	apperrors "divrisk/internal/errors"
	"divrisk/internal/operations"
	"divrisk/internal/runner"
	"divrisk/internal/universe"
)

// StatusResponse is the /api/status payload.
type StatusResponse struct {
	Service   string `json:"service"`
	RunActive bool   `json:"run_active"`
	LastRunID string `json:"last_run_id,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Service:   "divrisk",
		RunActive: s.runInUse,
		LastRunID: s.lastRunID,
	}
	if s.lastRunErr != nil {
		resp.LastError = s.lastRunErr.Error()
	}
	s.mu.Unlock()
	render.JSON(w, r, resp)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.paths.ProgressJSON)
	if err != nil {
		if os.IsNotExist(err) {
			s.renderError(w, r, apperrors.NotFoundError("progress"))
			return
		}
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}

	var snap runner.ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, snap)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	manifest, err := operations.LoadManifest(s.paths.ManifestJSON)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.renderError(w, r, apperrors.ErrRunNotFound)
			return
		}
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, manifest)
}

// StartRunRequest is the optional /api/operations POST body.
type StartRunRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=append overwrite skip"`
}

// StartRunResponse is the /api/operations POST payload.
type StartRunResponse struct {
	RunID   string `json:"run_id"`
	Started bool   `json:"started"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if s.runFunc == nil {
		s.renderError(w, r, apperrors.New(http.StatusServiceUnavailable, "RUNS_DISABLED", "pipeline runs are not enabled on this server"))
		return
	}

	var req StartRunRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.renderError(w, r, apperrors.InvalidRequestWithError(err))
			return
		}
		if err := s.validate.Struct(&req); err != nil {
			s.renderError(w, r, apperrors.ErrValidation("mode", "must be append, overwrite or skip"))
			return
		}
	}

	s.mu.Lock()
	if s.runInUse {
		s.mu.Unlock()
		s.renderError(w, r, apperrors.ErrRunInProgress)
		return
	}
	runID := uuid.New().String()
	s.runInUse = true
	s.lastRunID = runID
	s.lastRunErr = nil
	s.mu.Unlock()

	go func() {
		err := s.runFunc(context.Background(), req.Mode)
		s.mu.Lock()
		s.runInUse = false
		s.lastRunErr = err
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("pipeline run failed", "run_id", runID, "error", err.Error())
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, StartRunResponse{RunID: runID, Started: true})
}

func (s *Server) handleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := s.store.ListTickers()
	if err != nil {
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}
	render.JSON(w, r, map[string]interface{}{"tickers": tickers})
}

func (s *Server) handleTickerFeatures(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(chi.URLParam(r, "ticker"))
	if err := universe.Validate(ticker); err != nil {
		s.renderError(w, r, apperrors.ErrValidation("ticker", err.Error()))
		return
	}

	rows, err := s.store.ReadTickerRows(ticker)
	if err != nil {
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}
	if len(rows) == 0 {
		s.renderError(w, r, apperrors.NotFoundError("ticker "+ticker))
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"ticker": ticker,
		"rows":   rows,
	})
}

func (s *Server) handleCSVReport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		s.renderError(w, r, apperrors.ErrInternalServer)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="features.csv"`)
	if err := s.exporter.WriteCSV(w); err != nil {
		s.logger.Error("csv export failed", "error", err.Error())
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, apiErr *apperrors.APIError) {
	if err := render.Render(w, r, apperrors.NewErrorResponse(apiErr)); err != nil {
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

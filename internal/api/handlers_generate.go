package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/stockreport/internal/generate"
)

const maxBatchCodes = 50

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		jsonError(w, "report generation is disabled", http.StatusServiceUnavailable)
		return
	}
	code := strings.TrimSpace(r.URL.Query().Get("stock_code"))
	if code == "" {
		jsonError(w, msgEmptyCode, http.StatusBadRequest)
		return
	}

	job, err := s.jobs.Submit(code)
	if errors.Is(err, generate.ErrQueueFull) {
		jsonError(w, err.Error(), http.StatusTooManyRequests)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":  true,
		"job":      job.Snapshot(),
		"poll_url": pollURL(job.ID),
	})
}

type batchRequest struct {
	StockCodes []string `json:"stock_codes"`
}

func (s *Server) handleBatchGenerate(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		jsonError(w, "report generation is disabled", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.StockCodes) == 0 {
		jsonError(w, "stock_codes is required", http.StatusBadRequest)
		return
	}
	if len(req.StockCodes) > maxBatchCodes {
		jsonError(w, fmt.Sprintf("at most %d stock codes per batch", maxBatchCodes), http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(req.StockCodes))
	for _, code := range req.StockCodes {
		code = strings.TrimSpace(code)
		if code == "" {
			results = append(results, map[string]any{"stock_code": code, "error": msgEmptyCode})
			continue
		}
		job, err := s.jobs.Submit(code)
		if err != nil {
			results = append(results, map[string]any{"stock_code": code, "error": err.Error()})
			continue
		}
		results = append(results, map[string]any{
			"stock_code": job.StockCode,
			"job_id":     job.ID,
			"poll_url":   pollURL(job.ID),
		})
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"success": true, "jobs": results})
}

func (s *Server) handleGenerateStatus(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		jsonError(w, "report generation is disabled", http.StatusServiceUnavailable)
		return
	}
	job := s.jobs.Job(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func pollURL(id string) string {
	return "/api/ai_report/generate/" + id
}

package api

import (
	"net/http"
)

func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "llm stats unavailable", http.StatusServiceUnavailable)
		return
	}

	body := map[string]any{
		"model": s.cfg.AnthropicModel,
		"stats": s.stats.Snapshot(),
	}
	if s.jobs != nil {
		body["queue_depth"] = s.jobs.Depth()
	}
	writeJSON(w, http.StatusOK, body)
}

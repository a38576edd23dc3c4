package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleEmbeddingStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		jsonError(w, "embedding stats unavailable", http.StatusServiceUnavailable)
		return
	}

	provider := ""
	if s.provider != nil {
		provider = s.provider.Name()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"provider": provider,
		"stats":    s.stats.Snapshot(),
	})
}

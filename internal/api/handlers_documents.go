package api

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgallion1/docdigest/internal/parser"
	"github.com/dgallion1/docdigest/internal/pipeline"
)

type documentInfo struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Supported bool   `json:"supported"`
}

// handleListDocuments lists what a run of the configured input folder
// would pick up.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	sources, err := pipeline.Discover(s.cfg.InputFolder, s.cfg.InputPatterns)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	docs := make([]documentInfo, 0, len(sources))
	for _, src := range sources {
		info := documentInfo{Name: src.Name(), Supported: parser.IsSupportedExtension(src.Name())}
		if st, err := os.Stat(filepath.Join(s.cfg.InputFolder, src.Name())); err == nil {
			info.SizeBytes = st.Size()
		}
		docs = append(docs, info)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"input_folder": s.cfg.InputFolder,
		"documents":    docs,
		"count":        len(docs),
	})
}

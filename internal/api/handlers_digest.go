package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/docdigest/internal/digest"
	"github.com/dgallion1/docdigest/internal/parser"
	"github.com/dgallion1/docdigest/internal/pipeline"
)

// formOverhead is allowed on top of the upload limit for multipart framing
// and text fields.
const formOverhead = 1024 * 1024

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := s.pipeline.DefaultRequest()
	if v := strings.TrimSpace(r.FormValue("persona")); v != "" {
		req.Persona = v
	}
	if v := strings.TrimSpace(r.FormValue("job_to_be_done")); v != "" {
		req.JobToBeDone = v
	}
	var err error
	if req.TopKSections, err = positiveField(r, "top_k_sections", req.TopKSections); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TopKParagraphs, err = positiveField(r, "top_k_paragraphs_per_section", req.TopKParagraphs); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	sources := make([]pipeline.Source, 0, len(files))
	var total int64
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		if !parser.IsSupportedExtension(filename) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
			return
		}

		f, err := fh.Open()
		if err != nil {
			jsonError(w, "failed to open file "+filename, http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, limit+1))
		f.Close()
		if err != nil {
			jsonError(w, "failed to read file "+filename, http.StatusInternalServerError)
			return
		}
		total += int64(len(data))
		if total > limit {
			jsonError(w, fmt.Sprintf("upload exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
			return
		}
		sources = append(sources, pipeline.BytesSource{Filename: filename, Data: data})
	}

	res, err := s.pipeline.Process(r.Context(), sources, req)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Run-ID", res.RunID)
	if err := digest.Write(w, res.Digest); err != nil {
		s.log.Error("write digest response", "run_id", res.RunID, "error", err)
	}
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var embErr *pipeline.EmbeddingError
	switch {
	case errors.Is(err, pipeline.ErrNoInputDocuments):
		jsonError(w, "no document could be processed", http.StatusUnprocessableEntity)
	case errors.As(err, &embErr):
		s.log.Error("embedding failed", "error", err)
		jsonError(w, "embedding failed: "+embErr.Err.Error(), http.StatusBadGateway)
	default:
		s.log.Error("digest failed", "error", err)
		jsonError(w, "digest failed", http.StatusInternalServerError)
	}
}

// positiveField parses an optional positive integer form value.
func positiveField(r *http.Request, name string, fallback int) (int, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"fetcharr/internal/domain/consts"
	"fetcharr/internal/downloads"
	"fetcharr/internal/models"
	"fetcharr/internal/utils/logging"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type urlRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// handleInfo returns metadata for a URL without downloading it.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	meta, err := s.dl.Metadata(r.Context(), req.URL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// handleDownload starts a download job.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.dl.Submit(r.Context(), req.URL, req.Format)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleStatus reports a tracked job's progress.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.dl.Status(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleCancel stops a tracked job.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.dl.Cancel(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Download cancelled"})
}

// handleList lists the downloaded files.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.dl.ListArtifacts()
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Artifact{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Artifact{"videos": list})
}

// handleStream serves a downloaded file, honoring Range requests.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	f, info, err := s.dl.OpenArtifact(filenameParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// handleDelete removes a downloaded file.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.dl.DeleteArtifact(filenameParam(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Video deleted"})
}

// handleTest reports the download tool's version and the metadata for a probe URL.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	if req.URL == "" {
		req.URL = s.probeURL
	}

	if s.prober == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "yt-dlp not found"})
		return
	}
	version, err := s.prober.Version(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("yt-dlp test error: %v", err)})
		return
	}

	// A failed lookup still reports the version
	meta, err := s.dl.Metadata(r.Context(), req.URL)
	if err != nil {
		logging.W("Self-test metadata lookup for %q failed: %v", req.URL, err)
	}

	writeJSON(w, http.StatusOK, struct {
		Version  string           `json:"yt_dlp_version"`
		Metadata *models.Metadata `json:"video_info"`
		URL      string           `json:"test_url"`
	}{
		Version:  version,
		Metadata: meta,
		URL:      req.URL,
	})
}

// handleHistory lists the most recently finished jobs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string][]models.HistoryRecord{"downloads": {}})
		return
	}

	limit := uint64(consts.DefaultHistoryLimit)
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			writeError(w, fmt.Errorf("%w: limit %q must be a positive integer", downloads.ErrInvalidParameters, v))
			return
		}
		limit = n
	}

	records, err := s.history.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, map[string][]models.HistoryRecord{"downloads": records})
}

// decodeBody reads a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body required: %w", downloads.ErrInvalidParameters, err)
		}
		return fmt.Errorf("%w: malformed JSON body: %v", downloads.ErrInvalidParameters, err)
	}
	return nil
}

// filenameParam returns the unescaped filename path parameter.
func filenameParam(r *http.Request) string {
	raw := chi.URLParam(r, "filename")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"

	"market-dss/services"
)

const (
	msgNoUpload  = "no data uploaded"
	msgNoReviews = "no reviews in database"
	msgNoTables  = "missing data in database"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type uploadResult struct {
	File  string `json:"file"`
	Kind  string `json:"kind,omitempty"`
	Rows  int    `json:"rows"`
	Error string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.logger.Warn("[api] Failed login for %q", req.Username)
		writeMsg(w, http.StatusUnauthorized, err.Error())
		return
	}
	token, err := s.tokens.GenerateToken(user)
	if err != nil {
		s.logger.Error("[api] Signing token: %v", err)
		writeMsg(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// handleUpload stores every "file" part under the upload directory, then
// ingests them together. A file that fails is reported in its own entry.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid or oversized upload")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	var (
		results []uploadResult
		paths   []string
		slots   []int
	)
	for _, fh := range r.MultipartForm.File["file"] {
		if fh.Filename == "" {
			continue
		}
		name := secureFilename(fh.Filename)
		path, err := s.saveUpload(fh, name)
		if err != nil {
			s.logger.Error("[api] Saving %s: %v", name, err)
			results = append(results, uploadResult{File: name, Error: "could not save file"})
			continue
		}
		slots = append(slots, len(results))
		results = append(results, uploadResult{File: name})
		paths = append(paths, path)
	}
	if len(results) == 0 {
		writeMsg(w, http.StatusBadRequest, "no file selected")
		return
	}

	if claims, ok := ClaimsFrom(r.Context()); ok {
		s.logger.Info("[api] %s uploaded %d file(s)", claims.Sub, len(results))
	}
	for i, res := range s.analytics.IngestAll(r.Context(), paths) {
		out := &results[slots[i]]
		out.Kind = string(res.Kind)
		out.Rows = res.Rows
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": results})
}

func (s *Server) saveUpload(fh *multipart.FileHeader, name string) (string, error) {
	if err := os.MkdirAll(s.opts.UploadDir, 0755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(s.opts.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", err
	}
	return path, dst.Close()
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Opportunities(r.Context())
	if err != nil {
		s.noData(w, err, msgNoUpload)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    report.Summary,
		"table_html": report.TableHTML,
		"markers":    report.Markers,
	})
}

func (s *Server) handleReviewAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.ReviewOpportunities(r.Context())
	if err != nil {
		s.noData(w, err, msgNoTables)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDemand(w http.ResponseWriter, r *http.Request) {
	result, err := s.analytics.Demand(r.Context())
	if err != nil {
		s.noData(w, err, msgNoReviews)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGap(w http.ResponseWriter, r *http.Request) {
	rows, err := s.analytics.GapRows(r.Context())
	if err != nil {
		s.noData(w, err, msgNoTables)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gap": rows})
}

func (s *Server) handleGapTable(w http.ResponseWriter, r *http.Request) {
	report, err := s.analytics.Gap(r.Context())
	if err != nil {
		s.noData(w, err, msgNoTables)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.opts.HistoryPath); err != nil {
		writeMsg(w, http.StatusNotFound, "no history recorded yet")
		return
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(s.opts.HistoryPath)))
	http.ServeFile(w, r, s.opts.HistoryPath)
}

// noData answers 400 with msg when the data is missing, 500 otherwise.
func (s *Server) noData(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, services.ErrNoData) {
		writeMsg(w, http.StatusBadRequest, msg)
		return
	}
	s.logger.Error("[api] %v", err)
	writeMsg(w, http.StatusInternalServerError, "analysis failed")
}

// secureFilename reduces an uploaded name to a plain ASCII base name.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

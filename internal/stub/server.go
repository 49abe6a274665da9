// Package stub implements an in-memory diarization backend speaking the
// same HTTP contract as the real service. It exists for local development
// (cmd/stubd) and for exercising the client's poll loop in tests.
package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jvarn/diarize-client/internal/domain"
)

// Options controls how stub jobs progress.
type Options struct {
	// StepsRunning is how many status checks a job spends in running
	// before finishing. Zero means one check in queued, then done.
	StepsRunning int
	// FailError, when set, makes every job end failed with this message.
	FailError string
	// Segments served for finished jobs. A canned default is used when nil.
	Segments []domain.Segment
}

// DefaultSegments is the canned transcript served when none is configured.
var DefaultSegments = []domain.Segment{
	{Start: 0.0, Speaker: "SPEAKER_00", Text: "Good morning, everyone."},
	{Start: 2.4, Speaker: "SPEAKER_01", Text: "Morning. Shall we get started?"},
	{Start: 4.9, Speaker: "SPEAKER_00", Text: "Yes, first item is the rollout plan."},
}

type record struct {
	id       string
	filename string
	checks   int
	status   string
	progress string
	errMsg   string
}

// Server is a programmable in-memory backend.
type Server struct {
	mu   sync.Mutex
	opts Options
	jobs map[string]*record
}

// New creates a stub backend.
func New(opts Options) *Server {
	if opts.Segments == nil {
		opts.Segments = DefaultSegments
	}
	return &Server{
		opts: opts,
		jobs: make(map[string]*record),
	}
}

// Router builds the HTTP router for the stub backend.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/upload", s.handleUpload)
	r.Get("/api/jobs/{jobID}", s.handleStatus)
	r.Get("/api/jobs/{jobID}/result", s.handleResult)
	r.Get("/api/jobs/{jobID}/download", s.handleDownload)

	return r
}

// Forget drops a job so subsequent status checks return 404, as a
// restarted real backend with lost state would.
func (s *Server) Forget(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, jobID)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httpError(w, http.StatusBadRequest, "malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "missing form field 'file'")
		return
	}
	file.Close()

	rec := &record{
		id:       uuid.NewString(),
		filename: header.Filename,
		status:   "queued",
		progress: "Added to queue",
	}

	s.mu.Lock()
	s.jobs[rec.id] = rec
	s.mu.Unlock()

	log.Info().Str("jobId", rec.id).Str("filename", rec.filename).Msg("stub job created")

	writeJSON(w, http.StatusOK, map[string]string{
		"job_id":  rec.id,
		"status":  rec.status,
		"message": "File uploaded and processing started.",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	if ok {
		rec.checks++
		s.advance(rec)
	}
	s.mu.Unlock()

	if !ok {
		httpError(w, http.StatusNotFound, "Job not found")
		return
	}

	resp := map[string]string{
		"status":   rec.status,
		"progress": rec.progress,
	}
	if rec.errMsg != "" {
		resp["error"] = rec.errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

// advance walks a job one step along queued -> running -> done|failed.
// Callers must hold s.mu.
func (s *Server) advance(rec *record) {
	switch {
	case rec.checks <= 1:
		// stays queued for the first check
	case rec.checks <= 1+s.opts.StepsRunning:
		rec.status = "running"
		rec.progress = fmt.Sprintf("Transcribing chunk %d/%d", rec.checks-1, s.opts.StepsRunning)
	default:
		if s.opts.FailError != "" {
			rec.status = "failed"
			rec.errMsg = s.opts.FailError
			rec.progress = ""
		} else {
			rec.status = "done"
			rec.progress = "Complete"
		}
	}
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	var status string
	if ok {
		status = rec.status
	}
	s.mu.Unlock()

	if !ok {
		httpError(w, http.StatusNotFound, "Job not found")
		return
	}
	if status != "done" {
		httpError(w, http.StatusBadRequest, "Job is not completed yet")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id":        jobID,
		"transcript":    s.transcriptText(),
		"segments":      s.opts.Segments,
		"download_txt":  fmt.Sprintf("/api/jobs/%s/download?format=txt", jobID),
		"download_json": fmt.Sprintf("/api/jobs/%s/download?format=json", jobID),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	format := r.URL.Query().Get("format")
	if format != "txt" && format != "json" {
		httpError(w, http.StatusBadRequest, "Invalid format. Use 'txt' or 'json'")
		return
	}

	s.mu.Lock()
	rec, ok := s.jobs[jobID]
	var status string
	if ok {
		status = rec.status
	}
	s.mu.Unlock()

	if !ok {
		httpError(w, http.StatusNotFound, "Job not found")
		return
	}
	if status != "done" {
		httpError(w, http.StatusBadRequest, "Job is not completed yet")
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, s.opts.Segments)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.transcriptText()))
}

func (s *Server) transcriptText() string {
	var b strings.Builder
	for _, seg := range s.opts.Segments {
		fmt.Fprintf(&b, "[%.2fs] %s: %s\n", seg.Start, seg.Speaker, seg.Text)
	}
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

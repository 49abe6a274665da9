// Package api implements the HTTP contract with the diarization backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jvarn/diarize-client/internal/config"
	"github.com/jvarn/diarize-client/internal/domain"
	"github.com/jvarn/diarize-client/internal/observability/logging"
)

// Client talks to the diarization backend. Uploads use a separate, much
// longer timeout than status checks: a status check that outlives the
// poll interval is as good as failed, an upload is not.
type Client struct {
	baseURL string
	polls   *http.Client
	uploads *http.Client
	log     zerolog.Logger
}

// NewClient creates a backend client from configuration.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		polls: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		uploads: &http.Client{
			Timeout: cfg.UploadTimeout,
		},
		log: logging.WithComponent("api"),
	}
}

// UploadAck is the backend's response to a successful upload.
type UploadAck struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SubmissionError indicates the upload request reached the backend but was
// answered with a non-2xx status.
type SubmissionError struct {
	StatusCode int
	Body       string
}

func (e *SubmissionError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upload rejected with HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upload rejected with HTTP %d", e.StatusCode)
}

// Upload submits the artifact at path as multipart form field "file".
// The body is streamed; the file is never buffered in memory.
func (c *Client) Upload(ctx context.Context, path string) (*UploadAck, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		fw, err := mw.CreateFormFile("file", filepath.Base(path))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(fw, f); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.uploads.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &SubmissionError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var ack UploadAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if ack.JobID == "" {
		return nil, errors.New("upload response missing job_id")
	}

	c.log.Debug().
		Str("jobId", ack.JobID).
		Str("status", ack.Status).
		Str("message", ack.Message).
		Msg("upload accepted")
	return &ack, nil
}

// StatusPayload is the body of GET /api/jobs/{id}.
type StatusPayload struct {
	Status   string `json:"status"`
	Progress string `json:"progress,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CheckOutcome is the raw result of one status check, before
// classification. Err covers transport-level failures and undecodable 2xx
// bodies; otherwise StatusCode is set, with Payload non-nil for 2xx.
type CheckOutcome struct {
	Err        error
	StatusCode int
	Payload    *StatusPayload
	Latency    time.Duration
}

// CheckStatus performs one status check. All faults are folded into the
// returned CheckOutcome; this method never panics or propagates errors.
func (c *Client) CheckStatus(ctx context.Context, jobID string) CheckOutcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID), nil)
	if err != nil {
		return CheckOutcome{Err: err, Latency: time.Since(start)}
	}

	resp, err := c.polls.Do(req)
	if err != nil {
		return CheckOutcome{Err: err, Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var p StatusPayload
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			return CheckOutcome{Err: fmt.Errorf("decode status payload: %w", err), Latency: time.Since(start)}
		}
		return CheckOutcome{StatusCode: resp.StatusCode, Payload: &p, Latency: time.Since(start)}
	}

	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return CheckOutcome{StatusCode: resp.StatusCode, Latency: time.Since(start)}
}

// Result fetches the final artifact of a completed job.
func (c *Client) Result(ctx context.Context, jobID string) (*domain.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID)+"/result", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.polls.Do(req)
	if err != nil {
		return nil, fmt.Errorf("result request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("result request returned HTTP %d", resp.StatusCode)
	}

	var result domain.Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

// Download streams a finished transcript artifact ("txt" or "json") to w.
func (c *Client) Download(ctx context.Context, jobID, format string, w io.Writer) error {
	if format != "txt" && format != "json" {
		return fmt.Errorf("invalid download format %q", format)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jobURL(jobID)+"/download?format="+format, nil)
	if err != nil {
		return err
	}

	resp, err := c.uploads.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download request returned HTTP %d", resp.StatusCode)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download copy: %w", err)
	}
	return nil
}

func (c *Client) jobURL(jobID string) string {
	return c.baseURL + "/api/jobs/" + url.PathEscape(jobID)
}

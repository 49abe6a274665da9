package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jvarn/diarize-client/internal/config"
	"github.com/jvarn/diarize-client/internal/stub"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.BackendConfig{
		BaseURL:        baseURL,
		RequestTimeout: 2 * time.Second,
		UploadTimeout:  5 * time.Second,
	})
}

func tempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.wav")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload_Success(t *testing.T) {
	srv := httptest.NewServer(stub.New(stub.Options{}).Router())
	defer srv.Close()

	c := newTestClient(srv.URL)

	ack, err := c.Upload(context.Background(), tempFile(t, "audio-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ack.JobID == "" {
		t.Error("expected a job id")
	}
	if ack.Status != "queued" {
		t.Errorf("ack status = %q, want queued", ack.Status)
	}
	if ack.Message == "" {
		t.Error("expected upload message")
	}
}

func TestUpload_SendsMultipartFileField(t *testing.T) {
	var gotField, gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for field, headers := range r.MultipartForm.File {
			gotField = field
			gotFilename = headers[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"job-1","status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Upload(context.Background(), tempFile(t, "audio")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotField != "file" {
		t.Errorf("form field = %q, want file", gotField)
	}
	if gotFilename != "sample.wav" {
		t.Errorf("filename = %q, want sample.wav", gotFilename)
	}
}

func TestUpload_NonSuccessIsSubmissionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	_, err := c.Upload(context.Background(), tempFile(t, "audio"))
	var se *SubmissionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SubmissionError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status code = %d, want 503", se.StatusCode)
	}
	if !strings.Contains(se.Error(), "503") {
		t.Errorf("error string should carry the HTTP status: %q", se.Error())
	}
}

func TestUpload_MissingJobIDRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"queued"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Upload(context.Background(), tempFile(t, "audio")); err == nil {
		t.Error("expected error for ack without job_id")
	}
}

func TestCheckStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/job-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"running","progress":"Transcribing chunk 2/5"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	out := c.CheckStatus(context.Background(), "job-1")

	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Payload == nil {
		t.Fatal("expected payload for 2xx")
	}
	if out.Payload.Status != "running" || out.Payload.Progress != "Transcribing chunk 2/5" {
		t.Errorf("payload = %+v", out.Payload)
	}
}

func TestCheckStatus_NonSuccessHasNoPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	out := c.CheckStatus(context.Background(), "job-1")

	if out.Err != nil {
		t.Fatalf("HTTP-level failure is not a transport error: %v", out.Err)
	}
	if out.StatusCode != http.StatusNotFound {
		t.Errorf("status code = %d, want 404", out.StatusCode)
	}
	if out.Payload != nil {
		t.Errorf("expected nil payload, got %+v", out.Payload)
	}
}

func TestCheckStatus_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	out := c.CheckStatus(context.Background(), "job-1")

	if out.Err == nil {
		t.Fatal("expected transport error for closed server")
	}
}

func TestCheckStatus_UndecodableBodyIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	out := c.CheckStatus(context.Background(), "job-1")

	if out.Err == nil {
		t.Fatal("expected error for undecodable 2xx body")
	}
}

func TestResult_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/jobs/job-1/result" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"job-1","transcript":"hi there","segments":[{"start":1.25,"speaker":"SPEAKER_01","text":"hi there"}],"download_txt":"/api/jobs/job-1/download?format=txt","download_json":"/api/jobs/job-1/download?format=json"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Result(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("result: %v", err)
	}

	if result.JobID != "job-1" || result.Transcript != "hi there" {
		t.Errorf("result = %+v", result)
	}
	if len(result.Segments) != 1 || result.Segments[0].Start != 1.25 {
		t.Errorf("segments = %+v", result.Segments)
	}
	if result.DownloadTXT == "" || result.DownloadJSON == "" {
		t.Error("download references missing")
	}
}

func TestResult_NonSuccessIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Result(context.Background(), "job-1"); err == nil {
		t.Error("expected error for non-2xx result response")
	}
}

func TestDownload_AgainstStub(t *testing.T) {
	backend := stub.New(stub.Options{StepsRunning: 1})
	srv := httptest.NewServer(backend.Router())
	defer srv.Close()

	c := newTestClient(srv.URL)

	ack, err := c.Upload(context.Background(), tempFile(t, "audio"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Walk the stub job to done: queued, running, done.
	for i := 0; i < 3; i++ {
		out := c.CheckStatus(context.Background(), ack.JobID)
		if out.Err != nil {
			t.Fatalf("check %d: %v", i, out.Err)
		}
	}

	var buf bytes.Buffer
	if err := c.Download(context.Background(), ack.JobID, "txt", &buf); err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.Contains(buf.String(), "SPEAKER_00") {
		t.Errorf("transcript text = %q", buf.String())
	}

	if err := c.Download(context.Background(), ack.JobID, "csv", &buf); err == nil {
		t.Error("expected error for invalid format")
	}
}

// Package domain defines the job lifecycle types shared across the client.
package domain

// Status is the lifecycle state of the current job. Values other than the
// client-local ones (idle, uploading, error) are taken verbatim from the
// server's reported status field.
type Status string

const (
	// StatusIdle - no active job. Initial state.
	StatusIdle Status = "idle"
	// StatusUploading - set the instant submission begins. Client-local,
	// never reported by the server.
	StatusUploading Status = "uploading"
	// StatusQueued - server-reported: job accepted, waiting for a worker.
	StatusQueued Status = "queued"
	// StatusRunning - server-reported: job is being processed.
	StatusRunning Status = "running"
	// StatusDone - terminal, server-reported success.
	StatusDone Status = "done"
	// StatusFailed - terminal, server-reported processing failure.
	StatusFailed Status = "failed"
	// StatusError - terminal, client-detected unrecoverable condition
	// (validation failure, submission failure, or an escalated streak).
	// Never reported by the server.
	StatusError Status = "error"
)

// IsTerminal reports whether no further polling should occur for this
// status. Any unrecognized server status is treated as non-terminal so a
// newer backend can add intermediate stages without breaking the client.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

// Job is the single unit of server-side processing work tracked by the
// client. There is at most one live Job per session; a new submission
// supersedes the previous one entirely.
type Job struct {
	// ID is the opaque server-assigned job identifier. Empty until the
	// upload response is parsed.
	ID string `json:"id"`
	// SubmissionID is a client-generated correlation id, assigned before
	// the upload request is issued.
	SubmissionID string `json:"submissionId"`
	// Filename of the submitted artifact, for logs and events.
	Filename string `json:"filename"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// Progress is advisory free text from the server ("Added to queue",
	// "Transcribing chunk 3/12", ...). No parsing contract.
	Progress string `json:"progress,omitempty"`
	// Error carries the user-visible failure message for the failed and
	// error states.
	Error string `json:"error,omitempty"`
	// Result is attached after a successful one-shot fetch in done state.
	// A done job with a nil Result means the fetch failed.
	Result *Result `json:"result,omitempty"`
}

// Segment is one speaker-attributed span of the final transcript.
// Order within a Result is chronological as returned by the server.
type Segment struct {
	Start   float64 `json:"start"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

// Result is the final artifact of a completed job. Immutable once fetched;
// fetched at most once per job.
type Result struct {
	JobID      string    `json:"job_id"`
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments"`
	// Server-relative download paths, passed through verbatim.
	DownloadTXT  string `json:"download_txt"`
	DownloadJSON string `json:"download_json"`
}

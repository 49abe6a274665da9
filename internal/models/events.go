// Package models defines the data structures for job lifecycle events.
package models

// JobStatusEvent records one observed status transition of the active job.
type JobStatusEvent struct {
	EventType    string `json:"eventType"`
	SubmissionID string `json:"submissionId"`
	JobID        string `json:"jobId"`
	Filename     string `json:"filename"`
	Timestamp    int64  `json:"timestamp"`
	From         string `json:"from"`
	To           string `json:"to"`
	Progress     string `json:"progress,omitempty"`
}

// JobTerminalEvent records a job reaching a terminal status, with the
// user-visible message and result shape when available.
type JobTerminalEvent struct {
	EventType    string `json:"eventType"`
	SubmissionID string `json:"submissionId"`
	JobID        string `json:"jobId"`
	Filename     string `json:"filename"`
	Timestamp    int64  `json:"timestamp"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	SegmentCount int    `json:"segmentCount,omitempty"`
}

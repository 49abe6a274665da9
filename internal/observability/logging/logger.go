// Package logging provides structured logging with zerolog.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the process-wide logger.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithJob returns a logger with job context.
func WithJob(jobID string) zerolog.Logger {
	return log.With().
		Str("jobId", jobID).
		Logger()
}

// WithSubmission returns a logger with submission context, for use before
// the server has assigned a job id.
func WithSubmission(submissionID, filename string) zerolog.Logger {
	return log.With().
		Str("submissionId", submissionID).
		Str("filename", filename).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

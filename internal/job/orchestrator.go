// Package job drives a single diarization job through its lifecycle:
// submission, fault-classified status polling, and one-shot result
// retrieval.
package job

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jvarn/diarize-client/internal/api"
	"github.com/jvarn/diarize-client/internal/config"
	"github.com/jvarn/diarize-client/internal/domain"
	"github.com/jvarn/diarize-client/internal/events"
	"github.com/jvarn/diarize-client/internal/models"
	"github.com/jvarn/diarize-client/internal/observability/logging"
	"github.com/jvarn/diarize-client/internal/observability/metrics"
)

// ValidationError is a local precondition failure. It never causes a
// network call and leaves the tracked job untouched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Orchestrator coordinates the submitter, the poll loop, the state
// tracker and the one-shot result retrieval for the single active job.
// At most one poll loop is live at any time; submitting a new job cancels
// the previous loop and waits for it to exit before the new job begins.
type Orchestrator struct {
	client    *api.Client
	tracker   *Tracker
	publisher *events.Publisher
	metrics   *metrics.Metrics
	log       zerolog.Logger

	interval  time.Duration
	threshold int
	maxBytes  int64

	mu          sync.Mutex
	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

// NewOrchestrator creates an orchestrator in idle state.
func NewOrchestrator(client *api.Client, publisher *events.Publisher, cfg *config.Configuration) *Orchestrator {
	return &Orchestrator{
		client:    client,
		tracker:   NewTracker(),
		publisher: publisher,
		metrics:   metrics.DefaultMetrics,
		log:       logging.WithComponent("orchestrator"),
		interval:  cfg.Poll.Interval,
		threshold: cfg.Poll.FailureThreshold,
		maxBytes:  cfg.Upload.MaxBytes,
	}
}

// Submit validates and submits the artifact at path, replacing any
// previously active job. On success the poll loop for the new job is
// already running when Submit returns.
func (o *Orchestrator) Submit(ctx context.Context, path string) (domain.Job, error) {
	if path == "" {
		o.metrics.RecordUploadRejected("missing")
		return o.tracker.Snapshot(), &ValidationError{Reason: "no file selected"}
	}

	info, err := os.Stat(path)
	if err != nil {
		o.metrics.RecordUploadRejected("missing")
		return o.tracker.Snapshot(), &ValidationError{Reason: fmt.Sprintf("file not found: %s", path)}
	}
	if info.IsDir() {
		o.metrics.RecordUploadRejected("missing")
		return o.tracker.Snapshot(), &ValidationError{Reason: fmt.Sprintf("not a file: %s", path)}
	}
	if info.Size() > o.maxBytes {
		o.metrics.RecordUploadRejected("oversized")
		return o.tracker.Snapshot(), &ValidationError{
			Reason: fmt.Sprintf("file is %d bytes, over the %d byte upload limit", info.Size(), o.maxBytes),
		}
	}

	// A stray tick from the superseded job must never mutate the new
	// job's state: stop the old loop completely before the new job
	// exists, then let the generation bump catch anything still in flight.
	o.stopWatcher()

	submissionID := uuid.NewString()
	gen := o.tracker.Begin(submissionID, info.Name())
	log := logging.WithSubmission(submissionID, info.Name())

	o.publishStatus(ctx, gen, string(domain.StatusIdle), string(domain.StatusUploading), "")

	o.metrics.RecordUpload(info.Size())
	log.Info().Int64("bytes", info.Size()).Msg("uploading artifact")

	ack, err := o.client.Upload(ctx, path)
	if err != nil {
		o.metrics.RecordUploadFailed()
		log.Error().Err(err).Msg("upload failed")

		// Terminal error carries a local message, never server text.
		message := "could not submit the file to the processing service"
		if se, ok := err.(*api.SubmissionError); ok {
			message = fmt.Sprintf("the processing service rejected the upload (HTTP %d)", se.StatusCode)
		}
		if markErr := o.tracker.MarkError(gen, message); markErr == nil {
			o.finishTerminal(ctx, gen)
		}
		return o.tracker.Snapshot(), err
	}

	if err := o.tracker.Activate(gen, ack.JobID); err != nil {
		return o.tracker.Snapshot(), err
	}

	// The ack's status is displayed but not adopted; the poll loop makes
	// its own confirmation pass before the job leaves uploading.
	log.Info().
		Str("jobId", ack.JobID).
		Str("ackStatus", ack.Status).
		Str("message", ack.Message).
		Msg("job submitted")

	wctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	o.mu.Lock()
	o.cancelWatch = cancel
	o.watchDone = done
	o.mu.Unlock()

	o.metrics.RecordWatcherStart()
	go o.watch(wctx, gen, ack.JobID, done)

	return o.tracker.Snapshot(), nil
}

// Wait blocks until the active job reaches a terminal state or ctx is
// cancelled, and returns the final job snapshot.
func (o *Orchestrator) Wait(ctx context.Context) (domain.Job, error) {
	o.mu.Lock()
	done := o.watchDone
	o.mu.Unlock()

	if done == nil {
		return o.tracker.Snapshot(), nil
	}

	select {
	case <-ctx.Done():
		return o.tracker.Snapshot(), ctx.Err()
	case <-done:
		return o.tracker.Snapshot(), nil
	}
}

// Current returns a snapshot of the active job.
func (o *Orchestrator) Current() domain.Job {
	return o.tracker.Snapshot()
}

// Active reports whether a poll loop is currently live.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	done := o.watchDone
	o.mu.Unlock()

	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Stop cancels the active poll loop, if any, and waits for it to exit.
func (o *Orchestrator) Stop() {
	o.stopWatcher()
}

// stopWatcher synchronously cancels and drains the active poll loop.
func (o *Orchestrator) stopWatcher() {
	o.mu.Lock()
	cancel := o.cancelWatch
	done := o.watchDone
	o.cancelWatch = nil
	o.watchDone = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (o *Orchestrator) publishStatus(ctx context.Context, gen uint64, from, to, progress string) {
	snap := o.tracker.Snapshot()
	if gen != o.tracker.Generation() {
		return
	}

	event := models.JobStatusEvent{
		EventType:    "job.status.changed",
		SubmissionID: snap.SubmissionID,
		JobID:        snap.ID,
		Filename:     snap.Filename,
		Timestamp:    time.Now().UTC().UnixMilli(),
		From:         from,
		To:           to,
		Progress:     progress,
	}
	if err := o.publisher.PublishStatus(ctx, snap.SubmissionID, event); err != nil {
		o.log.Warn().Err(err).Msg("failed to publish status event")
	}
}

func (o *Orchestrator) finishTerminal(ctx context.Context, gen uint64) {
	snap := o.tracker.Snapshot()
	if gen != o.tracker.Generation() {
		return
	}

	o.metrics.RecordTerminal(string(snap.Status))

	event := models.JobTerminalEvent{
		EventType:    "job.terminal",
		SubmissionID: snap.SubmissionID,
		JobID:        snap.ID,
		Filename:     snap.Filename,
		Timestamp:    time.Now().UTC().UnixMilli(),
		Status:       string(snap.Status),
		Error:        snap.Error,
	}
	if snap.Result != nil {
		event.SegmentCount = len(snap.Result.Segments)
	}
	if err := o.publisher.PublishTerminal(ctx, snap.SubmissionID, event); err != nil {
		o.log.Warn().Err(err).Msg("failed to publish terminal event")
	}
}

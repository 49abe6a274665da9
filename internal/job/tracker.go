package job

import (
	"errors"
	"sync"

	"github.com/jvarn/diarize-client/internal/domain"
)

// Errors for invalid tracker operations.
var (
	// ErrStaleGeneration is returned when an update belongs to a job that
	// has since been superseded by a new submission.
	ErrStaleGeneration = errors.New("stale job generation")
	// ErrJobTerminal is returned when an update arrives after the job
	// already reached a terminal state. Terminal states are written once.
	ErrJobTerminal = errors.New("job already terminal")
	// ErrNoActiveJob is returned for updates while no job is active.
	ErrNoActiveJob = errors.New("no active job")
)

// failedFallbackMessage is surfaced for server-reported failures that
// carry no error message of their own.
const failedFallbackMessage = "processing failed on the server"

// Applied describes the effect of one successful poll on the tracker.
type Applied struct {
	From       domain.Status
	To         domain.Status
	Changed    bool
	Terminal   bool
	BecameDone bool
}

// Tracker is the single owner of the current Job. Every mutation goes
// through its transition methods, and every mutation is guarded by the
// generation stamped when the job was begun, so a superseded watcher can
// never touch the job that replaced its own.
type Tracker struct {
	mu            sync.RWMutex
	generation    uint64
	job           domain.Job
	resultClaimed bool
}

// NewTracker creates a tracker in idle state.
func NewTracker() *Tracker {
	return &Tracker{
		job: domain.Job{Status: domain.StatusIdle},
	}
}

// Begin unconditionally supersedes any previous job, from any state
// including terminal ones, and moves to uploading. Returns the generation
// that guards all subsequent updates for this job.
func (t *Tracker) Begin(submissionID, filename string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.job = domain.Job{
		SubmissionID: submissionID,
		Filename:     filename,
		Status:       domain.StatusUploading,
	}
	t.resultClaimed = false
	return t.generation
}

// Activate records the server-assigned job id after a successful upload.
// The status stays uploading: the ack's status field is advisory and the
// poll loop performs its own confirmation pass before the job is shown as
// queued or running.
func (t *Tracker) Activate(gen uint64, jobID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.guard(gen); err != nil {
		return err
	}
	t.job.ID = jobID
	return nil
}

// ApplySuccess applies one successful poll payload. The server's status
// string is adopted verbatim; anything unrecognized is kept and treated
// as non-terminal. For failed jobs the server's error message is surfaced
// when present, otherwise a generic fallback.
func (t *Tracker) ApplySuccess(gen uint64, status domain.Status, progress, jobErr string) (Applied, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.guard(gen); err != nil {
		return Applied{}, err
	}

	from := t.job.Status
	t.job.Status = status
	t.job.Progress = progress

	if status == domain.StatusFailed {
		if jobErr != "" {
			t.job.Error = jobErr
		} else {
			t.job.Error = failedFallbackMessage
		}
	}

	return Applied{
		From:       from,
		To:         status,
		Changed:    from != status,
		Terminal:   status.IsTerminal(),
		BecameDone: status == domain.StatusDone && from != domain.StatusDone,
	}, nil
}

// MarkError moves the job to the terminal error state with a locally
// generated message. Used for fatal submission failures and escalated
// failure streaks; by definition the server is unreachable or has
// forgotten the job, so no server text is ever used here.
func (t *Tracker) MarkError(gen uint64, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.guard(gen); err != nil {
		return err
	}
	t.job.Status = domain.StatusError
	t.job.Error = message
	return nil
}

// ClaimResultFetch returns true exactly once per job, the first time it is
// called with the job in done state. The caller owns the one-shot result
// fetch from that point on.
func (t *Tracker) ClaimResultFetch(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation || t.job.Status != domain.StatusDone || t.resultClaimed {
		return false
	}
	t.resultClaimed = true
	return true
}

// AttachResult stores the fetched artifact on a done job. A job whose
// fetch failed simply stays done with no result attached.
func (t *Tracker) AttachResult(gen uint64, result *domain.Result) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return ErrStaleGeneration
	}
	if t.job.Status != domain.StatusDone {
		return ErrJobTerminal
	}
	t.job.Result = result
	return nil
}

// Snapshot returns a copy of the current job.
func (t *Tracker) Snapshot() domain.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.job
}

// Generation returns the current job generation.
func (t *Tracker) Generation() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.generation
}

// Reset clears the tracker back to idle without starting a new job.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.generation++
	t.job = domain.Job{Status: domain.StatusIdle}
	t.resultClaimed = false
}

// guard validates that an update may mutate the current job. Callers must
// hold t.mu.
func (t *Tracker) guard(gen uint64) error {
	if gen != t.generation {
		return ErrStaleGeneration
	}
	if t.job.Status == domain.StatusIdle {
		return ErrNoActiveJob
	}
	if t.job.Status.IsTerminal() {
		return ErrJobTerminal
	}
	return nil
}

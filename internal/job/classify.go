package job

import (
	"net/http"

	"github.com/jvarn/diarize-client/internal/api"
	"github.com/jvarn/diarize-client/internal/domain"
)

// OutcomeKind classifies one status check.
type OutcomeKind int

const (
	// OutcomeSuccess - 2xx with a parseable payload.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeNotFound - HTTP 404: the server no longer knows the job.
	OutcomeNotFound
	// OutcomeTransportFailure - connection refused, timeout, DNS failure,
	// or an undecodable 2xx body.
	OutcomeTransportFailure
	// OutcomeServerError - any other non-2xx status. One-shot and
	// non-fatal: never feeds a streak.
	OutcomeServerError
)

// String returns the metrics/log label for the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Outcome is the classified result of one status check. Ephemeral;
// consumed immediately by the streak counters and the tracker.
type Outcome struct {
	Kind OutcomeKind
	// Populated for OutcomeSuccess.
	Status   domain.Status
	Progress string
	JobError string
	// Populated for OutcomeServerError.
	Code int
	// Underlying fault for OutcomeTransportFailure, for logging only.
	Err error
}

// Classify folds a raw check result into an Outcome. Pure function: it
// never touches counters or job state.
func Classify(check api.CheckOutcome) Outcome {
	if check.Err != nil {
		return Outcome{Kind: OutcomeTransportFailure, Err: check.Err}
	}
	if check.StatusCode == http.StatusNotFound {
		return Outcome{Kind: OutcomeNotFound}
	}
	if check.Payload == nil {
		return Outcome{Kind: OutcomeServerError, Code: check.StatusCode}
	}
	return Outcome{
		Kind:     OutcomeSuccess,
		Status:   domain.Status(check.Payload.Status),
		Progress: check.Payload.Progress,
		JobError: check.Payload.Error,
	}
}

// Streaks tracks consecutive occurrences of the two escalating failure
// classes. The streaks are mutually exclusive: observing one failure kind
// resets the other, and any success resets both. Not safe for concurrent
// use; owned by a single watcher loop.
type Streaks struct {
	notFound  int
	transport int
}

// Observe updates the counters for one classified outcome.
// OutcomeServerError deliberately leaves both streaks untouched.
func (s *Streaks) Observe(o Outcome) {
	switch o.Kind {
	case OutcomeSuccess:
		s.notFound = 0
		s.transport = 0
	case OutcomeNotFound:
		s.transport = 0
		s.notFound++
	case OutcomeTransportFailure:
		s.notFound = 0
		s.transport++
	case OutcomeServerError:
		// swallowed: no streak change
	}
}

// NotFound returns the current consecutive-404 count.
func (s *Streaks) NotFound() int { return s.notFound }

// Transport returns the current consecutive-transport-failure count.
func (s *Streaks) Transport() int { return s.transport }

// Reset zeroes both counters. Called when a new job is submitted.
func (s *Streaks) Reset() {
	s.notFound = 0
	s.transport = 0
}

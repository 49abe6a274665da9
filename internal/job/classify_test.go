package job

import (
	"errors"
	"testing"

	"github.com/jvarn/diarize-client/internal/api"
	"github.com/jvarn/diarize-client/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		check api.CheckOutcome
		want  OutcomeKind
	}{
		{"transport error", api.CheckOutcome{Err: errors.New("connection refused")}, OutcomeTransportFailure},
		{"404", api.CheckOutcome{StatusCode: 404}, OutcomeNotFound},
		{"500", api.CheckOutcome{StatusCode: 500}, OutcomeServerError},
		{"503", api.CheckOutcome{StatusCode: 503}, OutcomeServerError},
		{"400", api.CheckOutcome{StatusCode: 400}, OutcomeServerError},
		{"2xx with payload", api.CheckOutcome{StatusCode: 200, Payload: &api.StatusPayload{Status: "running"}}, OutcomeSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.check)
			if got.Kind != tt.want {
				t.Errorf("Classify(%+v).Kind = %v, want %v", tt.check, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_SuccessCarriesPayload(t *testing.T) {
	got := Classify(api.CheckOutcome{
		StatusCode: 200,
		Payload:    &api.StatusPayload{Status: "failed", Progress: "cleanup", Error: "OOM"},
	})

	if got.Status != domain.StatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Progress != "cleanup" {
		t.Errorf("Progress = %q, want cleanup", got.Progress)
	}
	if got.JobError != "OOM" {
		t.Errorf("JobError = %q, want OOM", got.JobError)
	}
}

func TestClassify_ServerErrorCarriesCode(t *testing.T) {
	got := Classify(api.CheckOutcome{StatusCode: 502})
	if got.Code != 502 {
		t.Errorf("Code = %d, want 502", got.Code)
	}
}

func TestStreaks_MutuallyExclusive(t *testing.T) {
	s := &Streaks{}

	s.Observe(Outcome{Kind: OutcomeNotFound})
	s.Observe(Outcome{Kind: OutcomeNotFound})
	if s.NotFound() != 2 || s.Transport() != 0 {
		t.Fatalf("after two 404s: notFound=%d transport=%d, want 2/0", s.NotFound(), s.Transport())
	}

	// A transport failure resets the not-found streak.
	s.Observe(Outcome{Kind: OutcomeTransportFailure})
	if s.NotFound() != 0 || s.Transport() != 1 {
		t.Fatalf("after transport failure: notFound=%d transport=%d, want 0/1", s.NotFound(), s.Transport())
	}

	// And vice versa.
	s.Observe(Outcome{Kind: OutcomeNotFound})
	if s.NotFound() != 1 || s.Transport() != 0 {
		t.Fatalf("after 404: notFound=%d transport=%d, want 1/0", s.NotFound(), s.Transport())
	}
}

func TestStreaks_SuccessResetsBoth(t *testing.T) {
	s := &Streaks{}

	s.Observe(Outcome{Kind: OutcomeTransportFailure})
	s.Observe(Outcome{Kind: OutcomeTransportFailure})
	s.Observe(Outcome{Kind: OutcomeSuccess, Status: domain.StatusRunning})

	if s.NotFound() != 0 || s.Transport() != 0 {
		t.Errorf("after success: notFound=%d transport=%d, want 0/0", s.NotFound(), s.Transport())
	}
}

func TestStreaks_ServerErrorLeavesCountersUntouched(t *testing.T) {
	s := &Streaks{}

	s.Observe(Outcome{Kind: OutcomeNotFound})
	s.Observe(Outcome{Kind: OutcomeNotFound})
	s.Observe(Outcome{Kind: OutcomeServerError, Code: 500})

	if s.NotFound() != 2 {
		t.Errorf("server error changed notFound streak: got %d, want 2", s.NotFound())
	}
	if s.Transport() != 0 {
		t.Errorf("server error changed transport streak: got %d, want 0", s.Transport())
	}
}

func TestStreaks_Reset(t *testing.T) {
	s := &Streaks{}
	s.Observe(Outcome{Kind: OutcomeNotFound})
	s.Observe(Outcome{Kind: OutcomeTransportFailure})

	s.Reset()

	if s.NotFound() != 0 || s.Transport() != 0 {
		t.Errorf("after reset: notFound=%d transport=%d, want 0/0", s.NotFound(), s.Transport())
	}
}

func TestOutcomeKind_String(t *testing.T) {
	tests := []struct {
		kind     OutcomeKind
		expected string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeNotFound, "not_found"},
		{OutcomeTransportFailure, "transport_failure"},
		{OutcomeServerError, "server_error"},
		{OutcomeKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("OutcomeKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

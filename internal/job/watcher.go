package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jvarn/diarize-client/internal/domain"
	"github.com/jvarn/diarize-client/internal/observability/logging"
)

// Escalation messages. Locally generated: in both conditions the server is
// unreachable or has forgotten the job, so there is no server text to show.
const (
	jobMissingMessage   = "the job is no longer available; the processing service may have restarted"
	connectivityMessage = "lost connection to the processing service"
)

// watch is the poll loop for one job generation. It is strictly
// sequential: each status check completes (or fails) before the next is
// scheduled, so in-flight checks can never overlap and responses are
// applied in issuance order. The fixed interval runs from the completion
// of one check to the issuance of the next.
func (o *Orchestrator) watch(ctx context.Context, gen uint64, jobID string, done chan struct{}) {
	defer close(done)
	defer o.metrics.RecordWatcherStop()

	log := logging.WithJob(jobID)
	log.Debug().Dur("interval", o.interval).Msg("poll loop started")

	streaks := &Streaks{}

	for {
		check := o.client.CheckStatus(ctx, jobID)
		outcome := Classify(check)
		o.metrics.RecordPoll(outcome.Kind.String(), check.Latency.Seconds())

		// Superseded or shut down while the check was in flight; the
		// response must leave no trace on whatever job is active now.
		if ctx.Err() != nil {
			log.Debug().Msg("poll loop cancelled, discarding in-flight response")
			return
		}

		if terminal := o.applyTick(ctx, gen, jobID, outcome, streaks, log); terminal {
			log.Debug().Msg("poll loop stopped")
			return
		}

		select {
		case <-ctx.Done():
			log.Debug().Msg("poll loop cancelled")
			return
		case <-time.After(o.interval):
		}
	}
}

// applyTick feeds one classified outcome through the streak counters and
// the tracker. Returns true when the job reached a terminal state and the
// loop must stop.
func (o *Orchestrator) applyTick(ctx context.Context, gen uint64, jobID string, outcome Outcome, streaks *Streaks, log zerolog.Logger) bool {
	streaks.Observe(outcome)

	switch outcome.Kind {
	case OutcomeSuccess:
		applied, err := o.tracker.ApplySuccess(gen, outcome.Status, outcome.Progress, outcome.JobError)
		if err != nil {
			// Stale generation or already terminal; either way this loop
			// has nothing left to do.
			log.Debug().Err(err).Msg("poll payload discarded")
			return true
		}

		if applied.Changed {
			log.Info().
				Str("from", string(applied.From)).
				Str("to", string(applied.To)).
				Str("progress", outcome.Progress).
				Msg("job status changed")
			o.publishStatus(ctx, gen, string(applied.From), string(applied.To), outcome.Progress)
		}

		if applied.BecameDone {
			o.retrieveResult(ctx, gen, jobID, log)
		}
		if applied.Terminal {
			o.finishTerminal(ctx, gen)
			return true
		}
		return false

	case OutcomeNotFound:
		log.Warn().Int("streak", streaks.NotFound()).Msg("job unknown to server")
		if streaks.NotFound() >= o.threshold {
			return o.escalate(ctx, gen, "job_missing", jobMissingMessage, log)
		}
		return false

	case OutcomeTransportFailure:
		log.Warn().Err(outcome.Err).Int("streak", streaks.Transport()).Msg("status check could not reach server")
		if streaks.Transport() >= o.threshold {
			return o.escalate(ctx, gen, "connectivity_lost", connectivityMessage, log)
		}
		return false

	default: // OutcomeServerError
		// No escalation path for these; they surface in logs and metrics
		// only, and never feed a streak.
		log.Warn().Int("httpStatus", outcome.Code).Msg("status check returned server error")
		return false
	}
}

// escalate promotes a completed failure streak into the terminal error
// state. Returns true when the loop must stop.
func (o *Orchestrator) escalate(ctx context.Context, gen uint64, reason, message string, log zerolog.Logger) bool {
	if err := o.tracker.MarkError(gen, message); err != nil {
		log.Debug().Err(err).Msg("escalation discarded")
		return true
	}

	log.Error().Str("reason", reason).Msg(message)
	o.metrics.RecordEscalation(reason)
	o.publishStatus(ctx, gen, "", string(domain.StatusError), "")
	o.finishTerminal(ctx, gen)
	return true
}

// retrieveResult performs the one-shot result fetch on the first observed
// transition into done. A failed fetch is logged and counted but the job
// stays done; there is no retry and no status rollback.
func (o *Orchestrator) retrieveResult(ctx context.Context, gen uint64, jobID string, log zerolog.Logger) {
	if !o.tracker.ClaimResultFetch(gen) {
		return
	}

	result, err := o.client.Result(ctx, jobID)
	o.metrics.RecordResultFetch(err)
	if err != nil {
		log.Error().Err(err).Msg("job finished but the result could not be fetched")
		return
	}

	if err := o.tracker.AttachResult(gen, result); err != nil {
		log.Debug().Err(err).Msg("fetched result discarded")
		return
	}
	log.Info().Int("segments", len(result.Segments)).Msg("result retrieved")
}

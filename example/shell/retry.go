package shell

import (
	"context"
	"math/rand"
	"time"

	"github.com/deciderkit/decider-eventstore-go/aggregate"
)

const (
	// DefaultMaxCommandAttempts bounds how often a command is retried when
	// it loses an optimistic concurrency race.
	DefaultMaxCommandAttempts = 3

	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

// HandleWithRetry handles a JSON command payload and retries it while the
// outcome is a concurrency conflict, up to maxAttempts attempts in total.
// Every retry reloads the stream, so the decider sees the competing
// writer's events. All other outcomes are returned as-is, a domain
// rejection does not become correct by retrying.
//
// Retries back off exponentially from a 10 ms base delay with 30% jitter
// to keep colliding writers from retrying in lockstep.
func HandleWithRetry(
	ctx context.Context,
	handler *DomainHandler,
	payload []byte,
	maxAttempts int,
) aggregate.Outcome {

	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var outcome aggregate.Outcome

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return aggregate.Outcome{Code: aggregate.OutcomeStorageError, Reason: ctx.Err().Error()}
			}
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return aggregate.Outcome{Code: aggregate.OutcomeStorageError, Reason: ctxErr.Error()}
		}

		outcome = handler.HandleJSON(ctx, payload)
		if outcome.Code != aggregate.OutcomeConcurrencyConflict {
			return outcome
		}
	}

	return outcome
}

// backoffDelay computes baseDelay * 2^(attempt-1) plus jitter.
func backoffDelay(attempt int) time.Duration {
	delay := defaultBaseDelay * time.Duration(1<<(attempt-1))

	jitter := rand.Float64() * float64(delay) * defaultJitterFactor //nolint:gosec //math/rand is sufficient for jitter

	return delay + time.Duration(jitter)
}

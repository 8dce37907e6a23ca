package services

import (
	"context"
	"errors"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
	"github.com/aguiargov/licita/internal/logger"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 4
	MinMaxAttempts     = 3
	MaxMaxAttempts     = 5
	DefaultBackoffBase = 10 * time.Second
	DefaultBackoffMax  = 40 * time.Second
)

// InvokeState is a step of the invocation state machine.
type InvokeState int

// Invocation states. Succeeded and FailedTerminal are final.
const (
	StateAttempting InvokeState = iota
	StateBackoff
	StateSucceeded
	StateFailedTerminal
)

// String returns the string representation.
func (s InvokeState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateBackoff:
		return "backoff"
	case StateSucceeded:
		return "succeeded"
	case StateFailedTerminal:
		return "failed"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds how a remote generation call is retried.
// Every field is injectable; zero values fall back to defaults.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, clamped to [3, 5].
	MaxAttempts int

	// Backoff returns the delay before the given retry (1-based).
	Backoff func(attempt int) time.Duration

	// Retriable reports whether an error is worth another call.
	Retriable func(err error) bool

	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used for verdict generation.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     LinearBackoff(DefaultBackoffBase, DefaultBackoffMax),
		Retriable:   IsRetriable,
		Sleep:       SleepContext,
	}
}

// RetryPolicyFromSettings builds a policy from audit settings.
func RetryPolicyFromSettings(s domain.AuditSettings) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = s.MaxAttempts
	if s.BackoffBase > 0 {
		maxDelay := s.BackoffMax
		if maxDelay <= 0 {
			maxDelay = DefaultBackoffMax
		}
		p.Backoff = LinearBackoff(s.BackoffBase, maxDelay)
	}
	return p
}

// LinearBackoff waits base·attempt, capped at maxDelay.
func LinearBackoff(base, maxDelay time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return min(base*time.Duration(attempt), maxDelay)
	}
}

// IsRetriable is the default Retriable: only rate limiting is transient.
// Exhausted quota never is.
func IsRetriable(err error) bool {
	if errors.Is(err, domain.ErrQuotaExhausted) {
		return false
	}
	return errors.Is(err, domain.ErrRateLimited)
}

// SleepContext waits for d or returns the context error.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p RetryPolicy) normalised() RetryPolicy {
	switch {
	case p.MaxAttempts <= 0:
		p.MaxAttempts = DefaultMaxAttempts
	case p.MaxAttempts < MinMaxAttempts:
		p.MaxAttempts = MinMaxAttempts
	case p.MaxAttempts > MaxMaxAttempts:
		p.MaxAttempts = MaxMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = LinearBackoff(DefaultBackoffBase, DefaultBackoffMax)
	}
	if p.Retriable == nil {
		p.Retriable = IsRetriable
	}
	if p.Sleep == nil {
		p.Sleep = SleepContext
	}
	return p
}

// Outcome is the result of an invocation. Exactly one of Text (on success)
// or Err (on failure) is meaningful; Diagnostic is set on failure.
type Outcome struct {
	// Text is the generated text.
	Text string

	// State is StateSucceeded or StateFailedTerminal.
	State InvokeState

	// Attempts is the number of calls made.
	Attempts int

	// Err is the last error on failure.
	Err error

	// Kind classifies Err.
	Kind domain.ErrorKind

	// Diagnostic is the plain-language message for a failed outcome.
	Diagnostic string
}

// Succeeded reports whether the invocation produced text.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

// ResilientInvoker runs a generation call under a retry policy.
type ResilientInvoker struct {
	policy RetryPolicy

	// Observer sees every state transition. May be nil.
	Observer func(state InvokeState, attempt int, err error)
}

// NewResilientInvoker creates an invoker with the given policy.
func NewResilientInvoker(policy RetryPolicy) *ResilientInvoker {
	return &ResilientInvoker{policy: policy.normalised()}
}

// Policy returns the effective policy.
func (r *ResilientInvoker) Policy() RetryPolicy {
	return r.policy
}

// Invoke calls fn until it succeeds, fails terminally or the attempt ceiling is reached.
// It never returns an error; failures are reported in the Outcome.
func (r *ResilientInvoker) Invoke(ctx context.Context, fn func(ctx context.Context) (string, error)) Outcome {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return r.fail(attempt-1, err)
		}

		r.observe(StateAttempting, attempt, nil)
		text, err := fn(ctx)
		if err == nil {
			r.observe(StateSucceeded, attempt, nil)
			return Outcome{Text: text, State: StateSucceeded, Attempts: attempt}
		}
		lastErr = err

		if !r.policy.Retriable(err) {
			logger.Debug("Attempt %d failed terminally: %v", attempt, err)
			return r.fail(attempt, err)
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.policy.Backoff(attempt)
		logger.Warn("Attempt %d/%d failed (%v), retrying in %s", attempt, r.policy.MaxAttempts, err, delay)
		r.observe(StateBackoff, attempt, err)
		if sleepErr := r.policy.Sleep(ctx, delay); sleepErr != nil {
			return r.fail(attempt, sleepErr)
		}
	}

	return r.fail(r.policy.MaxAttempts, lastErr)
}

func (r *ResilientInvoker) fail(attempts int, err error) Outcome {
	r.observe(StateFailedTerminal, attempts, err)
	return Outcome{
		State:      StateFailedTerminal,
		Attempts:   attempts,
		Err:        err,
		Kind:       domain.Classify(err),
		Diagnostic: domain.UserMessage(err),
	}
}

func (r *ResilientInvoker) observe(state InvokeState, attempt int, err error) {
	if r.Observer != nil {
		r.Observer(state, attempt, err)
	}
}

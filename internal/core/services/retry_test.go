package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguiargov/licita/internal/core/domain"
)

// fakeSleep records requested delays without waiting.
type fakeSleep struct {
	delays []time.Duration
	err    error
}

func (f *fakeSleep) Sleep(ctx context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	if f.err != nil {
		return f.err
	}
	return ctx.Err()
}

func testPolicy(sleep *fakeSleep, attempts int) RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxAttempts = attempts
	p.Sleep = sleep.Sleep
	return p
}

var rateLimited = domain.NewRemoteError(domain.KindRateLimited, "openai", 429, "Rate limit reached")

func TestLinearBackoff(t *testing.T) {
	backoff := LinearBackoff(10*time.Second, 40*time.Second)

	assert.Equal(t, 10*time.Second, backoff(1))
	assert.Equal(t, 20*time.Second, backoff(2))
	assert.Equal(t, 30*time.Second, backoff(3))
	assert.Equal(t, 40*time.Second, backoff(4))
	assert.Equal(t, 40*time.Second, backoff(9))
	assert.Equal(t, 10*time.Second, backoff(0))
}

func TestIsRetriable(t *testing.T) {
	assert.True(t, IsRetriable(rateLimited))
	assert.False(t, IsRetriable(domain.NewRemoteError(domain.KindQuotaExhausted, "openai", 429, "quota")))
	assert.False(t, IsRetriable(domain.NewRemoteError(domain.KindRemote, "openai", 500, "boom")))
	assert.False(t, IsRetriable(context.Canceled))
}

func TestResilientInvoker_SucceedsFirstTime(t *testing.T) {
	sleep := &fakeSleep{}
	invoker := NewResilientInvoker(testPolicy(sleep, 4))

	outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		return "✅ CONFORME", nil
	})

	assert.True(t, outcome.Succeeded())
	assert.Equal(t, "✅ CONFORME", outcome.Text)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, sleep.delays)
}

func TestResilientInvoker_RecoversFromTransientFailures(t *testing.T) {
	sleep := &fakeSleep{}
	invoker := NewResilientInvoker(testPolicy(sleep, 4))
	calls := 0

	outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", rateLimited
		}
		return "ok", nil
	})

	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, sleep.delays)
}

func TestResilientInvoker_CeilingIsExactlyMaxAttempts(t *testing.T) {
	for _, attempts := range []int{3, 4, 5} {
		sleep := &fakeSleep{}
		invoker := NewResilientInvoker(testPolicy(sleep, attempts))
		calls := 0

		outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
			calls++
			return "", rateLimited
		})

		assert.Equal(t, attempts, calls)
		assert.Equal(t, attempts, outcome.Attempts)
		assert.Len(t, sleep.delays, attempts-1, "no sleep after the last attempt")
		assert.Equal(t, StateFailedTerminal, outcome.State)
		assert.Equal(t, domain.KindRateLimited, outcome.Kind)
		assert.Equal(t, domain.UserMessage(rateLimited), outcome.Diagnostic)
	}
}

func TestResilientInvoker_QuotaMeansOneCall(t *testing.T) {
	sleep := &fakeSleep{}
	invoker := NewResilientInvoker(testPolicy(sleep, 5))
	quota := domain.NewRemoteError(domain.KindQuotaExhausted, "openai", 429, "You exceeded your current quota")
	calls := 0

	outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", quota
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.KindQuotaExhausted, outcome.Kind)
	assert.Empty(t, sleep.delays)
	assert.Contains(t, outcome.Diagnostic, "cota")
}

func TestResilientInvoker_NonRetriableMeansOneCall(t *testing.T) {
	invoker := NewResilientInvoker(testPolicy(&fakeSleep{}, 4))
	calls := 0

	outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", domain.NewRemoteError(domain.KindRemote, "gemini", 500, "internal")
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.KindRemote, outcome.Kind)
	assert.Contains(t, outcome.Diagnostic, "internal")
}

func TestResilientInvoker_CancelledDuringBackoff(t *testing.T) {
	sleep := &fakeSleep{err: context.Canceled}
	invoker := NewResilientInvoker(testPolicy(sleep, 4))
	calls := 0

	outcome := invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		calls++
		return "", rateLimited
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, StateFailedTerminal, outcome.State)
	assert.Equal(t, domain.KindCancelled, outcome.Kind)
}

func TestResilientInvoker_CancelledBeforeStart(t *testing.T) {
	invoker := NewResilientInvoker(testPolicy(&fakeSleep{}, 4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	outcome := invoker.Invoke(ctx, func(context.Context) (string, error) {
		calls++
		return "ok", nil
	})

	assert.Zero(t, calls)
	assert.Zero(t, outcome.Attempts)
	assert.Equal(t, domain.KindCancelled, outcome.Kind)
}

func TestResilientInvoker_ObserverSeesTransitions(t *testing.T) {
	invoker := NewResilientInvoker(testPolicy(&fakeSleep{}, 3))
	var states []InvokeState
	invoker.Observer = func(state InvokeState, _ int, _ error) {
		states = append(states, state)
	}
	calls := 0

	invoker.Invoke(context.Background(), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", rateLimited
		}
		return "ok", nil
	})

	assert.Equal(t, []InvokeState{StateAttempting, StateBackoff, StateAttempting, StateSucceeded}, states)
}

func TestRetryPolicy_Normalised(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultMaxAttempts},
		{1, MinMaxAttempts},
		{4, 4},
		{10, MaxMaxAttempts},
	}
	for _, tt := range tests {
		p := NewResilientInvoker(RetryPolicy{MaxAttempts: tt.in}).Policy()
		assert.Equal(t, tt.want, p.MaxAttempts)
		require.NotNil(t, p.Sleep)
		require.NotNil(t, p.Backoff)
		require.NotNil(t, p.Retriable)
	}
}

func TestRetryPolicyFromSettings(t *testing.T) {
	settings := domain.DefaultAppSettings().Audit
	settings.MaxAttempts = 3
	settings.BackoffBase = time.Second
	settings.BackoffMax = 2 * time.Second

	p := RetryPolicyFromSettings(settings)

	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.Backoff(1))
	assert.Equal(t, 2*time.Second, p.Backoff(3))
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepContext(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NoError(t, SleepContext(context.Background(), time.Millisecond))
}

func TestInvokeState_String(t *testing.T) {
	assert.Equal(t, "backoff", StateBackoff.String())
	assert.Equal(t, "failed", StateFailedTerminal.String())
}

package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"polycode/urban-nexus/core"
)

const (
	DefaultMaxAttempts = 3
	DefaultMultiplier  = time.Second
	DefaultMinWait     = 4 * time.Second
	DefaultMaxWait     = 10 * time.Second
)

type Policy struct {
	MaxAttempts int
	Multiplier  time.Duration
	MinWait     time.Duration
	MaxWait     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Multiplier:  DefaultMultiplier,
		MinWait:     DefaultMinWait,
		MaxWait:     DefaultMaxWait,
	}
}

// Exponential waits Multiplier * 2^(n-1) after the n-th failure, clamped into
// [MinWait, MaxWait].
type Exponential struct {
	Policy
	failures int
}

func (b *Exponential) Reset() {
	b.failures = 0
}

func (b *Exponential) NextBackOff() time.Duration {
	b.failures++
	wait := time.Duration(float64(b.Multiplier) * math.Pow(2, float64(b.failures-1)))
	if wait < b.MinWait || wait < 0 {
		wait = b.MinWait
	}
	if b.MaxWait > 0 && wait > b.MaxWait {
		wait = b.MaxWait
	}
	return wait
}

type State string

const (
	StateAttempting State = "attempting"
	StateWaiting    State = "waiting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Event reports a state change of one retried call.
type Event struct {
	State   State
	Attempt int
	Err     error
	Wait    time.Duration
}

type Operation[T any] func(ctx context.Context, attempt int) (T, error)

type Retrier struct {
	Policy  Policy
	Logger  zerolog.Logger
	OnError func(attempt int, err error)
	OnEvent func(Event)
}

func (r *Retrier) emit(ev Event) {
	if r.OnEvent != nil {
		r.OnEvent(ev)
	}
}

// Do runs op until it succeeds, fails with a ConfigurationError, the context
// ends or MaxAttempts attempts have failed. It returns the last error and the
// number of attempts made.
func Do[T any](ctx context.Context, r *Retrier, op Operation[T]) (T, int, error) {
	policy := r.Policy
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		r.emit(Event{State: StateAttempting, Attempt: attempt})
		res, err := op(ctx, attempt)
		if err == nil {
			return res, nil
		}

		r.Logger.Debug().Err(err).Int("attempt", attempt).Int("max_attempts", policy.MaxAttempts).Msg("attempt failed")
		if r.OnError != nil {
			r.OnError(attempt, err)
		}
		if core.IsConfigurationError(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&Exponential{Policy: policy}),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.Logger.Warn().Int("attempt", attempt).Dur("wait", wait).Msg("retrying simulation")
			r.emit(Event{State: StateWaiting, Attempt: attempt, Err: err, Wait: wait})
		}),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.Logger.Warn().Err(err).Int("attempt", attempt).Msg("simulation abandoned")
		}
		r.emit(Event{State: StateFailed, Attempt: attempt, Err: err})
		return res, attempt, err
	}
	r.emit(Event{State: StateSucceeded, Attempt: attempt})
	return res, attempt, nil
}

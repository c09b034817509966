package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestDecorrCapsSleepDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bo := NewDecorr(time.Second, 2*time.Second, clock)

	done := make(chan error, 1)
	go func() { done <- bo.Do(context.Background()) }()

	clock.BlockUntil(1)
	clock.Advance(2 * time.Second)

	require.NoError(t, <-done)
}

func TestDecorrReturnsContextError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	bo := NewDecorr(time.Second, 10*time.Second, clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bo.Do(ctx)
	require.Error(t, err)
}

func TestPolicyRunStopsOnSuccess(t *testing.T) {
	p := Policy{MaxAttempts: 5, Base: time.Millisecond, Cap: time.Millisecond, Clock: clockwork.NewFakeClockAt(time.Now())}
	calls := 0

	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestPolicyRunRetriesUpToMaxAttempts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := Policy{MaxAttempts: 3, Base: time.Millisecond, Cap: time.Millisecond, Clock: clock}
	calls := 0
	sentinel := errors.New("network unreachable")

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- p.Run(context.Background(), func(ctx context.Context) error {
			calls++
			return sentinel
		})
	}()

	// two retry sleeps happen between three attempts.
	for i := 0; i < 2; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Millisecond)
	}

	err := <-resultCh
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 3, calls)
}

func TestPolicyRunStopsImmediatelyWhenNonRetryable(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		Base:        time.Millisecond,
		Cap:         time.Millisecond,
		Clock:       clockwork.NewFakeClock(),
		Retryable:   func(err error) bool { return false },
	}
	calls := 0
	sentinel := errors.New("permission denied")

	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

func TestPolicyRunSingleAttemptWhenMaxAttemptsIsOne(t *testing.T) {
	p := Policy{MaxAttempts: 1, Base: time.Millisecond, Cap: time.Millisecond, Clock: clockwork.NewFakeClock()}
	calls := 0
	sentinel := errors.New("timeout")

	err := p.Run(context.Background(), func(ctx context.Context) error {
		calls++
		return sentinel
	})

	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}

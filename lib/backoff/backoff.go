/*
 * Copyright (C) 2023  Gravitational, Inc.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

// Package backoff implements the decorrelated-jitter retry algorithm used by
// lib/authzclient to retry transport failures against the authorization
// service.
package backoff

import (
	"context"
	"math/rand"
	"time"

	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

// Backoff is an interface to some (exponential) backoff algorithm.
type Backoff interface {
	Do(context.Context) error
}

// decorr is a "decorrelated jitter" backoff, https://aws.amazon.com/blogs/architecture/exponential-backoff-and-jitter/.
type decorr struct {
	base  int64
	cap   int64
	mul   int64
	sleep int64
	clock clockwork.Clock
}

// NewDecorr initializes an algorithm with the default multiplier of 3.
func NewDecorr(base, cap time.Duration, clock clockwork.Clock) Backoff {
	return NewDecorrWithMul(base, cap, 3, clock)
}

// NewDecorrWithMul initializes a backoff algorithm with a given multiplier.
func NewDecorrWithMul(base, cap time.Duration, mul int64, clock clockwork.Clock) Backoff {
	return &decorr{
		base:  int64(base),
		cap:   int64(cap),
		mul:   mul,
		sleep: int64(base),
		clock: clock,
	}
}

func (backoff *decorr) Do(ctx context.Context) error {
	backoff.sleep = backoff.base + rand.Int63n(backoff.sleep*backoff.mul-backoff.base)
	if backoff.sleep > backoff.cap {
		backoff.sleep = backoff.cap
	}
	select {
	case <-backoff.clock.After(time.Duration(backoff.sleep)):
		return nil
	case <-ctx.Done():
		return trace.Wrap(ctx.Err())
	}
}

// Policy bounds retries to a fixed attempt count and classifies which
// errors are worth retrying. The authorization client uses this to retry
// only network and timeout failures — never an authentication failure or a
// successfully parsed access decision (see SPEC_FULL.md §4.4; the C
// original never retries at all, this generalizes it with the bound the
// policy describes).
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	// MaxAttempts <= 1 disables retrying entirely.
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
	Clock       clockwork.Clock
	// Retryable reports whether err is worth retrying. A nil Retryable
	// retries every non-nil error.
	Retryable func(err error) bool
}

// Run invokes fn up to MaxAttempts times, sleeping with decorrelated jitter
// between attempts, stopping as soon as fn succeeds, ctx is cancelled, or an
// error is classified as non-retryable. It returns the last error observed.
func (p Policy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	bo := NewDecorr(p.Base, p.Cap, clock)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		if err := bo.Do(ctx); err != nil {
			return trace.Wrap(err)
		}
	}
	return lastErr
}

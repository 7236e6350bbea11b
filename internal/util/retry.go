/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package util

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls exponential backoff between attempts.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// InitialInterval is the wait after the first failure.
	InitialInterval time.Duration
	// MaxInterval caps the backoff interval.
	MaxInterval time.Duration
	// Multiplier grows the interval each retry.
	Multiplier float64
	// RandomizationFactor adds jitter in [interval*(1-f), interval*(1+f)].
	RandomizationFactor float64
}

// ConnectionRetryConfig returns the policy for establishing organization
// database connections. DDL is never retried; only connection setup goes
// through this. Sequence: immediate -> 2s -> 4s -> 8s.
func ConnectionRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          3,
		InitialInterval:     2 * time.Second,
		MaxInterval:         time.Minute,
		Multiplier:          2.0,
		RandomizationFactor: 0.2,
	}
}

func (c RetryConfig) next(current time.Duration) time.Duration {
	if current == 0 {
		current = c.InitialInterval
	} else {
		current = time.Duration(float64(current) * c.Multiplier)
	}
	if current > c.MaxInterval {
		current = c.MaxInterval
	}
	if c.RandomizationFactor > 0 {
		delta := c.RandomizationFactor * float64(current)
		current = time.Duration(float64(current) - delta + rand.Float64()*2*delta)
	}
	return current
}

// RetryResult is the outcome of a retried operation.
type RetryResult struct {
	Attempts  int
	LastError error
	TotalTime time.Duration
}

// RetryWithBackoff runs fn until it succeeds, returns a non-retryable
// error, the context ends, or the attempt budget is spent. The first
// attempt runs immediately.
func RetryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) RetryResult {
	start := time.Now()
	result := func(attempts int, err error) RetryResult {
		return RetryResult{Attempts: attempts, LastError: err, TotalTime: time.Since(start)}
	}

	var interval time.Duration
	var lastErr error
	for attempt := 1; attempt <= config.MaxRetries+1; attempt++ {
		if interval > 0 {
			select {
			case <-ctx.Done():
				return result(attempt-1, ctx.Err())
			case <-time.After(interval):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return result(attempt, nil)
		}
		if !IsRetryableError(lastErr) {
			return result(attempt, lastErr)
		}
		interval = config.next(interval)
	}
	return result(config.MaxRetries+1, lastErr)
}

// transientPatterns are error substrings worth retrying: network faults
// plus the states a Postgres server reports while starting or saturated.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection closed",
	"connection timed out",
	"no such host",
	"no route to host",
	"network is unreachable",
	"broken pipe",
	"i/o timeout",
	"deadline exceeded",
	"temporary failure",
	"too many connections",
	"the database system is starting up",
	"not currently accepting connections",
}

// IsRetryableError reports whether err looks transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

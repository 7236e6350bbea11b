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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:          3,
		InitialInterval:     5 * time.Millisecond,
		MaxInterval:         50 * time.Millisecond,
		Multiplier:          2.0,
		RandomizationFactor: 0,
	}
}

func TestRetrySucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		calls++
		return nil
	})

	require.NoError(t, result.LastError)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, result.LastError)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, calls)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		calls++
		return errors.New("i/o timeout")
	})

	require.Error(t, result.LastError)
	assert.Contains(t, result.LastError.Error(), "i/o timeout")
	assert.Equal(t, 4, result.Attempts)
	assert.Equal(t, 4, calls)
}

func TestRetryAbortsOnNonRetryableError(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), fastRetryConfig(), func() error {
		calls++
		return errors.New("syntax error at or near SELECT")
	})

	require.Error(t, result.LastError)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	config := fastRetryConfig()
	config.InitialInterval = time.Second
	config.MaxInterval = time.Second

	calls := 0
	result := RetryWithBackoff(ctx, config, func() error {
		calls++
		cancel()
		return errors.New("connection reset")
	})

	require.Error(t, result.LastError)
	assert.ErrorIs(t, result.LastError, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
}

func TestRetryWithZeroRetriesRunsOnce(t *testing.T) {
	config := fastRetryConfig()
	config.MaxRetries = 0

	calls := 0
	result := RetryWithBackoff(context.Background(), config, func() error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, result.LastError)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp 10.0.0.1:5432: connection refused"), true},
		{"startup", errors.New("FATAL: the database system is starting up"), true},
		{"not accepting connections", errors.New("pq: the database is not currently accepting connections"), true},
		{"deadline", errors.New("context deadline exceeded"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"syntax error", errors.New("ERROR: syntax error at end of input"), false},
		{"permission denied", errors.New("ERROR: permission denied for schema openlattice"), false},
		{"case insensitive", errors.New("Connection Refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}

func TestConnectionRetryConfig(t *testing.T) {
	config := ConnectionRetryConfig()

	assert.Equal(t, 3, config.MaxRetries)
	assert.Equal(t, 2*time.Second, config.InitialInterval)
	assert.Equal(t, time.Minute, config.MaxInterval)
}

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

package indexing

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/metrics"
)

const expirationLockPrefix = "expiration_lock:"

// ExpirationLocks is the distributed per-entity-set lease that keeps
// concurrent indexer nodes from working the same entity set. Each lock
// value is its expiry timestamp in epoch milliseconds; a crashed holder's
// lock is reclaimed by the scavenger once that timestamp passes.
type ExpirationLocks struct {
	store    kvstore.Store
	duration time.Duration
	logger   *slog.Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewExpirationLocks builds the lease manager. Locks expire after
// duration unless refreshed.
func NewExpirationLocks(store kvstore.Store, duration time.Duration, logger *slog.Logger) *ExpirationLocks {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpirationLocks{store: store, duration: duration, logger: logger, now: time.Now}
}

func lockKey(entitySetID uuid.UUID) string {
	return expirationLockPrefix + entitySetID.String()
}

func (l *ExpirationLocks) expiryValue() string {
	return strconv.FormatInt(l.now().Add(l.duration).UnixMilli(), 10)
}

// TryLock attempts to acquire the lease for an entity set.
func (l *ExpirationLocks) TryLock(ctx context.Context, entitySetID uuid.UUID) (bool, error) {
	acquired, err := l.store.PutIfAbsent(ctx, lockKey(entitySetID), l.expiryValue(), l.duration)
	if err != nil {
		return false, err
	}
	if acquired {
		metrics.RecordLockAcquisition(metrics.StatusSuccess)
	} else {
		metrics.RecordLockAcquisition(metrics.StatusFailure)
	}
	return acquired, nil
}

// Refresh extends a held lease. Called between batches of long jobs.
func (l *ExpirationLocks) Refresh(ctx context.Context, entitySetID uuid.UUID) error {
	return l.store.Set(ctx, lockKey(entitySetID), l.expiryValue(), l.duration)
}

// Unlock releases the lease.
func (l *ExpirationLocks) Unlock(ctx context.Context, entitySetID uuid.UUID) error {
	return l.store.Delete(ctx, lockKey(entitySetID))
}

// Scavenge removes every lock whose expiry timestamp has passed. Runs
// periodically so locks orphaned by crashed holders self-heal.
func (l *ExpirationLocks) Scavenge(ctx context.Context) error {
	keys, err := l.store.Keys(ctx, expirationLockPrefix)
	if err != nil {
		return err
	}

	nowMillis := l.now().UnixMilli()
	removed := 0
	for _, key := range keys {
		value, found, err := l.store.Get(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		expiry, err := strconv.ParseInt(value, 10, 64)
		if err != nil || expiry < nowMillis {
			if err := l.store.Delete(ctx, key); err != nil {
				return err
			}
			removed++
		}
	}
	if removed > 0 {
		l.logger.Info("scavenged expired indexing locks", "count", removed)
	}
	return nil
}

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

// Package kvstore abstracts the distributed key-value maps the assembler
// shares across processes: expiration locks, permission role names and
// assembly records. Only these structures require cross-process
// coordination; everything else is process-local and rebuilt on demand.
package kvstore

import (
	"context"
	"time"
)

// Store is a minimal distributed map: get, set, put-if-absent, delete and
// prefix scan. TTL of zero means no expiry.
type Store interface {
	// Get returns the value for key; found is false when absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes key unconditionally.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// PutIfAbsent writes key only when absent; reports whether the write
	// happened.
	PutIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete removes key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

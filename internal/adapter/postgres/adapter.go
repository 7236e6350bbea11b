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

// Package postgres executes the assembler's DDL against a PostgreSQL
// database over a pooled connection. Idempotency is enforced at the SQL
// level (IF NOT EXISTS guards and DO blocks); there is no local cache of
// what has already been created.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-assembler/internal/adapter/types"
	"github.com/atlas-assembler/internal/util"
)

// DBPool is the subset of pgxpool.Pool the adapter uses. pgxmock's pool
// interface satisfies it, which is how the adapter is unit tested.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Ping(ctx context.Context) error
	Close()
}

// Adapter executes provisioning DDL against one PostgreSQL database.
type Adapter struct {
	config types.ConnectionConfig
	pool   DBPool
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewAdapter creates an adapter for the given connection config. Connect
// must be called before any other method.
func NewAdapter(config types.ConnectionConfig) *Adapter {
	return &Adapter{
		config: config,
		logger: slog.Default(),
	}
}

// NewAdapterWithPool creates an adapter over an existing pool. Used by
// tests and by callers that manage pool lifecycles themselves.
func NewAdapterWithPool(pool DBPool) *Adapter {
	return &Adapter{
		pool:   pool,
		logger: slog.Default(),
	}
}

// WithLogger replaces the adapter's logger.
func (a *Adapter) WithLogger(logger *slog.Logger) *Adapter {
	a.logger = logger
	return a
}

// buildConnectionString renders a keyword/value pgx connection string.
func (a *Adapter) buildConnectionString() string {
	parts := []string{
		fmt.Sprintf("host=%s", a.config.Host),
		fmt.Sprintf("port=%d", a.config.Port),
		fmt.Sprintf("dbname=%s", a.config.Database),
		fmt.Sprintf("user=%s", a.config.Username),
		fmt.Sprintf("password=%s", a.config.Password),
	}
	sslMode := a.config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslMode))
	if a.config.ApplicationName != "" {
		parts = append(parts, fmt.Sprintf("application_name=%s", a.config.ApplicationName))
	}
	if a.config.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", a.config.ConnectTimeout))
	}
	return strings.Join(parts, " ")
}

// Connect establishes the connection pool. Transient connection failures
// are retried with backoff; DDL issued later is never retried.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pool != nil {
		return nil // Already connected
	}

	poolConfig, err := pgxpool.ParseConfig(a.buildConnectionString())
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}
	if a.config.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = time.Duration(a.config.ConnectTimeout) * time.Second
	}

	var pool *pgxpool.Pool
	result := util.RetryWithBackoff(ctx, util.ConnectionRetryConfig(), func() error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if result.LastError != nil {
		return fmt.Errorf("failed to connect to %s:%d/%s after %d attempts: %w",
			a.config.Host, a.config.Port, a.config.Database, result.Attempts, result.LastError)
	}

	a.pool = pool
	return nil
}

// Close closes the connection pool.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

// Ping checks if the database connection is alive.
func (a *Adapter) Ping(ctx context.Context) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (a *Adapter) getPool() (DBPool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.pool == nil {
		return nil, fmt.Errorf("not connected")
	}
	return a.pool, nil
}

// Pool exposes the underlying connection pool for query-layer consumers.
func (a *Adapter) Pool() (DBPool, error) {
	return a.getPool()
}

// Exec runs a single statement.
func (a *Adapter) Exec(ctx context.Context, sql string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec failed: %w", err)
	}
	return nil
}

// ExecBatch queues all statements into one batch and executes it. The batch
// either succeeds as a whole or the failing statement's error is reported
// with its index.
func (a *Adapter) ExecBatch(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}
	pool, err := a.getPool()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for _, stmt := range stmts {
		batch.Queue(stmt)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range stmts {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch statement %d failed: %w", i, err)
		}
	}
	return results.Close()
}

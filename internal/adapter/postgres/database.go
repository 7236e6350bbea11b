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

package postgres

import (
	"context"
	"fmt"

	"github.com/atlas-assembler/internal/adapter/sqlbuilder"
	"github.com/atlas-assembler/internal/adapter/types"
)

// CreateDatabase creates a database owned by opts.Owner and revokes the
// default public grant. The existence check and creation are separate
// statements; a lost race surfaces as the driver's duplicate-database
// error, which callers treat as loud failure per the provisioning
// contract (CREATE DATABASE cannot run inside a DO block transaction).
func (a *Adapter) CreateDatabase(ctx context.Context, opts types.CreateDatabaseOptions) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}

	exists, err := a.DatabaseExists(ctx, opts.Name)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := pool.Exec(ctx, sqlbuilder.CreateDatabaseWithOwner(opts.Name, opts.Owner)); err != nil {
			return fmt.Errorf("failed to create database %s: %w", opts.Name, err)
		}
	}

	if _, err := pool.Exec(ctx, sqlbuilder.RevokeAllOnDatabaseFromPublic(opts.Name)); err != nil {
		return fmt.Errorf("failed to revoke public access on database %s: %w", opts.Name, err)
	}
	return nil
}

// DatabaseExists checks if a database exists.
func (a *Adapter) DatabaseExists(ctx context.Context, name string) (bool, error) {
	pool, err := a.getPool()
	if err != nil {
		return false, err
	}

	var exists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)",
		name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	return exists, nil
}

// CreateSchema creates a schema if absent.
func (a *Adapter) CreateSchema(ctx context.Context, schema string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.CreateSchemaIfNotExists(schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return nil
}

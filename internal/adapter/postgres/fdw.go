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
	"strings"

	"github.com/atlas-assembler/internal/adapter/sqlbuilder"
	"github.com/atlas-assembler/internal/adapter/types"
)

// HasForeignTablesInSchema reports whether any foreign tables exist in the
// given local schema. This is the coarse idempotency probe for FDW links:
// it does not detect a partially-completed link, only a populated one.
func (a *Adapter) HasForeignTablesInSchema(ctx context.Context, schema string) (bool, error) {
	pool, err := a.getPool()
	if err != nil {
		return false, err
	}

	var count int
	err = pool.QueryRow(ctx, sqlbuilder.CountForeignTablesInSchema, schema).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count foreign tables in %s: %w", schema, err)
	}
	return count > 0, nil
}

// SearchPath returns the connected role's search path.
func (a *Adapter) SearchPath(ctx context.Context) (string, error) {
	pool, err := a.getPool()
	if err != nil {
		return "", err
	}

	var searchPath string
	if err := pool.QueryRow(ctx, sqlbuilder.ShowSearchPath).Scan(&searchPath); err != nil {
		return "", fmt.Errorf("failed to read search path: %w", err)
	}
	return searchPath, nil
}

// LinkForeignDatabase imports opts.RemoteSchema of a remote database into
// opts.LocalSchema of the connected one via postgres_fdw.
//
// The remote URL is validated before anything is executed. If the local
// schema already holds foreign tables the link is assumed present and the
// call returns without re-running DDL. A search-path mismatch after setup
// is logged at error level, not raised.
func (a *Adapter) LinkForeignDatabase(ctx context.Context, opts types.ForeignServerOptions) error {
	remote, err := types.ParseDatabaseURL(opts.RemoteURL)
	if err != nil {
		return err
	}

	pool, err := a.getPool()
	if err != nil {
		return err
	}

	linked, err := a.HasForeignTablesInSchema(ctx, opts.LocalSchema)
	if err != nil {
		return err
	}
	if linked {
		a.logger.Info("fdw already exists, not re-creating",
			"server", opts.ServerName, "schema", opts.LocalSchema)
		return nil
	}

	searchPath, err := a.SearchPath(ctx)
	if err != nil {
		return err
	}
	if !searchPathContains(searchPath, opts.LocalSchema) {
		searchPath = searchPath + ", " + opts.LocalSchema
	}

	a.logger.Info("configuring fdw", "server", opts.ServerName,
		"remote_host", remote.Host, "remote_db", remote.Database)

	stmts := []string{
		sqlbuilder.CreateFDWExtension(),
		sqlbuilder.CreateForeignServer(opts.ServerName, remote.Host, remote.Database, remote.Port),
		sqlbuilder.CreateUserMapping(opts.LocalUsername, opts.ServerName, opts.RemoteUsername, opts.RemotePassword),
		sqlbuilder.CreateSchemaIfNotExists(opts.LocalSchema),
		sqlbuilder.ImportForeignSchema(opts.RemoteSchema, opts.RemoteTables, opts.ServerName, opts.LocalSchema),
		fmt.Sprintf("ALTER USER %s SET search_path TO %s", sqlbuilder.Ident(opts.LocalUsername), searchPath),
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("fdw setup statement failed for server %s: %w", opts.ServerName, err)
		}
	}

	// Soft verification only; the link is usable even when the role's
	// active search path was not refreshed.
	sp, err := a.SearchPath(ctx)
	if err != nil || !searchPathContains(sp, opts.LocalSchema) {
		a.logger.Error("bad search path after fdw setup",
			"search_path", sp, "expected_schema", opts.LocalSchema, "err", err)
	}
	return nil
}

func searchPathContains(searchPath, schema string) bool {
	for _, part := range strings.Split(searchPath, ",") {
		if strings.Trim(strings.TrimSpace(part), `"`) == schema {
			return true
		}
	}
	return false
}

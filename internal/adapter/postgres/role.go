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

// EnsureRole creates a NOLOGIN role if absent. The DO-block guard makes
// concurrent creation attempts race-safe at the SQL level.
func (a *Adapter) EnsureRole(ctx context.Context, opts types.EnsureRoleOptions) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.CreateRoleIfNotExists(opts.RoleName)); err != nil {
		return fmt.Errorf("failed to ensure role %s: %w", opts.RoleName, err)
	}
	return nil
}

// EnsureUser creates a LOGIN role with an encrypted password if absent.
func (a *Adapter) EnsureUser(ctx context.Context, opts types.EnsureUserOptions) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.CreateUserIfNotExists(opts.Username, opts.Password)); err != nil {
		return fmt.Errorf("failed to ensure user %s: %w", opts.Username, err)
	}
	return nil
}

// RoleExists checks if a role exists.
func (a *Adapter) RoleExists(ctx context.Context, roleName string) (bool, error) {
	pool, err := a.getPool()
	if err != nil {
		return false, err
	}

	var exists bool
	err = pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)",
		roleName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role existence: %w", err)
	}
	return exists, nil
}

// GrantRole grants role membership to a user or role.
func (a *Adapter) GrantRole(ctx context.Context, role, grantee string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.GrantRole(role, grantee)); err != nil {
		return fmt.Errorf("failed to grant role %s to %s: %w", role, grantee, err)
	}
	return nil
}

// GrantSchemaUsage grants USAGE on a schema to a user or role.
func (a *Adapter) GrantSchemaUsage(ctx context.Context, schema, grantee string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.GrantSchemaUsage(schema, grantee)); err != nil {
		return fmt.Errorf("failed to grant usage on schema %s to %s: %w", schema, grantee, err)
	}
	return nil
}

// RevokeSchemaUsage revokes USAGE on a schema. Used to keep users and
// roles out of the public schema, which holds foreign data wrapper tables.
func (a *Adapter) RevokeSchemaUsage(ctx context.Context, schema, grantee string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.RevokeSchemaUsage(schema, grantee)); err != nil {
		return fmt.Errorf("failed to revoke usage on schema %s from %s: %w", schema, grantee, err)
	}
	return nil
}

// SetRoleSearchPath sets the default search path for a role.
func (a *Adapter) SetRoleSearchPath(ctx context.Context, role string, schemas []string) error {
	pool, err := a.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, sqlbuilder.AlterRoleSearchPath(role, schemas)); err != nil {
		return fmt.Errorf("failed to set search path for %s: %w", role, err)
	}
	return nil
}

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

package assembler

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/kvstore"
)

const permissionRoleKeyPrefix = "permission_role:"

// PermissionRoleNames is the shared cache of generated external database
// role names, keyed by (target, permission). A name generated once for a
// pair is reused for the lifetime of that pair.
type PermissionRoleNames struct {
	store kvstore.Store
}

// NewPermissionRoleNames wraps the distributed store.
func NewPermissionRoleNames(store kvstore.Store) *PermissionRoleNames {
	return &PermissionRoleNames{store: store}
}

// GetOrCreate returns the database role name for target, generating and
// persisting a fresh one on first use. Concurrent first calls race on
// put-if-absent; both observe the winner's name.
func (p *PermissionRoleNames) GetOrCreate(ctx context.Context, target authorization.AccessTarget) (string, error) {
	key := permissionRoleKeyPrefix + target.String()

	candidate := uuid.New()
	created, err := p.store.PutIfAbsent(ctx, key, candidate.String(), 0)
	if err != nil {
		return "", fmt.Errorf("reserve permission role for %s: %w", target, err)
	}
	if created {
		return BuildPermissionRoleName(candidate), nil
	}

	value, found, err := p.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load permission role for %s: %w", target, err)
	}
	if !found {
		return "", fmt.Errorf("permission role for %s vanished after reservation", target)
	}
	roleID, err := uuid.Parse(value)
	if err != nil {
		return "", fmt.Errorf("corrupt permission role entry for %s: %w", target, err)
	}
	return BuildPermissionRoleName(roleID), nil
}

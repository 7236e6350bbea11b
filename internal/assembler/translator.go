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
	"sort"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/adapter/sqlbuilder"
	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
)

// PermissionTranslator turns the authorization model's READ grants into
// column-scoped SQL GRANT statements. A principal receives a column iff
// it holds READ on both the entity set and that column's property type.
type PermissionTranslator struct {
	principals authorization.PrincipalsManager
}

// NewPermissionTranslator builds a translator over the external
// principals manager.
func NewPermissionTranslator(principals authorization.PrincipalsManager) *PermissionTranslator {
	return &PermissionTranslator{principals: principals}
}

// TranslateReadGrants computes the GRANT statements for one materialized
// entity set. The statement order is deterministic: principals sorted by
// resolved grantee name, columns sorted by property type id. Principals
// whose resulting column set is empty are skipped.
func (t *PermissionTranslator) TranslateReadGrants(
	ctx context.Context,
	entitySet edm.EntitySet,
	authorizedPropertyTypes map[uuid.UUID]edm.PropertyType,
) ([]string, error) {
	readers, err := t.principals.AuthorizedPrincipals(ctx, authorization.NewAclKey(entitySet.ID), authorization.Read)
	if err != nil {
		return nil, fmt.Errorf("resolve readers of entity set %s: %w", entitySet.ID, err)
	}

	// Per-column reader sets, keyed by the rendered grantee name.
	columnReaders := make(map[uuid.UUID]map[string]bool, len(authorizedPropertyTypes))
	for ptID := range authorizedPropertyTypes {
		key := authorization.NewAclKey(entitySet.ID, ptID)
		holders, err := t.principals.AuthorizedPrincipals(ctx, key, authorization.Read)
		if err != nil {
			return nil, fmt.Errorf("resolve readers of %s: %w", key, err)
		}
		names := make(map[string]bool, len(holders))
		for _, holder := range holders {
			name, ok, err := t.granteeName(ctx, holder)
			if err != nil {
				return nil, err
			}
			if ok {
				names[name] = true
			}
		}
		columnReaders[ptID] = names
	}

	columnsByGrantee := make(map[string][]string)
	for _, reader := range readers {
		grantee, ok, err := t.granteeName(ctx, reader)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		columns := t.authorizedColumns(grantee, authorizedPropertyTypes, columnReaders)
		if len(columns) > 0 {
			columnsByGrantee[grantee] = columns
		}
	}

	grantees := make([]string, 0, len(columnsByGrantee))
	for grantee := range columnsByGrantee {
		grantees = append(grantees, grantee)
	}
	sort.Strings(grantees)

	statements := make([]string, 0, len(grantees))
	for _, grantee := range grantees {
		stmt, err := sqlbuilder.GrantColumnSelect(Schema, entitySet.Name, columnsByGrantee[grantee], grantee)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// granteeName resolves a principal to the database identity grants target.
// Organization principals and other non-user, non-role kinds have no
// database identity and are skipped.
func (t *PermissionTranslator) granteeName(ctx context.Context, principal authorization.Principal) (string, bool, error) {
	switch principal.Type {
	case authorization.UserPrincipal:
		return principal.ID, true, nil
	case authorization.RolePrincipal:
		role, err := t.principals.LookupRole(ctx, principal)
		if err != nil {
			return "", false, fmt.Errorf("resolve role principal %s: %w", principal.ID, err)
		}
		return BuildSQLRoleName(role), true, nil
	default:
		return "", false, nil
	}
}

// authorizedColumns intersects entity-set-level access with per-column
// access, ordered by property type id for stable output.
func (t *PermissionTranslator) authorizedColumns(
	grantee string,
	propertyTypes map[uuid.UUID]edm.PropertyType,
	columnReaders map[uuid.UUID]map[string]bool,
) []string {
	ids := make([]uuid.UUID, 0, len(propertyTypes))
	for id := range propertyTypes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var columns []string
	for _, id := range ids {
		if columnReaders[id][grantee] {
			columns = append(columns, propertyTypes[id].Type)
		}
	}
	return columns
}

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

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
)

// Organization is the tenant a private database is provisioned for. The
// organization principal's id doubles as the database name.
type Organization struct {
	ID        uuid.UUID
	Principal authorization.Principal
	Members   []authorization.Principal
}

// OrganizationService is the external organization registry.
type OrganizationService interface {
	GetOrganization(ctx context.Context, id uuid.UUID) (Organization, error)
}

// QueryBuilder renders the projection query an entity set materialization
// wraps in a view. Query construction is a separate collaborator; the
// assembler only consumes its output.
type QueryBuilder interface {
	SelectEntitySetWithPropertyTypes(entitySet edm.EntitySet, authorizedPropertyTypes map[uuid.UUID]edm.PropertyType) (string, error)
}

// OrganizationEntitySetFlag reports the state of one entity set within an
// organization after materialization.
type OrganizationEntitySetFlag string

const (
	// Materialized marks an entity set with a view in the organization's
	// database.
	Materialized OrganizationEntitySetFlag = "MATERIALIZED"
	// Internal marks an entity set whose home organization is the one it
	// is materialized into.
	Internal OrganizationEntitySetFlag = "INTERNAL"
)

// OrganizationAssembly records what is currently materialized into one
// organization's database. The entity set id list is the source of truth
// for which views exist; divergence is resolved by re-running
// materialization, never by editing the record.
type OrganizationAssembly struct {
	OrganizationID uuid.UUID   `json:"organizationId"`
	PrincipalID    string      `json:"principalId"`
	Initialized    bool        `json:"initialized"`
	EntitySetIDs   []uuid.UUID `json:"entitySetIds"`
}

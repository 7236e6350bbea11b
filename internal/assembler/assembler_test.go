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
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/service"
)

type assemblerFixture struct {
	assembler *Assembler
	store     kvstore.Store
	registry  *fakeRegistry
	orgMock   pgxmock.PgxPoolIface
}

func newAssemblerFixture(t *testing.T, orgID uuid.UUID) *assemblerFixture {
	t.Helper()

	store := newMiniredisStore(t)
	registry := &fakeRegistry{
		entitySets:    map[uuid.UUID]edm.EntitySet{},
		entityTypes:   map[uuid.UUID]edm.EntityType{},
		propertyTypes: map[uuid.UUID]edm.PropertyType{},
	}
	orgs := &fakeOrganizations{orgs: map[uuid.UUID]Organization{
		orgID: {
			ID:        orgID,
			Principal: authorization.Principal{Type: authorization.OrganizationPrincipal, ID: "org_acme"},
		},
	}}

	cm, _ := newTestManager(t, orgs, nil)
	orgMock, err := pgxmock.NewPool()
	require.NoError(t, err)
	orgMock.MatchExpectationsInOrder(false)
	cm.connect = func(_ context.Context, dbname string) (*postgres.Adapter, error) {
		return postgres.NewAdapterWithPool(orgMock), nil
	}

	materializer := NewMaterializer(
		&fakeQueryBuilder{query: "SELECT 1"},
		NewPermissionTranslator(newFakePrincipals()),
		nil,
	)

	assembler, err := NewAssembler(cm, materializer, registry, store, nil)
	require.NoError(t, err)
	return &assemblerFixture{
		assembler: assembler,
		store:     store,
		registry:  registry,
		orgMock:   orgMock,
	}
}

func TestNewAssemblerRejectsMissingCollaborators(t *testing.T) {
	_, err := NewAssembler(nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestCreateOrganizationRejectsDuplicates(t *testing.T) {
	orgID := uuid.New()
	f := newAssemblerFixture(t, orgID)
	ctx := context.Background()

	// Provisioning runs in the background against an org service that
	// does not know this second organization, so only the record matters.
	org := Organization{
		ID:        orgID,
		Principal: authorization.Principal{Type: authorization.OrganizationPrincipal, ID: "org_acme"},
	}
	require.NoError(t, f.assembler.CreateOrganization(ctx, org))

	err := f.assembler.CreateOrganization(ctx, org)
	assert.ErrorIs(t, err, service.ErrAlreadyExists)
}

func TestGetOrganizationAssemblyMissing(t *testing.T) {
	f := newAssemblerFixture(t, uuid.New())

	_, err := f.assembler.GetOrganizationAssembly(context.Background(), uuid.New())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestMaterializeEntitySetsFlagsAndRecords(t *testing.T) {
	orgID := uuid.New()
	otherOrgID := uuid.New()
	f := newAssemblerFixture(t, orgID)
	ctx := context.Background()

	internalES := edm.EntitySet{ID: uuid.New(), Name: "employees", OrganizationID: orgID}
	externalES := edm.EntitySet{ID: uuid.New(), Name: "visitors", OrganizationID: otherOrgID}
	f.registry.entitySets[internalES.ID] = internalES
	f.registry.entitySets[externalES.ID] = externalES

	require.NoError(t, f.assembler.saveAssembly(ctx, OrganizationAssembly{
		OrganizationID: orgID,
		PrincipalID:    "org_acme",
		Initialized:    true,
	}))

	for _, name := range []string{"employees", "visitors"} {
		f.orgMock.ExpectExec(fmt.Sprintf(
			`CREATE MATERIALIZED VIEW IF NOT EXISTS "openlattice"\."%s" AS SELECT 1`, name)).
			WillReturnResult(pgxmock.NewResult("CREATE MATERIALIZED VIEW", 0))
	}

	flags, err := f.assembler.MaterializeEntitySets(ctx, orgID, map[uuid.UUID]map[uuid.UUID]edm.PropertyType{
		internalES.ID: {},
		externalES.ID: {},
	})
	require.NoError(t, err)
	require.NoError(t, f.orgMock.ExpectationsWereMet())

	assert.ElementsMatch(t, []OrganizationEntitySetFlag{Materialized, Internal}, flags[internalES.ID])
	assert.Equal(t, []OrganizationEntitySetFlag{Materialized}, flags[externalES.ID])

	materialized, err := f.assembler.GetMaterializedEntitySets(ctx, orgID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{internalES.ID, externalES.ID}, materialized)
}

func TestMaterializeEntitySetsRequiresAssembly(t *testing.T) {
	f := newAssemblerFixture(t, uuid.New())

	_, err := f.assembler.MaterializeEntitySets(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDematerializeEntitySetsUpdatesRecord(t *testing.T) {
	orgID := uuid.New()
	f := newAssemblerFixture(t, orgID)
	ctx := context.Background()

	keep := edm.EntitySet{ID: uuid.New(), Name: "employees", OrganizationID: orgID}
	drop := edm.EntitySet{ID: uuid.New(), Name: "visitors", OrganizationID: orgID}
	f.registry.entitySets[keep.ID] = keep
	f.registry.entitySets[drop.ID] = drop

	require.NoError(t, f.assembler.saveAssembly(ctx, OrganizationAssembly{
		OrganizationID: orgID,
		PrincipalID:    "org_acme",
		Initialized:    true,
		EntitySetIDs:   []uuid.UUID{keep.ID, drop.ID},
	}))

	batch := f.orgMock.ExpectBatch()
	batch.ExpectExec(`DROP MATERIALIZED VIEW IF EXISTS "openlattice"\."visitors"`).
		WillReturnResult(pgxmock.NewResult("DROP MATERIALIZED VIEW", 0))

	require.NoError(t, f.assembler.DematerializeEntitySets(ctx, orgID, []uuid.UUID{drop.ID}))
	require.NoError(t, f.orgMock.ExpectationsWereMet())

	materialized, err := f.assembler.GetMaterializedEntitySets(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{keep.ID}, materialized)
}

func TestDeleteOrganizationAssembly(t *testing.T) {
	orgID := uuid.New()
	f := newAssemblerFixture(t, orgID)
	ctx := context.Background()

	require.NoError(t, f.assembler.saveAssembly(ctx, OrganizationAssembly{
		OrganizationID: orgID,
		PrincipalID:    "org_acme",
	}))
	require.NoError(t, f.assembler.DeleteOrganizationAssembly(ctx, orgID))

	_, err := f.assembler.GetOrganizationAssembly(ctx, orgID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

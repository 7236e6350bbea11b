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
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/service"
)

func TestMaterializeCreatesViewAndGrants(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	alice := authorization.Principal{Type: authorization.UserPrincipal, ID: "alice"}
	principals := newFakePrincipals()
	principals.grantRead(authorization.NewAclKey(entitySet.ID), alice)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, firstNameID), alice)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, lastNameID), alice)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		`CREATE MATERIALIZED VIEW IF NOT EXISTS "openlattice"."employees" AS SELECT 1`)).
		WillReturnResult(pgxmock.NewResult("CREATE MATERIALIZED VIEW", 0))
	batch := mock.ExpectBatch()
	batch.ExpectExec(regexp.QuoteMeta(
		`GRANT SELECT ("first_name","last_name") ON "openlattice"."employees" TO "alice"`)).
		WillReturnResult(pgxmock.NewResult("GRANT", 0))

	materializer := NewMaterializer(
		&fakeQueryBuilder{query: "SELECT 1"},
		NewPermissionTranslator(principals),
		nil,
	)

	orgDB := postgres.NewAdapterWithPool(mock)
	err = materializer.Materialize(context.Background(), orgDB, entitySet, propertyTypes)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterializeFailsWhenQueryBuilderFails(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	materializer := NewMaterializer(
		&fakeQueryBuilder{err: errors.New("unknown entity type")},
		NewPermissionTranslator(newFakePrincipals()),
		nil,
	)

	orgDB := postgres.NewAdapterWithPool(mock)
	err = materializer.Materialize(context.Background(), orgDB, entitySet, propertyTypes)
	require.ErrorContains(t, err, "build projection query")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterializeEdgesIsNotImplemented(t *testing.T) {
	materializer := NewMaterializer(
		&fakeQueryBuilder{query: "SELECT 1"},
		NewPermissionTranslator(newFakePrincipals()),
		nil,
	)
	err := materializer.MaterializeEdges(context.Background(), nil, nil)
	assert.ErrorIs(t, err, service.ErrNotImplemented)
}

func TestDematerializeDropsEveryView(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := mock.ExpectBatch()
	batch.ExpectExec(regexp.QuoteMeta(`DROP MATERIALIZED VIEW IF EXISTS "openlattice"."employees"`)).
		WillReturnResult(pgxmock.NewResult("DROP MATERIALIZED VIEW", 0))
	batch.ExpectExec(regexp.QuoteMeta(`DROP MATERIALIZED VIEW IF EXISTS "openlattice"."badges"`)).
		WillReturnResult(pgxmock.NewResult("DROP MATERIALIZED VIEW", 0))

	materializer := NewMaterializer(
		&fakeQueryBuilder{query: "SELECT 1"},
		NewPermissionTranslator(newFakePrincipals()),
		nil,
	)

	orgDB := postgres.NewAdapterWithPool(mock)
	err = materializer.DematerializeEntitySets(context.Background(), orgDB, []edm.EntitySet{
		{Name: "employees"},
		{Name: "badges"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

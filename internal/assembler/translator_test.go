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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
)

var (
	translatorEntitySetID = uuid.MustParse("aaaaaaaa-1111-1111-1111-111111111111")
	firstNameID           = uuid.MustParse("11111111-0000-0000-0000-000000000001")
	lastNameID            = uuid.MustParse("22222222-0000-0000-0000-000000000002")
)

func translatorFixture() (edm.EntitySet, map[uuid.UUID]edm.PropertyType) {
	entitySet := edm.EntitySet{
		ID:   translatorEntitySetID,
		Name: "employees",
	}
	propertyTypes := map[uuid.UUID]edm.PropertyType{
		firstNameID: {ID: firstNameID, Type: "first_name", Datatype: edm.StringDatatype},
		lastNameID:  {ID: lastNameID, Type: "last_name", Datatype: edm.StringDatatype},
	}
	return entitySet, propertyTypes
}

func TestTranslateReadGrantsIntersectsSetAndColumnAccess(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	alice := authorization.Principal{Type: authorization.UserPrincipal, ID: "alice"}
	rolePrincipal := authorization.Principal{Type: authorization.RolePrincipal, ID: "readers"}
	role := authorization.Role{
		ID:        uuid.MustParse("33333333-0000-0000-0000-000000000003"),
		Principal: rolePrincipal,
		Title:     "Readers",
	}

	principals := newFakePrincipals()
	principals.addRole(role)
	principals.grantRead(authorization.NewAclKey(entitySet.ID), alice, rolePrincipal)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, firstNameID), alice, rolePrincipal)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, lastNameID), alice)

	translator := NewPermissionTranslator(principals)
	grants, err := translator.TranslateReadGrants(context.Background(), entitySet, propertyTypes)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`GRANT SELECT ("first_name","last_name") ON "openlattice"."employees" TO "alice"`,
		`GRANT SELECT ("first_name") ON "openlattice"."employees" TO "ol-internal|role|33333333-0000-0000-0000-000000000003"`,
	}, grants)
}

func TestTranslateReadGrantsSkipsPrincipalsWithoutColumns(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	bob := authorization.Principal{Type: authorization.UserPrincipal, ID: "bob"}
	principals := newFakePrincipals()
	// Bob can read the entity set but no property type.
	principals.grantRead(authorization.NewAclKey(entitySet.ID), bob)

	translator := NewPermissionTranslator(principals)
	grants, err := translator.TranslateReadGrants(context.Background(), entitySet, propertyTypes)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestTranslateReadGrantsIgnoresOrganizationPrincipals(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	org := authorization.Principal{Type: authorization.OrganizationPrincipal, ID: "org_db"}
	principals := newFakePrincipals()
	principals.grantRead(authorization.NewAclKey(entitySet.ID), org)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, firstNameID), org)

	translator := NewPermissionTranslator(principals)
	grants, err := translator.TranslateReadGrants(context.Background(), entitySet, propertyTypes)
	require.NoError(t, err)
	assert.Empty(t, grants)
}

func TestTranslateReadGrantsIsDeterministic(t *testing.T) {
	entitySet, propertyTypes := translatorFixture()

	principals := newFakePrincipals()
	users := []authorization.Principal{
		{Type: authorization.UserPrincipal, ID: "carol"},
		{Type: authorization.UserPrincipal, ID: "alice"},
		{Type: authorization.UserPrincipal, ID: "bob"},
	}
	principals.grantRead(authorization.NewAclKey(entitySet.ID), users...)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, firstNameID), users...)
	principals.grantRead(authorization.NewAclKey(entitySet.ID, lastNameID), users...)

	translator := NewPermissionTranslator(principals)

	first, err := translator.TranslateReadGrants(context.Background(), entitySet, propertyTypes)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Contains(t, first[0], `TO "alice"`)
	assert.Contains(t, first[1], `TO "bob"`)
	assert.Contains(t, first[2], `TO "carol"`)

	for range 10 {
		again, err := translator.TranslateReadGrants(context.Background(), entitySet, propertyTypes)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

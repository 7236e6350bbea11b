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
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-assembler/internal/authorization"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := newMiniredisStore(t)
	names := NewPermissionRoleNames(store)
	ctx := context.Background()

	target := authorization.ForPermissionOnTarget(authorization.Read, uuid.New(), uuid.New())

	first, err := names.GetOrCreate(ctx, target)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first, "ol-internal|permission_role|"))

	second, err := names.GetOrCreate(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGetOrCreateDistinctTargetsGetDistinctNames(t *testing.T) {
	store := newMiniredisStore(t)
	names := NewPermissionRoleNames(store)
	ctx := context.Background()

	object := uuid.New()
	read := authorization.ForPermissionOnTarget(authorization.Read, object)
	write := authorization.ForPermissionOnTarget(authorization.Write, object)

	readName, err := names.GetOrCreate(ctx, read)
	require.NoError(t, err)
	writeName, err := names.GetOrCreate(ctx, write)
	require.NoError(t, err)
	assert.NotEqual(t, readName, writeName)
}

func TestGetOrCreateReturnsRaceWinnersName(t *testing.T) {
	store := newMiniredisStore(t)
	names := NewPermissionRoleNames(store)
	ctx := context.Background()

	target := authorization.ForPermissionOnTarget(authorization.Materialize, uuid.New())
	winner := uuid.MustParse("99999999-8888-7777-6666-555555555555")
	require.NoError(t, store.Set(ctx, "permission_role:"+target.String(), winner.String(), 0))

	name, err := names.GetOrCreate(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, BuildPermissionRoleName(winner), name)
}

func TestGetOrCreateRejectsCorruptEntry(t *testing.T) {
	store := newMiniredisStore(t)
	names := NewPermissionRoleNames(store)
	ctx := context.Background()

	target := authorization.ForPermissionOnTarget(authorization.Owner, uuid.New())
	require.NoError(t, store.Set(ctx, "permission_role:"+target.String(), "not-a-uuid", 0))

	_, err := names.GetOrCreate(ctx, target)
	assert.ErrorContains(t, err, "corrupt permission role entry")
}

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

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/service"
)

func newMiniredisStore(t *testing.T) kvstore.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return kvstore.NewRedisStoreWithClient(client)
}

// fakePrincipals is an in-memory PrincipalsManager. Grants are keyed by
// AclKey string; only READ is consulted by the translator.
type fakePrincipals struct {
	readers map[string][]authorization.Principal
	roles   map[string]authorization.Role
	users   []authorization.Principal
}

func newFakePrincipals() *fakePrincipals {
	return &fakePrincipals{
		readers: make(map[string][]authorization.Principal),
		roles:   make(map[string]authorization.Role),
	}
}

func (f *fakePrincipals) grantRead(key authorization.AclKey, principals ...authorization.Principal) {
	f.readers[key.String()] = append(f.readers[key.String()], principals...)
}

func (f *fakePrincipals) addRole(role authorization.Role) {
	f.roles[role.Principal.ID] = role
}

func (f *fakePrincipals) AuthorizedPrincipals(_ context.Context, key authorization.AclKey, _ authorization.Permission) ([]authorization.Principal, error) {
	return f.readers[key.String()], nil
}

func (f *fakePrincipals) AllRoles(_ context.Context) ([]authorization.Role, error) {
	roles := make([]authorization.Role, 0, len(f.roles))
	for _, role := range f.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (f *fakePrincipals) AllUsers(_ context.Context) ([]authorization.Principal, error) {
	return f.users, nil
}

func (f *fakePrincipals) LookupRole(_ context.Context, principal authorization.Principal) (authorization.Role, error) {
	role, ok := f.roles[principal.ID]
	if !ok {
		return authorization.Role{}, fmt.Errorf("role %s: %w", principal.ID, service.ErrNotFound)
	}
	return role, nil
}

// fakeOrganizations serves a fixed set of organizations.
type fakeOrganizations struct {
	orgs map[uuid.UUID]Organization
}

func (f *fakeOrganizations) GetOrganization(_ context.Context, id uuid.UUID) (Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return Organization{}, fmt.Errorf("organization %s: %w", id, service.ErrNotFound)
	}
	return org, nil
}

// fakeCredentials mints a fixed password for every account.
type fakeCredentials struct {
	password string
	minted   []string
}

func (f *fakeCredentials) CreateUserIfNotExists(_ context.Context, username string) (string, error) {
	f.minted = append(f.minted, username)
	return f.password, nil
}

func (f *fakeCredentials) GetCredential(_ context.Context, username string) (string, error) {
	return f.password, nil
}

// fakeRegistry serves fixed entity sets and types.
type fakeRegistry struct {
	entitySets    map[uuid.UUID]edm.EntitySet
	entityTypes   map[uuid.UUID]edm.EntityType
	propertyTypes map[uuid.UUID]edm.PropertyType
}

func (f *fakeRegistry) GetEntitySet(_ context.Context, id uuid.UUID) (edm.EntitySet, error) {
	es, ok := f.entitySets[id]
	if !ok {
		return edm.EntitySet{}, fmt.Errorf("entity set %s: %w", id, service.ErrNotFound)
	}
	return es, nil
}

func (f *fakeRegistry) AllEntitySets(_ context.Context) ([]edm.EntitySet, error) {
	sets := make([]edm.EntitySet, 0, len(f.entitySets))
	for _, es := range f.entitySets {
		sets = append(sets, es)
	}
	return sets, nil
}

func (f *fakeRegistry) GetEntityType(_ context.Context, id uuid.UUID) (edm.EntityType, error) {
	et, ok := f.entityTypes[id]
	if !ok {
		return edm.EntityType{}, fmt.Errorf("entity type %s: %w", id, service.ErrNotFound)
	}
	return et, nil
}

func (f *fakeRegistry) AllEntityTypes(_ context.Context) ([]edm.EntityType, error) {
	types := make([]edm.EntityType, 0, len(f.entityTypes))
	for _, et := range f.entityTypes {
		types = append(types, et)
	}
	return types, nil
}

func (f *fakeRegistry) GetPropertyTypes(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]edm.PropertyType, error) {
	result := make(map[uuid.UUID]edm.PropertyType, len(ids))
	for _, id := range ids {
		pt, ok := f.propertyTypes[id]
		if !ok {
			return nil, fmt.Errorf("property type %s: %w", id, service.ErrNotFound)
		}
		result[id] = pt
	}
	return result, nil
}

// fakeQueryBuilder returns a canned projection query.
type fakeQueryBuilder struct {
	query string
	err   error
}

func (f *fakeQueryBuilder) SelectEntitySetWithPropertyTypes(edm.EntitySet, map[uuid.UUID]edm.PropertyType) (string, error) {
	return f.query, f.err
}

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

// Package authorization defines the principal and permission model the
// assembler translates into database grants. The managers that own this
// data are external collaborators; only their interfaces live here.
package authorization

import (
	"strings"

	"github.com/google/uuid"
)

// Permission is a single right on a securable object.
type Permission string

const (
	Discover    Permission = "DISCOVER"
	Link        Permission = "LINK"
	Read        Permission = "READ"
	Write       Permission = "WRITE"
	Owner       Permission = "OWNER"
	Materialize Permission = "MATERIALIZE"
)

// AllPermissions is the full permission set granted to a creating principal.
func AllPermissions() []Permission {
	return []Permission{Discover, Link, Read, Write, Owner, Materialize}
}

// PrincipalType discriminates the identity kinds the system grants to.
type PrincipalType string

const (
	UserPrincipal         PrincipalType = "USER"
	RolePrincipal         PrincipalType = "ROLE"
	OrganizationPrincipal PrincipalType = "ORGANIZATION"
)

// Principal is an identity permissions are granted to.
type Principal struct {
	Type PrincipalType
	ID   string
}

// Role is a securable principal of type ROLE with a stable id used to
// derive its database role name.
type Role struct {
	ID        uuid.UUID
	Principal Principal
	Title     string
}

// AclKey is a path-shaped identifier naming a securable object or
// sub-object, e.g. [entitySetID] or [entitySetID, propertyTypeID].
// Immutable once constructed.
type AclKey []uuid.UUID

// NewAclKey constructs an AclKey from a root id and ordered sub-ids.
func NewAclKey(ids ...uuid.UUID) AclKey {
	key := make(AclKey, len(ids))
	copy(key, ids)
	return key
}

// Root returns the first id of the key.
func (k AclKey) Root() uuid.UUID {
	return k[0]
}

// Last returns the final id of the key.
func (k AclKey) Last() uuid.UUID {
	return k[len(k)-1]
}

// String renders the key as slash-joined UUIDs; used as a map key in
// external stores.
func (k AclKey) String() string {
	parts := make([]string, len(k))
	for i, id := range k {
		parts[i] = id.String()
	}
	return strings.Join(parts, "/")
}

// AccessTarget names a (securable object, permission) pair, the unit of
// permission-role-name generation.
type AccessTarget struct {
	AclKey     AclKey
	Permission Permission
}

// ForPermissionOnTarget builds an AccessTarget for a permission on the
// object named by root and parts.
func ForPermissionOnTarget(permission Permission, root uuid.UUID, parts ...uuid.UUID) AccessTarget {
	return AccessTarget{
		AclKey:     NewAclKey(append([]uuid.UUID{root}, parts...)...),
		Permission: permission,
	}
}

// String renders a stable key for the target.
func (t AccessTarget) String() string {
	return t.AclKey.String() + "#" + string(t.Permission)
}

// SecurableObjectType categorizes securable objects.
type SecurableObjectType string

const (
	EntitySetObject                SecurableObjectType = "EntitySet"
	PropertyTypeInEntitySetObject  SecurableObjectType = "PropertyTypeInEntitySet"
	JdbcConnectionParametersObject SecurableObjectType = "JdbcConnectionParameters"
	OrganizationObject             SecurableObjectType = "Organization"
)

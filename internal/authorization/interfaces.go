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

package authorization

import (
	"context"

	"github.com/google/uuid"
)

// Manager is the external authorization collaborator: permission checks,
// grants and revocations on securable objects.
type Manager interface {
	// CheckPermission reports whether principal holds permission on the
	// object named by key.
	CheckPermission(ctx context.Context, key AclKey, principal Principal, permission Permission) (bool, error)

	// AddPermission grants permissions to principal on the object.
	AddPermission(ctx context.Context, key AclKey, principal Principal, permissions []Permission) error

	// DeletePermissions removes all permissions on the object.
	DeletePermissions(ctx context.Context, key AclKey) error

	// SetSecurableObjectType records the category of a securable object.
	SetSecurableObjectType(ctx context.Context, key AclKey, objectType SecurableObjectType) error
}

// PrincipalsManager is the external principal/role collaborator.
type PrincipalsManager interface {
	// AuthorizedPrincipals returns the principals holding permission on
	// the object named by key.
	AuthorizedPrincipals(ctx context.Context, key AclKey, permission Permission) ([]Principal, error)

	// AllRoles enumerates every role principal.
	AllRoles(ctx context.Context) ([]Role, error)

	// AllUsers enumerates every user principal.
	AllUsers(ctx context.Context) ([]Principal, error)

	// LookupRole resolves a role principal to its full role record.
	LookupRole(ctx context.Context, principal Principal) (Role, error)
}

// ReservationService owns the global id/name reservations backing
// securable object creation.
type ReservationService interface {
	// Reserve claims id under name; an existing reservation is an error.
	Reserve(ctx context.Context, id uuid.UUID, name string) error

	// Release frees the reservation for id.
	Release(ctx context.Context, id uuid.UUID) error
}

// CredentialService issues and stores database credentials for derived
// user accounts.
type CredentialService interface {
	// CreateUserIfNotExists returns the credential for username, minting
	// one if absent.
	CreateUserIfNotExists(ctx context.Context, username string) (string, error)

	// GetCredential returns the stored credential for username.
	GetCredential(ctx context.Context, username string) (string, error)
}

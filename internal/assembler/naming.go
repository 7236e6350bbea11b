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
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/authorization"
)

const internalPrefix = "ol-internal"

// Schema is the standard internal schema inside organization databases.
const Schema = "openlattice"

// ProductionServer is the foreign server name for the production database
// inside organization databases.
const ProductionServer = "olprod"

// ProductionSchema is the local schema production tables are imported into.
const ProductionSchema = "prod"

// BuildOrganizationUserID derives the admin user name for an organization
// database. Derived, never stored; must stay stable for the lifetime of
// the organization.
func BuildOrganizationUserID(organizationID uuid.UUID) string {
	return fmt.Sprintf("%s|organization|%s", internalPrefix, organizationID)
}

// BuildSQLRoleName derives the database role name for an application role.
func BuildSQLRoleName(role authorization.Role) string {
	return fmt.Sprintf("%s|role|%s", internalPrefix, role.ID)
}

// BuildExternalPrincipalID derives the database identity for an arbitrary
// securable principal.
func BuildExternalPrincipalID(key authorization.AclKey, principalType authorization.PrincipalType) string {
	return fmt.Sprintf("%s|%s|%s", internalPrefix, strings.ToLower(string(principalType)), key.Last())
}

// BuildDatabaseRoleName derives the owning group role for an organization
// database.
func BuildDatabaseRoleName(dbname string) string {
	return dbname + "_role"
}

// BuildPermissionRoleName derives the database role name for a generated
// permission role id.
func BuildPermissionRoleName(roleID uuid.UUID) string {
	return fmt.Sprintf("%s|permission_role|%s", internalPrefix, roleID)
}

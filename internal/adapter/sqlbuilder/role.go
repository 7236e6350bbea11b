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

package sqlbuilder

import (
	"fmt"
	"strings"
)

// CreateRoleIfNotExists renders an idempotent CREATE ROLE wrapped in a
// DO block. Concurrent callers racing to create the same role observe a
// no-op instead of a duplicate-object error.
func CreateRoleIfNotExists(role string) string {
	var sb strings.Builder
	sb.WriteString("DO\n$do$\nBEGIN\n")
	sb.WriteString("   IF NOT EXISTS (\n")
	sb.WriteString("      SELECT\n")
	sb.WriteString("      FROM   pg_catalog.pg_roles\n")
	sb.WriteString(fmt.Sprintf("      WHERE  rolname = %s) THEN\n\n", Literal(role)))
	sb.WriteString(fmt.Sprintf("      CREATE ROLE %s NOSUPERUSER NOCREATEDB NOCREATEROLE NOINHERIT NOLOGIN;\n", Ident(role)))
	sb.WriteString("   END IF;\nEND\n$do$;")
	return sb.String()
}

// CreateUserIfNotExists renders an idempotent CREATE ROLE ... LOGIN wrapped
// in a DO block, the login variant of CreateRoleIfNotExists.
func CreateUserIfNotExists(user, password string) string {
	var sb strings.Builder
	sb.WriteString("DO\n$do$\nBEGIN\n")
	sb.WriteString("   IF NOT EXISTS (\n")
	sb.WriteString("      SELECT\n")
	sb.WriteString("      FROM   pg_catalog.pg_roles\n")
	sb.WriteString(fmt.Sprintf("      WHERE  rolname = %s) THEN\n\n", Literal(user)))
	sb.WriteString(fmt.Sprintf(
		"      CREATE ROLE %s NOSUPERUSER NOCREATEDB NOCREATEROLE NOINHERIT LOGIN ENCRYPTED PASSWORD %s;\n",
		Ident(user), Literal(password)))
	sb.WriteString("   END IF;\nEND\n$do$;")
	return sb.String()
}

// CreateDatabaseWithOwner renders CREATE DATABASE with an owning role.
func CreateDatabaseWithOwner(dbname, owner string) string {
	return fmt.Sprintf("CREATE DATABASE %s WITH OWNER = %s", Ident(dbname), Ident(owner))
}

// RevokeAllOnDatabaseFromPublic revokes the default public access grant.
func RevokeAllOnDatabaseFromPublic(dbname string) string {
	return fmt.Sprintf("REVOKE ALL ON DATABASE %s FROM public", Ident(dbname))
}

// AlterRoleSearchPath renders ALTER ROLE ... SET search_path. The schemas
// are individually quoted.
func AlterRoleSearchPath(role string, schemas []string) string {
	quoted := make([]string, len(schemas))
	for i, s := range schemas {
		quoted[i] = Ident(s)
	}
	return fmt.Sprintf("ALTER ROLE %s SET search_path TO %s", Ident(role), strings.Join(quoted, ", "))
}

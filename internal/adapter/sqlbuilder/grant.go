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

// GrantColumnSelect renders a column-scoped SELECT grant:
//
//	GRANT SELECT ("col1","col2") ON "schema"."table" TO <grantee>
//
// It returns an error for an empty column list; granting nothing is
// meaningless and the caller is expected to have filtered such principals.
func GrantColumnSelect(schema, table string, columns []string, grantee string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("no columns to grant on %s.%s to %s", schema, table, grantee)
	}
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Ident(c)
	}
	return fmt.Sprintf("GRANT SELECT (%s) ON %s.%s TO %s",
		strings.Join(quoted, ","), Ident(schema), Ident(table), Ident(grantee)), nil
}

// GrantSchemaUsage renders GRANT USAGE ON SCHEMA ... TO ...
func GrantSchemaUsage(schema, grantee string) string {
	return fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", Ident(schema), Ident(grantee))
}

// RevokeSchemaUsage renders REVOKE USAGE ON SCHEMA ... FROM ...
func RevokeSchemaUsage(schema, grantee string) string {
	return fmt.Sprintf("REVOKE USAGE ON SCHEMA %s FROM %s", Ident(schema), Ident(grantee))
}

// GrantRole renders role membership: GRANT <role> TO <grantee>.
func GrantRole(role, grantee string) string {
	return fmt.Sprintf("GRANT %s TO %s", Ident(role), Ident(grantee))
}

// RevokeRole renders REVOKE <role> FROM <grantee>.
func RevokeRole(role, grantee string) string {
	return fmt.Sprintf("REVOKE %s FROM %s", Ident(role), Ident(grantee))
}

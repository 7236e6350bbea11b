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

// CreateFDWExtension renders the postgres_fdw extension install.
func CreateFDWExtension() string {
	return "CREATE EXTENSION IF NOT EXISTS postgres_fdw"
}

// CreateForeignServer renders an idempotent foreign server definition.
func CreateForeignServer(serverName, host, dbname string, port int) string {
	return fmt.Sprintf(
		"CREATE SERVER IF NOT EXISTS %s FOREIGN DATA WRAPPER postgres_fdw OPTIONS (host %s, dbname %s, port '%d')",
		Ident(serverName), Literal(host), Literal(dbname), port)
}

// CreateUserMapping renders an idempotent user mapping for localUser on a
// foreign server, carrying the remote credentials.
func CreateUserMapping(localUser, serverName, remoteUser, remotePassword string) string {
	return fmt.Sprintf(
		"CREATE USER MAPPING IF NOT EXISTS FOR %s SERVER %s OPTIONS (user %s, password %s)",
		Ident(localUser), Ident(serverName), Literal(remoteUser), Literal(remotePassword))
}

// CreateSchemaIfNotExists renders CREATE SCHEMA IF NOT EXISTS.
func CreateSchemaIfNotExists(schema string) string {
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", Ident(schema))
}

// ImportForeignSchema renders the schema import, optionally limited to a
// fixed set of remote tables.
func ImportForeignSchema(remoteSchema string, remoteTables []string, serverName, localSchema string) string {
	tablesClause := ""
	if len(remoteTables) > 0 {
		quoted := make([]string, len(remoteTables))
		for i, t := range remoteTables {
			quoted[i] = Ident(t)
		}
		tablesClause = fmt.Sprintf("LIMIT TO (%s) ", strings.Join(quoted, ","))
	}
	return fmt.Sprintf("IMPORT FOREIGN SCHEMA %s %sFROM SERVER %s INTO %s",
		Ident(remoteSchema), tablesClause, Ident(serverName), Ident(localSchema))
}

// CountForeignTablesInSchema renders the catalog probe used as the coarse
// idempotency check before re-running the FDW link sequence. It is a
// parameterized query; the schema name is bound as $1.
const CountForeignTablesInSchema = "SELECT count(*) FROM information_schema.foreign_tables WHERE foreign_table_schema = $1"

// ShowSearchPath renders the search-path query for the connected role.
const ShowSearchPath = "SHOW search_path"

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
	"sort"
	"strings"

	"github.com/google/uuid"
)

// CreateMaterializedView renders CREATE MATERIALIZED VIEW IF NOT EXISTS
// over an already-built projection query.
func CreateMaterializedView(schema, name, query string) string {
	return fmt.Sprintf("CREATE MATERIALIZED VIEW IF NOT EXISTS %s.%s AS %s",
		Ident(schema), Ident(name), query)
}

// DropMaterializedViewIfExists renders the drop; safe on absent views.
func DropMaterializedViewIfExists(schema, name string) string {
	return fmt.Sprintf("DROP MATERIALIZED VIEW IF EXISTS %s.%s", Ident(schema), Ident(name))
}

// DropViewIfExists renders DROP VIEW IF EXISTS with CASCADE, used when
// tearing transported entity set views out of organization databases.
func DropViewIfExists(schema, name string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS %s.%s CASCADE", Ident(schema), Ident(name))
}

// DropForeignTableIfExists renders the teardown of an imported entity type
// table.
func DropForeignTableIfExists(schema, table string) string {
	return fmt.Sprintf("DROP FOREIGN TABLE IF EXISTS %s.%s CASCADE", Ident(schema), Ident(table))
}

// CreateEntitySetView renders a view in viewSchema projecting the entity
// type table down to the rows of one entity set, with property-type columns
// aliased to their fully qualified names. Column order is sorted by property
// type id so the rendered SQL is deterministic.
func CreateEntitySetView(viewSchema, viewName, sourceTable string, entitySetID uuid.UUID, columnsByPropertyType map[uuid.UUID]string) string {
	ids := make([]uuid.UUID, 0, len(columnsByPropertyType))
	for id := range columnsByPropertyType {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	cols := make([]string, 0, len(ids)+1)
	cols = append(cols, Ident("id"))
	for _, id := range ids {
		cols = append(cols, fmt.Sprintf("%s AS %s", Ident(id.String()), Ident(columnsByPropertyType[id])))
	}

	return fmt.Sprintf("CREATE OR REPLACE VIEW %s.%s AS SELECT %s FROM %s WHERE entity_set_id = %s",
		Ident(viewSchema), Ident(viewName), strings.Join(cols, ", "), sourceTable,
		Literal(entitySetID.String()))
}

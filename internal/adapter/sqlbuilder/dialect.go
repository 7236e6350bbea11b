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

// Package sqlbuilder renders the DDL and privilege statements the assembler
// issues against Postgres. All dynamic identifiers (database, role, schema
// and column names derived from UUIDs or user input) pass through a single
// pair of quoting functions.
package sqlbuilder

import "strings"

// Dialect abstracts SQL escaping. Only PostgreSQL is supported; keeping the
// interface lets tests substitute a recording dialect.
type Dialect interface {
	EscapeIdentifier(s string) string
	EscapeLiteral(s string) string
}

// PgDialect implements Dialect for PostgreSQL.
type PgDialect struct{}

// EscapeIdentifier wraps s in double quotes, doubling any embedded quotes.
func (PgDialect) EscapeIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// EscapeLiteral wraps s in single quotes, doubling any embedded quotes.
func (PgDialect) EscapeLiteral(s string) string {
	return `'` + strings.ReplaceAll(s, `'`, `''`) + `'`
}

// Ident quotes an identifier with the PostgreSQL dialect.
func Ident(s string) string {
	return PgDialect{}.EscapeIdentifier(s)
}

// Literal quotes a string literal with the PostgreSQL dialect.
func Literal(s string) string {
	return PgDialect{}.EscapeLiteral(s)
}

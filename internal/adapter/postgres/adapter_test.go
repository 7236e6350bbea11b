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

package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlas-assembler/internal/adapter/types"
)

func newMockAdapter(t *testing.T) (*Adapter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewAdapterWithPool(mock), mock
}

func TestOperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	adapter := NewAdapter(types.ConnectionConfig{Host: "localhost", Port: 5432})

	err := adapter.CreateDatabase(ctx, types.CreateDatabaseOptions{Name: "org_db"})
	assert.ErrorContains(t, err, "not connected")

	err = adapter.EnsureRole(ctx, types.EnsureRoleOptions{RoleName: "some_role"})
	assert.ErrorContains(t, err, "not connected")

	err = adapter.Exec(ctx, "SELECT 1")
	assert.ErrorContains(t, err, "not connected")

	err = adapter.ExecBatch(ctx, []string{"SELECT 1"})
	assert.ErrorContains(t, err, "not connected")

	_, err = adapter.Pool()
	assert.ErrorContains(t, err, "not connected")
}

func TestCreateDatabaseWhenAbsent(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)")).
		WithArgs("org_db").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "org_db" WITH OWNER = "org_db_admin"`)).
		WillReturnResult(pgxmock.NewResult("CREATE DATABASE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`REVOKE ALL ON DATABASE "org_db" FROM public`)).
		WillReturnResult(pgxmock.NewResult("REVOKE", 0))

	err := adapter.CreateDatabase(ctx, types.CreateDatabaseOptions{Name: "org_db", Owner: "org_db_admin"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDatabaseWhenPresentOnlyRevokes(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)")).
		WithArgs("org_db").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta(`REVOKE ALL ON DATABASE "org_db" FROM public`)).
		WillReturnResult(pgxmock.NewResult("REVOKE", 0))

	err := adapter.CreateDatabase(ctx, types.CreateDatabaseOptions{Name: "org_db", Owner: "org_db_admin"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureRoleAndUser(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectExec(`DO\s+\$do\$`).WillReturnResult(pgxmock.NewResult("DO", 0))
	require.NoError(t, adapter.EnsureRole(ctx, types.EnsureRoleOptions{RoleName: "org_db_role"}))

	mock.ExpectExec(`DO\s+\$do\$`).WillReturnResult(pgxmock.NewResult("DO", 0))
	require.NoError(t, adapter.EnsureUser(ctx, types.EnsureUserOptions{Username: "reader", Password: "secret"}))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleExists(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM pg_roles WHERE rolname = $1)")).
		WithArgs("org_db_role").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := adapter.RoleExists(ctx, "org_db_role")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkForeignDatabaseRejectsBadURL(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	// No expectations: a bad URL must fail before any SQL runs.
	err := adapter.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName: "olprod",
		RemoteURL:  "not a url",
	})
	require.ErrorContains(t, err, "invalid database url")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkForeignDatabaseShortCircuitsWhenLinked(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM information_schema.foreign_tables WHERE foreign_table_schema = $1")).
		WithArgs("prod").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	err := adapter.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName:     "olprod",
		RemoteURL:      "postgresql://prod.example.com:5432/openlattice",
		RemoteUsername: "fdw_user",
		RemotePassword: "fdw_pass",
		LocalUsername:  "org_admin",
		LocalSchema:    "prod",
		RemoteSchema:   "public",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLinkForeignDatabaseRunsFullSequence(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM information_schema.foreign_tables WHERE foreign_table_schema = $1")).
		WithArgs("prod").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SHOW search_path").
		WillReturnRows(pgxmock.NewRows([]string{"search_path"}).AddRow(`"$user", public`))

	mock.ExpectExec(regexp.QuoteMeta("CREATE EXTENSION IF NOT EXISTS postgres_fdw")).
		WillReturnResult(pgxmock.NewResult("CREATE EXTENSION", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SERVER IF NOT EXISTS "olprod" FOREIGN DATA WRAPPER postgres_fdw OPTIONS (host 'prod.example.com', dbname 'openlattice', port '5432')`)).
		WillReturnResult(pgxmock.NewResult("CREATE SERVER", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE USER MAPPING IF NOT EXISTS FOR "org_admin" SERVER "olprod" OPTIONS (user 'fdw_user', password 'fdw_pass')`)).
		WillReturnResult(pgxmock.NewResult("CREATE USER MAPPING", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA IF NOT EXISTS "prod"`)).
		WillReturnResult(pgxmock.NewResult("CREATE SCHEMA", 0))
	mock.ExpectExec(regexp.QuoteMeta(`IMPORT FOREIGN SCHEMA "public" FROM SERVER "olprod" INTO "prod"`)).
		WillReturnResult(pgxmock.NewResult("IMPORT FOREIGN SCHEMA", 0))
	mock.ExpectExec(regexp.QuoteMeta(`ALTER USER "org_admin" SET search_path TO "$user", public, prod`)).
		WillReturnResult(pgxmock.NewResult("ALTER ROLE", 0))

	mock.ExpectQuery("SHOW search_path").
		WillReturnRows(pgxmock.NewRows([]string{"search_path"}).AddRow(`"$user", public, prod`))

	err := adapter.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName:     "olprod",
		RemoteURL:      "postgresql://prod.example.com:5432/openlattice",
		RemoteUsername: "fdw_user",
		RemotePassword: "fdw_pass",
		LocalUsername:  "org_admin",
		LocalSchema:    "prod",
		RemoteSchema:   "public",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecBatchReportsFailingStatementIndex(t *testing.T) {
	ctx := context.Background()
	adapter, mock := newMockAdapter(t)

	batch := mock.ExpectBatch()
	batch.ExpectExec(regexp.QuoteMeta(`GRANT USAGE ON SCHEMA "openlattice" TO "reader"`)).
		WillReturnResult(pgxmock.NewResult("GRANT", 0))
	batch.ExpectExec(regexp.QuoteMeta(`GRANT "a_role" TO "reader"`)).
		WillReturnError(errors.New("role does not exist"))

	err := adapter.ExecBatch(ctx, []string{
		`GRANT USAGE ON SCHEMA "openlattice" TO "reader"`,
		`GRANT "a_role" TO "reader"`,
	})
	require.ErrorContains(t, err, "batch statement 1 failed")
}

func TestExecBatchEmptyIsNoop(t *testing.T) {
	adapter, mock := newMockAdapter(t)

	require.NoError(t, adapter.ExecBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchPathContains(t *testing.T) {
	tests := []struct {
		searchPath string
		schema     string
		want       bool
	}{
		{`"$user", public`, "public", true},
		{`"$user", public`, "prod", false},
		{`"$user", public, prod`, "prod", true},
		{`"prod"`, "prod", true},
		{``, "prod", false},
	}
	for _, tt := range tests {
		if got := searchPathContains(tt.searchPath, tt.schema); got != tt.want {
			t.Errorf("searchPathContains(%q, %q) = %v, want %v", tt.searchPath, tt.schema, got, tt.want)
		}
	}
}

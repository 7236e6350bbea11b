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

// Package transporter maintains the intermediate transporter database and
// the per-organization foreign table links that project transported entity
// data into organization databases.
package transporter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/adapter/sqlbuilder"
	"github.com/atlas-assembler/internal/adapter/types"
	"github.com/atlas-assembler/internal/assembler"
	"github.com/atlas-assembler/internal/config"
	"github.com/atlas-assembler/internal/metrics"
	"github.com/atlas-assembler/internal/service"
)

const (
	// OrgViewsSchema is the schema in organization databases where entity
	// set views are projected.
	OrgViewsSchema = "entitysets"

	// OrgForeignTablesSchema is the schema in organization databases where
	// transported foreign tables are accessible.
	OrgForeignTablesSchema = "transporter"

	// TransporterDBName is the intermediate database data is transported
	// into.
	TransporterDBName = "transporter"

	// PublicSchema is the schema in the transporter database where entity
	// type tables live.
	PublicSchema = "public"

	// EnterpriseFDWSchema is the schema in the transporter database where
	// production tables are accessible.
	EnterpriseFDWSchema = "ol"

	// EnterpriseFDWName is the foreign server linking the transporter
	// database to production.
	EnterpriseFDWName = "enterprise"
)

// productionTables are the production tables imported into the transporter
// database.
var productionTables = []string{"ids", "data", "e"}

// Datastore owns the transporter database connection and the FDW links in
// both directions: production into the transporter database, and the
// transporter database into each organization database.
type Datastore struct {
	cfg         config.AssemblerConfig
	connections *assembler.ConnectionManager
	logger      *slog.Logger

	datastore *postgres.Adapter
}

// NewDatastore wires the transporter datastore. Initialize must be called
// before any transport operation.
func NewDatastore(cfg config.AssemblerConfig, connections *assembler.ConnectionManager, logger *slog.Logger) (*Datastore, error) {
	if connections == nil {
		return nil, fmt.Errorf("transporter datastore requires a connection manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Datastore{cfg: cfg, connections: connections, logger: logger}, nil
}

// Initialize connects to the transporter database and establishes the
// production FDW link, importing the ids, data and edge tables. Safe to
// re-run; an already-imported schema is left alone.
func (d *Datastore) Initialize(ctx context.Context) error {
	datastore, err := d.connections.Connect(ctx, TransporterDBName)
	if err != nil {
		return fmt.Errorf("connect to transporter database: %w", err)
	}
	d.datastore = datastore

	if err := d.datastore.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName:     EnterpriseFDWName,
		RemoteURL:      d.cfg.ProductionURL,
		RemoteUsername: d.cfg.ProductionUsername,
		RemotePassword: d.cfg.ProductionPassword,
		LocalUsername:  d.cfg.Server.Username,
		LocalSchema:    EnterpriseFDWSchema,
		RemoteSchema:   PublicSchema,
		RemoteTables:   productionTables,
	}); err != nil {
		return fmt.Errorf("link production to transporter: %w", err)
	}

	sp, err := d.datastore.SearchPath(ctx)
	if err != nil {
		return err
	}
	if !searchPathContains(sp, EnterpriseFDWSchema) {
		d.logger.Error("bad search path", "searchPath", sp)
	}
	return nil
}

// Close releases the transporter database connection.
func (d *Datastore) Close() {
	if d.datastore != nil {
		d.datastore.Close()
		d.datastore = nil
	}
}

// Datastore returns the transporter database adapter.
func (d *Datastore) Datastore() (*postgres.Adapter, error) {
	if d.datastore == nil {
		return nil, fmt.Errorf("transporter datastore: %w", service.ErrConnectionFailed)
	}
	return d.datastore, nil
}

// transporterURL is the transporter database's address on the configured
// server, in the form the FDW linker parses.
func (d *Datastore) transporterURL() string {
	return fmt.Sprintf("postgresql://%s:%d/%s", d.cfg.Server.Host, d.cfg.Server.Port, TransporterDBName)
}

// OrgForeignServerName derives the foreign server name linking an
// organization database to the transporter database.
func OrgForeignServerName(organizationID uuid.UUID) string {
	return fmt.Sprintf("fdw_%s", organizationID)
}

// EntityTypeTableName derives the transported table name for an entity
// type.
func EntityTypeTableName(entityTypeID uuid.UUID) string {
	return fmt.Sprintf("et_%s", entityTypeID)
}

// ViewRoleName derives the per-column view role for an entity set column.
func ViewRoleName(entitySetName, columnName string) string {
	return entitySetName + "_" + columnName
}

// LinkOrgDBToTransporterDB establishes the FDW link from an organization
// database back to the transporter database.
func (d *Datastore) LinkOrgDBToTransporterDB(ctx context.Context, organizationID uuid.UUID) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()

	return orgDB.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName:     OrgForeignServerName(organizationID),
		RemoteURL:      d.transporterURL(),
		RemoteUsername: d.cfg.Server.Username,
		RemotePassword: d.cfg.Server.Password,
		LocalUsername:  d.cfg.Server.Username,
		LocalSchema:    OrgForeignTablesSchema,
	})
}

// TransportEntityTypeTable imports an entity type's transported table into
// an organization database through the organization's foreign server.
func (d *Datastore) TransportEntityTypeTable(ctx context.Context, organizationID, entityTypeID uuid.UUID) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()

	stmt := sqlbuilder.ImportForeignSchema(
		PublicSchema,
		[]string{EntityTypeTableName(entityTypeID)},
		OrgForeignServerName(organizationID),
		OrgForeignTablesSchema,
	)
	if err := orgDB.Exec(ctx, stmt); err != nil {
		return service.NewDatabaseError("transport", EntityTypeTableName(entityTypeID), err)
	}
	metrics.EntityTypeTablesTransportedTotal.Inc()
	return nil
}

// CreateEntitySetViewInOrgDB projects an entity set as a view over its
// transported entity type table and wires up per-column access: one role
// per (entity set, column) pair holding the column grant, granted to each
// user for the columns they may read.
func (d *Datastore) CreateEntitySetViewInOrgDB(
	ctx context.Context,
	organizationID uuid.UUID,
	entitySetName string,
	entitySetID uuid.UUID,
	entityTypeID uuid.UUID,
	columnsByPropertyType map[uuid.UUID]string,
	usersToColumns map[string][]string,
) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()

	viewStmt := sqlbuilder.CreateEntitySetView(
		OrgViewsSchema,
		entitySetName,
		sqlbuilder.Ident(OrgForeignTablesSchema)+"."+sqlbuilder.Ident(EntityTypeTableName(entityTypeID)),
		entitySetID,
		columnsByPropertyType,
	)
	if err := orgDB.Exec(ctx, viewStmt); err != nil {
		return service.NewDatabaseError("create view", entitySetName, err)
	}

	stmts := d.columnRoleStatements(entitySetName, usersToColumns)
	if err := orgDB.ExecBatch(ctx, stmts); err != nil {
		return service.NewDatabaseError("grant view access", entitySetName, err)
	}
	metrics.GrantStatementsTotal.Add(float64(len(stmts)))

	d.logger.Info("created entity set view",
		"organization", organizationID,
		"entitySet", entitySetName,
		"columns", len(columnsByPropertyType),
		"users", len(usersToColumns))
	return nil
}

// columnRoleStatements renders the role and grant DDL for per-column view
// access, in deterministic order.
func (d *Datastore) columnRoleStatements(entitySetName string, usersToColumns map[string][]string) []string {
	allColumns := make(map[string]bool)
	for _, columns := range usersToColumns {
		for _, column := range columns {
			allColumns[column] = true
		}
	}
	columns := make([]string, 0, len(allColumns))
	for column := range allColumns {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	var stmts []string
	for _, column := range columns {
		role := ViewRoleName(entitySetName, column)
		stmts = append(stmts,
			sqlbuilder.CreateRoleIfNotExists(role),
			sqlbuilder.GrantSchemaUsage(OrgViewsSchema, role),
		)
		grant, err := sqlbuilder.GrantColumnSelect(OrgViewsSchema, entitySetName, []string{column}, role)
		if err == nil {
			stmts = append(stmts, grant)
		}
	}

	users := make([]string, 0, len(usersToColumns))
	for user := range usersToColumns {
		users = append(users, user)
	}
	sort.Strings(users)

	for _, user := range users {
		stmts = append(stmts, sqlbuilder.GrantSchemaUsage(OrgForeignTablesSchema, user))
		userColumns := append([]string(nil), usersToColumns[user]...)
		sort.Strings(userColumns)
		for _, column := range userColumns {
			stmts = append(stmts, sqlbuilder.GrantRole(ViewRoleName(entitySetName, column), user))
		}
	}
	return stmts
}

// DestroyTransportedEntitySetFromOrg drops an entity set's view from the
// transported tables schema of an organization database.
func (d *Datastore) DestroyTransportedEntitySetFromOrg(ctx context.Context, organizationID uuid.UUID, entitySetName string) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()
	return orgDB.Exec(ctx, sqlbuilder.DropViewIfExists(OrgForeignTablesSchema, entitySetName))
}

// DestroyTransportedEntityTypeTableInOrg drops an entity type's foreign
// table from an organization database.
func (d *Datastore) DestroyTransportedEntityTypeTableInOrg(ctx context.Context, organizationID, entityTypeID uuid.UUID) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()
	return orgDB.Exec(ctx, sqlbuilder.DropForeignTableIfExists(OrgForeignTablesSchema, EntityTypeTableName(entityTypeID)))
}

// DestroyEntitySetViewFromTransporter drops an entity set's view from the
// transporter database itself.
func (d *Datastore) DestroyEntitySetViewFromTransporter(ctx context.Context, entitySetName string) error {
	datastore, err := d.Datastore()
	if err != nil {
		return err
	}
	return datastore.Exec(ctx, sqlbuilder.DropViewIfExists(PublicSchema, entitySetName))
}

// DestroyEntitySetViewInOrgDB drops an entity set's view from the view
// schema of an organization database.
func (d *Datastore) DestroyEntitySetViewInOrgDB(ctx context.Context, organizationID uuid.UUID, entitySetName string) error {
	orgDB, err := d.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()
	return orgDB.Exec(ctx, sqlbuilder.DropViewIfExists(OrgViewsSchema, entitySetName))
}

func searchPathContains(searchPath, schema string) bool {
	for _, part := range strings.Split(searchPath, ",") {
		if strings.Trim(part, ` "`) == schema {
			return true
		}
	}
	return false
}

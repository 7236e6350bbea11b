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
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/adapter/types"
	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/config"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/metrics"
)

// systemPrincipalIDs are never granted schema usage in organization
// databases.
var systemPrincipalIDs = map[string]bool{
	"admin":          true,
	"openlatticeRole": true,
}

// ConnectionManager provisions organization databases and the roles and
// users inside them. All collaborators are supplied at construction;
// there is no runtime readiness gating and no initialization order to get
// wrong.
type ConnectionManager struct {
	cfg           config.AssemblerConfig
	entitySets    edm.Registry
	production    postgres.DBPool
	organizations OrganizationService
	principals    authorization.PrincipalsManager
	credentials   authorization.CredentialService
	logger        *slog.Logger

	// target is the admin connection used for CREATE DATABASE / CREATE
	// ROLE; connected lazily.
	target *postgres.Adapter

	// connect opens an adapter to a named database on the configured
	// server; replaceable in tests.
	connect func(ctx context.Context, dbname string) (*postgres.Adapter, error)
}

// NewConnectionManager wires the manager's six collaborators. Construction
// fails if any is missing.
func NewConnectionManager(
	cfg config.AssemblerConfig,
	entitySets edm.Registry,
	production postgres.DBPool,
	organizations OrganizationService,
	principals authorization.PrincipalsManager,
	credentials authorization.CredentialService,
	logger *slog.Logger,
) (*ConnectionManager, error) {
	if entitySets == nil {
		return nil, fmt.Errorf("connection manager requires an entity set registry")
	}
	if production == nil {
		return nil, fmt.Errorf("connection manager requires a production datasource")
	}
	if organizations == nil {
		return nil, fmt.Errorf("connection manager requires an organization service")
	}
	if principals == nil {
		return nil, fmt.Errorf("connection manager requires a principals manager")
	}
	if credentials == nil {
		return nil, fmt.Errorf("connection manager requires a credential service")
	}
	if cfg.Server.Host == "" {
		return nil, fmt.Errorf("connection manager requires a server configuration")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cm := &ConnectionManager{
		cfg:           cfg,
		entitySets:    entitySets,
		production:    production,
		organizations: organizations,
		principals:    principals,
		credentials:   credentials,
		logger:        logger,
	}
	cm.connect = cm.dial
	return cm, nil
}

func (cm *ConnectionManager) dial(ctx context.Context, dbname string) (*postgres.Adapter, error) {
	adapter := postgres.NewAdapter(types.ConnectionConfig{
		Host:            cm.cfg.Server.Host,
		Port:            cm.cfg.Server.Port,
		Database:        dbname,
		Username:        cm.cfg.Server.Username,
		Password:        cm.cfg.Server.Password,
		SSLMode:         cm.cfg.Server.SSLMode,
		ApplicationName: "assembler",
	}).WithLogger(cm.logger)
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}
	return adapter, nil
}

// Connect opens an adapter to a named database on the configured server.
// The caller owns the adapter's lifecycle.
func (cm *ConnectionManager) Connect(ctx context.Context, dbname string) (*postgres.Adapter, error) {
	return cm.connect(ctx, dbname)
}

// ConnectToOrg opens an adapter to an organization's private database.
func (cm *ConnectionManager) ConnectToOrg(ctx context.Context, organizationID uuid.UUID) (*postgres.Adapter, error) {
	org, err := cm.organizations.GetOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("resolve organization %s: %w", organizationID, err)
	}
	return cm.connect(ctx, org.Principal.ID)
}

// Production returns the production datasource.
func (cm *ConnectionManager) Production() postgres.DBPool {
	return cm.production
}

func (cm *ConnectionManager) ensureTarget(ctx context.Context) (*postgres.Adapter, error) {
	if cm.target != nil {
		return cm.target, nil
	}
	target, err := cm.connect(ctx, "postgres")
	if err != nil {
		return nil, fmt.Errorf("connect to admin database: %w", err)
	}
	cm.target = target
	return cm.target, nil
}

// Exists checks whether a database exists on the configured server.
func (cm *ConnectionManager) Exists(ctx context.Context, dbname string) (bool, error) {
	target, err := cm.ensureTarget(ctx)
	if err != nil {
		return false, err
	}
	return target.DatabaseExists(ctx, dbname)
}

// CreateRole idempotently creates the database role for an application
// role and revokes its public schema access. Users must not reach the
// public schema, which holds foreign data wrapper tables.
func (cm *ConnectionManager) CreateRole(ctx context.Context, role authorization.Role) error {
	target, err := cm.ensureTarget(ctx)
	if err != nil {
		return err
	}

	dbRole := BuildSQLRoleName(role)
	if err := target.EnsureRole(ctx, types.EnsureRoleOptions{RoleName: dbRole}); err != nil {
		return err
	}
	if err := target.RevokeSchemaUsage(ctx, "public", dbRole); err != nil {
		return err
	}
	metrics.RolesCreatedTotal.Inc()
	return nil
}

// CreateUnprivilegedUser idempotently creates the login user for a
// securable principal with its stored credential.
func (cm *ConnectionManager) CreateUnprivilegedUser(ctx context.Context, user authorization.Principal) error {
	target, err := cm.ensureTarget(ctx)
	if err != nil {
		return err
	}

	password, err := cm.credentials.GetCredential(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load credential for %s: %w", user.ID, err)
	}
	if err := target.EnsureUser(ctx, types.EnsureUserOptions{Username: user.ID, Password: password}); err != nil {
		return err
	}
	if err := target.RevokeSchemaUsage(ctx, "public", user.ID); err != nil {
		return err
	}
	metrics.UsersCreatedTotal.Inc()
	return nil
}

// InitializeUsersAndRoles materializes every known role and user on the
// server. Safe to re-run; all DDL is idempotent.
func (cm *ConnectionManager) InitializeUsersAndRoles(ctx context.Context) error {
	roles, err := cm.principals.AllRoles(ctx)
	if err != nil {
		return fmt.Errorf("enumerate roles: %w", err)
	}
	for _, role := range roles {
		if err := cm.CreateRole(ctx, role); err != nil {
			return err
		}
	}

	users, err := cm.principals.AllUsers(ctx)
	if err != nil {
		return fmt.Errorf("enumerate users: %w", err)
	}
	for _, user := range users {
		if err := cm.CreateUnprivilegedUser(ctx, user); err != nil {
			return err
		}
	}

	cm.logger.Info("created users and roles", "roles", len(roles), "users", len(users))
	return nil
}

// CreateOrganizationDatabase provisions the private database for an
// organization: owning role and admin user, the database itself, the
// internal schema, member access, and the production FDW link. Any DDL
// failure propagates; there is no partial silent success.
func (cm *ConnectionManager) CreateOrganizationDatabase(ctx context.Context, organizationID uuid.UUID) error {
	org, err := cm.organizations.GetOrganization(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("resolve organization %s: %w", organizationID, err)
	}
	dbname := org.Principal.ID

	if err := cm.createDatabase(ctx, organizationID, dbname); err != nil {
		return err
	}

	orgDB, err := cm.connect(ctx, dbname)
	if err != nil {
		return fmt.Errorf("connect to organization database %s: %w", dbname, err)
	}
	defer orgDB.Close()

	if err := cm.configureRolesInDatabase(ctx, orgDB); err != nil {
		return err
	}
	if err := orgDB.CreateSchema(ctx, Schema); err != nil {
		return err
	}
	if err := orgDB.SetRoleSearchPath(ctx, cm.cfg.Server.Username, []string{ProductionSchema, Schema, "public"}); err != nil {
		return err
	}

	for _, member := range org.Members {
		if systemPrincipalIDs[member.ID] {
			continue
		}
		if err := cm.configureUserInDatabase(ctx, orgDB, member.ID); err != nil {
			return err
		}
	}

	if err := orgDB.LinkForeignDatabase(ctx, types.ForeignServerOptions{
		ServerName:     ProductionServer,
		RemoteURL:      cm.cfg.ProductionURL,
		RemoteUsername: cm.cfg.ProductionUsername,
		RemotePassword: cm.cfg.ProductionPassword,
		LocalUsername:  cm.cfg.Server.Username,
		LocalSchema:    ProductionSchema,
		RemoteSchema:   "public",
	}); err != nil {
		return err
	}

	metrics.OrganizationDatabasesCreatedTotal.Inc()
	cm.logger.Info("provisioned organization database", "organization", organizationID, "database", dbname)
	return nil
}

// createDatabase runs the admin-side provisioning: owning role, admin
// user, the database, and the public access revocation.
func (cm *ConnectionManager) createDatabase(ctx context.Context, organizationID uuid.UUID, dbname string) error {
	target, err := cm.ensureTarget(ctx)
	if err != nil {
		return err
	}

	dbRole := BuildDatabaseRoleName(dbname)
	adminUser := BuildOrganizationUserID(organizationID)

	password, err := cm.credentials.CreateUserIfNotExists(ctx, adminUser)
	if err != nil {
		return fmt.Errorf("mint credential for %s: %w", adminUser, err)
	}

	if err := target.EnsureRole(ctx, types.EnsureRoleOptions{RoleName: dbRole}); err != nil {
		return err
	}
	if err := target.EnsureUser(ctx, types.EnsureUserOptions{Username: adminUser, Password: password}); err != nil {
		return err
	}
	if err := target.GrantRole(ctx, dbRole, adminUser); err != nil {
		return err
	}
	return target.CreateDatabase(ctx, types.CreateDatabaseOptions{Name: dbname, Owner: adminUser})
}

// configureRolesInDatabase revokes public schema access from every known
// application role inside an organization database.
func (cm *ConnectionManager) configureRolesInDatabase(ctx context.Context, orgDB *postgres.Adapter) error {
	roles, err := cm.principals.AllRoles(ctx)
	if err != nil {
		return fmt.Errorf("enumerate roles: %w", err)
	}
	for _, role := range roles {
		if err := orgDB.RevokeSchemaUsage(ctx, "public", BuildSQLRoleName(role)); err != nil {
			return err
		}
	}
	return nil
}

// configureUserInDatabase grants a member access to the internal schema
// and routes their search path to it.
func (cm *ConnectionManager) configureUserInDatabase(ctx context.Context, orgDB *postgres.Adapter, userID string) error {
	if err := orgDB.GrantSchemaUsage(ctx, Schema, userID); err != nil {
		return err
	}
	if err := orgDB.RevokeSchemaUsage(ctx, "public", userID); err != nil {
		return err
	}
	return orgDB.SetRoleSearchPath(ctx, userID, []string{Schema})
}

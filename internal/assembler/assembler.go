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

// Package assembler provisions per-organization databases and materializes
// authorized entity set data into them.
package assembler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/service"
)

const assemblyKeyPrefix = "assembly:"

// Assembler orchestrates organization database provisioning and entity set
// materialization, tracking per-organization assembly state in the shared
// key-value store.
type Assembler struct {
	connections  *ConnectionManager
	materializer *Materializer
	entitySets   edm.Registry
	store        kvstore.Store
	logger       *slog.Logger
}

// NewAssembler wires the orchestrator.
func NewAssembler(
	connections *ConnectionManager,
	materializer *Materializer,
	entitySets edm.Registry,
	store kvstore.Store,
	logger *slog.Logger,
) (*Assembler, error) {
	if connections == nil || materializer == nil || entitySets == nil || store == nil {
		return nil, fmt.Errorf("assembler requires connections, materializer, entity set registry and store")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		connections:  connections,
		materializer: materializer,
		entitySets:   entitySets,
		store:        store,
		logger:       logger,
	}, nil
}

func assemblyKey(organizationID uuid.UUID) string {
	return assemblyKeyPrefix + organizationID.String()
}

func (a *Assembler) loadAssembly(ctx context.Context, organizationID uuid.UUID) (OrganizationAssembly, bool, error) {
	raw, found, err := a.store.Get(ctx, assemblyKey(organizationID))
	if err != nil || !found {
		return OrganizationAssembly{}, false, err
	}
	var assembly OrganizationAssembly
	if err := json.Unmarshal([]byte(raw), &assembly); err != nil {
		return OrganizationAssembly{}, false, fmt.Errorf("decode assembly for %s: %w", organizationID, err)
	}
	return assembly, true, nil
}

func (a *Assembler) saveAssembly(ctx context.Context, assembly OrganizationAssembly) error {
	raw, err := json.Marshal(assembly)
	if err != nil {
		return fmt.Errorf("encode assembly for %s: %w", assembly.OrganizationID, err)
	}
	return a.store.Set(ctx, assemblyKey(assembly.OrganizationID), string(raw), 0)
}

// CreateOrganization records a new organization assembly and kicks off
// database provisioning in the background. The assembly record appears
// immediately with Initialized false; provisioning flips it on success.
func (a *Assembler) CreateOrganization(ctx context.Context, org Organization) error {
	assembly := OrganizationAssembly{
		OrganizationID: org.ID,
		PrincipalID:    org.Principal.ID,
	}
	raw, err := json.Marshal(assembly)
	if err != nil {
		return fmt.Errorf("encode assembly for %s: %w", org.ID, err)
	}
	stored, err := a.store.PutIfAbsent(ctx, assemblyKey(org.ID), string(raw), 0)
	if err != nil {
		return err
	}
	if !stored {
		return fmt.Errorf("organization %s: %w", org.ID, service.ErrAlreadyExists)
	}

	go a.provisionOrganization(org.ID)
	return nil
}

func (a *Assembler) provisionOrganization(organizationID uuid.UUID) {
	ctx := context.Background()
	if err := a.connections.CreateOrganizationDatabase(ctx, organizationID); err != nil {
		a.logger.Error("organization database provisioning failed",
			"organization", organizationID, "error", err)
		return
	}

	assembly, found, err := a.loadAssembly(ctx, organizationID)
	if err != nil || !found {
		a.logger.Error("assembly record missing after provisioning",
			"organization", organizationID, "error", err)
		return
	}
	assembly.Initialized = true
	if err := a.saveAssembly(ctx, assembly); err != nil {
		a.logger.Error("marking assembly initialized failed",
			"organization", organizationID, "error", err)
	}
}

// MaterializeEntitySets materializes each entity set into the
// organization's database and reports the resulting flags per entity set.
// Every materialized set is flagged MATERIALIZED; sets whose home
// organization is this one are additionally flagged INTERNAL.
func (a *Assembler) MaterializeEntitySets(
	ctx context.Context,
	organizationID uuid.UUID,
	authorizedPropertyTypes map[uuid.UUID]map[uuid.UUID]edm.PropertyType,
) (map[uuid.UUID][]OrganizationEntitySetFlag, error) {
	assembly, found, err := a.loadAssembly(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("assembly for organization %s: %w", organizationID, service.ErrNotFound)
	}

	orgDB, err := a.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	defer orgDB.Close()

	materialized := make(map[uuid.UUID]bool, len(assembly.EntitySetIDs))
	for _, id := range assembly.EntitySetIDs {
		materialized[id] = true
	}

	flags := make(map[uuid.UUID][]OrganizationEntitySetFlag, len(authorizedPropertyTypes))
	for entitySetID, propertyTypes := range authorizedPropertyTypes {
		entitySet, err := a.entitySets.GetEntitySet(ctx, entitySetID)
		if err != nil {
			return nil, fmt.Errorf("resolve entity set %s: %w", entitySetID, err)
		}
		if err := a.materializer.Materialize(ctx, orgDB, entitySet, propertyTypes); err != nil {
			return nil, err
		}

		setFlags := []OrganizationEntitySetFlag{Materialized}
		if entitySet.OrganizationID == organizationID {
			setFlags = append(setFlags, Internal)
		}
		flags[entitySetID] = setFlags

		if !materialized[entitySetID] {
			materialized[entitySetID] = true
			assembly.EntitySetIDs = append(assembly.EntitySetIDs, entitySetID)
		}
	}

	if err := a.saveAssembly(ctx, assembly); err != nil {
		return nil, err
	}
	return flags, nil
}

// DematerializeEntitySets drops the named entity set views from the
// organization's database and removes them from the assembly record.
func (a *Assembler) DematerializeEntitySets(ctx context.Context, organizationID uuid.UUID, entitySetIDs []uuid.UUID) error {
	assembly, found, err := a.loadAssembly(ctx, organizationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("assembly for organization %s: %w", organizationID, service.ErrNotFound)
	}

	orgDB, err := a.connections.ConnectToOrg(ctx, organizationID)
	if err != nil {
		return err
	}
	defer orgDB.Close()

	dropped := make(map[uuid.UUID]bool, len(entitySetIDs))
	entitySets := make([]edm.EntitySet, 0, len(entitySetIDs))
	for _, id := range entitySetIDs {
		es, err := a.entitySets.GetEntitySet(ctx, id)
		if err != nil {
			return fmt.Errorf("resolve entity set %s: %w", id, err)
		}
		entitySets = append(entitySets, es)
		dropped[id] = true
	}
	if err := a.materializer.DematerializeEntitySets(ctx, orgDB, entitySets); err != nil {
		return err
	}

	remaining := assembly.EntitySetIDs[:0]
	for _, id := range assembly.EntitySetIDs {
		if !dropped[id] {
			remaining = append(remaining, id)
		}
	}
	assembly.EntitySetIDs = remaining
	return a.saveAssembly(ctx, assembly)
}

// GetMaterializedEntitySets returns the entity sets currently materialized
// for an organization. An organization with no assembly record has an
// empty set.
func (a *Assembler) GetMaterializedEntitySets(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	assembly, found, err := a.loadAssembly(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return assembly.EntitySetIDs, nil
}

// GetOrganizationAssembly returns the assembly record for an organization.
func (a *Assembler) GetOrganizationAssembly(ctx context.Context, organizationID uuid.UUID) (OrganizationAssembly, error) {
	assembly, found, err := a.loadAssembly(ctx, organizationID)
	if err != nil {
		return OrganizationAssembly{}, err
	}
	if !found {
		return OrganizationAssembly{}, fmt.Errorf("assembly for organization %s: %w", organizationID, service.ErrNotFound)
	}
	return assembly, nil
}

// DeleteOrganizationAssembly removes the assembly record. The database
// itself is dropped out of band.
func (a *Assembler) DeleteOrganizationAssembly(ctx context.Context, organizationID uuid.UUID) error {
	return a.store.Delete(ctx, assemblyKey(organizationID))
}

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

// Package warehouse is the registry of external JDBC warehouse connection
// descriptors, each one a securable object.
package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/kvstore"
	"github.com/atlas-assembler/internal/service"
)

const warehouseKeyPrefix = "warehouse:"

// JdbcConnectionParameters describes one external warehouse connection.
type JdbcConnectionParameters struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	URL         string            `json:"url"`
	Driver      string            `json:"driver"`
	Database    string            `json:"database,omitempty"`
	Username    string            `json:"username"`
	Password    string            `json:"password"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// Service owns warehouse descriptor CRUD and the securable object
// bookkeeping around it.
type Service struct {
	store        kvstore.Store
	reservations authorization.ReservationService
	authz        authorization.Manager
	logger       *slog.Logger
}

// NewService wires the warehouse registry.
func NewService(
	store kvstore.Store,
	reservations authorization.ReservationService,
	authz authorization.Manager,
	logger *slog.Logger,
) (*Service, error) {
	if store == nil || reservations == nil || authz == nil {
		return nil, fmt.Errorf("warehouse service requires a store, reservations and an authorization manager")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, reservations: reservations, authz: authz, logger: logger}, nil
}

func warehouseKey(id uuid.UUID) string {
	return warehouseKeyPrefix + id.String()
}

// CreateWarehouse registers a new warehouse descriptor: reserves its id
// under its title, stores the record only if absent, and grants the full
// permission set to the creating principal.
func (s *Service) CreateWarehouse(ctx context.Context, params JdbcConnectionParameters, creator authorization.Principal) (uuid.UUID, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	if params.Title == "" {
		return uuid.Nil, &service.ValidationError{Field: "title", Message: "must not be empty"}
	}

	if err := s.reservations.Reserve(ctx, params.ID, params.Title); err != nil {
		return uuid.Nil, fmt.Errorf("reserve warehouse %s: %w", params.ID, err)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode warehouse %s: %w", params.ID, err)
	}
	stored, err := s.store.PutIfAbsent(ctx, warehouseKey(params.ID), string(raw), 0)
	if err != nil {
		return uuid.Nil, err
	}
	if !stored {
		return uuid.Nil, fmt.Errorf("warehouse %s: %w", params.ID, service.ErrAlreadyExists)
	}

	key := authorization.NewAclKey(params.ID)
	if err := s.authz.SetSecurableObjectType(ctx, key, authorization.JdbcConnectionParametersObject); err != nil {
		return uuid.Nil, err
	}
	if err := s.authz.AddPermission(ctx, key, creator, authorization.AllPermissions()); err != nil {
		return uuid.Nil, err
	}

	s.logger.Info("created warehouse", "id", params.ID, "title", params.Title)
	return params.ID, nil
}

// GetWarehouse loads one warehouse descriptor.
func (s *Service) GetWarehouse(ctx context.Context, id uuid.UUID) (JdbcConnectionParameters, error) {
	raw, found, err := s.store.Get(ctx, warehouseKey(id))
	if err != nil {
		return JdbcConnectionParameters{}, err
	}
	if !found {
		return JdbcConnectionParameters{}, fmt.Errorf("warehouse %s: %w", id, service.ErrNotFound)
	}
	var params JdbcConnectionParameters
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return JdbcConnectionParameters{}, fmt.Errorf("decode warehouse %s: %w", id, err)
	}
	return params, nil
}

// GetWarehouses loads every registered warehouse descriptor.
func (s *Service) GetWarehouses(ctx context.Context) ([]JdbcConnectionParameters, error) {
	keys, err := s.store.Keys(ctx, warehouseKeyPrefix)
	if err != nil {
		return nil, err
	}
	warehouses := make([]JdbcConnectionParameters, 0, len(keys))
	for _, key := range keys {
		raw, found, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		var params JdbcConnectionParameters
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return nil, fmt.Errorf("decode warehouse record %s: %w", key, err)
		}
		warehouses = append(warehouses, params)
	}
	return warehouses, nil
}

// UpdateWarehouse replaces an existing descriptor. The id must already be
// registered.
func (s *Service) UpdateWarehouse(ctx context.Context, params JdbcConnectionParameters) error {
	if _, err := s.GetWarehouse(ctx, params.ID); err != nil {
		return err
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode warehouse %s: %w", params.ID, err)
	}
	return s.store.Set(ctx, warehouseKey(params.ID), string(raw), 0)
}

// DeleteWarehouse removes a descriptor along with its reservation and
// permissions. The id must already be registered.
func (s *Service) DeleteWarehouse(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetWarehouse(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, warehouseKey(id)); err != nil {
		return err
	}
	if err := s.authz.DeletePermissions(ctx, authorization.NewAclKey(id)); err != nil {
		return err
	}
	if err := s.reservations.Release(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted warehouse", "id", id)
	return nil
}

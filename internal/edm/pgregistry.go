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

package edm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/atlas-assembler/internal/service"
)

// Pool is the subset of a pgx pool the registry queries through.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRegistry implements Registry over the production database's
// metadata tables.
type PostgresRegistry struct {
	pool Pool
}

// NewPostgresRegistry builds the registry.
func NewPostgresRegistry(pool Pool) (*PostgresRegistry, error) {
	if pool == nil {
		return nil, fmt.Errorf("registry requires a connection pool")
	}
	return &PostgresRegistry{pool: pool}, nil
}

const entitySetColumns = "id, name, entity_type_id, organization_id, flags, expiration_type, time_to_expiration, start_date_property"

func scanEntitySet(row pgx.Row) (EntitySet, error) {
	var es EntitySet
	var flags []string
	var expirationType *string
	var timeToExpiration *int64
	var startDateProperty *uuid.UUID

	if err := row.Scan(&es.ID, &es.Name, &es.EntityTypeID, &es.OrganizationID,
		&flags, &expirationType, &timeToExpiration, &startDateProperty); err != nil {
		return EntitySet{}, err
	}

	es.Flags = make(map[EntitySetFlag]bool, len(flags))
	for _, f := range flags {
		es.Flags[EntitySetFlag(f)] = true
	}
	if expirationType != nil && timeToExpiration != nil {
		es.Expiration = &Expiration{
			Type:              ExpirationType(*expirationType),
			TimeToExpiration:  time.Duration(*timeToExpiration) * time.Millisecond,
			StartDateProperty: startDateProperty,
		}
	}
	return es, nil
}

// GetEntitySet loads one entity set.
func (r *PostgresRegistry) GetEntitySet(ctx context.Context, id uuid.UUID) (EntitySet, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+entitySetColumns+" FROM entity_sets WHERE id = $1", id)
	es, err := scanEntitySet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EntitySet{}, fmt.Errorf("entity set %s: %w", id, service.ErrNotFound)
		}
		return EntitySet{}, err
	}
	return es, nil
}

// AllEntitySets enumerates every entity set.
func (r *PostgresRegistry) AllEntitySets(ctx context.Context) ([]EntitySet, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+entitySetColumns+" FROM entity_sets")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entitySets []EntitySet
	for rows.Next() {
		es, err := scanEntitySet(rows)
		if err != nil {
			return nil, err
		}
		entitySets = append(entitySets, es)
	}
	return entitySets, rows.Err()
}

// GetEntityType loads one entity type.
func (r *PostgresRegistry) GetEntityType(ctx context.Context, id uuid.UUID) (EntityType, error) {
	var et EntityType
	err := r.pool.QueryRow(ctx,
		"SELECT id, type, properties FROM entity_types WHERE id = $1", id).
		Scan(&et.ID, &et.Type, &et.Properties)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EntityType{}, fmt.Errorf("entity type %s: %w", id, service.ErrNotFound)
		}
		return EntityType{}, err
	}
	return et, nil
}

// AllEntityTypes enumerates every entity type.
func (r *PostgresRegistry) AllEntityTypes(ctx context.Context) ([]EntityType, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, type, properties FROM entity_types")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entityTypes []EntityType
	for rows.Next() {
		var et EntityType
		if err := rows.Scan(&et.ID, &et.Type, &et.Properties); err != nil {
			return nil, err
		}
		entityTypes = append(entityTypes, et)
	}
	return entityTypes, rows.Err()
}

// GetPropertyTypes loads the named property types, keyed by id.
func (r *PostgresRegistry) GetPropertyTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PropertyType, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, type, title, datatype FROM property_types WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	propertyTypes := make(map[uuid.UUID]PropertyType, len(ids))
	for rows.Next() {
		var pt PropertyType
		if err := rows.Scan(&pt.ID, &pt.Type, &pt.Title, &pt.Datatype); err != nil {
			return nil, err
		}
		propertyTypes[pt.ID] = pt
	}
	return propertyTypes, rows.Err()
}

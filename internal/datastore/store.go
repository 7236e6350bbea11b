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

// Package datastore holds the primary data store queries the background
// services run: expired row deletion, dirty key discovery, entity loading
// and index bookkeeping.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/adapter/postgres"
	"github.com/atlas-assembler/internal/adapter/sqlbuilder"
	"github.com/atlas-assembler/internal/search"
	"github.com/atlas-assembler/internal/service"
)

// EntityKey is one ids-table row pending indexing.
type EntityKey struct {
	ID        uuid.UUID
	LastWrite time.Time
}

// Store runs data-plane queries against the production database.
type Store struct {
	pool postgres.DBPool
}

// NewStore wires the store over a production connection pool.
func NewStore(pool postgres.DBPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("datastore requires a connection pool")
	}
	return &Store{pool: pool}, nil
}

// DeleteExpiredByDateProperty deletes rows of an entity set whose
// designated date property is older than cutoff. The property type id is
// the column name; cutoff is rendered by the driver, as a date or a
// timestamp depending on the property's datatype.
func (s *Store) DeleteExpiredByDateProperty(ctx context.Context, entitySetID, propertyTypeID uuid.UUID, cutoff any) (int64, error) {
	query := fmt.Sprintf("DELETE FROM data WHERE entity_set_id = $1 AND %s < $2",
		sqlbuilder.Ident(propertyTypeID.String()))
	tag, err := s.pool.Exec(ctx, query, entitySetID, cutoff)
	if err != nil {
		return 0, service.NewDatabaseError("delete expired", entitySetID.String(), err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredByLastWrite deletes rows not updated since cutoff.
func (s *Store) DeleteExpiredByLastWrite(ctx context.Context, entitySetID uuid.UUID, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM data WHERE entity_set_id = $1 AND last_write < $2",
		entitySetID, cutoff)
	if err != nil {
		return 0, service.NewDatabaseError("delete expired", entitySetID.String(), err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredByFirstWrite deletes rows first written before cutoff. The
// first write is the head of the versions array, in epoch milliseconds.
func (s *Store) DeleteExpiredByFirstWrite(ctx context.Context, entitySetID uuid.UUID, cutoffEpochMillis int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM data WHERE entity_set_id = $1 AND versions[1] < $2",
		entitySetID, cutoffEpochMillis)
	if err != nil {
		return 0, service.NewDatabaseError("delete expired", entitySetID.String(), err)
	}
	return tag.RowsAffected(), nil
}

// DirtyEntityKeys returns up to limit entity keys of an entity set whose
// last write is newer than their last index. Tombstoned rows are skipped.
func (s *Store) DirtyEntityKeys(ctx context.Context, entitySetID uuid.UUID, limit int) ([]EntityKey, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, last_write FROM ids WHERE entity_set_id = $1 AND last_index < last_write AND version > 0 LIMIT $2",
		entitySetID, limit)
	if err != nil {
		return nil, service.NewDatabaseError("load dirty keys", entitySetID.String(), err)
	}
	defer rows.Close()

	var keys []EntityKey
	for rows.Next() {
		var key EntityKey
		if err := rows.Scan(&key.ID, &key.LastWrite); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// LoadEntities loads full entity rows for a batch of entity keys.
func (s *Store) LoadEntities(ctx context.Context, entitySetID uuid.UUID, ids []uuid.UUID) ([]search.Entity, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, properties FROM data WHERE entity_set_id = $1 AND id = ANY($2)",
		entitySetID, ids)
	if err != nil {
		return nil, service.NewDatabaseError("load entities", entitySetID.String(), err)
	}
	defer rows.Close()

	var entities []search.Entity
	for rows.Next() {
		entity := search.Entity{EntitySetID: entitySetID}
		if err := rows.Scan(&entity.ID, &entity.Properties); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// MarkIndexed records that a batch of entity keys has been written to the
// search index, advancing last_index to each row's last write.
func (s *Store) MarkIndexed(ctx context.Context, entitySetID uuid.UUID, ids []uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE ids SET last_index = last_write WHERE entity_set_id = $1 AND id = ANY($2)",
		entitySetID, ids)
	if err != nil {
		return 0, service.NewDatabaseError("mark indexed", entitySetID.String(), err)
	}
	return tag.RowsAffected(), nil
}

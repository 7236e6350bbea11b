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

// Package search is the indexing client the background services push
// entity data through. Entities are indexed per entity type.
package search

import (
	"context"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/edm"
)

// Entity is one indexable entity row.
type Entity struct {
	ID          uuid.UUID      `json:"id"`
	EntitySetID uuid.UUID      `json:"entitySetId"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// EntityIndexer is the search index collaborator: per-entity-type index
// management and bulk entity writes.
type EntityIndexer interface {
	// EntityTypesWithIndices filters candidates down to the entity types
	// that already have a search index.
	EntityTypesWithIndices(ctx context.Context, candidates []uuid.UUID) ([]uuid.UUID, error)

	// SaveEntityTypeIndex creates or updates the index for an entity type,
	// with one searchable attribute per property type.
	SaveEntityTypeIndex(ctx context.Context, entityType edm.EntityType, propertyTypes map[uuid.UUID]edm.PropertyType) error

	// IndexEntities bulk-writes entities of one entity set into its entity
	// type's index and reports how many were submitted.
	IndexEntities(ctx context.Context, entitySet edm.EntitySet, entityTypeID uuid.UUID, entities []Entity) (int, error)
}

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

package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	meili "github.com/meilisearch/meilisearch-go"

	"github.com/atlas-assembler/internal/edm"
)

const entityIndexPrefix = "entity_data_"

// Meili implements EntityIndexer via Meilisearch, one index per entity
// type.
type Meili struct {
	client meili.ServiceManager
	logger *slog.Logger
}

// NewMeili creates a Meilisearch-backed indexer.
func NewMeili(url, apiKey string, logger *slog.Logger) (*Meili, error) {
	client := meili.New(url, meili.WithAPIKey(apiKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("meilisearch unavailable at %s: %w", url, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Meili{client: client, logger: logger}, nil
}

// NewMeiliWithClient wraps an existing client.
func NewMeiliWithClient(client meili.ServiceManager, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meili{client: client, logger: logger}
}

// EntityIndexName derives the index uid for an entity type.
func EntityIndexName(entityTypeID uuid.UUID) string {
	return entityIndexPrefix + entityTypeID.String()
}

// EntityTypesWithIndices filters candidates down to entity types whose
// index exists.
func (m *Meili) EntityTypesWithIndices(ctx context.Context, candidates []uuid.UUID) ([]uuid.UUID, error) {
	var indexed []uuid.UUID
	for _, id := range candidates {
		if _, err := m.client.GetIndex(EntityIndexName(id)); err != nil {
			continue
		}
		indexed = append(indexed, id)
	}
	return indexed, nil
}

// SaveEntityTypeIndex creates the entity type's index if absent and points
// its searchable attributes at the property type columns.
func (m *Meili) SaveEntityTypeIndex(ctx context.Context, entityType edm.EntityType, propertyTypes map[uuid.UUID]edm.PropertyType) error {
	uid := EntityIndexName(entityType.ID)
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        uid,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Info("create index (may already exist)", "index", uid, "error", err)
	}

	index := m.client.Index(uid)
	filterable := []interface{}{"entitySetId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		return fmt.Errorf("update filterable attributes for %s: %w", uid, err)
	}

	searchable := make([]string, 0, len(propertyTypes))
	for _, pt := range propertyTypes {
		searchable = append(searchable, pt.Type)
	}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		return fmt.Errorf("update searchable attributes for %s: %w", uid, err)
	}
	return nil
}

// IndexEntities bulk-writes entities into the entity type's index.
func (m *Meili) IndexEntities(ctx context.Context, entitySet edm.EntitySet, entityTypeID uuid.UUID, entities []Entity) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	if _, err := m.client.Index(EntityIndexName(entityTypeID)).AddDocuments(entities, nil); err != nil {
		return 0, fmt.Errorf("index entities for %s: %w", entitySet.Name, err)
	}
	return len(entities), nil
}

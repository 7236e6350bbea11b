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

// Package indexing runs the background expiration and reindexing tasks:
// expired row deletion per entity set policy, dirty entity reindexing in
// bounded batches, and the distributed locks coordinating both.
package indexing

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/atlas-assembler/internal/config"
	"github.com/atlas-assembler/internal/datastore"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/metrics"
	"github.com/atlas-assembler/internal/search"
)

const (
	scavengeSchedule = "@every 60s"
	expireSchedule   = "@every 30s"
)

// Service is the background expiration/indexing scheduler.
type Service struct {
	cfg        config.IndexerConfig
	store      *datastore.Store
	entitySets edm.Registry
	indexer    search.EntityIndexer
	locks      *ExpirationLocks
	logger     *slog.Logger

	// taskLock keeps a node from running overlapping expire-and-reindex
	// passes.
	taskLock sync.Mutex
	cron     *cron.Cron
}

// NewService wires the background service.
func NewService(
	cfg config.IndexerConfig,
	store *datastore.Store,
	entitySets edm.Registry,
	indexer search.EntityIndexer,
	locks *ExpirationLocks,
	logger *slog.Logger,
) (*Service, error) {
	if store == nil || entitySets == nil || indexer == nil || locks == nil {
		return nil, fmt.Errorf("indexing service requires a store, registry, indexer and locks")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:        cfg,
		store:      store,
		entitySets: entitySets,
		indexer:    indexer,
		locks:      locks,
		logger:     logger,
	}, nil
}

// Start schedules the lock scavenger and the expire-and-reindex task.
func (s *Service) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(scavengeSchedule, func() {
		if err := s.locks.Scavenge(context.Background()); err != nil {
			s.logger.Error("lock scavenging failed", "error", err)
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(expireSchedule, func() {
		s.RunExpirationPass(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// RunExpirationPass runs one expire-and-reindex pass over all entity
// sets. If a pass is already running on this node, the call logs and
// returns.
func (s *Service) RunExpirationPass(ctx context.Context) {
	if !s.taskLock.TryLock() {
		s.logger.Info("not starting new indexing job as an existing one is running")
		return
	}
	defer s.taskLock.Unlock()

	if err := s.EnsureEntityTypeIndices(ctx); err != nil {
		s.logger.Error("ensuring entity type indices failed", "error", err)
	}

	if !s.cfg.BackgroundExpiredDataDeletionEnabled {
		s.logger.Info("skipping background indexing as it is not enabled")
		return
	}

	start := time.Now()
	entitySets, err := s.entitySets.AllEntitySets(ctx)
	if err != nil {
		s.logger.Error("enumerating entity sets failed", "error", err)
		return
	}

	// Shuffling gives every entity set a chance at work sharing across
	// nodes.
	rand.Shuffle(len(entitySets), func(i, j int) {
		entitySets[i], entitySets[j] = entitySets[j], entitySets[i]
	})

	var locked []edm.EntitySet
	for _, es := range entitySets {
		if es.Flags[edm.AuditFlag] {
			continue
		}
		acquired, err := s.locks.TryLock(ctx, es.ID)
		if err != nil {
			s.logger.Error("lock acquisition failed", "entitySet", es.ID, "error", err)
			continue
		}
		if acquired {
			locked = append(locked, es)
		}
	}

	var totalIndexed atomic.Int64
	work := make(chan edm.EntitySet)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Parallelism; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for es := range work {
				if es.IsLinking() {
					continue
				}
				indexed, err := s.indexEntitySetExpirations(ctx, es)
				if err != nil {
					s.logger.Error("expiration indexing failed",
						"entitySet", es.Name, "error", err)
					continue
				}
				totalIndexed.Add(int64(indexed))
			}
		}()
	}
	for _, es := range locked {
		work <- es
	}
	close(work)
	wg.Wait()

	for _, es := range locked {
		if err := s.locks.Unlock(ctx, es.ID); err != nil {
			s.logger.Error("unlock failed", "entitySet", es.ID, "error", err)
		}
	}

	s.logger.Info("completed indexing pass",
		"indexed", totalIndexed.Load(),
		"entitySets", len(locked),
		"elapsed", time.Since(start))
}

// EnsureEntityTypeIndices creates search indices for entity types that do
// not have one yet.
func (s *Service) EnsureEntityTypeIndices(ctx context.Context) error {
	entityTypes, err := s.entitySets.AllEntityTypes(ctx)
	if err != nil {
		return err
	}
	candidates := make([]uuid.UUID, len(entityTypes))
	byID := make(map[uuid.UUID]edm.EntityType, len(entityTypes))
	for i, et := range entityTypes {
		candidates[i] = et.ID
		byID[et.ID] = et
	}

	existing, err := s.indexer.EntityTypesWithIndices(ctx, candidates)
	if err != nil {
		return err
	}
	for _, id := range existing {
		delete(byID, id)
	}

	for id, et := range byID {
		propertyTypes, err := s.entitySets.GetPropertyTypes(ctx, et.Properties)
		if err != nil {
			return err
		}
		if err := s.indexer.SaveEntityTypeIndex(ctx, et, propertyTypes); err != nil {
			return err
		}
		s.logger.Info("created missing index for entity type", "entityType", et.Type, "id", id)
	}
	return nil
}

// indexEntitySetExpirations deletes the entity set's expired rows per its
// policy, then reindexes its dirty entities in batches, refreshing the
// distributed lock before each batch.
func (s *Service) indexEntitySetExpirations(ctx context.Context, es edm.EntitySet) (int, error) {
	if es.Expiration != nil {
		deleted, err := s.deleteExpiredData(ctx, es)
		if err != nil {
			return 0, err
		}
		if deleted > 0 {
			s.logger.Info("deleted expired rows", "entitySet", es.Name, "rows", deleted)
		}
	}

	entityType, err := s.entitySets.GetEntityType(ctx, es.EntityTypeID)
	if err != nil {
		return 0, err
	}

	indexed := 0
	for {
		if err := s.locks.Refresh(ctx, es.ID); err != nil {
			return indexed, err
		}

		keys, err := s.store.DirtyEntityKeys(ctx, es.ID, s.cfg.BatchSize)
		if err != nil {
			return indexed, err
		}
		if len(keys) == 0 {
			break
		}

		count, err := s.indexBatch(ctx, es, entityType.ID, keys)
		if err != nil {
			return indexed, err
		}
		indexed += count

		if len(keys) < s.cfg.BatchSize {
			break
		}
	}
	return indexed, nil
}

// indexBatch loads one batch of dirty entities, writes them to the search
// index and marks them indexed. A batch whose loaded entity count differs
// from its key count is still marked indexed so the pass cannot loop
// forever on rows that no longer load.
func (s *Service) indexBatch(ctx context.Context, es edm.EntitySet, entityTypeID uuid.UUID, keys []datastore.EntityKey) (int, error) {
	ids := make([]uuid.UUID, len(keys))
	for i, key := range keys {
		ids[i] = key.ID
	}

	entities, err := s.store.LoadEntities(ctx, es.ID, ids)
	if err != nil {
		return 0, err
	}
	if len(entities) != len(keys) {
		s.logger.Error("batch count mismatch, marking as indexed to prevent infinite loop",
			"entitySet", es.Name, "expected", len(keys), "loaded", len(entities))
		metrics.IndexingBatchCountMismatchTotal.Inc()
	}

	if len(entities) > 0 {
		if _, err := s.indexer.IndexEntities(ctx, es, entityTypeID, entities); err != nil {
			return 0, err
		}
		metrics.EntitiesIndexedTotal.Add(float64(len(entities)))
	}

	if _, err := s.store.MarkIndexed(ctx, es.ID, ids); err != nil {
		return 0, err
	}
	return len(entities), nil
}

// deleteExpiredData removes an entity set's expired rows per its
// expiration policy and reports the row count.
func (s *Service) deleteExpiredData(ctx context.Context, es edm.EntitySet) (int64, error) {
	exp := es.Expiration
	cutoffTime := time.Now().Add(-exp.TimeToExpiration)

	var deleted int64
	var err error
	switch exp.Type {
	case edm.DateProperty:
		if exp.StartDateProperty == nil {
			return 0, fmt.Errorf("entity set %s has a date property expiration without a property", es.Name)
		}
		propertyTypes, ptErr := s.entitySets.GetPropertyTypes(ctx, []uuid.UUID{*exp.StartDateProperty})
		if ptErr != nil {
			return 0, ptErr
		}
		pt := propertyTypes[*exp.StartDateProperty]
		var cutoff any = cutoffTime
		if pt.Datatype == edm.DateDatatype {
			cutoff = cutoffTime.Format("2006-01-02")
		}
		deleted, err = s.store.DeleteExpiredByDateProperty(ctx, es.ID, *exp.StartDateProperty, cutoff)
	case edm.FirstWrite:
		deleted, err = s.store.DeleteExpiredByFirstWrite(ctx, es.ID, cutoffTime.UnixMilli())
	case edm.LastWrite:
		deleted, err = s.store.DeleteExpiredByLastWrite(ctx, es.ID, cutoffTime)
	default:
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	metrics.RecordRowsExpired(string(exp.Type), float64(deleted))
	return deleted, nil
}

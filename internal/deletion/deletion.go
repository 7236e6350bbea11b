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

// Package deletion authorizes and submits entity deletion jobs. The
// authorization check covers the entity set and every property type; the
// expensive delete itself runs as a background job.
package deletion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/atlas-assembler/internal/authorization"
	"github.com/atlas-assembler/internal/edm"
	"github.com/atlas-assembler/internal/service"
)

// Job describes one submitted deletion job.
type Job struct {
	EntitySetID  uuid.UUID
	EntityKeyIDs []uuid.UUID
	Principal    authorization.Principal
}

// JobService is the external job-submission collaborator for long-running
// work.
type JobService interface {
	// SubmitDeletionJob enqueues a deletion job and returns its id.
	SubmitDeletionJob(ctx context.Context, job Job) (uuid.UUID, error)
}

// Service gates entity deletion behind OWNER checks.
type Service struct {
	authz      authorization.Manager
	entitySets edm.Registry
	jobs       JobService
	logger     *slog.Logger
}

// NewService wires the deletion service.
func NewService(
	authz authorization.Manager,
	entitySets edm.Registry,
	jobs JobService,
	logger *slog.Logger,
) (*Service, error) {
	if authz == nil || entitySets == nil || jobs == nil {
		return nil, fmt.Errorf("deletion service requires an authorization manager, registry and job service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{authz: authz, entitySets: entitySets, jobs: jobs, logger: logger}, nil
}

// DeleteEntities checks that the principal owns the entity set and every
// one of its property types, then submits the delete as a background job.
// The first missing permission aborts before any data is touched, naming
// the unauthorized object.
func (s *Service) DeleteEntities(
	ctx context.Context,
	entitySetID uuid.UUID,
	entityKeyIDs []uuid.UUID,
	principal authorization.Principal,
) (uuid.UUID, error) {
	entitySet, err := s.entitySets.GetEntitySet(ctx, entitySetID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve entity set %s: %w", entitySetID, err)
	}

	if err := s.checkOwner(ctx, authorization.NewAclKey(entitySetID), principal); err != nil {
		return uuid.Nil, err
	}

	entityType, err := s.entitySets.GetEntityType(ctx, entitySet.EntityTypeID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve entity type %s: %w", entitySet.EntityTypeID, err)
	}
	for _, ptID := range entityType.Properties {
		if err := s.checkOwner(ctx, authorization.NewAclKey(entitySetID, ptID), principal); err != nil {
			return uuid.Nil, err
		}
	}

	jobID, err := s.jobs.SubmitDeletionJob(ctx, Job{
		EntitySetID:  entitySetID,
		EntityKeyIDs: entityKeyIDs,
		Principal:    principal,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("submit deletion job for %s: %w", entitySetID, err)
	}

	s.logger.Info("submitted deletion job",
		"job", jobID, "entitySet", entitySet.Name, "entities", len(entityKeyIDs))
	return jobID, nil
}

func (s *Service) checkOwner(ctx context.Context, key authorization.AclKey, principal authorization.Principal) error {
	allowed, err := s.authz.CheckPermission(ctx, key, principal, authorization.Owner)
	if err != nil {
		return err
	}
	if !allowed {
		return service.NewForbiddenError(key.String(), string(authorization.Owner))
	}
	return nil
}

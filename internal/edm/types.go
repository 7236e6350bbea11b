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

// Package edm holds the entity data model types the assembler and the
// background services consume: entity sets, entity types, property types
// and per-entity-set expiration policies. The registries that own this
// metadata are external collaborators accessed through interfaces.
package edm

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Datatype is a property type's primitive data type.
type Datatype string

const (
	BinaryDatatype         Datatype = "Binary"
	BooleanDatatype        Datatype = "Boolean"
	DateDatatype           Datatype = "Date"
	DateTimeOffsetDatatype Datatype = "DateTimeOffset"
	DoubleDatatype         Datatype = "Double"
	Int64Datatype          Datatype = "Int64"
	StringDatatype         Datatype = "String"
)

// PropertyType describes one property of an entity type. Type is the fully
// qualified name, which doubles as the column name in materialized views.
type PropertyType struct {
	ID       uuid.UUID
	Type     string
	Title    string
	Datatype Datatype
}

// EntityType groups property types.
type EntityType struct {
	ID         uuid.UUID
	Type       string
	Properties []uuid.UUID
}

// EntitySetFlag marks entity set variants.
type EntitySetFlag string

const (
	// LinkingFlag marks linking entity sets, which are excluded from
	// expiration indexing.
	LinkingFlag EntitySetFlag = "LINKING"
	// AuditFlag marks audit entity sets.
	AuditFlag EntitySetFlag = "AUDIT"
)

// EntitySet is a named collection of entities of one entity type; the unit
// of authorization, materialization and expiration.
type EntitySet struct {
	ID             uuid.UUID
	Name           string
	EntityTypeID   uuid.UUID
	OrganizationID uuid.UUID
	Flags          map[EntitySetFlag]bool
	Expiration     *Expiration
}

// IsLinking reports whether the entity set is a linking entity set.
func (es EntitySet) IsLinking() bool {
	return es.Flags[LinkingFlag]
}

// ExpirationType selects how a row's age is measured for expiration.
type ExpirationType string

const (
	// DateProperty expires rows by a designated date-valued property.
	DateProperty ExpirationType = "DATE_PROPERTY"
	// FirstWrite expires rows by their first-write timestamp.
	FirstWrite ExpirationType = "FIRST_WRITE"
	// LastWrite expires rows by their last-write timestamp.
	LastWrite ExpirationType = "LAST_WRITE"
)

// Expiration is a per-entity-set data expiration policy. Rows strictly
// older than now minus TimeToExpiration are deleted.
type Expiration struct {
	Type             ExpirationType
	TimeToExpiration time.Duration
	// StartDateProperty is the property carrying the expiration date;
	// required when Type is DateProperty.
	StartDateProperty *uuid.UUID
}

// Registry is the external metadata collaborator for entity sets, entity
// types and property types.
type Registry interface {
	GetEntitySet(ctx context.Context, id uuid.UUID) (EntitySet, error)
	AllEntitySets(ctx context.Context) ([]EntitySet, error)
	GetEntityType(ctx context.Context, id uuid.UUID) (EntityType, error)
	AllEntityTypes(ctx context.Context) ([]EntityType, error)
	GetPropertyTypes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PropertyType, error)
}

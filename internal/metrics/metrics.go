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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Metric namespace
	namespace = "assembler"

	// Label names
	labelStatus     = "status"
	labelExpiration = "expiration_type"
)

// Status values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// Provisioning metrics

	// OrganizationDatabasesCreatedTotal tracks organization databases provisioned
	OrganizationDatabasesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "organization_databases_created_total",
			Help:      "Total number of organization databases provisioned",
		},
	)

	// RolesCreatedTotal tracks database roles created
	RolesCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roles_created_total",
			Help:      "Total number of database roles created",
		},
	)

	// UsersCreatedTotal tracks database users created
	UsersCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "users_created_total",
			Help:      "Total number of database users created",
		},
	)

	// Materialization metrics

	// MaterializationsTotal tracks entity set materializations by status
	MaterializationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materializations_total",
			Help:      "Total number of entity set materializations",
		},
		[]string{labelStatus},
	)

	// GrantStatementsTotal tracks permission grant statements executed
	GrantStatementsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grant_statements_total",
			Help:      "Total number of permission grant statements executed",
		},
	)

	// Transport metrics

	// EntityTypeTablesTransportedTotal tracks entity type tables transported
	EntityTypeTablesTransportedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_type_tables_transported_total",
			Help:      "Total number of entity type tables transported",
		},
	)

	// Expiration metrics

	// RowsExpiredTotal tracks expired rows deleted by expiration type
	RowsExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_expired_total",
			Help:      "Total number of expired rows deleted",
		},
		[]string{labelExpiration},
	)

	// Indexing metrics

	// EntitiesIndexedTotal tracks entities written to the search index
	EntitiesIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_indexed_total",
			Help:      "Total number of entities written to the search index",
		},
	)

	// IndexingBatchCountMismatchTotal tracks batches where the loaded entity
	// count differed from the dirty key count
	IndexingBatchCountMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "indexing_batch_count_mismatch_total",
			Help:      "Total number of indexing batches whose loaded entity count differed from the dirty key count",
		},
	)

	// Lock metrics

	// LockAcquisitionsTotal tracks distributed lock acquisition attempts by status
	LockAcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lock_acquisitions_total",
			Help:      "Total number of distributed lock acquisition attempts",
		},
		[]string{labelStatus},
	)
)

func init() {
	prometheus.MustRegister(
		// Provisioning metrics
		OrganizationDatabasesCreatedTotal,
		RolesCreatedTotal,
		UsersCreatedTotal,

		// Materialization metrics
		MaterializationsTotal,
		GrantStatementsTotal,

		// Transport metrics
		EntityTypeTablesTransportedTotal,

		// Expiration metrics
		RowsExpiredTotal,

		// Indexing metrics
		EntitiesIndexedTotal,
		IndexingBatchCountMismatchTotal,

		// Lock metrics
		LockAcquisitionsTotal,
	)
}

// RecordMaterialization records an entity set materialization with its status
func RecordMaterialization(status string) {
	MaterializationsTotal.WithLabelValues(status).Inc()
}

// RecordRowsExpired records expired rows deleted for an expiration type
func RecordRowsExpired(expirationType string, count float64) {
	RowsExpiredTotal.WithLabelValues(expirationType).Add(count)
}

// RecordLockAcquisition records a distributed lock acquisition attempt
func RecordLockAcquisition(status string) {
	LockAcquisitionsTotal.WithLabelValues(status).Inc()
}

package reconciler

import (
	"sync"
	"time"

	"ldapintegrator/pkg/logging"
)

// ReconcilerMetrics tracks reconciliation-related counters for monitoring.
//
// Publish metrics are the interesting ones for this operator: the skipped
// counter shows idempotent no-op reconciliations working, and a high write
// counter without spec changes points at something fighting the operator
// over the published secrets.
type ReconcilerMetrics struct {
	mu sync.RWMutex

	// Per-resource-type metrics
	resourceMetrics map[ResourceType]*resourceTypeMetrics

	// Global counters for summary metrics
	totalReconcileAttempts  int64
	totalReconcileSuccesses int64
	totalReconcileFailures  int64
	totalPublishWrites      int64
	totalPublishSkips       int64
	totalStatusSyncFailures int64
}

// resourceTypeMetrics holds reconciliation metrics for a specific resource
// type.
type resourceTypeMetrics struct {
	ResourceType       ResourceType
	ReconcileAttempts  int64
	ReconcileSuccesses int64
	ReconcileFailures  int64
	PublishWrites      int64
	PublishSkips       int64
	StatusSyncFailures int64
	LastReconcileAt    time.Time
	LastSuccessAt      time.Time
	LastFailureAt      time.Time
}

// NewReconcilerMetrics creates a new ReconcilerMetrics instance.
func NewReconcilerMetrics() *ReconcilerMetrics {
	return &ReconcilerMetrics{
		resourceMetrics: make(map[ResourceType]*resourceTypeMetrics),
	}
}

// getOrCreateResourceMetrics returns existing metrics for a resource type
// or creates new ones. Caller must hold the lock.
func (m *ReconcilerMetrics) getOrCreateResourceMetrics(resourceType ResourceType) *resourceTypeMetrics {
	if metrics, exists := m.resourceMetrics[resourceType]; exists {
		return metrics
	}

	metrics := &resourceTypeMetrics{
		ResourceType: resourceType,
	}
	m.resourceMetrics[resourceType] = metrics
	return metrics
}

// RecordReconcileAttempt records the start of a reconciliation.
func (m *ReconcilerMetrics) RecordReconcileAttempt(resourceType ResourceType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.ReconcileAttempts++
	metrics.LastReconcileAt = time.Now()
	m.totalReconcileAttempts++
}

// RecordReconcileSuccess records a completed reconciliation.
func (m *ReconcilerMetrics) RecordReconcileSuccess(resourceType ResourceType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.ReconcileSuccesses++
	metrics.LastSuccessAt = time.Now()
	m.totalReconcileSuccesses++
}

// RecordReconcileFailure records a failed reconciliation.
func (m *ReconcilerMetrics) RecordReconcileFailure(resourceType ResourceType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.ReconcileFailures++
	metrics.LastFailureAt = time.Now()
	m.totalReconcileFailures++
}

// RecordPublish records a payload write to a binding.
func (m *ReconcilerMetrics) RecordPublish(resourceType ResourceType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.PublishWrites++
	m.totalPublishWrites++
}

// RecordPublishSkip records a publish that was skipped because the
// published data already matched.
func (m *ReconcilerMetrics) RecordPublishSkip(resourceType ResourceType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.PublishSkips++
	m.totalPublishSkips++
}

// RecordStatusSyncFailure records a failed status sync attempt.
//
// High failure rates may indicate API server issues, RBAC problems, or a
// CRD schema mismatch.
func (m *ReconcilerMetrics) RecordStatusSyncFailure(resourceType ResourceType, resourceName string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := m.getOrCreateResourceMetrics(resourceType)
	metrics.StatusSyncFailures++
	m.totalStatusSyncFailures++

	logging.Warn("ReconcilerMetrics", "Status sync failure for %s/%s: %s (failures: %d)",
		resourceType, resourceName, reason, metrics.StatusSyncFailures)
}

// ReconcilerMetricsSummary provides a summary of reconciliation metrics.
type ReconcilerMetricsSummary struct {
	TotalReconcileAttempts  int64                    `json:"total_reconcile_attempts"`
	TotalReconcileSuccesses int64                    `json:"total_reconcile_successes"`
	TotalReconcileFailures  int64                    `json:"total_reconcile_failures"`
	TotalPublishWrites      int64                    `json:"total_publish_writes"`
	TotalPublishSkips       int64                    `json:"total_publish_skips"`
	TotalStatusSyncFailures int64                    `json:"total_status_sync_failures"`
	PerResourceTypeMetrics  []ResourceTypeMetricView `json:"per_resource_type_metrics"`
}

// ResourceTypeMetricView is a read-only view of resource-type-specific
// metrics.
type ResourceTypeMetricView struct {
	ResourceType       ResourceType `json:"resource_type"`
	ReconcileAttempts  int64        `json:"reconcile_attempts"`
	ReconcileSuccesses int64        `json:"reconcile_successes"`
	ReconcileFailures  int64        `json:"reconcile_failures"`
	PublishWrites      int64        `json:"publish_writes"`
	PublishSkips       int64        `json:"publish_skips"`
	StatusSyncFailures int64        `json:"status_sync_failures"`
	LastReconcileAt    time.Time    `json:"last_reconcile_at,omitempty"`
	LastSuccessAt      time.Time    `json:"last_success_at,omitempty"`
	LastFailureAt      time.Time    `json:"last_failure_at,omitempty"`
}

// Summary returns a point-in-time snapshot of all counters.
func (m *ReconcilerMetrics) Summary() ReconcilerMetricsSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := ReconcilerMetricsSummary{
		TotalReconcileAttempts:  m.totalReconcileAttempts,
		TotalReconcileSuccesses: m.totalReconcileSuccesses,
		TotalReconcileFailures:  m.totalReconcileFailures,
		TotalPublishWrites:      m.totalPublishWrites,
		TotalPublishSkips:       m.totalPublishSkips,
		TotalStatusSyncFailures: m.totalStatusSyncFailures,
	}

	for _, metrics := range m.resourceMetrics {
		summary.PerResourceTypeMetrics = append(summary.PerResourceTypeMetrics, ResourceTypeMetricView{
			ResourceType:       metrics.ResourceType,
			ReconcileAttempts:  metrics.ReconcileAttempts,
			ReconcileSuccesses: metrics.ReconcileSuccesses,
			ReconcileFailures:  metrics.ReconcileFailures,
			PublishWrites:      metrics.PublishWrites,
			PublishSkips:       metrics.PublishSkips,
			StatusSyncFailures: metrics.StatusSyncFailures,
			LastReconcileAt:    metrics.LastReconcileAt,
			LastSuccessAt:      metrics.LastSuccessAt,
			LastFailureAt:      metrics.LastFailureAt,
		})
	}

	return summary
}

// Global metrics instance for use by reconcilers, initialized lazily via
// GetReconcilerMetrics.
var (
	globalReconcilerMetrics   *ReconcilerMetrics
	globalReconcilerMetricsMu sync.RWMutex
)

// GetReconcilerMetrics returns the global reconciler metrics instance.
func GetReconcilerMetrics() *ReconcilerMetrics {
	globalReconcilerMetricsMu.RLock()
	if globalReconcilerMetrics != nil {
		defer globalReconcilerMetricsMu.RUnlock()
		return globalReconcilerMetrics
	}
	globalReconcilerMetricsMu.RUnlock()

	globalReconcilerMetricsMu.Lock()
	defer globalReconcilerMetricsMu.Unlock()

	if globalReconcilerMetrics == nil {
		globalReconcilerMetrics = NewReconcilerMetrics()
	}
	return globalReconcilerMetrics
}

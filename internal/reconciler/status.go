package reconciler

import (
	"context"
	"regexp"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/util/wait"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
	"ldapintegrator/pkg/logging"
	pkgstrings "ldapintegrator/pkg/strings"
)

// DefaultNamespace is used when a request carries no namespace.
const DefaultNamespace = "default"

// DefaultStatusSyncInterval is how often a successfully reconciled
// integrator is requeued for a periodic resync. The resync catches drift
// that produced no change event, such as a consumer editing a published
// secret by hand.
const DefaultStatusSyncInterval = 5 * time.Minute

// StatusSyncRetryBackoff is the backoff used when a status update hits an
// optimistic locking conflict.
var StatusSyncRetryBackoff = wait.Backoff{
	Steps:    4,
	Duration: 50 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}

// StatusUpdater writes integrator and binding status subresources. The
// client package's IntegratorClient satisfies this.
type StatusUpdater interface {
	GetLDAPIntegrator(ctx context.Context, name, namespace string) (*v1alpha1.LDAPIntegrator, error)
	UpdateLDAPIntegratorStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) error
	GetLDAPBinding(ctx context.Context, name, namespace string) (*v1alpha1.LDAPBinding, error)
	UpdateLDAPBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding) error
}

// BaseStatusConfig carries the status sync wiring shared by reconcilers.
type BaseStatusConfig struct {
	// StatusUpdater syncs status back to CRDs. Nil disables status sync.
	StatusUpdater StatusUpdater

	// Namespace is the default namespace for status operations.
	Namespace string
}

// SetStatusUpdater sets the status updater and default namespace.
func (b *BaseStatusConfig) SetStatusUpdater(updater StatusUpdater, namespace string) {
	b.StatusUpdater = updater
	if namespace != "" {
		b.Namespace = namespace
	}
}

// GetNamespace returns the namespace to use, applying the default chain.
func (b *BaseStatusConfig) GetNamespace(namespace string) string {
	if namespace != "" {
		return namespace
	}
	if b.Namespace != "" {
		return b.Namespace
	}
	return DefaultNamespace
}

// IsNotFoundError reports whether err indicates a missing resource.
func IsNotFoundError(err error) bool {
	return apierrors.IsNotFound(err)
}

// IsConflictError reports whether err is an optimistic locking conflict
// that a retry with a re-fetched resource can resolve.
func IsConflictError(err error) bool {
	return apierrors.IsConflict(err)
}

// statusSyncHelper tracks the outcome of one status sync attempt so
// failures are logged once with context instead of spamming per retry.
type statusSyncHelper struct {
	resourceType ResourceType
	name         string
	subsystem    string
}

// NewStatusSyncHelper creates a helper for one status sync operation.
func NewStatusSyncHelper(resourceType ResourceType, name, subsystem string) *statusSyncHelper {
	return &statusSyncHelper{
		resourceType: resourceType,
		name:         name,
		subsystem:    subsystem,
	}
}

// RecordAttempt notes that a sync attempt is starting.
func (h *statusSyncHelper) RecordAttempt() {
	logging.Debug(h.subsystem, "Syncing %s %s status", h.resourceType, h.name)
}

// HandleResult logs the outcome of the sync and records failures in the
// metrics.
func (h *statusSyncHelper) HandleResult(retryErr, lastErr error) {
	if retryErr != nil {
		GetReconcilerMetrics().RecordStatusSyncFailure(h.resourceType, h.name, retryErr.Error())
		return
	}
	if lastErr != nil {
		GetReconcilerMetrics().RecordStatusSyncFailure(h.resourceType, h.name, lastErr.Error())
	}
}

// WasSuccessful reports whether the sync completed cleanly.
func (h *statusSyncHelper) WasSuccessful(retryErr, lastErr error) bool {
	return retryErr == nil && lastErr == nil
}

// Patterns that mark secret material in error text. LDAP client libraries
// and wrapped transport errors can quote credentials verbatim.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bind_password|password|passwd|secret|token|credential)(["']?\s*[=:]\s*)\S+`),
	regexp.MustCompile(`(?i)(authorization:\s*(?:bearer|basic)\s+)\S+`),
}

// maxStatusErrorLen caps error text stored in a status subresource.
const maxStatusErrorLen = 512

// SanitizeErrorMessage scrubs secret material from an error message and
// flattens it to a bounded single line before it is stored in a status
// field or Kubernetes event.
func SanitizeErrorMessage(msg string) string {
	for _, pattern := range sensitivePatterns {
		msg = pattern.ReplaceAllString(msg, "${1}${2}[REDACTED]")
	}

	return pkgstrings.TruncateSingleLine(msg, maxStatusErrorLen)
}

package reconciler

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/util/retry"

	"ldapintegrator/internal/client"
	"ldapintegrator/internal/payload"
	"ldapintegrator/internal/validation"
	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
	"ldapintegrator/pkg/logging"
)

// nowFunc is a test hook for timestamps written to status.
var nowFunc = time.Now

// IntegratorReconciler reconciles LDAPIntegrator resources.
//
// One reconciliation derives the integrator's full desired outcome from
// scratch:
//
//  1. Fetch the spec
//  2. Validate it (first failure wins)
//  3. Resolve the bind password secret
//  4. Publish the connection payload to every binding, skipping bindings
//     whose published data already matches
//  5. Report phase Active, Blocked, or Waiting
//
// The phase is recomputed on every run and never carries over: an
// integrator blocked on a bad base DN last run reports a missing secret
// this run if that is now the first failure.
type IntegratorReconciler struct {
	BaseStatusConfig

	// integratorClient reads integrators and bindings and writes payloads
	integratorClient client.IntegratorClient

	// resolver resolves bind password references
	resolver client.SecretResolver
}

// NewIntegratorReconciler creates a new LDAPIntegrator reconciler. resolver
// may wrap the client's own resolution with caching; when nil the client
// resolves directly.
func NewIntegratorReconciler(integratorClient client.IntegratorClient, resolver client.SecretResolver) *IntegratorReconciler {
	if resolver == nil {
		resolver = integratorClient
	}

	return &IntegratorReconciler{
		BaseStatusConfig: BaseStatusConfig{Namespace: DefaultNamespace},
		integratorClient: integratorClient,
		resolver:         resolver,
	}
}

// WithStatusUpdater sets the status updater for syncing status back to CRDs.
func (r *IntegratorReconciler) WithStatusUpdater(updater StatusUpdater, namespace string) *IntegratorReconciler {
	r.SetStatusUpdater(updater, namespace)
	return r
}

// GetResourceType returns the resource type this reconciler handles.
func (r *IntegratorReconciler) GetResourceType() ResourceType {
	return ResourceTypeIntegrator
}

// outcome is the computed result of one reconciliation, applied to the
// integrator's status at the end of the run.
type outcome struct {
	phase          string
	reason         string
	checksum       string
	boundConsumers int
	published      bool
}

// Reconcile processes a single LDAPIntegrator reconciliation request.
//
// After successful reconciliation this returns RequeueAfter to enable
// periodic resync, so drift in published secrets is eventually repaired
// even without a change event.
func (r *IntegratorReconciler) Reconcile(ctx context.Context, req ReconcileRequest) (result ReconcileResult) {
	namespace := r.GetNamespace(req.Namespace)

	logging.Debug("IntegratorReconciler", "Reconciling LDAPIntegrator %s/%s", namespace, req.Name)

	integrator, err := r.integratorClient.GetLDAPIntegrator(ctx, req.Name, namespace)
	if err != nil {
		if IsNotFoundError(err) {
			// Deleted; published secrets are owned by the consumers and
			// stay in place.
			logging.Debug("IntegratorReconciler", "LDAPIntegrator %s/%s deleted, nothing to do",
				namespace, req.Name)
			return ReconcileResult{}
		}
		return ReconcileResult{
			Error:   fmt.Errorf("failed to get LDAPIntegrator: %w", err),
			Requeue: true,
		}
	}

	// A defect in reconcile logic must never take the worker down; it
	// surfaces as Blocked so the operator sees it on the resource.
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("IntegratorReconciler", fmt.Errorf("%v", rec),
				"Panic while reconciling LDAPIntegrator %s/%s", namespace, req.Name)
			out := outcome{
				phase:  v1alpha1.PhaseBlocked,
				reason: fmt.Sprintf("internal error: %v", rec),
			}
			r.syncStatus(ctx, integrator, out)
			result = ReconcileResult{Error: fmt.Errorf("panic: %v", rec), Requeue: true}
		}
	}()

	out, reconcileErr := r.reconcileIntegrator(ctx, integrator)

	previousPhase := integrator.Status.Phase
	r.syncStatus(ctx, integrator, out)
	r.emitPhaseEvent(ctx, integrator, previousPhase, out)

	if reconcileErr != nil {
		return ReconcileResult{Error: reconcileErr, Requeue: true}
	}

	return ReconcileResult{RequeueAfter: DefaultStatusSyncInterval}
}

// reconcileIntegrator computes and applies the desired outcome. The
// returned error is non-nil only for failures worth a retry; validation
// failures are terminal until the spec changes and produce no error.
func (r *IntegratorReconciler) reconcileIntegrator(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) (outcome, error) {
	if err := validation.ValidateSpec(&integrator.Spec); err != nil {
		logging.Info("IntegratorReconciler", "LDAPIntegrator %s/%s blocked: %v",
			integrator.Namespace, integrator.Name, err)
		return outcome{
			phase:  v1alpha1.PhaseBlocked,
			reason: err.Error(),
		}, nil
	}

	bindPassword, err := r.resolver.ResolveBindPassword(ctx, integrator.Spec.BindPasswordSecretRef, integrator.Namespace)
	if err != nil {
		var accessErr *client.SecretAccessError
		if errors.As(err, &accessErr) {
			// The secret may appear or the RBAC grant may land at any
			// moment; report Blocked and keep retrying.
			return outcome{
				phase:  v1alpha1.PhaseBlocked,
				reason: SanitizeErrorMessage(accessErr.Error()),
			}, err
		}
		return outcome{}, fmt.Errorf("failed to resolve bind password: %w", err)
	}

	bindings, err := r.bindingsFor(ctx, integrator)
	if err != nil {
		return outcome{}, fmt.Errorf("failed to list bindings: %w", err)
	}

	if len(bindings) == 0 {
		return outcome{
			phase:  v1alpha1.PhaseWaiting,
			reason: "no bindings established",
		}, nil
	}

	data := payload.Build(&integrator.Spec, bindPassword)
	checksum := payload.Checksum(data)

	published := false
	for i := range bindings {
		didWrite, err := r.publishToBinding(ctx, integrator, &bindings[i], data)
		if err != nil {
			return outcome{}, fmt.Errorf("failed to publish to LDAPBinding %s/%s: %w",
				bindings[i].Namespace, bindings[i].Name, err)
		}
		published = published || didWrite
	}

	return outcome{
		phase:          v1alpha1.PhaseActive,
		checksum:       checksum,
		boundConsumers: len(bindings),
		published:      published,
	}, nil
}

// bindingsFor returns the bindings that reference the integrator.
func (r *IntegratorReconciler) bindingsFor(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) ([]v1alpha1.LDAPBinding, error) {
	all, err := r.integratorClient.ListLDAPBindings(ctx, "")
	if err != nil {
		return nil, err
	}

	var bindings []v1alpha1.LDAPBinding
	for _, binding := range all {
		if binding.Spec.IntegratorRef.Name != integrator.Name {
			continue
		}
		if binding.IntegratorNamespace() != integrator.Namespace {
			continue
		}
		bindings = append(bindings, binding)
	}
	return bindings, nil
}

// publishToBinding writes the payload to one binding's target, skipping the
// write when the published managed keys already match. Returns whether a
// write happened.
func (r *IntegratorReconciler) publishToBinding(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, binding *v1alpha1.LDAPBinding, data map[string]string) (bool, error) {
	current, err := r.integratorClient.GetPublishedPayload(ctx, binding.TargetSecret(), binding.Namespace)
	if err != nil {
		return false, err
	}

	if current != nil && payload.Equal(managedSubset(current), data) {
		logging.Debug("IntegratorReconciler", "LDAPBinding %s/%s already up to date",
			binding.Namespace, binding.Name)
		GetReconcilerMetrics().RecordPublishSkip(ResourceTypeIntegrator)
		r.syncBindingStatus(ctx, binding, false)
		return false, nil
	}

	if err := r.integratorClient.PublishPayload(ctx, binding, integrator, data); err != nil {
		return false, err
	}
	GetReconcilerMetrics().RecordPublish(ResourceTypeIntegrator)

	logging.Info("IntegratorReconciler", "Published payload to LDAPBinding %s/%s (secret %s)",
		binding.Namespace, binding.Name, binding.TargetSecret())

	r.syncBindingStatus(ctx, binding, true)
	return true, nil
}

// managedSubset extracts the managed payload keys from a published data
// bag. Extra keys a consumer added are not part of the comparison.
func managedSubset(published map[string]string) map[string]string {
	subset := make(map[string]string, len(payload.ManagedKeys()))
	for _, key := range payload.ManagedKeys() {
		if value, ok := published[key]; ok {
			subset[key] = value
		}
	}
	return subset
}

// syncStatus writes the computed outcome to the integrator's status
// subresource with retry-on-conflict.
func (r *IntegratorReconciler) syncStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, out outcome) {
	if r.StatusUpdater == nil {
		return
	}

	helper := NewStatusSyncHelper(ResourceTypeIntegrator, integrator.Name, "IntegratorReconciler")
	helper.RecordAttempt()

	var lastErr error
	retryErr := retry.OnError(StatusSyncRetryBackoff, IsConflictError, func() error {
		// Re-fetch on each attempt to get the latest resource version.
		current, err := r.StatusUpdater.GetLDAPIntegrator(ctx, integrator.Name, integrator.Namespace)
		if err != nil {
			lastErr = err
			return nil
		}

		previous := *current.Status.DeepCopy()
		r.applyOutcome(current, out)

		// An identical status is not written back. In filesystem mode the
		// write itself raises a change event, so an unconditional update
		// would reconcile forever.
		if reflect.DeepEqual(previous, current.Status) {
			lastErr = nil
			return nil
		}

		if err := r.StatusUpdater.UpdateLDAPIntegratorStatus(ctx, current); err != nil {
			lastErr = err
			return err
		}
		lastErr = nil
		return nil
	})

	helper.HandleResult(retryErr, lastErr)
	if helper.WasSuccessful(retryErr, lastErr) {
		logging.Debug("IntegratorReconciler", "Synced LDAPIntegrator %s status to %s",
			integrator.Name, out.phase)
	}
}

// applyOutcome applies the outcome to a freshly fetched integrator.
func (r *IntegratorReconciler) applyOutcome(integrator *v1alpha1.LDAPIntegrator, out outcome) {
	integrator.Status.Phase = out.phase
	integrator.Status.Reason = out.reason
	integrator.Status.ObservedGeneration = integrator.Generation

	switch out.phase {
	case v1alpha1.PhaseActive:
		integrator.Status.PublishedChecksum = out.checksum
		integrator.Status.BoundConsumers = out.boundConsumers
		if out.published {
			now := metav1.NewTime(nowFunc())
			integrator.Status.LastPublished = &now
		}
	default:
		// A non-active integrator has published nothing current; stale
		// publish fields would read as if the payload were live.
		integrator.Status.PublishedChecksum = ""
		integrator.Status.BoundConsumers = 0
		integrator.Status.LastPublished = nil
	}
}

// syncBindingStatus marks a binding as bound after its payload is in place.
func (r *IntegratorReconciler) syncBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding, published bool) {
	if r.StatusUpdater == nil {
		return
	}

	var lastErr error
	retryErr := retry.OnError(StatusSyncRetryBackoff, IsConflictError, func() error {
		current, err := r.StatusUpdater.GetLDAPBinding(ctx, binding.Name, binding.Namespace)
		if err != nil {
			lastErr = err
			return nil
		}

		previous := *current.Status.DeepCopy()
		current.Status.Phase = v1alpha1.BindingPhaseBound
		current.Status.Reason = ""
		current.Status.PublishedSecret = binding.TargetSecret()
		if published {
			now := metav1.NewTime(nowFunc())
			current.Status.LastPublished = &now
		}

		if reflect.DeepEqual(previous, current.Status) {
			lastErr = nil
			return nil
		}

		if err := r.StatusUpdater.UpdateLDAPBindingStatus(ctx, current); err != nil {
			lastErr = err
			return err
		}
		lastErr = nil
		return nil
	})

	if retryErr != nil || lastErr != nil {
		logging.Warn("IntegratorReconciler", "Failed to sync LDAPBinding %s/%s status: %v",
			binding.Namespace, binding.Name, errors.Join(retryErr, lastErr))
	}
}

// emitPhaseEvent records a Kubernetes event when the phase changed.
func (r *IntegratorReconciler) emitPhaseEvent(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, previousPhase string, out outcome) {
	if out.phase == "" || out.phase == previousPhase {
		return
	}

	eventType := "Normal"
	message := fmt.Sprintf("phase changed to %s", out.phase)
	if out.phase == v1alpha1.PhaseBlocked {
		eventType = "Warning"
		message = fmt.Sprintf("phase changed to %s: %s", out.phase, out.reason)
	}

	if err := r.integratorClient.CreateEventForIntegrator(ctx, integrator, out.phase, message, eventType); err != nil {
		logging.Debug("IntegratorReconciler", "Failed to record event for %s/%s: %v",
			integrator.Namespace, integrator.Name, err)
	}
}

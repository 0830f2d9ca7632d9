package reconciler

import (
	"context"

	"ldapintegrator/internal/client"
	"ldapintegrator/pkg/logging"
)

// BindingBridge routes binding and secret change events to the integrators
// they affect.
//
// Bindings and secrets have no reconciler of their own. A new binding must
// receive the current payload, and a rotated bind password must be
// republished everywhere, so both kinds of events collapse into "reconcile
// the owning integrator". The integrator reconciler then republishes to all
// of its bindings, which keeps the publish path single.
type BindingBridge struct {
	// integratorClient looks up ownership relations
	integratorClient client.IntegratorClient

	// resolver has its password cache invalidated on secret changes
	resolver *client.CachingResolver

	// namespace is the default namespace for resources without one
	namespace string
}

// NewBindingBridge creates a bridge backed by the given client. resolver
// may be nil when no password cache is in use.
func NewBindingBridge(integratorClient client.IntegratorClient, resolver *client.CachingResolver, namespace string) *BindingBridge {
	if namespace == "" {
		namespace = "default"
	}

	return &BindingBridge{
		integratorClient: integratorClient,
		resolver:         resolver,
		namespace:        namespace,
	}
}

// WatchedTypes returns the resource types the bridge wants change events
// for.
func (b *BindingBridge) WatchedTypes() []ResourceType {
	return []ResourceType{ResourceTypeBinding, ResourceTypeSecret}
}

// MapToIntegrators translates a binding or secret change event into
// reconcile requests for the affected integrators. Events that affect no
// integrator return an empty slice.
func (b *BindingBridge) MapToIntegrators(ctx context.Context, event ChangeEvent) []ReconcileRequest {
	switch event.Type {
	case ResourceTypeBinding:
		return b.mapBindingEvent(ctx, event)
	case ResourceTypeSecret:
		return b.mapSecretEvent(ctx, event)
	default:
		logging.Debug("BindingBridge", "Ignoring event for unbridged resource type: %s", event.Type)
		return nil
	}
}

// mapBindingEvent resolves the integrator a binding references.
func (b *BindingBridge) mapBindingEvent(ctx context.Context, event ChangeEvent) []ReconcileRequest {
	namespace := event.Namespace
	if namespace == "" {
		namespace = b.namespace
	}

	if event.Operation == OperationDelete {
		// The binding is gone; its integrator still needs a reconcile to
		// refresh its consumer count. The reference is no longer readable,
		// so fall back to reconciling every integrator that could have
		// owned it.
		return b.allIntegrators(ctx)
	}

	binding, err := b.integratorClient.GetLDAPBinding(ctx, event.Name, namespace)
	if err != nil {
		logging.Warn("BindingBridge", "Failed to look up LDAPBinding %s/%s: %v",
			namespace, event.Name, err)
		return nil
	}

	return []ReconcileRequest{{
		Type:      ResourceTypeIntegrator,
		Name:      binding.Spec.IntegratorRef.Name,
		Namespace: binding.IntegratorNamespace(),
		Attempt:   1,
	}}
}

// mapSecretEvent finds every integrator whose bind password reference names
// the changed secret.
func (b *BindingBridge) mapSecretEvent(ctx context.Context, event ChangeEvent) []ReconcileRequest {
	if b.resolver != nil {
		b.resolver.InvalidateAll()
	}

	integrators, err := b.integratorClient.ListLDAPIntegrators(ctx, "")
	if err != nil {
		logging.Warn("BindingBridge", "Failed to list integrators for secret event %s/%s: %v",
			event.Namespace, event.Name, err)
		return nil
	}

	var requests []ReconcileRequest
	for _, integrator := range integrators {
		ref := integrator.Spec.BindPasswordSecretRef
		refNamespace := ref.Namespace
		if refNamespace == "" {
			refNamespace = integrator.Namespace
		}

		if ref.Name != event.Name {
			continue
		}
		if event.Namespace != "" && refNamespace != event.Namespace {
			continue
		}

		logging.Debug("BindingBridge", "Secret %s/%s changed, reconciling LDAPIntegrator %s/%s",
			event.Namespace, event.Name, integrator.Namespace, integrator.Name)

		requests = append(requests, ReconcileRequest{
			Type:      ResourceTypeIntegrator,
			Name:      integrator.Name,
			Namespace: integrator.Namespace,
			Attempt:   1,
		})
	}

	return requests
}

// allIntegrators returns a reconcile request for every known integrator.
func (b *BindingBridge) allIntegrators(ctx context.Context) []ReconcileRequest {
	integrators, err := b.integratorClient.ListLDAPIntegrators(ctx, "")
	if err != nil {
		logging.Warn("BindingBridge", "Failed to list integrators: %v", err)
		return nil
	}

	requests := make([]ReconcileRequest, 0, len(integrators))
	for _, integrator := range integrators {
		requests = append(requests, ReconcileRequest{
			Type:      ResourceTypeIntegrator,
			Name:      integrator.Name,
			Namespace: integrator.Namespace,
			Attempt:   1,
		})
	}
	return requests
}

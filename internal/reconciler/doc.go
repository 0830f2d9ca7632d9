// Package reconciler provides the reconciliation system for ldap-integrator
// resources.
//
// # Overview
//
// The reconciler package implements automatic change detection and
// reconciliation for both Kubernetes CRDs and filesystem-based YAML
// configurations. It ensures that the connection payload published to
// LDAPBindings always reflects the LDAPIntegrator specs and their bind
// password secrets.
//
// # Architecture
//
// The reconciliation system consists of several key components:
//
//   - Manager: Central coordinator that manages queue, workers, and detectors
//   - IntegratorReconciler: Validates, resolves, and publishes for one integrator
//   - ChangeDetector: Interface for detecting changes in resource sources
//   - BindingBridge: Maps binding and secret events to their integrators
//
// The system supports two modes of operation:
//
//   - Kubernetes Mode: Uses informers for CRD and secret changes
//   - Filesystem Mode: Uses fsnotify for watching YAML file changes
//
// # Usage
//
//	manager := reconciler.NewManager(config)
//	manager.SetBridge(reconciler.NewBindingBridge(client, resolver, namespace))
//	if err := manager.RegisterReconciler(integratorReconciler); err != nil {
//	    return err
//	}
//	if err := manager.Start(ctx); err != nil {
//	    return fmt.Errorf("failed to start reconciliation: %w", err)
//	}
//	defer manager.Stop()
//
// # Reconciliation Semantics
//
// A reconciliation run recomputes everything from scratch: the spec is
// validated (first failure wins), the bind password is resolved, and the
// payload is published to every binding whose published data differs. The
// integrator's phase (Active, Blocked, Waiting) is derived fresh on every
// run and never sticks.
//
// # Performance Considerations
//
//   - Debouncing: Multiple rapid changes are batched together
//   - Efficient watching: Uses informers for Kubernetes, fsnotify for files
//   - Backoff: Failed reconciliations use exponential backoff
//   - Idempotent publish: Unchanged payloads are never rewritten
package reconciler

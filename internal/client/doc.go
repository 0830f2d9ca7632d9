// Package client provides a unified client abstraction for accessing
// ldap-integrator resources both in-cluster (Kubernetes API) and locally
// (filesystem).
//
// # Overview
//
// The package implements a facade with automatic environment detection:
//
// - **In-Cluster**: Native Kubernetes API access using controller-runtime
// - **Local / Standalone**: Filesystem-based storage with YAML files
//
// # Usage Examples
//
// ## Basic Usage (Automatic Detection)
//
//	c, err := client.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	integrators, err := c.ListLDAPIntegrators(ctx, "default")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// ## Explicit Configuration
//
//	c, err := client.New(&client.Config{
//	    Namespace:           "ldap-system",
//	    ForceFilesystemMode: true,
//	})
//
// # Environment Detection
//
// The client automatically detects the execution environment:
//
// 1. **Kubernetes Detection**: Uses controller-runtime's standard config
// detection
//   - In-cluster service account credentials
//   - kubeconfig file (~/.kube/config)
//   - Environment variables (KUBECONFIG)
//
// 2. **Filesystem Fallback**: Used when Kubernetes or the CRDs are not
// available
//   - Local development environments
//   - Standalone deployment scenarios
//   - Testing and debugging
//
// # Error Handling
//
// Both backends report missing resources with the Kubernetes error shape:
//
//	integrator, err := c.GetLDAPIntegrator(ctx, "corp-ldap", "default")
//	if err != nil {
//	    if errors.IsNotFound(err) {
//	        // Handle not found consistently across backends
//	    }
//	    // Handle other errors
//	}
//
// Failures to resolve a bind password secret are reported as
// *SecretAccessError regardless of backend.
//
// # Secret Handling
//
// Resolved bind passwords exist only in memory. The CachingResolver keeps
// them for a short TTL to collapse the lookup burst a reconcile fan-out
// produces; nothing is ever written back to disk or the cluster except as
// part of a published payload.
//
// # Thread Safety
//
// All client implementations are thread-safe and can be used concurrently
// from multiple goroutines.
package client

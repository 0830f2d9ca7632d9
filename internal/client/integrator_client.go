package client

import (
	"context"
	"fmt"

	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
	"ldapintegrator/pkg/logging"
)

// IntegratorClient is a unified interface over the backends the
// ldap-integrator can run against. It provides the same operations whether
// resources live as CRDs in a Kubernetes cluster or as YAML documents on
// disk.
//
// The interface automatically adapts to the environment:
//   - If Kubernetes cluster access is available, it uses the Kubernetes API
//   - If Kubernetes is not available, it falls back to filesystem operations
type IntegratorClient interface {
	// LDAPIntegrator operations
	GetLDAPIntegrator(ctx context.Context, name, namespace string) (*v1alpha1.LDAPIntegrator, error)
	ListLDAPIntegrators(ctx context.Context, namespace string) ([]v1alpha1.LDAPIntegrator, error)
	UpdateLDAPIntegratorStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) error

	// LDAPBinding operations
	GetLDAPBinding(ctx context.Context, name, namespace string) (*v1alpha1.LDAPBinding, error)
	ListLDAPBindings(ctx context.Context, namespace string) ([]v1alpha1.LDAPBinding, error)
	UpdateLDAPBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding) error

	// Secret resolution
	SecretResolver

	// Published payload operations. GetPublishedPayload returns nil (and no
	// error) when nothing has been published to the target yet.
	GetPublishedPayload(ctx context.Context, secretName, namespace string) (map[string]string, error)
	PublishPayload(ctx context.Context, binding *v1alpha1.LDAPBinding, integrator *v1alpha1.LDAPIntegrator, data map[string]string) error

	// CreateEventForIntegrator records an operational event for the
	// integrator (a corev1.Event in Kubernetes mode, a log line otherwise).
	CreateEventForIntegrator(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, reason, message, eventType string) error

	// Utility methods
	IsKubernetesMode() bool
	Close() error
}

// SecretResolver resolves a bind password secret reference to the plaintext
// password. Implementations must never persist resolved passwords.
type SecretResolver interface {
	ResolveBindPassword(ctx context.Context, ref v1alpha1.SecretReference, defaultNamespace string) (string, error)
}

// SecretAccessError indicates a bind password secret reference could not be
// resolved: the secret does not exist, the key is missing, or access was
// denied.
type SecretAccessError struct {
	Name      string
	Namespace string
	Err       error
}

func (e *SecretAccessError) Error() string {
	return fmt.Sprintf("cannot resolve bind password secret %s/%s: %v", e.Namespace, e.Name, e.Err)
}

func (e *SecretAccessError) Unwrap() error {
	return e.Err
}

// Config provides configuration options for client creation.
type Config struct {
	// Namespace is the default namespace for operations (defaults to "default")
	Namespace string

	// FilesystemPath is the base path for filesystem storage (defaults to
	// the current directory)
	FilesystemPath string

	// ForceFilesystemMode forces filesystem mode even if Kubernetes is available
	ForceFilesystemMode bool
}

// New creates a unified client with automatic environment detection.
//
// The client first attempts the standard Kubernetes configuration sources
// (in-cluster config, kubeconfig). If no cluster is reachable or the CRDs
// are not installed, it falls back to filesystem mode.
func New(cfg *Config) (IntegratorClient, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	if restConfig, err := detectKubernetesConfig(cfg); err == nil && restConfig != nil {
		k8sClient, err := NewKubernetesClient(restConfig)
		if err == nil {
			return k8sClient, nil
		}
		// Expected when the CRDs are not installed; fall through.
		logging.Debug("client", "Failed to create Kubernetes client: %v, falling back to filesystem mode", err)
	}

	return NewFilesystemClient(cfg)
}

// detectKubernetesConfig attempts to detect and load Kubernetes configuration.
func detectKubernetesConfig(cfg *Config) (*rest.Config, error) {
	if cfg.ForceFilesystemMode {
		return nil, fmt.Errorf("filesystem mode forced")
	}

	// controller-runtime handles in-cluster config, kubeconfig, and the
	// other standard sources.
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get Kubernetes config: %w", err)
	}

	return restConfig, nil
}

package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goyaml "gopkg.in/yaml.v3"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/yaml"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
	"ldapintegrator/pkg/logging"
)

// Directory layout used by the filesystem backend, relative to the base
// path. Resource documents use the same YAML shape as the CRDs.
const (
	IntegratorsDir = "integrators"
	BindingsDir    = "bindings"
	SecretsDir     = "secrets"
	PublishedDir   = "published"
)

// DefaultNamespace is assumed for filesystem resources without an explicit
// metadata.namespace.
const DefaultNamespace = "default"

// filesystemClient implements IntegratorClient with YAML documents on disk.
//
// It backs standalone deployments without a Kubernetes cluster and the
// offline `check` command. Published payloads are written as flat YAML
// maps under published/<namespace>/<secret>.yaml; bind password secrets are
// read from secrets/<name>.yaml and never written by this client.
type filesystemClient struct {
	mu       sync.RWMutex
	basePath string
}

// NewFilesystemClient creates a filesystem-backed integrator client rooted
// at cfg.FilesystemPath (current directory when unset).
func NewFilesystemClient(cfg *Config) (IntegratorClient, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	basePath := cfg.FilesystemPath
	if basePath == "" {
		basePath = "."
	}

	if _, err := os.Stat(basePath); err != nil {
		return nil, fmt.Errorf("filesystem base path %s not accessible: %w", basePath, err)
	}

	logging.Debug("client", "Using filesystem mode with base path %s", basePath)
	return &filesystemClient{basePath: basePath}, nil
}

// GetLDAPIntegrator retrieves an integrator document by name and namespace.
func (f *filesystemClient) GetLDAPIntegrator(ctx context.Context, name, namespace string) (*v1alpha1.LDAPIntegrator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	integrators, err := f.loadIntegrators()
	if err != nil {
		return nil, err
	}

	for i := range integrators {
		if integrators[i].Name == name && integrators[i].Namespace == effectiveNamespace(namespace) {
			return &integrators[i], nil
		}
	}

	return nil, newNotFoundError("ldapintegrators", name)
}

// ListLDAPIntegrators lists integrator documents, optionally filtered by
// namespace.
func (f *filesystemClient) ListLDAPIntegrators(ctx context.Context, namespace string) ([]v1alpha1.LDAPIntegrator, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	integrators, err := f.loadIntegrators()
	if err != nil {
		return nil, err
	}

	if namespace == "" {
		return integrators, nil
	}

	filtered := make([]v1alpha1.LDAPIntegrator, 0, len(integrators))
	for _, integrator := range integrators {
		if integrator.Namespace == namespace {
			filtered = append(filtered, integrator)
		}
	}
	return filtered, nil
}

// UpdateLDAPIntegratorStatus rewrites the integrator's document with the
// new status.
func (f *filesystemClient) UpdateLDAPIntegratorStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rewriteDocument(IntegratorsDir, integrator.Name, integrator.Namespace, integrator)
}

// GetLDAPBinding retrieves a binding document by name and namespace.
func (f *filesystemClient) GetLDAPBinding(ctx context.Context, name, namespace string) (*v1alpha1.LDAPBinding, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bindings, err := f.loadBindings()
	if err != nil {
		return nil, err
	}

	for i := range bindings {
		if bindings[i].Name == name && bindings[i].Namespace == effectiveNamespace(namespace) {
			return &bindings[i], nil
		}
	}

	return nil, newNotFoundError("ldapbindings", name)
}

// ListLDAPBindings lists binding documents, optionally filtered by
// namespace.
func (f *filesystemClient) ListLDAPBindings(ctx context.Context, namespace string) ([]v1alpha1.LDAPBinding, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	bindings, err := f.loadBindings()
	if err != nil {
		return nil, err
	}

	if namespace == "" {
		return bindings, nil
	}

	filtered := make([]v1alpha1.LDAPBinding, 0, len(bindings))
	for _, binding := range bindings {
		if binding.Namespace == namespace {
			filtered = append(filtered, binding)
		}
	}
	return filtered, nil
}

// UpdateLDAPBindingStatus rewrites the binding's document with the new
// status.
func (f *filesystemClient) UpdateLDAPBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.rewriteDocument(BindingsDir, binding.Name, binding.Namespace, binding)
}

// ResolveBindPassword reads secrets/<name>.yaml and returns the value under
// the configured key. The namespace is ignored on the filesystem; secret
// files are flat.
func (f *filesystemClient) ResolveBindPassword(ctx context.Context, ref v1alpha1.SecretReference, defaultNamespace string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	namespace := ref.Namespace
	if namespace == "" {
		namespace = effectiveNamespace(defaultNamespace)
	}

	path := filepath.Join(f.basePath, SecretsDir, ref.Name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &SecretAccessError{Name: ref.Name, Namespace: namespace, Err: err}
	}

	content := map[string]string{}
	if err := goyaml.Unmarshal(data, &content); err != nil {
		return "", &SecretAccessError{Name: ref.Name, Namespace: namespace, Err: fmt.Errorf("malformed secret file: %w", err)}
	}

	secretKey := ref.Key
	if secretKey == "" {
		secretKey = defaultSecretKey
	}

	value, ok := content[secretKey]
	if !ok {
		return "", &SecretAccessError{
			Name:      ref.Name,
			Namespace: namespace,
			Err:       fmt.Errorf("key %q not found", secretKey),
		}
	}

	return value, nil
}

// GetPublishedPayload reads a published payload file. Returns nil when
// nothing has been published yet.
func (f *filesystemClient) GetPublishedPayload(ctx context.Context, secretName, namespace string) (map[string]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path := f.publishedPath(secretName, namespace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read published payload %s: %w", path, err)
	}

	content := map[string]string{}
	if err := goyaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("malformed published payload %s: %w", path, err)
	}

	return content, nil
}

// PublishPayload writes the payload as a flat YAML map, overwriting the
// managed keys while preserving any other keys present in the file.
func (f *filesystemClient) PublishPayload(ctx context.Context, binding *v1alpha1.LDAPBinding, integrator *v1alpha1.LDAPIntegrator, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.publishedPath(binding.TargetSecret(), binding.Namespace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create published payload directory: %w", err)
	}

	merged := map[string]string{}
	if existing, err := os.ReadFile(path); err == nil {
		// Best effort: a malformed existing file is simply overwritten.
		_ = goyaml.Unmarshal(existing, &merged)
	}
	for key, value := range data {
		merged[key] = value
	}

	out, err := goyaml.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal published payload: %w", err)
	}

	// Published payloads carry the bind password; keep them owner-only.
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write published payload %s: %w", path, err)
	}

	return nil
}

// CreateEventForIntegrator logs the event; there is no event store on the
// filesystem.
func (f *filesystemClient) CreateEventForIntegrator(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, reason, message, eventType string) error {
	logging.Info("client", "Event for LDAPIntegrator %s/%s: %s (%s): %s",
		integrator.Namespace, integrator.Name, reason, eventType, message)
	return nil
}

// IsKubernetesMode returns false since this is the filesystem implementation.
func (f *filesystemClient) IsKubernetesMode() bool {
	return false
}

// Close performs cleanup for the filesystem client.
func (f *filesystemClient) Close() error {
	return nil
}

// loadIntegrators reads all integrator documents from the integrators
// directory. A missing directory yields an empty list.
func (f *filesystemClient) loadIntegrators() ([]v1alpha1.LDAPIntegrator, error) {
	var integrators []v1alpha1.LDAPIntegrator

	err := f.walkDocuments(IntegratorsDir, func(path string, data []byte) error {
		integrator := v1alpha1.LDAPIntegrator{}
		if err := yaml.Unmarshal(data, &integrator); err != nil {
			return fmt.Errorf("malformed LDAPIntegrator document %s: %w", path, err)
		}
		applyDocumentDefaults(&integrator.ObjectMeta, path)
		integrators = append(integrators, integrator)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return integrators, nil
}

// loadBindings reads all binding documents from the bindings directory.
func (f *filesystemClient) loadBindings() ([]v1alpha1.LDAPBinding, error) {
	var bindings []v1alpha1.LDAPBinding

	err := f.walkDocuments(BindingsDir, func(path string, data []byte) error {
		binding := v1alpha1.LDAPBinding{}
		if err := yaml.Unmarshal(data, &binding); err != nil {
			return fmt.Errorf("malformed LDAPBinding document %s: %w", path, err)
		}
		applyDocumentDefaults(&binding.ObjectMeta, path)
		bindings = append(bindings, binding)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bindings, nil
}

// walkDocuments invokes fn for every YAML file in the given subdirectory.
func (f *filesystemClient) walkDocuments(dir string, fn func(path string, data []byte) error) error {
	fullDir := filepath.Join(f.basePath, dir)

	entries, err := os.ReadDir(fullDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read directory %s: %w", fullDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}

		path := filepath.Join(fullDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		if err := fn(path, data); err != nil {
			return err
		}
	}

	return nil
}

// rewriteDocument marshals obj back to the file it was loaded from. The
// file name is not authoritative; a document may declare a metadata.name
// that differs from its file name.
func (f *filesystemClient) rewriteDocument(dir, name, namespace string, obj interface{}) error {
	path := f.documentPath(dir, name, namespace)

	data, err := yaml.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal %s document: %w", name, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// documentPath locates the file holding the named resource by matching its
// metadata, falling back to <name>.yaml when no document matches.
func (f *filesystemClient) documentPath(dir, name, namespace string) string {
	var found string
	_ = f.walkDocuments(dir, func(path string, data []byte) error {
		var doc struct {
			Metadata metav1.ObjectMeta `json:"metadata"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil
		}
		applyDocumentDefaults(&doc.Metadata, path)
		if doc.Metadata.Name == name && doc.Metadata.Namespace == effectiveNamespace(namespace) {
			found = path
		}
		return nil
	})

	if found != "" {
		return found
	}
	return filepath.Join(f.basePath, dir, name+".yaml")
}

func (f *filesystemClient) publishedPath(secretName, namespace string) string {
	return filepath.Join(f.basePath, PublishedDir, effectiveNamespace(namespace), secretName+".yaml")
}

// applyDocumentDefaults fills in name and namespace for documents that omit
// them: the name falls back to the file name, the namespace to "default".
func applyDocumentDefaults(meta interface {
	GetName() string
	SetName(string)
	GetNamespace() string
	SetNamespace(string)
}, path string) {
	if meta.GetName() == "" {
		base := filepath.Base(path)
		meta.SetName(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if meta.GetNamespace() == "" {
		meta.SetNamespace(DefaultNamespace)
	}
}

// newNotFoundError produces the same error shape the Kubernetes backend
// returns, so callers handle not-found uniformly.
func newNotFoundError(resource, name string) error {
	return apierrors.NewNotFound(
		schema.GroupResource{Group: "ldap-integrator.io", Resource: resource},
		name,
	)
}

func effectiveNamespace(namespace string) string {
	if namespace == "" {
		return DefaultNamespace
	}
	return namespace
}

func isYAMLFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

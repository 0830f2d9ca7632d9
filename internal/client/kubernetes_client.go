package client

import (
	"context"
	"fmt"
	"maps"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

// Labels stamped on published payload secrets so they can be traced back to
// the binding and integrator that produced them.
const (
	ManagedByLabel      = "app.kubernetes.io/managed-by"
	ManagedByValue      = "ldap-integrator"
	IntegratorNameLabel = "ldap-integrator.io/integrator"
	BindingNameLabel    = "ldap-integrator.io/binding"
)

// defaultSecretKey is the key read from the referenced bind password secret
// when the reference does not name one.
const defaultSecretKey = "password"

// kubernetesClient implements IntegratorClient using the Kubernetes API and
// controller-runtime.
type kubernetesClient struct {
	client.Client
	scheme *runtime.Scheme
}

// NewKubernetesClient creates a new Kubernetes-backed integrator client.
//
// It fails if the LDAPIntegrator CRD is not installed, which callers use to
// fall back to filesystem mode.
func NewKubernetesClient(config *rest.Config) (IntegratorClient, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1alpha1.AddToScheme(scheme))

	k8sClient, err := client.New(config, client.Options{
		Scheme: scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	c := &kubernetesClient{
		Client: k8sClient,
		scheme: scheme,
	}

	if err := c.validateCRDs(context.Background()); err != nil {
		return nil, fmt.Errorf("CRD validation failed: %w", err)
	}

	return c, nil
}

// newKubernetesClientWith wraps an existing controller-runtime client. Used
// by tests with a fake client.
func newKubernetesClientWith(c client.Client, scheme *runtime.Scheme) IntegratorClient {
	return &kubernetesClient{Client: c, scheme: scheme}
}

// GetLDAPIntegrator retrieves a specific LDAPIntegrator resource.
func (k *kubernetesClient) GetLDAPIntegrator(ctx context.Context, name, namespace string) (*v1alpha1.LDAPIntegrator, error) {
	integrator := &v1alpha1.LDAPIntegrator{}
	key := types.NamespacedName{Name: name, Namespace: namespace}

	if err := k.Client.Get(ctx, key, integrator); err != nil {
		return nil, fmt.Errorf("failed to get LDAPIntegrator %s/%s: %w", namespace, name, err)
	}

	return integrator, nil
}

// ListLDAPIntegrators lists all LDAPIntegrator resources in a namespace.
// An empty namespace lists across all namespaces.
func (k *kubernetesClient) ListLDAPIntegrators(ctx context.Context, namespace string) ([]v1alpha1.LDAPIntegrator, error) {
	integratorList := &v1alpha1.LDAPIntegratorList{}
	listOpts := []client.ListOption{}

	if namespace != "" {
		listOpts = append(listOpts, client.InNamespace(namespace))
	}

	if err := k.Client.List(ctx, integratorList, listOpts...); err != nil {
		return nil, fmt.Errorf("failed to list LDAPIntegrators in namespace %s: %w", namespace, err)
	}

	return integratorList.Items, nil
}

// UpdateLDAPIntegratorStatus updates only the status subresource.
func (k *kubernetesClient) UpdateLDAPIntegratorStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) error {
	if err := k.Client.Status().Update(ctx, integrator); err != nil {
		return fmt.Errorf("failed to update LDAPIntegrator %s/%s status: %w", integrator.Namespace, integrator.Name, err)
	}

	return nil
}

// GetLDAPBinding retrieves a specific LDAPBinding resource.
func (k *kubernetesClient) GetLDAPBinding(ctx context.Context, name, namespace string) (*v1alpha1.LDAPBinding, error) {
	binding := &v1alpha1.LDAPBinding{}
	key := types.NamespacedName{Name: name, Namespace: namespace}

	if err := k.Client.Get(ctx, key, binding); err != nil {
		return nil, fmt.Errorf("failed to get LDAPBinding %s/%s: %w", namespace, name, err)
	}

	return binding, nil
}

// ListLDAPBindings lists all LDAPBinding resources in a namespace. An empty
// namespace lists across all namespaces; bindings may live in any consumer
// namespace while referencing an integrator elsewhere.
func (k *kubernetesClient) ListLDAPBindings(ctx context.Context, namespace string) ([]v1alpha1.LDAPBinding, error) {
	bindingList := &v1alpha1.LDAPBindingList{}
	listOpts := []client.ListOption{}

	if namespace != "" {
		listOpts = append(listOpts, client.InNamespace(namespace))
	}

	if err := k.Client.List(ctx, bindingList, listOpts...); err != nil {
		return nil, fmt.Errorf("failed to list LDAPBindings in namespace %s: %w", namespace, err)
	}

	return bindingList.Items, nil
}

// UpdateLDAPBindingStatus updates only the status subresource.
func (k *kubernetesClient) UpdateLDAPBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding) error {
	if err := k.Client.Status().Update(ctx, binding); err != nil {
		return fmt.Errorf("failed to update LDAPBinding %s/%s status: %w", binding.Namespace, binding.Name, err)
	}

	return nil
}

// ResolveBindPassword reads the referenced secret and returns the password
// under the configured key. Missing secrets, missing keys, and RBAC denials
// are all reported as SecretAccessError.
func (k *kubernetesClient) ResolveBindPassword(ctx context.Context, ref v1alpha1.SecretReference, defaultNamespace string) (string, error) {
	namespace := ref.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	secret := &corev1.Secret{}
	key := types.NamespacedName{Name: ref.Name, Namespace: namespace}
	if err := k.Client.Get(ctx, key, secret); err != nil {
		return "", &SecretAccessError{Name: ref.Name, Namespace: namespace, Err: err}
	}

	secretKey := ref.Key
	if secretKey == "" {
		secretKey = defaultSecretKey
	}

	value, ok := secret.Data[secretKey]
	if !ok {
		return "", &SecretAccessError{
			Name:      ref.Name,
			Namespace: namespace,
			Err:       fmt.Errorf("key %q not found", secretKey),
		}
	}

	return string(value), nil
}

// GetPublishedPayload reads the current content of a published payload
// secret. Returns nil when the secret does not exist yet.
func (k *kubernetesClient) GetPublishedPayload(ctx context.Context, secretName, namespace string) (map[string]string, error) {
	secret := &corev1.Secret{}
	key := types.NamespacedName{Name: secretName, Namespace: namespace}

	if err := k.Client.Get(ctx, key, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get published secret %s/%s: %w", namespace, secretName, err)
	}

	data := make(map[string]string, len(secret.Data))
	for name, value := range secret.Data {
		data[name] = string(value)
	}
	return data, nil
}

// PublishPayload writes the payload into the binding's target secret. The
// write is a total overwrite of the managed keys; unknown keys already in
// the secret are preserved.
func (k *kubernetesClient) PublishPayload(ctx context.Context, binding *v1alpha1.LDAPBinding, integrator *v1alpha1.LDAPIntegrator, data map[string]string) error {
	secretName := binding.TargetSecret()

	secret := &corev1.Secret{}
	key := types.NamespacedName{Name: secretName, Namespace: binding.Namespace}
	err := k.Client.Get(ctx, key, secret)

	switch {
	case apierrors.IsNotFound(err):
		secret = &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{
				Name:      secretName,
				Namespace: binding.Namespace,
				Labels:    payloadLabels(binding, integrator),
			},
			Data: encodePayload(data),
		}
		if err := k.Client.Create(ctx, secret); err != nil {
			return fmt.Errorf("failed to create published secret %s/%s: %w", binding.Namespace, secretName, err)
		}
		return nil

	case err != nil:
		return fmt.Errorf("failed to get published secret %s/%s: %w", binding.Namespace, secretName, err)
	}

	if secret.Data == nil {
		secret.Data = make(map[string][]byte, len(data))
	}
	maps.Copy(secret.Data, encodePayload(data))
	if secret.Labels == nil {
		secret.Labels = make(map[string]string)
	}
	maps.Copy(secret.Labels, payloadLabels(binding, integrator))

	if err := k.Client.Update(ctx, secret); err != nil {
		return fmt.Errorf("failed to update published secret %s/%s: %w", binding.Namespace, secretName, err)
	}

	return nil
}

// CreateEventForIntegrator records a corev1.Event for the integrator.
func (k *kubernetesClient) CreateEventForIntegrator(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, reason, message, eventType string) error {
	gvk := v1alpha1.GroupVersion.WithKind("LDAPIntegrator")

	event := &corev1.Event{
		ObjectMeta: metav1.ObjectMeta{
			GenerateName: integrator.Name + "-",
			Namespace:    integrator.Namespace,
		},
		InvolvedObject: corev1.ObjectReference{
			APIVersion: gvk.GroupVersion().String(),
			Kind:       gvk.Kind,
			Name:       integrator.Name,
			Namespace:  integrator.Namespace,
			UID:        integrator.GetUID(),
		},
		Reason:         reason,
		Message:        message,
		Type:           eventType,
		Source:         corev1.EventSource{Component: ManagedByValue},
		FirstTimestamp: metav1.NewTime(time.Now()),
		LastTimestamp:  metav1.NewTime(time.Now()),
		Count:          1,
	}

	if err := k.Client.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create Kubernetes Event: %w", err)
	}

	return nil
}

// IsKubernetesMode returns true since this is the Kubernetes implementation.
func (k *kubernetesClient) IsKubernetesMode() bool {
	return true
}

// Close performs cleanup for the Kubernetes client. Controller-runtime
// clients don't require explicit cleanup; this satisfies the interface.
func (k *kubernetesClient) Close() error {
	return nil
}

// Scheme returns the runtime scheme used by this client.
func (k *kubernetesClient) Scheme() *runtime.Scheme {
	return k.scheme
}

// validateCRDs checks that the LDAPIntegrator CRD is available in the
// cluster by performing a test list call.
func (k *kubernetesClient) validateCRDs(ctx context.Context) error {
	if _, err := k.ListLDAPIntegrators(ctx, "default"); err != nil {
		return fmt.Errorf("LDAPIntegrator CRD not available: %w", err)
	}

	return nil
}

func payloadLabels(binding *v1alpha1.LDAPBinding, integrator *v1alpha1.LDAPIntegrator) map[string]string {
	return map[string]string{
		ManagedByLabel:      ManagedByValue,
		IntegratorNameLabel: integrator.Name,
		BindingNameLabel:    binding.Name,
	}
}

func encodePayload(data map[string]string) map[string][]byte {
	encoded := make(map[string][]byte, len(data))
	for key, value := range data {
		encoded[key] = []byte(value)
	}
	return encoded
}

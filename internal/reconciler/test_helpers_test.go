package reconciler

import (
	"context"
	"fmt"
	"sync"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"ldapintegrator/internal/client"
	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
)

// fakeEvent records one call to CreateEventForIntegrator.
type fakeEvent struct {
	Integrator string
	Reason     string
	Message    string
	EventType  string
}

// fakeIntegratorClient is an in-memory client.IntegratorClient for
// reconciler tests. Resources are keyed by namespace/name, passwords by
// namespace/name/key, published payloads by namespace/secretName.
type fakeIntegratorClient struct {
	mu sync.Mutex

	integrators map[string]*v1alpha1.LDAPIntegrator
	bindings    map[string]*v1alpha1.LDAPBinding
	passwords   map[string]string
	published   map[string]map[string]string
	events      []fakeEvent

	// Error injection
	resolveErr      error
	publishErr      error
	listBindingsErr error
	listIntegErr    error

	// statusConflicts makes the next N integrator status updates fail
	// with a conflict.
	statusConflicts int

	// Call counters
	resolveCalls           int
	publishCalls           int
	integratorStatusWrites int
	bindingStatusWrites    int
}

var _ client.IntegratorClient = (*fakeIntegratorClient)(nil)

func newFakeIntegratorClient() *fakeIntegratorClient {
	return &fakeIntegratorClient{
		integrators: make(map[string]*v1alpha1.LDAPIntegrator),
		bindings:    make(map[string]*v1alpha1.LDAPBinding),
		passwords:   make(map[string]string),
		published:   make(map[string]map[string]string),
	}
}

func (f *fakeIntegratorClient) addIntegrator(integrator *v1alpha1.LDAPIntegrator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.integrators[integrator.Namespace+"/"+integrator.Name] = integrator.DeepCopy()
}

func (f *fakeIntegratorClient) addBinding(binding *v1alpha1.LDAPBinding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[binding.Namespace+"/"+binding.Name] = binding.DeepCopy()
}

func (f *fakeIntegratorClient) setPassword(namespace, name, key, password string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[namespace+"/"+name+"/"+key] = password
}

func (f *fakeIntegratorClient) GetLDAPIntegrator(ctx context.Context, name, namespace string) (*v1alpha1.LDAPIntegrator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	integrator, ok := f.integrators[namespace+"/"+name]
	if !ok {
		return nil, apierrors.NewNotFound(
			schema.GroupResource{Group: v1alpha1.GroupVersion.Group, Resource: "ldapintegrators"}, name)
	}
	return integrator.DeepCopy(), nil
}

func (f *fakeIntegratorClient) ListLDAPIntegrators(ctx context.Context, namespace string) ([]v1alpha1.LDAPIntegrator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listIntegErr != nil {
		return nil, f.listIntegErr
	}

	var out []v1alpha1.LDAPIntegrator
	for _, integrator := range f.integrators {
		if namespace != "" && integrator.Namespace != namespace {
			continue
		}
		out = append(out, *integrator.DeepCopy())
	}
	return out, nil
}

func (f *fakeIntegratorClient) UpdateLDAPIntegratorStatus(ctx context.Context, integrator *v1alpha1.LDAPIntegrator) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.statusConflicts > 0 {
		f.statusConflicts--
		return apierrors.NewConflict(
			schema.GroupResource{Group: v1alpha1.GroupVersion.Group, Resource: "ldapintegrators"},
			integrator.Name, fmt.Errorf("object was modified"))
	}

	key := integrator.Namespace + "/" + integrator.Name
	stored, ok := f.integrators[key]
	if !ok {
		return apierrors.NewNotFound(
			schema.GroupResource{Group: v1alpha1.GroupVersion.Group, Resource: "ldapintegrators"}, integrator.Name)
	}
	stored.Status = *integrator.Status.DeepCopy()
	f.integratorStatusWrites++
	return nil
}

func (f *fakeIntegratorClient) GetLDAPBinding(ctx context.Context, name, namespace string) (*v1alpha1.LDAPBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	binding, ok := f.bindings[namespace+"/"+name]
	if !ok {
		return nil, apierrors.NewNotFound(
			schema.GroupResource{Group: v1alpha1.GroupVersion.Group, Resource: "ldapbindings"}, name)
	}
	return binding.DeepCopy(), nil
}

func (f *fakeIntegratorClient) ListLDAPBindings(ctx context.Context, namespace string) ([]v1alpha1.LDAPBinding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.listBindingsErr != nil {
		return nil, f.listBindingsErr
	}

	var out []v1alpha1.LDAPBinding
	for _, binding := range f.bindings {
		if namespace != "" && binding.Namespace != namespace {
			continue
		}
		out = append(out, *binding.DeepCopy())
	}
	return out, nil
}

func (f *fakeIntegratorClient) UpdateLDAPBindingStatus(ctx context.Context, binding *v1alpha1.LDAPBinding) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := binding.Namespace + "/" + binding.Name
	stored, ok := f.bindings[key]
	if !ok {
		return apierrors.NewNotFound(
			schema.GroupResource{Group: v1alpha1.GroupVersion.Group, Resource: "ldapbindings"}, binding.Name)
	}
	stored.Status = *binding.Status.DeepCopy()
	f.bindingStatusWrites++
	return nil
}

func (f *fakeIntegratorClient) ResolveBindPassword(ctx context.Context, ref v1alpha1.SecretReference, defaultNamespace string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resolveCalls++

	if f.resolveErr != nil {
		return "", f.resolveErr
	}

	namespace := ref.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	key := ref.Key
	if key == "" {
		key = "password"
	}

	password, ok := f.passwords[namespace+"/"+ref.Name+"/"+key]
	if !ok {
		return "", &client.SecretAccessError{
			Name:      ref.Name,
			Namespace: namespace,
			Err:       fmt.Errorf("secret not found"),
		}
	}
	return password, nil
}

func (f *fakeIntegratorClient) GetPublishedPayload(ctx context.Context, secretName, namespace string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.published[namespace+"/"+secretName]
	if !ok {
		return nil, nil
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out, nil
}

func (f *fakeIntegratorClient) PublishPayload(ctx context.Context, binding *v1alpha1.LDAPBinding, integrator *v1alpha1.LDAPIntegrator, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.publishCalls++

	if f.publishErr != nil {
		return f.publishErr
	}

	key := binding.Namespace + "/" + binding.TargetSecret()
	merged := make(map[string]string)
	for k, v := range f.published[key] {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}
	f.published[key] = merged
	return nil
}

func (f *fakeIntegratorClient) CreateEventForIntegrator(ctx context.Context, integrator *v1alpha1.LDAPIntegrator, reason, message, eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, fakeEvent{
		Integrator: integrator.Namespace + "/" + integrator.Name,
		Reason:     reason,
		Message:    message,
		EventType:  eventType,
	})
	return nil
}

func (f *fakeIntegratorClient) IsKubernetesMode() bool { return false }

func (f *fakeIntegratorClient) Close() error { return nil }

func (f *fakeIntegratorClient) publishedFor(namespace, secretName string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[namespace+"/"+secretName]
}

func (f *fakeIntegratorClient) setPublished(namespace, secretName string, data map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[namespace+"/"+secretName] = data
}

func (f *fakeIntegratorClient) storedIntegrator(namespace, name string) *v1alpha1.LDAPIntegrator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.integrators[namespace+"/"+name]
}

func (f *fakeIntegratorClient) storedBinding(namespace, name string) *v1alpha1.LDAPBinding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bindings[namespace+"/"+name]
}

func (f *fakeIntegratorClient) statusWrites() (integrators, bindings int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.integratorStatusWrites, f.bindingStatusWrites
}

func (f *fakeIntegratorClient) recordedEvents() []fakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeEvent(nil), f.events...)
}

// newTestIntegrator returns a valid integrator referencing the
// "ldap-credentials" secret in its own namespace.
func newTestIntegrator(name, namespace string) *v1alpha1.LDAPIntegrator {
	return &v1alpha1.LDAPIntegrator{
		ObjectMeta: metav1.ObjectMeta{
			Name:       name,
			Namespace:  namespace,
			Generation: 1,
		},
		Spec: v1alpha1.LDAPIntegratorSpec{
			URLs:   []string{"ldap://ldap.example.com"},
			BaseDN: "dc=example,dc=com",
			BindDN: "cn=admin,dc=example,dc=com",
			BindPasswordSecretRef: v1alpha1.SecretReference{
				Name: "ldap-credentials",
			},
		},
	}
}

// newTestBinding returns a binding referencing the named integrator in the
// same namespace.
func newTestBinding(name, namespace, integratorName string) *v1alpha1.LDAPBinding {
	return &v1alpha1.LDAPBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: v1alpha1.LDAPBindingSpec{
			IntegratorRef: v1alpha1.IntegratorReference{Name: integratorName},
		},
	}
}

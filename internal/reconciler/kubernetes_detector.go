package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	toolscache "k8s.io/client-go/tools/cache"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1alpha1 "ldapintegrator/pkg/apis/ldapintegrator/v1alpha1"
	"ldapintegrator/pkg/logging"
)

// KubernetesDetector implements ChangeDetector using controller-runtime
// informers.
//
// It watches the integrator CRDs (LDAPIntegrator, LDAPBinding) and, for
// bind password rotation, core Secrets, and generates change events when
// resources are created, updated, or deleted.
type KubernetesDetector struct {
	mu sync.RWMutex

	// restConfig is the Kubernetes REST configuration
	restConfig *rest.Config

	// namespace is the Kubernetes namespace to watch (empty for all
	// namespaces)
	namespace string

	// cache is the controller-runtime cache for watching resources
	cache cache.Cache

	// scheme is the runtime scheme with registered types
	scheme *runtime.Scheme

	// resourceTypes is the set of resource types being watched
	resourceTypes map[ResourceType]bool

	// changeChan is the channel to send change events to
	changeChan chan<- ChangeEvent

	ctx        context.Context
	cancelFunc context.CancelFunc

	running bool

	// informerRegistrations tracks registered event handlers for cleanup
	informerRegistrations []toolscache.ResourceEventHandlerRegistration
}

// NewKubernetesDetector creates a new Kubernetes change detector. An empty
// namespace watches all namespaces.
func NewKubernetesDetector(restConfig *rest.Config, namespace string) (*KubernetesDetector, error) {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(v1alpha1.AddToScheme(scheme))

	return &KubernetesDetector{
		restConfig:            restConfig,
		namespace:             namespace,
		scheme:                scheme,
		resourceTypes:         make(map[ResourceType]bool),
		informerRegistrations: make([]toolscache.ResourceEventHandlerRegistration, 0),
	}, nil
}

// Start begins watching for Kubernetes resource changes.
func (d *KubernetesDetector) Start(ctx context.Context, changes chan<- ChangeEvent) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}

	d.ctx, d.cancelFunc = context.WithCancel(ctx)
	d.changeChan = changes
	d.running = true
	d.mu.Unlock()

	cacheOpts := cache.Options{
		Scheme: d.scheme,
	}
	if d.namespace != "" {
		cacheOpts.DefaultNamespaces = map[string]cache.Config{
			d.namespace: {},
		}
	}

	c, err := cache.New(d.restConfig, cacheOpts)
	if err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to create cache: %w", err)
	}

	d.mu.Lock()
	d.cache = c
	d.mu.Unlock()

	if err := d.setupInformers(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to setup informers: %w", err)
	}

	go func() {
		if err := d.cache.Start(d.ctx); err != nil {
			logging.Error("KubernetesDetector", err, "Cache stopped with error")
		}
	}()

	if !d.cache.WaitForCacheSync(d.ctx) {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return fmt.Errorf("failed to sync cache")
	}

	logging.Info("KubernetesDetector", "Started watching Kubernetes resources in namespace: %s", d.namespaceDisplay())
	return nil
}

// setupInformers creates informers for all registered resource types.
func (d *KubernetesDetector) setupInformers() error {
	d.mu.RLock()
	types := make([]ResourceType, 0, len(d.resourceTypes))
	for rt := range d.resourceTypes {
		types = append(types, rt)
	}
	d.mu.RUnlock()

	for _, rt := range types {
		if err := d.setupInformerForType(rt); err != nil {
			logging.Warn("KubernetesDetector", "Failed to setup informer for %s: %v", rt, err)
			// Continue with other types
		}
	}

	return nil
}

// setupInformerForType creates an informer for a specific resource type.
func (d *KubernetesDetector) setupInformerForType(resourceType ResourceType) error {
	var obj client.Object
	switch resourceType {
	case ResourceTypeIntegrator:
		obj = &v1alpha1.LDAPIntegrator{}
	case ResourceTypeBinding:
		obj = &v1alpha1.LDAPBinding{}
	case ResourceTypeSecret:
		obj = &corev1.Secret{}
	default:
		return fmt.Errorf("unsupported resource type: %s", resourceType)
	}

	informer, err := d.cache.GetInformer(d.ctx, obj)
	if err != nil {
		return fmt.Errorf("failed to get informer for %s: %w", resourceType, err)
	}

	handler := d.createEventHandler(resourceType)

	registration, err := informer.AddEventHandler(handler)
	if err != nil {
		return fmt.Errorf("failed to add event handler for %s: %w", resourceType, err)
	}

	d.mu.Lock()
	d.informerRegistrations = append(d.informerRegistrations, registration)
	d.mu.Unlock()

	logging.Debug("KubernetesDetector", "Setup informer for resource type: %s", resourceType)
	return nil
}

// createEventHandler creates a ResourceEventHandler for a specific resource
// type.
func (d *KubernetesDetector) createEventHandler(resourceType ResourceType) toolscache.ResourceEventHandler {
	return toolscache.ResourceEventHandlerFuncs{
		AddFunc: func(obj interface{}) {
			d.handleEvent(resourceType, OperationCreate, obj)
		},
		UpdateFunc: func(oldObj, newObj interface{}) {
			d.handleEvent(resourceType, OperationUpdate, newObj)
		},
		DeleteFunc: func(obj interface{}) {
			// Handle DeletedFinalStateUnknown for objects deleted while
			// the operator was down.
			if deletedState, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
				obj = deletedState.Obj
			}
			d.handleEvent(resourceType, OperationDelete, obj)
		},
	}
}

// handleEvent converts an informer event into a change event.
func (d *KubernetesDetector) handleEvent(resourceType ResourceType, operation ChangeOperation, obj interface{}) {
	clientObj, ok := obj.(client.Object)
	if !ok {
		logging.Warn("KubernetesDetector", "Failed to extract metadata from %s event", operation)
		return
	}

	d.sendChangeEvent(ChangeEvent{
		Type:      resourceType,
		Name:      clientObj.GetName(),
		Namespace: clientObj.GetNamespace(),
		Operation: operation,
		Timestamp: time.Now(),
		Source:    SourceKubernetes,
	})
}

// sendChangeEvent sends a change event to the output channel.
func (d *KubernetesDetector) sendChangeEvent(event ChangeEvent) {
	d.mu.RLock()
	changeChan := d.changeChan
	running := d.running
	d.mu.RUnlock()

	if !running || changeChan == nil {
		return
	}

	select {
	case changeChan <- event:
		logging.Debug("KubernetesDetector", "Emitted change event: %s %s/%s/%s",
			event.Operation, event.Type, event.Namespace, event.Name)
	default:
		logging.Warn("KubernetesDetector", "Change event channel full, dropping event for %s/%s/%s",
			event.Type, event.Namespace, event.Name)
	}
}

// Stop gracefully stops the Kubernetes detector.
func (d *KubernetesDetector) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return nil
	}

	d.running = false

	if d.cancelFunc != nil {
		d.cancelFunc()
	}

	// Registrations are removed automatically when the cache stops.
	d.informerRegistrations = nil

	logging.Info("KubernetesDetector", "Stopped Kubernetes detector")
	return nil
}

// GetSource returns the change source type.
func (d *KubernetesDetector) GetSource() ChangeSource {
	return SourceKubernetes
}

// AddResourceType adds a resource type to watch.
func (d *KubernetesDetector) AddResourceType(resourceType ResourceType) error {
	d.mu.Lock()
	if d.resourceTypes[resourceType] {
		d.mu.Unlock()
		return nil
	}
	d.resourceTypes[resourceType] = true
	running := d.running
	c := d.cache
	d.mu.Unlock()

	if running && c != nil {
		return d.setupInformerForType(resourceType)
	}

	return nil
}

// RemoveResourceType removes a resource type from watching.
//
// The controller-runtime cache does not support removing individual
// informers; dropping the type from resourceTypes stops new setups but
// events already wired keep flowing until Stop.
func (d *KubernetesDetector) RemoveResourceType(resourceType ResourceType) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.resourceTypes, resourceType)
	return nil
}

// namespaceDisplay returns a display string for the namespace.
func (d *KubernetesDetector) namespaceDisplay() string {
	if d.namespace == "" {
		return "all namespaces"
	}
	return d.namespace
}

// GetRestConfig returns the REST config for creating a Kubernetes detector
// using controller-runtime's standard config detection.
func GetRestConfig() (*rest.Config, error) {
	return ctrl.GetConfig()
}

// IsKubernetesAvailable checks if Kubernetes cluster access is available.
func IsKubernetesAvailable() bool {
	config, err := ctrl.GetConfig()
	if err != nil {
		return false
	}

	_, err = client.New(config, client.Options{})
	return err == nil
}

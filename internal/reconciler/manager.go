package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ldapintegrator/pkg/logging"
)

// Manager coordinates all reconciliation activities.
//
// It manages:
//   - Change detectors (filesystem/Kubernetes)
//   - Resource-specific reconcilers
//   - Work queue and worker pool
//   - Retry logic with exponential backoff
//
// Binding and secret change events do not reach a reconciler directly;
// they are translated by the BindingBridge into reconcile requests for the
// integrators that own them.
type Manager struct {
	mu sync.RWMutex

	config ManagerConfig

	// changeDetector detects configuration changes
	changeDetector ChangeDetector

	// reconcilers maps resource types to their reconcilers
	reconcilers map[ResourceType]Reconciler

	// bridge maps binding and secret events to integrator requests
	bridge *BindingBridge

	// queue is the work queue for reconciliation requests
	queue *delayedQueue

	// statusTracker tracks reconciliation status for each resource
	statusTracker map[string]*ReconcileStatus

	// changeChan receives change events from detectors
	changeChan chan ChangeEvent

	ctx        context.Context
	cancelFunc context.CancelFunc

	// wg tracks running workers
	wg sync.WaitGroup

	running bool
}

// NewManager creates a new reconciliation manager.
func NewManager(config ManagerConfig) *Manager {
	if config.WorkerCount == 0 {
		// One worker serializes publishes, so two observers of a binding
		// can never see payloads from different reconciliations interleave.
		config.WorkerCount = 1
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 5
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = 2 * time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 2 * time.Minute
	}
	if config.DebounceInterval == 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}
	if config.ReconcileTimeout == 0 {
		config.ReconcileTimeout = 30 * time.Second
	}

	return &Manager{
		config:        config,
		reconcilers:   make(map[ResourceType]Reconciler),
		queue:         NewDelayedQueue(),
		statusTracker: make(map[string]*ReconcileStatus),
		changeChan:    make(chan ChangeEvent, 100),
	}
}

// RegisterReconciler registers a reconciler for a specific resource type.
func (m *Manager) RegisterReconciler(reconciler Reconciler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resourceType := reconciler.GetResourceType()
	if _, exists := m.reconcilers[resourceType]; exists {
		return fmt.Errorf("reconciler for %s already registered", resourceType)
	}

	m.reconcilers[resourceType] = reconciler
	logging.Info("ReconcileManager", "Registered reconciler for %s", resourceType)

	if m.changeDetector != nil {
		if err := m.changeDetector.AddResourceType(resourceType); err != nil {
			logging.Warn("ReconcileManager", "Failed to add watch for %s: %v", resourceType, err)
		}
	}

	return nil
}

// SetBridge installs the bridge used to route binding and secret events to
// their owning integrators. Must be called before Start.
func (m *Manager) SetBridge(bridge *BindingBridge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bridge = bridge
}

// SetChangeDetector installs a change detector, overriding the one Start
// would create from the config. Used by tests and embedded setups.
func (m *Manager) SetChangeDetector(detector ChangeDetector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeDetector = detector
}

// Start begins the reconciliation system.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}

	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.running = true

	if m.changeDetector == nil {
		if err := m.setupChangeDetector(); err != nil {
			m.running = false
			m.mu.Unlock()
			return fmt.Errorf("failed to setup change detector: %w", err)
		}
	}

	// Watch every registered resource type, plus bindings and secrets when
	// a bridge will route them.
	for resourceType := range m.reconcilers {
		if err := m.changeDetector.AddResourceType(resourceType); err != nil {
			logging.Warn("ReconcileManager", "Failed to add watch for %s: %v", resourceType, err)
		}
	}
	if m.bridge != nil {
		for _, resourceType := range m.bridge.WatchedTypes() {
			if err := m.changeDetector.AddResourceType(resourceType); err != nil {
				logging.Warn("ReconcileManager", "Failed to add watch for %s: %v", resourceType, err)
			}
		}
	}

	m.mu.Unlock()

	if err := m.changeDetector.Start(m.ctx, m.changeChan); err != nil {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
		return fmt.Errorf("failed to start change detector: %w", err)
	}

	m.wg.Add(1)
	go m.processChangeEvents()

	for i := 0; i < m.config.WorkerCount; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}

	logging.Info("ReconcileManager", "Started with %d workers", m.config.WorkerCount)
	return nil
}

// setupChangeDetector creates the appropriate change detector based on config.
func (m *Manager) setupChangeDetector() error {
	mode := m.config.Mode
	if mode == WatchModeAuto || mode == "" {
		mode = m.autoDetectMode()
	}

	switch mode {
	case WatchModeFilesystem:
		if m.config.FilesystemPath == "" {
			return fmt.Errorf("filesystem path required for filesystem mode")
		}
		m.changeDetector = NewFilesystemDetector(m.config.FilesystemPath, m.config.DebounceInterval)

	case WatchModeKubernetes:
		restConfig, err := GetRestConfig()
		if err != nil {
			return fmt.Errorf("failed to get Kubernetes config: %w", err)
		}

		detector, err := NewKubernetesDetector(restConfig, m.config.Namespace)
		if err != nil {
			return fmt.Errorf("failed to create Kubernetes detector: %w", err)
		}
		m.changeDetector = detector

	default:
		return fmt.Errorf("unknown watch mode: %s", mode)
	}

	return nil
}

// autoDetectMode automatically determines the watch mode based on
// environment, preferring Kubernetes when a cluster is reachable.
func (m *Manager) autoDetectMode() WatchMode {
	if IsKubernetesAvailable() {
		logging.Info("ReconcileManager", "Auto-detected Kubernetes mode")
		return WatchModeKubernetes
	}

	logging.Info("ReconcileManager", "Auto-detected filesystem mode")
	return WatchModeFilesystem
}

// processChangeEvents converts change events to reconcile requests.
func (m *Manager) processChangeEvents() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return

		case event, ok := <-m.changeChan:
			if !ok {
				return
			}
			m.handleChangeEvent(event)
		}
	}
}

// handleChangeEvent processes a single change event. Integrator events are
// queued directly; binding and secret events are routed through the bridge
// to the integrators they affect.
func (m *Manager) handleChangeEvent(event ChangeEvent) {
	logging.Debug("ReconcileManager", "Handling change event: %s %s/%s",
		event.Operation, event.Type, event.Name)

	if event.Type != ResourceTypeIntegrator {
		m.routeThroughBridge(event)
		return
	}

	m.enqueue(ReconcileRequest{
		Type:      event.Type,
		Name:      event.Name,
		Namespace: event.Namespace,
		Attempt:   1,
	})
}

// routeThroughBridge maps a binding or secret event to integrator requests.
func (m *Manager) routeThroughBridge(event ChangeEvent) {
	m.mu.RLock()
	bridge := m.bridge
	m.mu.RUnlock()

	if bridge == nil {
		logging.Debug("ReconcileManager", "No bridge installed, dropping %s event for %s/%s",
			event.Type, event.Namespace, event.Name)
		return
	}

	requests := bridge.MapToIntegrators(m.ctx, event)
	if len(requests) == 0 {
		logging.Debug("ReconcileManager", "%s event for %s/%s affects no integrator",
			event.Type, event.Namespace, event.Name)
		return
	}

	for _, req := range requests {
		m.enqueue(req)
	}
}

// enqueue records pending status and adds the request to the work queue.
func (m *Manager) enqueue(req ReconcileRequest) {
	m.updateStatus(req.Type, req.Name, req.Namespace, StatePending, "")
	m.queue.Add(req)
}

// worker processes reconciliation requests from the queue.
func (m *Manager) worker(id int) {
	defer m.wg.Done()

	logging.Debug("ReconcileManager", "Worker %d started", id)

	for {
		req, ok := m.queue.Get(m.ctx)
		if !ok {
			logging.Debug("ReconcileManager", "Worker %d shutting down", id)
			return
		}

		m.processRequest(req)
		m.queue.Done(req)
	}
}

// processRequest handles a single reconciliation request.
func (m *Manager) processRequest(req ReconcileRequest) {
	m.mu.RLock()
	reconciler, ok := m.reconcilers[req.Type]
	timeout := m.config.ReconcileTimeout
	m.mu.RUnlock()

	if !ok {
		logging.Warn("ReconcileManager", "No reconciler for resource type: %s", req.Type)
		return
	}

	m.updateStatus(req.Type, req.Name, req.Namespace, StateReconciling, "")

	// Correlation ID ties together the log lines of one attempt.
	reconcileID := uuid.New().String()[:8]
	logging.Debug("ReconcileManager", "[%s] Reconciling %s/%s (attempt %d)",
		reconcileID, req.Type, req.Name, req.Attempt)

	GetReconcilerMetrics().RecordReconcileAttempt(req.Type)

	// Bound the attempt so a hung reconciler cannot block a worker forever.
	ctx, cancel := context.WithTimeout(m.ctx, timeout)
	defer cancel()

	result := reconciler.Reconcile(ctx, req)

	if ctx.Err() == context.DeadlineExceeded {
		result.Error = fmt.Errorf("reconciliation timed out after %v", timeout)
		result.Requeue = true
	}

	if result.Error != nil {
		GetReconcilerMetrics().RecordReconcileFailure(req.Type)
		m.handleReconcileError(reconcileID, req, result)
	} else if result.Requeue || result.RequeueAfter > 0 {
		GetReconcilerMetrics().RecordReconcileSuccess(req.Type)
		m.handleRequeue(reconcileID, req, result)
		m.updateStatus(req.Type, req.Name, req.Namespace, StateSynced, "")
	} else {
		GetReconcilerMetrics().RecordReconcileSuccess(req.Type)
		m.handleSuccess(reconcileID, req)
	}
}

// handleReconcileError handles a failed reconciliation.
func (m *Manager) handleReconcileError(reconcileID string, req ReconcileRequest, result ReconcileResult) {
	logging.Warn("ReconcileManager", "[%s] Reconciliation failed for %s/%s: %v",
		reconcileID, req.Type, req.Name, result.Error)

	// Error messages can quote secret material; scrub before storing.
	sanitizedError := SanitizeErrorMessage(result.Error.Error())

	if req.Attempt >= m.config.MaxRetries {
		logging.Error("ReconcileManager", result.Error,
			"[%s] Max retries exceeded for %s/%s", reconcileID, req.Type, req.Name)
		m.updateStatus(req.Type, req.Name, req.Namespace, StateFailed, sanitizedError)
		return
	}

	m.updateStatus(req.Type, req.Name, req.Namespace, StateError, sanitizedError)

	backoff := m.calculateBackoff(req.Attempt)

	req.Attempt++
	req.LastError = result.Error
	m.queue.AddAfter(req, backoff)

	logging.Debug("ReconcileManager", "[%s] Requeuing %s/%s after %v (attempt %d)",
		reconcileID, req.Type, req.Name, backoff, req.Attempt)
}

// handleRequeue handles a successful reconciliation that needs requeueing.
func (m *Manager) handleRequeue(reconcileID string, req ReconcileRequest, result ReconcileResult) {
	delay := result.RequeueAfter
	if delay == 0 {
		delay = m.config.InitialBackoff
	}

	// A fresh attempt series; this requeue is not a retry.
	m.queue.AddAfter(ReconcileRequest{
		Type:      req.Type,
		Name:      req.Name,
		Namespace: req.Namespace,
		Attempt:   1,
	}, delay)
	logging.Debug("ReconcileManager", "[%s] Requeuing %s/%s after %v",
		reconcileID, req.Type, req.Name, delay)
}

// handleSuccess handles a successful reconciliation.
func (m *Manager) handleSuccess(reconcileID string, req ReconcileRequest) {
	logging.Debug("ReconcileManager", "[%s] Successfully reconciled %s/%s",
		reconcileID, req.Type, req.Name)
	m.updateStatus(req.Type, req.Name, req.Namespace, StateSynced, "")
}

// calculateBackoff computes exponential backoff.
func (m *Manager) calculateBackoff(attempt int) time.Duration {
	backoff := m.config.InitialBackoff * time.Duration(1<<uint(attempt-1))

	if backoff > m.config.MaxBackoff {
		backoff = m.config.MaxBackoff
	}

	return backoff
}

// updateStatus updates the reconciliation status for a resource.
func (m *Manager) updateStatus(resourceType ResourceType, name, namespace string, state ReconcileState, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := statusKey(resourceType, name, namespace)
	status, ok := m.statusTracker[key]
	if !ok {
		status = &ReconcileStatus{
			ResourceType: resourceType,
			Name:         name,
			Namespace:    namespace,
		}
		m.statusTracker[key] = status
	}

	status.State = state
	status.LastError = errMsg

	switch state {
	case StateSynced:
		now := time.Now()
		status.LastReconcileTime = &now
		status.RetryCount = 0
	case StateError:
		status.RetryCount++
	}
}

// statusKey generates a unique key for status tracking.
func statusKey(resourceType ResourceType, name, namespace string) string {
	if namespace != "" {
		return string(resourceType) + "/" + namespace + "/" + name
	}
	return string(resourceType) + "/" + name
}

// Stop gracefully shuts down the reconciliation manager.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	m.mu.Unlock()

	logging.Info("ReconcileManager", "Stopping reconciliation manager...")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	if m.changeDetector != nil {
		if err := m.changeDetector.Stop(); err != nil {
			logging.Error("ReconcileManager", err, "Error stopping change detector")
		}
	}

	m.queue.Shutdown()

	m.wg.Wait()

	logging.Info("ReconcileManager", "Reconciliation manager stopped")
	return nil
}

// GetStatus returns the reconciliation status for a resource.
func (m *Manager) GetStatus(resourceType ResourceType, name, namespace string) (*ReconcileStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key := statusKey(resourceType, name, namespace)
	status, ok := m.statusTracker[key]
	return status, ok
}

// GetAllStatuses returns all reconciliation statuses.
func (m *Manager) GetAllStatuses() []ReconcileStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]ReconcileStatus, 0, len(m.statusTracker))
	for _, status := range m.statusTracker {
		statuses = append(statuses, *status)
	}
	return statuses
}

// TriggerReconcile manually triggers reconciliation for a resource.
func (m *Manager) TriggerReconcile(resourceType ResourceType, name, namespace string) {
	event := ChangeEvent{
		Type:      resourceType,
		Name:      name,
		Namespace: namespace,
		Operation: OperationUpdate,
		Timestamp: time.Now(),
		Source:    SourceManual,
	}
	m.handleChangeEvent(event)
}

// IsRunning returns whether the manager is running.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// GetQueueLength returns the current queue length.
func (m *Manager) GetQueueLength() int {
	return m.queue.Len()
}

// GetWatchMode returns the current watch mode.
func (m *Manager) GetWatchMode() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.changeDetector == nil {
		return string(m.config.Mode)
	}

	switch m.changeDetector.GetSource() {
	case SourceKubernetes:
		return string(WatchModeKubernetes)
	case SourceFilesystem:
		return string(WatchModeFilesystem)
	default:
		return string(m.config.Mode)
	}
}

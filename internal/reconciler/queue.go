package reconciler

import (
	"context"
	"sync"
	"time"
)

// key returns the deduplication key for a request. Requests for the same
// resource collapse to a single queue entry.
func (req ReconcileRequest) key() string {
	if req.Namespace != "" {
		return string(req.Type) + "/" + req.Namespace + "/" + req.Name
	}
	return string(req.Type) + "/" + req.Name
}

// workQueue implements ReconcileQueue with deduplication.
type workQueue struct {
	mu sync.Mutex

	// queue holds requests in FIFO order
	queue []ReconcileRequest

	// processing tracks items currently being processed
	processing map[string]bool

	// dirty tracks items that changed while being processed
	dirty map[string]ReconcileRequest

	// cond is used for blocking Get operations
	cond *sync.Cond

	shuttingDown bool
}

// NewQueue creates a new reconciliation queue.
func NewQueue() ReconcileQueue {
	q := &workQueue{
		processing: make(map[string]bool),
		dirty:      make(map[string]ReconcileRequest),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add adds or updates a request in the queue.
func (q *workQueue) Add(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}

	key := req.key()

	// A resource being processed right now gets marked dirty and requeued
	// when its worker calls Done.
	if q.processing[key] {
		q.dirty[key] = req
		return
	}

	for i, existing := range q.queue {
		if existing.key() == key {
			q.queue[i] = req
			return
		}
	}

	q.queue = append(q.queue, req)
	q.cond.Signal()
}

// Get retrieves the next request, blocking until one is available, the
// context is cancelled, or the queue shuts down.
func (q *workQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		select {
		case <-ctx.Done():
			return ReconcileRequest{}, false
		default:
		}

		// cond.Wait cannot observe context cancellation on its own, so a
		// helper goroutine broadcasts when the context ends. Closing done
		// releases the helper on a normal wakeup.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		select {
		case <-ctx.Done():
			return ReconcileRequest{}, false
		default:
		}
	}

	if q.shuttingDown && len(q.queue) == 0 {
		return ReconcileRequest{}, false
	}

	req := q.queue[0]
	q.queue = q.queue[1:]
	q.processing[req.key()] = true

	return req, true
}

// Done marks a request as completed and requeues it if it was marked dirty
// while in flight.
func (q *workQueue) Done(req ReconcileRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := req.key()
	delete(q.processing, key)

	if dirtyReq, ok := q.dirty[key]; ok {
		delete(q.dirty, key)
		q.queue = append(q.queue, dirtyReq)
		q.cond.Signal()
	}
}

// Len returns the queue length.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Shutdown stops the queue.
func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

// delayedQueue wraps a queue with delayed requeue support, used for retry
// backoff.
type delayedQueue struct {
	queue      ReconcileQueue
	mu         sync.Mutex
	delayedMap map[string]*time.Timer
	stopCh     chan struct{}
}

// NewDelayedQueue creates a queue that supports delayed requeuing.
func NewDelayedQueue() *delayedQueue {
	return &delayedQueue{
		queue:      NewQueue(),
		delayedMap: make(map[string]*time.Timer),
		stopCh:     make(chan struct{}),
	}
}

// Add adds a request immediately.
func (d *delayedQueue) Add(req ReconcileRequest) {
	d.queue.Add(req)
}

// AddAfter adds a request after a delay. A newer delayed add for the same
// resource replaces the pending one.
func (d *delayedQueue) AddAfter(req ReconcileRequest, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := req.key()

	if timer, ok := d.delayedMap[key]; ok {
		timer.Stop()
	}

	d.delayedMap[key] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.delayedMap, key)
		d.mu.Unlock()

		select {
		case <-d.stopCh:
			return
		default:
			d.queue.Add(req)
		}
	})
}

// Get retrieves the next request.
func (d *delayedQueue) Get(ctx context.Context) (ReconcileRequest, bool) {
	return d.queue.Get(ctx)
}

// Done marks a request as completed.
func (d *delayedQueue) Done(req ReconcileRequest) {
	d.queue.Done(req)
}

// Len returns the queue length.
func (d *delayedQueue) Len() int {
	return d.queue.Len()
}

// Shutdown stops the queue and cancels pending timers.
func (d *delayedQueue) Shutdown() {
	close(d.stopCh)

	d.mu.Lock()
	for _, timer := range d.delayedMap {
		timer.Stop()
	}
	d.delayedMap = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.queue.Shutdown()
}

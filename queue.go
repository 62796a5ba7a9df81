package pipeline

import "sync"

// BoundedQueue is a fixed-capacity FIFO of Items with blocking Put/Get and a
// terminal "finished" phase, modeled directly on the original pipeline's
// consumer_producer_t (original_source/plugins/sync/consumer_producer.c):
// one mutex guards count/head/tail/finished and the ring cells, three
// Monitors stand in for not_full/not_empty/finished, and every blocking
// operation releases the mutex before sleeping and re-checks its predicate
// in a loop on wake (the wait-morphing discipline the C code implements by
// hand around pthread_cond_wait).
type BoundedQueue struct {
	mu       sync.Mutex
	items    []Item
	head     int
	count    int
	capacity int

	finished bool

	notFull  *Monitor
	notEmpty *Monitor
	done     *Monitor

	initialized bool
}

// NewBoundedQueue allocates a queue with the given capacity. capacity must
// be >= 1.
func NewBoundedQueue(capacity int) (*BoundedQueue, error) {
	if capacity < 1 {
		return nil, ErrQueueBadCapacity
	}
	q := &BoundedQueue{
		items:       make([]Item, capacity),
		capacity:    capacity,
		notFull:     NewMonitor(),
		notEmpty:    NewMonitor(),
		done:        NewMonitor(),
		initialized: true,
	}
	return q, nil
}

func (q *BoundedQueue) isFull() bool  { return q.count == q.capacity }
func (q *BoundedQueue) isEmpty() bool { return q.count == 0 }

// Put enqueues item, blocking while the queue is full and not finished. If
// finished is already observed when Put is called, it returns
// ErrQueueFinished immediately and the caller keeps ownership of item. A Put
// that began blocking before SignalFinished is allowed to complete if space
// frees up afterwards — this non-destructive-shutdown policy is adopted
// verbatim from consumer_producer_put's comment "this put started before
// 'finished' ... allowed to complete after the signal arrives".
func (q *BoundedQueue) Put(item Item) error {
	if !q.initialized {
		return ErrQueueUninitialized
	}

	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		return ErrQueueFinished
	}

	for q.isFull() {
		q.notFull.Reset()
		q.mu.Unlock()
		if err := q.notFull.Wait(); err != nil {
			return ErrQueueInternal
		}
		q.mu.Lock()
		// Intentionally do not re-check finished here: a put that started
		// before finished was signaled is allowed to complete once space
		// frees up.
	}

	tail := (q.head + q.count) % q.capacity
	q.items[tail] = item
	q.count++
	q.mu.Unlock()

	q.notEmpty.Signal()
	return nil
}

// Get dequeues the next item in FIFO order, blocking while the queue is
// empty and not finished. Returns ok == false iff the queue is empty and
// finished (end of stream).
func (q *BoundedQueue) Get() (item Item, ok bool) {
	if !q.initialized {
		return Item{}, false
	}

	q.mu.Lock()
	for q.isEmpty() && !q.finished {
		q.notEmpty.Reset()
		q.mu.Unlock()
		if err := q.notEmpty.Wait(); err != nil {
			return Item{}, false
		}
		q.mu.Lock()
	}

	if q.isEmpty() && q.finished {
		q.mu.Unlock()
		return Item{}, false
	}

	item = q.items[q.head]
	q.items[q.head] = Item{}
	q.head = (q.head + 1) % q.capacity
	q.count--
	becameEmpty := q.count == 0 && q.finished
	q.mu.Unlock()

	q.notFull.Signal()
	if becameEmpty {
		q.done.Signal()
	}
	return item, true
}

// SignalFinished marks the queue finished (monotonic 0→1, idempotent).
// Further Puts that begin after this call observe ErrQueueFinished;
// consumers blocked on Get wake to observe end-of-stream once the queue
// drains.
func (q *BoundedQueue) SignalFinished() {
	if !q.initialized {
		return
	}
	q.mu.Lock()
	if q.finished {
		q.mu.Unlock()
		return
	}
	q.finished = true
	q.mu.Unlock()

	// Wake wait_finished's phase-1 wait, and wake consumers blocked on Get
	// so they can observe end-of-stream. If the queue is already empty,
	// done's signaled bit stays set and WaitFinished's phase-2 check below
	// is satisfied immediately — no separate "became empty" signal needed.
	q.done.Signal()
	q.notEmpty.Signal()
}

// WaitFinished blocks until the queue is both finished and empty.
func (q *BoundedQueue) WaitFinished() error {
	if !q.initialized {
		return ErrQueueUninitialized
	}

	q.mu.Lock()
	if q.finished && q.count == 0 {
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()

	for {
		if err := q.done.Wait(); err != nil {
			return ErrQueueInternal
		}
		q.mu.Lock()
		drained := q.finished && q.count == 0
		if drained {
			q.mu.Unlock()
			return nil
		}
		q.done.Reset()
		q.mu.Unlock()
	}
}

// Len reports the current occupancy. Exposed for tests and metrics only;
// the value may be stale the instant it is returned.
func (q *BoundedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Destroy releases any resident items and tears down the queue's monitors.
// Tolerant of being called more than once.
func (q *BoundedQueue) Destroy() {
	if !q.initialized {
		return
	}
	q.mu.Lock()
	q.items = nil
	q.count = 0
	q.head = 0
	q.initialized = false
	q.mu.Unlock()

	q.notFull.Destroy()
	q.notEmpty.Destroy()
	q.done.Destroy()
}

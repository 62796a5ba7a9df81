package pipeline

import (
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// goroutineID recovers the numeric id of the calling goroutine from
// runtime.Stack's header line ("goroutine 123 [running]:"). Go exposes no
// public goroutine-identity API; this is the same trick common
// goroutine-local-storage shims use, and is the closest equivalent to the
// original plugin_fini's pthread_self() comparison against the stored
// worker thread id (see Stage.Close).
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(string(buf[:n]))
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Transform is a stage's processing function. It may return the same Item
// it was given (in-place semantics), a distinct new Item, or ok == false to
// signal a failed transform (the input is dropped and the worker continues
// with the next item). Transform is never invoked with the sentinel Item —
// the worker loop intercepts and forwards it before Transform ever sees it.
type Transform func(Item) (result Item, ok bool)

// PlaceWork offers an item to a stage (or to whatever the next stage's
// PlaceWork happens to be). It is the downstream hook a Stage's attach
// wires up, and matches the original plugin ABI's
// `const char* (*next_place_work)(const char*)` function-pointer contract.
type PlaceWork func(Item) error

// stageState is the state machine from spec.md §4.4:
//
//	UNINIT --init--> READY --attach--> WIRED --<END> observed--> FINISHED
type stageState int

const (
	stateUninit stageState = iota
	stateReady
	stateWired
	stateFinished
)

// Stage is a single pipeline step: an input queue plus a worker goroutine
// that drains it, applies Transform, and forwards results downstream. It
// implements the five-operation façade from spec.md §4.4 (Init is folded
// into NewStage's constructor, Fini is Stage.Close).
//
// Unlike the original C implementation, which keeps one process-wide
// singleton stage per dynamically loaded plugin image, Stage here is an
// ordinary instantiable value — the external loader's job of mapping a name
// to a constructor becomes Registry's job (see registry.go), and nothing
// prevents composing the same Transform into two independent Stage
// instances.
type Stage struct {
	name      string
	transform Transform
	queue     *BoundedQueue
	log       *slog.Logger

	mu         sync.Mutex
	state      stageState
	downstream PlaceWork

	workerDone chan struct{}
	workerGID  atomic.Uint64
	metrics    *Metrics
}

// StageOption configures optional Stage behavior at construction time.
type StageOption func(*Stage)

// WithMetrics attaches a Metrics collector to the stage. Every forward,
// drop, and queue-depth sample the worker loop observes is reported to it.
// A Stage built without this option records nothing — all the metrics
// methods are nil-receiver-safe.
func WithMetrics(m *Metrics) StageOption {
	return func(s *Stage) { s.metrics = m }
}

// NewStage validates its arguments, allocates the stage's queue, and starts
// its worker goroutine. A stage begins in the READY state — PlaceWork may be
// called immediately; Attach may be called at most once, before or after the
// first PlaceWork.
func NewStage(name string, capacity int, transform Transform, opts ...StageOption) (*Stage, error) {
	if transform == nil {
		return nil, ErrInvalidTransform
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}

	queue, err := NewBoundedQueue(capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCapacity, err)
	}

	s := &Stage{
		name:       name,
		transform:  transform,
		queue:      queue,
		log:        stageLogger(name),
		state:      stateReady,
		workerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()

	return s, nil
}

// Name returns the stage's name.
func (s *Stage) Name() string { return s.name }

// PlaceWork enqueues item on the stage's input queue.
func (s *Stage) PlaceWork(item Item) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	if state == stateUninit {
		return ErrNotInitialized
	}

	if err := s.queue.Put(item); err != nil {
		s.log.Error(err.Error())
		return err
	}
	return nil
}

// Attach wires this stage's downstream hook. downstream == nil is a legal
// value meaning "this is the terminal stage". Attach succeeds exactly once,
// only while the stage is READY (i.e. not yet attached and before it has
// observed the sentinel); a WIRED stage returns ErrAttachAlreadyCalled.
func (s *Stage) Attach(downstream PlaceWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateUninit:
		s.log.Error(ErrAttachBeforeInit.Error())
		return ErrAttachBeforeInit
	case stateFinished:
		s.log.Error(ErrAttachAfterFinish.Error())
		return ErrAttachAfterFinish
	case stateWired:
		s.log.Error(ErrAttachAlreadyCalled.Error())
		return ErrAttachAlreadyCalled
	}

	s.downstream = downstream
	s.state = stateWired
	return nil
}

// WaitFinished blocks until the stage's queue has been finished and
// drained. Idempotent: safe to call more than once, and from more than one
// goroutine.
func (s *Stage) WaitFinished() error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state == stateUninit {
		return ErrNotInitialized
	}
	if err := s.queue.WaitFinished(); err != nil {
		s.log.Error(ErrQueueWaitFailed.Error())
		return ErrQueueWaitFailed
	}
	return nil
}

// Close drains the stage (via WaitFinished), joins the worker goroutine,
// and tears down the queue, resetting the Stage to an uninitialized state.
// A second call returns ErrNotInitialized. Per spec.md §4.4, fini guards
// against being called from the worker goroutine itself — joining your own
// goroutine deadlocks forever on <-s.workerDone — and returns
// ErrCannotJoinSelf instead of blocking.
func (s *Stage) Close() error {
	if gid := s.workerGID.Load(); gid != 0 && gid == goroutineID() {
		s.log.Error(ErrCannotJoinSelf.Error())
		return ErrCannotJoinSelf
	}

	s.mu.Lock()
	if s.state == stateUninit {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	s.mu.Unlock()

	if err := s.WaitFinished(); err != nil {
		return err
	}

	<-s.workerDone // join

	s.queue.Destroy()

	s.mu.Lock()
	s.state = stateUninit
	s.downstream = nil
	s.mu.Unlock()

	return nil
}

// run is the worker goroutine's body: the consumer loop from spec.md §4.3.
// It is a pure plumbing loop — side effects (printing, delaying) happen
// inside Transform, never here, matching the original plugin_consumer_thread
// design (see original_source/plugins/plugin_common.c).
func (s *Stage) run() {
	defer close(s.workerDone)
	s.workerGID.Store(goroutineID())

	for {
		item, ok := s.queue.Get()
		if !ok {
			// Only reachable if the queue was finished externally; the
			// standard shutdown path below exits via the sentinel branch.
			return
		}
		s.metrics.setQueueDepth(s.name, s.queue.Len())

		if item.IsEnd() {
			s.forwardSentinel(item)
			s.mu.Lock()
			s.state = stateFinished
			s.mu.Unlock()
			s.queue.SignalFinished()
			return
		}

		s.processOne(item)
	}
}

func (s *Stage) forwardSentinel(item Item) {
	s.mu.Lock()
	downstream := s.downstream
	wired := s.state == stateWired
	s.mu.Unlock()

	if wired && downstream != nil {
		if err := downstream(item); err != nil {
			s.log.Error(err.Error())
			return
		}
		s.metrics.observeForward(s.name)
	}
}

func (s *Stage) processOne(item Item) {
	result, ok := s.transform(item)
	if !ok {
		s.log.Error("transform failed")
		s.metrics.observeDrop(s.name)
		return
	}

	s.mu.Lock()
	downstream := s.downstream
	wired := s.state == stateWired
	s.mu.Unlock()

	if wired && downstream != nil {
		if err := downstream(result); err != nil {
			s.log.Error(err.Error())
			return
		}
		s.metrics.observeForward(s.name)
		// Ownership table (spec.md §4.3): when the result is the very same
		// buffer as the input, downstream now owns the single buffer and
		// there is nothing further to release either way in a GC'd
		// runtime; when it's a distinct buffer, the input's lifetime ends
		// here regardless of outcome. Go's garbage collector makes the
		// "release" step implicit, but the branch structure mirrors the
		// original free()-counting discipline for parity with spec.md.
		return
	}
	// Terminal stage: nothing to forward to. result (and item, if distinct)
	// simply fall out of scope.
}

package pipeline

import "errors"

// Monitor errors.
var (
	ErrMonitorInitFailed = errors.New("monitor: init failed")
	ErrMonitorWaitFailed = errors.New("monitor: wait failed")
)

// BoundedQueue errors.
var (
	ErrQueueBadCapacity   = errors.New("queue: capacity must be >= 1")
	ErrQueueOutOfMemory   = errors.New("queue: out of memory")
	ErrQueueUninitialized = errors.New("queue: not initialized")
	ErrQueueFinished      = errors.New("queue: finished, no further puts accepted")
	ErrQueueInternal      = errors.New("queue: internal monitor failure")
)

// Stage façade errors (§4.4).
var (
	ErrInvalidTransform    = errors.New("stage: invalid transform")
	ErrInvalidName         = errors.New("stage: invalid name")
	ErrInvalidCapacity     = errors.New("stage: invalid capacity")
	ErrAlreadyInitialized  = errors.New("stage: already initialized")
	ErrStageOutOfMemory    = errors.New("stage: out of memory")
	ErrThreadStartFailed   = errors.New("stage: worker start failed")
	ErrNotInitialized      = errors.New("stage: not initialized")
	ErrNullInput           = errors.New("stage: nil input")
	ErrQueueWaitFailed     = errors.New("stage: wait finished failed")
	ErrCannotJoinSelf      = errors.New("stage: cannot join worker from itself")
	ErrAttachBeforeInit    = errors.New("stage: attach called before init")
	ErrAttachAfterFinish   = errors.New("stage: attach called after finish")
	ErrAttachAlreadyCalled = errors.New("stage: attach called twice")
)

// Orchestrator / CLI boundary errors (§7 taxonomy: ArgError, ResolveError,
// InternalError). TransformError/DownstreamError/PlaceWorkError/FiniError
// are not fatal — they are logged per item and never returned as Go errors
// from the worker loop, matching §7's propagation policy.
var (
	ErrArg            = errors.New("argument error")
	ErrResolve        = errors.New("stage resolution error")
	ErrInit           = errors.New("stage init error")
	ErrInternal       = errors.New("internal orchestrator error")
	ErrUnknownStage   = errors.New("unknown stage name")
	ErrStageNameIsSo  = errors.New("stage name must not end in .so")
	ErrStageNameEmpty = errors.New("stage name must not be empty")
)

/*
Package pipeline implements a multi-stage, in-process string-processing
pipeline driven by line-oriented input.

Each stage owns a bounded blocking queue and a single worker goroutine. Items
flow through the chain one at a time; stages are wired together at
construction time in the order the caller specifies. A distinguished
sentinel item (see NewEnd) triggers a cooperative shutdown that drains every
stage before Pipeline.Run returns.

The package is organized around five collaborators:

  - Monitor: a level-triggered, explicitly-reset condition, used to signal
    state transitions (queue became non-empty, queue finished) without
    busy-waiting.
  - BoundedQueue: a fixed-capacity FIFO of Items with blocking Put/Get and a
    terminal "finished" phase.
  - Stage: owns a BoundedQueue and a worker goroutine; consumes its queue,
    invokes a Transform, forwards downstream, and propagates the sentinel
    exactly once.
  - Registry: resolves a stage name to the Factory that builds its Transform,
    standing in for the external plugin loader the original design delegated
    this lookup to.
  - Pipeline: composes an ordered chain of Stages — resolves names,
    initializes, attaches neighbours, feeds input, waits for quiescence, and
    tears everything down.

Scheduling is plain OS-thread-backed goroutines: one per stage plus the
caller's own goroutine driving input. There is no cooperative scheduler and
no single event loop; backpressure from a slow stage propagates upstream via
blocking Put calls, and drain propagates downstream via sentinel forwarding.
*/
package pipeline

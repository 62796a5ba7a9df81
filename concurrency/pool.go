// Package concurrency provides a bounded goroutine pool used to run several
// independent lanepipe pipelines side by side without spawning one goroutine
// per run.
//
// It is deliberately shallow compared to a general fan-out/fan-in engine:
// lanepipe's pipelines are themselves a strict linear chain of stages (see
// the root package), so the only thing this package needs to parallelize is
// "run N independent pipelines, bounded by a worker count" — not branching
// or merging within a single run.
package concurrency

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
)

// Pool bounds how many submitted tasks may run concurrently. A nil *Pool, or
// one built with size 0, runs every task in the caller's goroutine.
type Pool struct {
	inner *ants.Pool
}

// Release tears down the underlying worker pool. Safe to call on a nil Pool.
func (p *Pool) Release() {
	if p == nil || p.inner == nil {
		return
	}
	p.inner.Release()
}

// NewPool builds a bounded pool of the given size. size == 0 yields a Pool
// that runs every submitted task in the submitting goroutine.
func NewPool(size int, opts ...ants.Option) (*Pool, error) {
	if size == 0 {
		return &Pool{}, nil
	}
	inner, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, err
	}
	return &Pool{inner: inner}, nil
}

// submit runs f, bounded by the pool's concurrency limit. If the pool has no
// underlying worker set (nil or size 0), f runs synchronously in the calling
// goroutine.
func (p *Pool) submit(f func()) error {
	if p == nil || p.inner == nil {
		f()
		return nil
	}
	return p.inner.Submit(f)
}

// Run dispatches do(item) for every item received from in, bounded by the
// pool's concurrency, and streams results to the returned channel until in is
// closed and every dispatched task has completed.
func Run[IN, OUT any](p *Pool, in <-chan IN, do func(IN) OUT) <-chan OUT {
	out := make(chan OUT)

	go func() {
		var wg sync.WaitGroup
		for item := range in {
			item := item
			wg.Add(1)
			err := p.submit(func() {
				defer wg.Done()
				out <- do(item)
			})
			if err != nil {
				// Pool rejected the task (e.g. closed pool); still account for it
				// so wg.Wait() below terminates.
				wg.Done()
			}
		}
		wg.Wait()
		close(out)
	}()

	return out
}

// RunAll is a convenience wrapper around Run for callers that only want the
// side effects of do and don't need the per-item results.
func RunAll[IN any](p *Pool, items []IN, do func(IN) error) []error {
	in := lo.SliceToChannel(0, items)
	out := Run(p, in, do)
	return lo.ChannelToSlice(out)
}

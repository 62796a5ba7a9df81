package concurrency

import "github.com/panjf2000/ants/v2"

// Underlying returns the pool's underlying ants.Pool, or nil when the Pool
// runs tasks inline (size 0). Exported for tests only.
func (p *Pool) Underlying() *ants.Pool {
	if p == nil {
		return nil
	}
	return p.inner
}

package concurrency_test

import (
	"testing"

	"github.com/fogfactory/lanepipe/concurrency"
	"github.com/maxatome/go-testdeep/td"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
)

func InitPool(t testing.TB, size int) *concurrency.Pool {
	return InitPoolWithOptions(t, size)
}

func InitPoolWithOptions(t testing.TB, size int, opts ...ants.Option) *concurrency.Pool {
	pool, err := concurrency.NewPool(size, opts...)
	td.Require(t).CmpNoError(err)
	t.Cleanup(pool.Release)
	return pool
}

func TestPool(t *testing.T) {
	inc := func(i, _ /* for compatibility with lo */ int) int {
		i++
		return i
	}

	t.Run("run_nil_pool", func(t *testing.T) {
		// Arrange
		input := lo.Range(10)
		in := lo.SliceToChannel(0, input)
		do := func(i int) int { return inc(i, 0) }

		// Act
		out := concurrency.Run[int, int](nil, in, do) // runs sequentially in a goroutine

		// Assert
		results := lo.ChannelToSlice(out)
		td.Cmp(t, results, lo.Map(input, inc))
	})

	t.Run("run_empty_pool", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 0) // size 0: runs inline
		input := lo.Range(10)
		in := lo.SliceToChannel(0, input)
		do := func(i int) int {
			td.CmpFalse(t, hasWorkerPool(pool), "shouldn't have an underlying worker pool")
			return inc(i, 0)
		}

		// Act
		out := concurrency.Run(pool, in, do)

		// Assert
		results := lo.ChannelToSlice(out)
		td.Cmp(t, results, lo.Map(input, inc))
	})

	t.Run("run_pool_size_1", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 1)
		input := lo.Range(10)
		in := lo.SliceToChannel(0, input)
		do := func(i int) int { return inc(i, 0) }

		// Act
		out := concurrency.Run(pool, in, do)

		// Assert
		results := lo.ChannelToSlice(out)
		td.Cmp(t, results, lo.Map(input, inc))
	})

	t.Run("run_pool_size_10_disorder", func(t *testing.T) {
		// Arrange
		pool := InitPool(t, 10)
		input := lo.Range(10)
		in := lo.SliceToChannel(0, input)
		do := func(i int) int { return inc(i, 0) }

		// Act
		out := concurrency.Run(pool, in, do)

		// Assert
		results := lo.ChannelToSlice(out)
		// Results can come back out of submission order since the pool has
		// several workers, so compare as a bag rather than a sequence.
		td.CmpBag(t, results, lo.Map(input, func(i, _ int) any { return do(i) }))
	})
}

func hasWorkerPool(p *concurrency.Pool) bool {
	return p.Underlying() != nil
}

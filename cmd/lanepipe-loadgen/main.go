// Command lanepipe-loadgen is a stress harness: it runs many independent
// Pipeline instances concurrently, bounded by a worker pool, to exercise
// cross-stage isolation — the property that two Pipelines sharing a
// process never observe each other's queues or monitors. All runs report
// into one shared Metrics collector, so its counters are totals across
// runs. It has
// no fixed output contract of its own (unlike cmd/lanepipe), so it is free
// to use devslog for human-friendly operational logging, the way
// zhulik-skylytics's internal/cmd/logger.go picks devslog over JSON when
// stderr is a terminal. An errgroup-derived context carries the overall
// -timeout deadline and, with -fail-fast, cancels runs that have not
// started yet once the first failure is observed.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fogfactory/lanepipe"
	"github.com/fogfactory/lanepipe/concurrency"
	"github.com/fogfactory/lanepipe/stages"
	"github.com/golang-cz/devslog"
	"github.com/mattn/go-isatty"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

func main() {
	runs := flag.Int("runs", 50, "number of independent pipeline runs to execute")
	workers := flag.Int("workers", 8, "maximum number of concurrently executing pipelines")
	queueSize := flag.Int("queue-size", 16, "queue capacity for every stage in every run")
	lines := flag.Int("lines", 100, "number of non-sentinel lines fed to each pipeline run")
	timeout := flag.Duration("timeout", 2*time.Minute, "deadline for the whole load run; 0 disables it")
	failFast := flag.Bool("fail-fast", false, "cancel runs that have not started yet after the first failure")
	dumpMetrics := flag.Bool("dump-metrics", false, "print a Prometheus text-format snapshot to stderr when done")
	flag.Parse()

	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	metrics := pipeline.NewMetrics()

	pool, err := concurrency.NewPool(*workers)
	if err != nil {
		logger.Error("failed to build worker pool", "error", err)
		os.Exit(1)
	}
	defer pool.Release()

	ctx := context.Background()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	start := time.Now()

	results, errs := runAll(ctx, pool, *runs, *queueSize, *lines, metrics, logger, *failFast)

	logger.Info("load generation complete",
		"runs", *runs,
		"ok", results,
		"failed", errs,
		"elapsed", time.Since(start).String(),
	)

	if *dumpMetrics {
		var buf bytes.Buffer
		if err := metrics.Dump(&buf); err != nil {
			logger.Error("failed to dump metrics", "error", err)
		} else {
			fmt.Fprint(os.Stderr, buf.String())
		}
	}

	if errs > 0 {
		os.Exit(1)
	}
}

// runAll submits n independent pipeline runs to pool, bounded by the pool's
// worker count, and collects their outcomes as they complete.
//
// errgroup carries two distinct responsibilities here, neither of which the
// pool itself provides: gctx imposes the real deadline passed in via ctx
// (ctx is already past its deadline once *timeout elapses in main), so a run
// that hasn't started yet by the time the clock runs out short-circuits
// with gctx.Err() instead of executing; and, when failFast is set, the
// drain goroutine below hands the first observed run failure to a second
// g.Go goroutine that returns it, which cancels gctx immediately and is
// surfaced to the caller via g.Wait()'s return value, while the drain
// goroutine keeps counting the remaining results.
func runAll(ctx context.Context, pool *concurrency.Pool, n, queueSize, lineCount int, metrics *pipeline.Metrics, logger *slog.Logger, failFast bool) (ok, failed int) {
	runs := make([]int, n)
	for i := range runs {
		runs[i] = i
	}

	g, gctx := errgroup.WithContext(ctx)
	in := lo.SliceToChannel(0, runs)
	results := concurrency.Run(pool, in, func(run int) error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		default:
		}
		return submitRun(run, queueSize, lineCount, metrics, logger)
	})

	firstFailure := make(chan error, 1)
	g.Go(func() error {
		defer close(firstFailure)
		for err := range results {
			if err != nil {
				if failed == 0 && failFast {
					firstFailure <- err
				}
				failed++
			} else {
				ok++
			}
		}
		return nil
	})
	g.Go(func() error {
		// Returning the first failure cancels gctx at once, while the drain
		// goroutine above keeps counting the remaining results.
		return <-firstFailure
	})

	if err := g.Wait(); err != nil {
		logger.Warn("load run stopped early", "error", err)
	}
	return ok, failed
}

func submitRun(run, queueSize, lineCount int, metrics *pipeline.Metrics, logger *slog.Logger) error {
	var out bytes.Buffer

	registry := pipeline.NewRegistry()
	stages.Register(registry, &out)

	p, err := pipeline.NewPipeline(registry, queueSize, []string{"uppercaser", "rotator", "flipper"}, &out, pipeline.WithPipelineMetrics(metrics))
	if err != nil {
		logger.Error("pipeline construction failed", "run", run, "error", err)
		return err
	}

	var input strings.Builder
	for i := 0; i < lineCount; i++ {
		fmt.Fprintf(&input, "line-%d-%d\n", run, i)
	}
	input.WriteString(pipeline.Sentinel + "\n")

	if err := p.Run(strings.NewReader(input.String())); err != nil {
		logger.Error("pipeline run failed", "run", run, "error", err)
		return err
	}
	return nil
}

func newLogger(w *os.File) *slog.Logger {
	if isatty.IsTerminal(w.Fd()) {
		return slog.New(devslog.NewHandler(w, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{Level: slog.LevelInfo},
		}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// Command lanepipe runs a fixed chain of string-processing stages over
// standard input until it observes the <END> sentinel. Its argv grammar,
// exit codes, and exact stdout text are fixed by the pipeline it drives
// (see pipeline.Pipeline and the usage block below) — this is a case where
// reaching for a flag-parsing library would fight the contract rather than
// serve it, so argument handling here is hand-rolled instead.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fogfactory/lanepipe"
	"github.com/fogfactory/lanepipe/stages"
)

const usage = `Usage: lanepipe <queue_size> <stage1> <stage2> ... <stageN>

Arguments:
  queue_size    Maximum number of items in each stage's queue
  stage1..N     Names of stages to load (without .so extension)

Available stages:
  logger        - Logs all strings that pass through
  typewriter    - Simulates typewriter effect with delays
  uppercaser    - Converts strings to uppercase
  rotator       - Move every character to the right.  Last character moves to the beginning.
  flipper       - Reverses the order of characters
  expander      - Expands each character with spaces

Example:
  lanepipe 20 uppercaser rotator logger
  echo 'hello' | lanepipe 20 uppercaser rotator logger
  echo '<END>' | lanepipe 20 uppercaser rotator logger
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr *os.File) int {
	queueSize, names, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		fmt.Fprint(stdout, usage)
		return 1
	}

	registry := pipeline.NewRegistry()
	stages.Register(registry, stdout)

	p, err := pipeline.NewPipeline(registry, queueSize, names, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		fmt.Fprint(stdout, usage)
		return 1
	}

	if err := p.Resolve(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		fmt.Fprint(stdout, usage)
		return 1
	}

	if err := p.Initialize(); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if err := p.Attach(); err != nil {
		p.Teardown()
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if err := p.Feed(stdin); err != nil {
		p.Teardown()
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if err := p.Quiesce(); err != nil {
		p.Teardown()
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	p.Teardown()
	p.Announce()
	return 0
}

// parseArgs validates queue_size and the stage-name list, mirroring
// parse_queue_size / collect_plugin_names / ends_with_dot_so / trim_and_dup
// from the original CLI driver: queue_size must be a strictly positive
// integer with no trailing garbage, and at least one stage name (trimmed,
// non-empty, not ending in ".so") must follow it.
func parseArgs(args []string) (queueSize int, names []string, err error) {
	if len(args) < 2 {
		return 0, nil, fmt.Errorf("%w: missing arguments", pipeline.ErrArg)
	}

	queueSize, err = parseQueueSize(args[0])
	if err != nil {
		return 0, nil, err
	}

	names, err = collectStageNames(args[1:])
	if err != nil {
		return 0, nil, err
	}

	return queueSize, names, nil
}

func parseQueueSize(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: missing queue_size", pipeline.ErrArg)
	}
	val, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid queue_size: %v", pipeline.ErrArg, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("%w: queue_size must be a positive integer", pipeline.ErrArg)
	}
	return val, nil
}

func collectStageNames(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing stage names", pipeline.ErrArg)
	}

	names := make([]string, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r)
		if name == "" {
			return nil, fmt.Errorf("%w: invalid stage name: empty", pipeline.ErrArg)
		}
		if strings.HasSuffix(name, ".so") {
			return nil, fmt.Errorf("%w: %w", pipeline.ErrArg, errors.New("invalid stage name: should not include .so"))
		}
		names = append(names, name)
	}
	return names, nil
}

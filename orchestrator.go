package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxPayloadBytes is the line cap from spec §6: a line longer than this is
// truncated, never rejected — there is no "line too long" error in the
// taxonomy, so a Scanner-style hard failure on overlong input would be the
// wrong behavior here.
const maxPayloadBytes = 1024

// Pipeline is the C5 orchestrator: it resolves stage names against a
// Registry, initializes and wires a chain of Stage façades, pumps stdin
// through the first stage, waits for the chain to drain, and tears it all
// down. It performs the seven operations from spec.md §4.5 (Resolve,
// Initialize, Attach, Feed, Quiesce, Teardown, Announce) as distinct,
// independently callable methods so a caller (cmd/lanepipe) can map each
// failure to the right exit code without Pipeline knowing about exit codes
// itself.
type Pipeline struct {
	registry *Registry
	capacity int
	names    []string
	out      io.Writer
	metrics  *Metrics

	factories []Factory
	stages    []*Stage
}

// PipelineOption configures optional Pipeline behavior at construction time.
type PipelineOption func(*Pipeline)

// WithPipelineMetrics attaches a Metrics collector; every stage the
// Pipeline initializes is built with it wired in via Stage's WithMetrics.
func WithPipelineMetrics(m *Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline constructs an unresolved Pipeline for the given stage names.
// capacity is the queue capacity applied identically to every stage; names
// must contain at least one entry. out receives the final shutdown banner
// (ordinarily os.Stdout); stage-produced output goes through the stages
// themselves, never through Pipeline.
func NewPipeline(registry *Registry, capacity int, names []string, out io.Writer, opts ...PipelineOption) (*Pipeline, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: at least one stage is required", ErrArg)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("%w: queue_size must be a strictly positive integer", ErrArg)
	}
	p := &Pipeline{registry: registry, capacity: capacity, names: names, out: out}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Resolve looks up every stage name's Factory in the registry. It must run
// before Initialize.
func (p *Pipeline) Resolve() error {
	factories := make([]Factory, 0, len(p.names))
	for _, name := range p.names {
		factory, err := p.registry.Resolve(name)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResolve, err)
		}
		factories = append(factories, factory)
	}
	p.factories = factories
	return nil
}

// Initialize constructs a Stage per resolved name. On any failure it tears
// down every stage already constructed, in reverse order, before returning
// — a failed run leaves nothing running in the background.
func (p *Pipeline) Initialize() error {
	stages := make([]*Stage, 0, len(p.names))
	for i, name := range p.names {
		stage, err := NewStage(name, p.capacity, p.factories[i](), WithMetrics(p.metrics))
		if err != nil {
			for j := len(stages) - 1; j >= 0; j-- {
				_ = stages[j].Close()
			}
			return fmt.Errorf("%w: stage %q: %w", ErrInit, name, err)
		}
		stages = append(stages, stage)
	}
	p.stages = stages
	return nil
}

// Attach wires each stage's downstream hook to its successor's PlaceWork,
// leaving the last stage terminal. A rejection here is treated as an
// internal error: it can only happen if Pipeline itself calls Attach twice
// or out of order, which is a bug in the orchestrator, not in user input.
func (p *Pipeline) Attach() error {
	for i := 0; i < len(p.stages)-1; i++ {
		next := p.stages[i+1]
		if err := p.stages[i].Attach(next.PlaceWork); err != nil {
			return fmt.Errorf("%w: attaching %q to %q: %w", ErrInternal, p.stages[i].Name(), next.Name(), err)
		}
	}
	return nil
}

// Feed reads newline-delimited lines from r, one at a time, and offers each
// to the first stage. A trailing "\n" (and an optional preceding "\r") is
// stripped before the line is handed to PlaceWork; a line longer than
// maxPayloadBytes is truncated, not rejected. The literal line "<END>" is
// forwarded at most once, after which Feed stops reading — no later line is
// ever offered to a stage, matching scenario S6. Feed reads r through a
// bufio.Reader, so bytes after the sentinel line that were already buffered
// have been read from r even though they are discarded. PlaceWork failures
// are logged and do not stop the feed loop.
func (p *Pipeline) Feed(r io.Reader) error {
	head := p.stages[0]
	reader := bufio.NewReader(r)

	for {
		line, err := reader.ReadString('\n')
		if len(line) == 0 && err != nil {
			break
		}

		payload := strings.TrimSuffix(line, "\n")
		payload = strings.TrimSuffix(payload, "\r")
		if len(payload) > maxPayloadBytes {
			payload = payload[:maxPayloadBytes]
		}

		if payload == Sentinel {
			if placeErr := head.PlaceWork(NewEnd()); placeErr != nil {
				head.log.Error(placeErr.Error())
			}
			return nil
		}

		if placeErr := head.PlaceWork(NewItem(payload)); placeErr != nil {
			head.log.Error(placeErr.Error())
		}

		if err != nil {
			break // EOF with no trailing newline on the final line
		}
	}
	return nil
}

// Quiesce waits for every stage to drain, in ascending order. Ascending
// order is a correctness requirement, not just a convenience: a later stage
// cannot legitimately finish before its predecessor has forwarded the
// sentinel to it.
func (p *Pipeline) Quiesce() error {
	for _, stage := range p.stages {
		if err := stage.WaitFinished(); err != nil {
			return fmt.Errorf("%w: stage %q: %w", ErrInternal, stage.Name(), err)
		}
	}
	return nil
}

// Teardown closes every stage. A FiniError on any one stage is logged but
// does not abort the loop or change the process's eventual exit code —
// teardown happens after the pipeline has already done its work.
func (p *Pipeline) Teardown() {
	for _, stage := range p.stages {
		if err := stage.Close(); err != nil {
			stage.log.Error(err.Error())
		}
	}
}

// Announce emits the fixed shutdown banner exactly once.
func (p *Pipeline) Announce() {
	io.WriteString(p.out, "Pipeline shutdown complete\n")
}

// Run drives every phase in order: Resolve, Initialize, Attach, Feed,
// Quiesce, Teardown, Announce. It is the orchestrator's whole lifecycle in
// one call; cmd/lanepipe uses the phases individually only when it needs to
// distinguish which exit code a given failure maps to.
func (p *Pipeline) Run(stdin io.Reader) error {
	if err := p.Resolve(); err != nil {
		return err
	}
	if err := p.Initialize(); err != nil {
		return err
	}
	if err := p.Attach(); err != nil {
		p.Teardown()
		return err
	}
	if err := p.Feed(stdin); err != nil {
		p.Teardown()
		return err
	}
	if err := p.Quiesce(); err != nil {
		p.Teardown()
		return err
	}
	p.Teardown()
	p.Announce()
	return nil
}

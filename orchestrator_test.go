package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func upperFactory() Transform {
	return func(item Item) (Item, bool) {
		return NewItem(strings.ToUpper(item.Payload())), true
	}
}

func reverseFactory() Transform {
	return func(item Item) (Item, bool) {
		payload := item.Payload()
		runes := []rune(payload)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return NewItem(string(runes)), true
	}
}

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register("upper", upperFactory)
	r.Register("reverse", reverseFactory)
	return r
}

func TestPipelineResolve(t *testing.T) {
	t.Run("unknown_stage_is_a_resolve_error", func(t *testing.T) {
		p, err := NewPipeline(testRegistry(), 4, []string{"upper", "nope"}, &bytes.Buffer{})
		td.Require(t).CmpNoError(err)

		err = p.Resolve()
		td.CmpError(t, err)
	})

	t.Run("so_suffixed_name_is_a_resolve_error", func(t *testing.T) {
		p, err := NewPipeline(testRegistry(), 4, []string{"upper.so"}, &bytes.Buffer{})
		td.Require(t).CmpNoError(err)

		err = p.Resolve()
		td.CmpError(t, err)
	})
}

func TestNewPipelineArgValidation(t *testing.T) {
	t.Run("rejects_empty_stage_list", func(t *testing.T) {
		_, err := NewPipeline(testRegistry(), 4, nil, &bytes.Buffer{})
		td.CmpError(t, err)
	})

	t.Run("rejects_non_positive_capacity", func(t *testing.T) {
		_, err := NewPipeline(testRegistry(), 0, []string{"upper"}, &bytes.Buffer{})
		td.CmpError(t, err)
	})
}

func TestPipelineRunEndToEnd(t *testing.T) {
	t.Run("single_stage_transforms_and_banner_prints_once", func(t *testing.T) {
		var out bytes.Buffer
		p, err := NewPipeline(testRegistry(), 4, []string{"upper"}, &out)
		td.Require(t).CmpNoError(err)

		stdin := strings.NewReader("ab\ncd\n<END>\n")
		td.CmpNoError(t, p.Run(stdin))

		td.Cmp(t, out.String(), "Pipeline shutdown complete\n")
	})

	t.Run("chain_of_two_stages", func(t *testing.T) {
		var out bytes.Buffer
		p, err := NewPipeline(testRegistry(), 4, []string{"upper", "reverse"}, &out)
		td.Require(t).CmpNoError(err)

		stdin := strings.NewReader("abc\n<END>\n")
		td.CmpNoError(t, p.Run(stdin))

		td.Cmp(t, out.String(), "Pipeline shutdown complete\n")
	})

	t.Run("input_without_sentinel_but_with_eof_never_finishes_pipeline", func(t *testing.T) {
		// Feed returns once the reader is exhausted even with no sentinel;
		// Quiesce would then block forever, so this case is exercised only
		// up through Feed, not through the full Run.
		var out bytes.Buffer
		p, err := NewPipeline(testRegistry(), 4, []string{"upper"}, &out)
		td.Require(t).CmpNoError(err)
		td.CmpNoError(t, p.Resolve())
		td.CmpNoError(t, p.Initialize())
		td.CmpNoError(t, p.Attach())

		stdin := strings.NewReader("only one line, no sentinel")
		td.CmpNoError(t, p.Feed(stdin))

		// Inject the sentinel by hand so Quiesce can drain instead of hanging.
		td.CmpNoError(t, p.stages[0].PlaceWork(NewEnd()))
		td.CmpNoError(t, p.Quiesce())
		p.Teardown()
	})

	t.Run("run_completes_with_trailing_input_after_sentinel", func(t *testing.T) {
		var out bytes.Buffer
		p, err := NewPipeline(testRegistry(), 4, []string{"upper"}, &out)
		td.Require(t).CmpNoError(err)

		stdin := strings.NewReader("<END>\nSHOULD_NOT_APPEAR\n")
		td.CmpNoError(t, p.Run(stdin))

		td.Cmp(t, out.String(), "Pipeline shutdown complete\n")
	})
}

func TestPipelineFeedAcceptsOverlongLines(t *testing.T) {
	var out bytes.Buffer
	p, err := NewPipeline(testRegistry(), 4, []string{"upper"}, &out)
	td.Require(t).CmpNoError(err)
	td.CmpNoError(t, p.Resolve())
	td.CmpNoError(t, p.Initialize())
	td.CmpNoError(t, p.Attach())

	long := strings.Repeat("x", maxPayloadBytes+500)
	stdin := strings.NewReader(long + "\n<END>\n")
	td.CmpNoError(t, p.Feed(stdin))
	td.CmpNoError(t, p.Quiesce())
	p.Teardown()
}

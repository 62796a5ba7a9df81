package pipeline

import (
	"bytes"
	"strings"
	"testing"

	"github.com/maxatome/go-testdeep/td"
)

func TestMetricsObserveAndDump(t *testing.T) {
	m := NewMetrics()

	m.observeForward("upper")
	m.observeForward("upper")
	m.observeDrop("upper")
	m.setQueueDepth("upper", 3)

	var buf bytes.Buffer
	td.CmpNoError(t, m.Dump(&buf))

	out := buf.String()
	td.CmpTrue(t, strings.Contains(out, "lanepipe_items_forwarded_total"))
	td.CmpTrue(t, strings.Contains(out, "lanepipe_items_dropped_total"))
	td.CmpTrue(t, strings.Contains(out, "lanepipe_queue_depth"))
	td.CmpTrue(t, strings.Contains(out, `stage="upper"`))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.observeForward("x")
	m.observeDrop("x")
	m.setQueueDepth("x", 1)
}

func TestStageReportsMetrics(t *testing.T) {
	m := NewMetrics()
	s, err := NewStage("upper", 4, upperTransform, WithMetrics(m))
	td.Require(t).CmpNoError(err)

	td.CmpNoError(t, s.PlaceWork(NewItem("a")))
	td.CmpNoError(t, s.PlaceWork(NewEnd()))
	td.CmpNoError(t, s.WaitFinished())
	td.CmpNoError(t, s.Close())

	var buf bytes.Buffer
	td.CmpNoError(t, m.Dump(&buf))
	td.CmpTrue(t, strings.Contains(buf.String(), `stage="upper"`))
}

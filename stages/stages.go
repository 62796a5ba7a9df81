// Package stages holds the concrete Transform implementations: the
// bundled equivalents of the original plugin shared objects
// (uppercaser.c, rotator.c, flipper.c, logger.c, expander.c, typewriter.c).
// Registry in the root package never imports this package directly —
// cmd/lanepipe wires stages.Register into a pipeline.Registry, preserving
// the resolve-by-name boundary the original loader occupied.
package stages

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fogfactory/lanepipe"
)

// Register adds every bundled stage to r under its plugin name. out is the
// destination for the stages that produce standard-output lines (logger,
// typewriter) — the caller decides what that is (os.Stdout in production, a
// buffer in tests) rather than this package reaching for os.Stdout itself.
func Register(r *pipeline.Registry, out io.Writer) {
	r.Register("uppercaser", Uppercaser)
	r.Register("rotator", Rotator)
	r.Register("flipper", Flipper)
	r.Register("logger", func() pipeline.Transform { return NewLoggerTo(out) })
	r.Register("expander", Expander)
	r.Register("typewriter", func() pipeline.Transform { return NewTypewriterTo(out, 100*time.Millisecond) })
}

// Uppercaser returns a Transform grounded on plugins/uppercaser.c: ASCII
// lowercase letters are upshifted, every other byte passes through
// unchanged.
func Uppercaser() pipeline.Transform {
	return func(item pipeline.Item) (pipeline.Item, bool) {
		payload := item.Payload()
		out := make([]byte, len(payload))
		for i := 0; i < len(payload); i++ {
			ch := payload[i]
			if ch >= 'a' && ch <= 'z' {
				ch = 'A' + (ch - 'a')
			}
			out[i] = ch
		}
		return pipeline.NewItem(string(out)), true
	}
}

// Rotator returns a Transform grounded on plugins/rotator.c: a single
// right-rotation, moving the last character to the front. Strings of
// length 0 or 1 are a no-op.
func Rotator() pipeline.Transform {
	return func(item pipeline.Item) (pipeline.Item, bool) {
		payload := item.Payload()
		if len(payload) <= 1 {
			return item, true
		}
		out := payload[len(payload)-1:] + payload[:len(payload)-1]
		return pipeline.NewItem(out), true
	}
}

// Flipper returns a Transform grounded on plugins/flipper.c: the full
// string is reversed byte-for-byte. Strings of length 0 or 1 are a no-op.
func Flipper() pipeline.Transform {
	return func(item pipeline.Item) (pipeline.Item, bool) {
		payload := item.Payload()
		if len(payload) <= 1 {
			return item, true
		}
		b := []byte(payload)
		for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
			b[i], b[j] = b[j], b[i]
		}
		return pipeline.NewItem(string(b)), true
	}
}

// Expander returns a Transform grounded on plugins/expander.c: a single
// space is inserted between every pair of adjacent characters. Strings of
// length 0 or 1 are a no-op.
func Expander() pipeline.Transform {
	return func(item pipeline.Item) (pipeline.Item, bool) {
		payload := item.Payload()
		if len(payload) <= 1 {
			return item, true
		}
		var b strings.Builder
		b.Grow(len(payload)*2 - 1)
		for i := 0; i < len(payload); i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(payload[i])
		}
		return pipeline.NewItem(b.String()), true
	}
}

// NewLoggerTo returns a Transform grounded on plugins/logger.c: every
// payload is printed to w as "[logger] <payload>\n" and passed through
// unmodified.
func NewLoggerTo(w io.Writer) pipeline.Transform {
	var mu sync.Mutex
	return func(item pipeline.Item) (pipeline.Item, bool) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "[logger] %s\n", item.Payload())
		return item, true
	}
}

// NewTypewriterTo returns a Transform grounded on plugins/typewriter.c: the
// fixed prefix "[typewriter] " and then the payload are printed one
// character at a time to w, each with a given per-character delay,
// followed by a newline. The item passes through unmodified. delay is a
// parameter rather than the bundled 100ms baked in, so tests can use a
// near-zero delay instead of one that would make a suite glacially slow.
func NewTypewriterTo(w io.Writer, delay time.Duration) pipeline.Transform {
	var mu sync.Mutex
	bw := bufio.NewWriterSize(w, 1)
	return func(item pipeline.Item) (pipeline.Item, bool) {
		mu.Lock()
		defer mu.Unlock()
		typeString(bw, "[typewriter] ", delay)
		typeString(bw, item.Payload(), delay)
		bw.WriteByte('\n')
		bw.Flush()
		return item, true
	}
}

func typeString(w *bufio.Writer, s string, delay time.Duration) {
	for i := 0; i < len(s); i++ {
		if err := w.WriteByte(s[i]); err != nil {
			return
		}
		w.Flush()
		time.Sleep(delay)
	}
}

// Package console keeps a bounded in-memory log history and serves it,
// with live updates, to websocket viewers.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	log "log/slog"
)

// DefaultCapacity is how many log lines the ring retains.
const DefaultCapacity = 2000

// Ring is a bounded line buffer with subscribers. Appends past capacity
// evict the oldest line. Subscribers with a full channel miss lines rather
// than block the logger.
type Ring struct {
	mu    sync.Mutex
	lines []string
	max   int
	subs  map[chan string]struct{}
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		max:  capacity,
		subs: make(map[chan string]struct{}),
	}
}

// Append adds one line, evicting the oldest past capacity.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)
	if len(r.lines) > r.max {
		r.lines = r.lines[len(r.lines)-r.max:]
	}
	for ch := range r.subs {
		select {
		case ch <- line:
		default:
		}
	}
}

// Snapshot returns a copy of the retained lines, oldest first.
func (r *Ring) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Subscribe registers a live-line channel. The returned cancel must be
// called when the subscriber goes away.
func (r *Ring) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	r.mu.Lock()
	r.subs[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		delete(r.subs, ch)
		r.mu.Unlock()
	}
	return ch, cancel
}

// Len reports how many lines are retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lines)
}

// TeeHandler is a slog handler that forwards records to an inner handler
// and mirrors a plain-text rendering into the ring.
type TeeHandler struct {
	inner log.Handler
	ring  *Ring
	attrs []log.Attr
	group string
}

func NewTeeHandler(inner log.Handler, ring *Ring) *TeeHandler {
	return &TeeHandler{inner: inner, ring: ring}
}

func (h *TeeHandler) Enabled(ctx context.Context, level log.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *TeeHandler) Handle(ctx context.Context, rec log.Record) error {
	var b strings.Builder
	b.WriteString(rec.Time.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(rec.Level.String())
	b.WriteByte(' ')
	b.WriteString(rec.Message)

	writeAttr := func(a log.Attr) {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value)
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	rec.Attrs(func(a log.Attr) bool {
		writeAttr(a)
		return true
	})

	h.ring.Append(b.String())
	return h.inner.Handle(ctx, rec)
}

func (h *TeeHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &TeeHandler{
		inner: h.inner.WithAttrs(attrs),
		ring:  h.ring,
		attrs: append(append([]log.Attr{}, h.attrs...), attrs...),
		group: h.group,
	}
}

func (h *TeeHandler) WithGroup(name string) log.Handler {
	group := name
	if h.group != "" {
		group = h.group + "." + name
	}
	return &TeeHandler{
		inner: h.inner.WithGroup(name),
		ring:  h.ring,
		attrs: h.attrs,
		group: group,
	}
}

package assistant

import "sync/atomic"

// Flag is a process-wide cancellation signal, settable from any goroutine
// and observed cooperatively at defined poll points. There are two of
// them: one that ends the orchestrator loop and one that only interrupts
// in-progress playback.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Set()        { f.v.Store(true) }
func (f *Flag) Clear()      { f.v.Store(false) }
func (f *Flag) IsSet() bool { return f.v.Load() }

// Status is the visual state the UI shell (overlay, viewer) mirrors.
type Status string

const (
	StatusOff       Status = "off"
	StatusListening Status = "listening"
	StatusSpeaking  Status = "speaking"
)

// StatusSink receives status transitions. Implementations must be safe to
// call from the orchestrator goroutine.
type StatusSink interface {
	SetStatus(Status)
}

// StatusFunc adapts a function to a StatusSink.
type StatusFunc func(Status)

func (f StatusFunc) SetStatus(s Status) { f(s) }

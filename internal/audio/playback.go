package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const engineRate = beep.SampleRate(44100)

// Engine is the playback backend: load an mp3 artifact, start it, poll
// whether it is still busy, stop it, unload it. It wraps the process-wide
// beep speaker; at most one loaded artifact exists at a time.
type Engine struct {
	mu       sync.Mutex
	ready    bool
	streamer beep.StreamSeekCloser
	format   beep.Format
	gen      int
	busy     bool
}

func NewEngine() *Engine {
	return &Engine{}
}

// Init (re)opens the speaker. Any loaded artifact is dropped first.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ready {
		speaker.Clear()
		speaker.Close()
		e.ready = false
	}
	e.dropLocked()

	if err := speaker.Init(engineRate, engineRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	e.ready = true
	return nil
}

// Ready reports whether the speaker is initialized.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// Load decodes the mp3 at path and stages it for playback, replacing
// whatever was loaded before.
func (e *Engine) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		streamer.Close()
		return fmt.Errorf("speaker not initialized")
	}
	e.dropLocked()
	e.streamer = streamer
	e.format = format
	return nil
}

// Play starts the staged artifact asynchronously.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return fmt.Errorf("speaker not initialized")
	}
	if e.streamer == nil {
		return fmt.Errorf("nothing loaded")
	}

	e.gen++
	gen := e.gen
	e.busy = true

	var s beep.Streamer = e.streamer
	if e.format.SampleRate != engineRate {
		s = beep.Resample(4, e.format.SampleRate, engineRate, s)
	}

	speaker.Play(beep.Seq(s, beep.Callback(func() {
		e.mu.Lock()
		if e.gen == gen {
			e.busy = false
		}
		e.mu.Unlock()
	})))
	return nil
}

// IsBusy reports whether playback started by Play is still running.
func (e *Engine) IsBusy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy
}

// Stop cuts playback short.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready {
		return
	}
	e.gen++
	e.busy = false
	speaker.Clear()
}

// Unload closes and drops the staged artifact so its file can be deleted.
func (e *Engine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dropLocked()
}

func (e *Engine) dropLocked() {
	if e.streamer != nil {
		e.streamer.Close()
		e.streamer = nil
	}
}

// PlayPCM plays raw mono samples (cue sounds) without touching the staged
// artifact. Fire and forget; playback errors are not observable here.
func (e *Engine) PlayPCM(samples []float32, rate int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return fmt.Errorf("speaker not initialized")
	}

	var s beep.Streamer = &pcmStreamer{samples: samples}
	if sr := beep.SampleRate(rate); sr != engineRate {
		s = beep.Resample(4, sr, engineRate, s)
	}
	speaker.Play(s)
	return nil
}

// pcmStreamer adapts a mono float32 buffer to a beep.Streamer.
type pcmStreamer struct {
	samples []float32
	pos     int
}

func (p *pcmStreamer) Stream(samples [][2]float64) (int, bool) {
	if p.pos >= len(p.samples) {
		return 0, false
	}
	n := 0
	for i := range samples {
		if p.pos >= len(p.samples) {
			break
		}
		v := float64(p.samples[p.pos])
		samples[i][0] = v
		samples[i][1] = v
		p.pos++
		n++
	}
	return n, true
}

func (p *pcmStreamer) Err() error { return nil }

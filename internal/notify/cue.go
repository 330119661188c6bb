// Package notify covers the small user-facing signals outside the spoken
// conversation: short audio cues and desktop notifications.
package notify

import (
	"math"
	"os"
	"path/filepath"

	log "log/slog"

	"milo/internal/audio"
	"milo/pkg/audioconv"
)

const cueRate = 16000

var cueExtensions = []string{".wav", ".mp3", ".ogg", ".opus"}

// Cues plays the activation and deactivation sounds. Sound files named
// "activation" and "deactivation" in the data directory override the
// built-in tones.
type Cues struct {
	engine *audio.Engine

	activation       []float32
	activationRate   int
	deactivation     []float32
	deactivationRate int
	startup          []float32
	startupRate      int
}

// LoadCues loads cue sounds from dir, generating tones for any that are
// missing or undecodable.
func LoadCues(dir string, engine *audio.Engine) *Cues {
	c := &Cues{engine: engine}

	c.activation, c.activationRate = loadCueSound(dir, "activation")
	if c.activation == nil {
		c.activation, c.activationRate = risingTone(), cueRate
	}

	c.deactivation, c.deactivationRate = loadCueSound(dir, "deactivation")
	if c.deactivation == nil {
		c.deactivation, c.deactivationRate = fallingTone(), cueRate
	}

	c.startup, c.startupRate = loadCueSound(dir, "startup")
	if c.startup == nil {
		c.startup, c.startupRate = startupTone(), cueRate
	}

	return c
}

func (c *Cues) Activation()   { c.play(c.activation, c.activationRate) }
func (c *Cues) Deactivation() { c.play(c.deactivation, c.deactivationRate) }
func (c *Cues) Startup()      { c.play(c.startup, c.startupRate) }

func (c *Cues) play(samples []float32, rate int) {
	if err := c.engine.PlayPCM(samples, rate); err != nil {
		log.Debug("could not play cue", "err", err)
	}
}

func loadCueSound(dir, name string) ([]float32, int) {
	for _, ext := range cueExtensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		samples, rate, err := audioconv.DecodeFile(path)
		if err != nil {
			log.Warn("could not decode cue sound", "path", path, "err", err)
			continue
		}
		log.Debug("loaded cue sound", "path", path)
		return samples, rate
	}
	return nil, 0
}

func risingTone() []float32  { return tonePair(660, 880) }
func fallingTone() []float32 { return tonePair(880, 660) }
func startupTone() []float32 { return tonePair(523, 784) }

// tonePair renders two short sine notes with a linear fade at each edge.
func tonePair(f1, f2 float64) []float32 {
	const noteDur = 0.08
	note := func(freq float64) []float32 {
		n := int(noteDur * cueRate)
		fade := n / 8
		out := make([]float32, n)
		for i := range out {
			v := 0.3 * math.Sin(2*math.Pi*freq*float64(i)/cueRate)
			switch {
			case i < fade:
				v *= float64(i) / float64(fade)
			case i > n-fade:
				v *= float64(n-i) / float64(fade)
			}
			out[i] = float32(v)
		}
		return out
	}
	return append(note(f1), note(f2)...)
}

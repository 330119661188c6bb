package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveIndex(t *testing.T) {
	names := []string{"Built-in Audio", "USB Microphone", "usb microphone"}

	assert.Equal(t, 1, resolveIndex(names, "USB Microphone", "System Default"))
	// Matching is case-sensitive and exact.
	assert.Equal(t, 2, resolveIndex(names, "usb microphone", "System Default"))
	assert.Equal(t, -1, resolveIndex(names, "USB Micro", "System Default"))
	assert.Equal(t, -1, resolveIndex(names, "System Default", "System Default"))
	assert.Equal(t, -1, resolveIndex(nil, "anything", "System Default"))
}

func TestFrameRMS(t *testing.T) {
	silent := make([]float32, frameSize)
	assert.Equal(t, 0.0, frameRMS(silent))

	loud := make([]float32, frameSize)
	for i := range loud {
		loud[i] = 0.5
	}
	assert.InDelta(t, 0.5, frameRMS(loud), 1e-9)

	// RMS of a full-scale sine is 1/sqrt(2).
	sine := make([]float32, frameSize)
	for i := range sine {
		sine[i] = float32(math.Sin(2 * math.Pi * float64(i) / 32))
	}
	assert.InDelta(t, 1/math.Sqrt2, frameRMS(sine), 0.01)
}

func TestGateFromAmbient(t *testing.T) {
	// Quiet rooms clamp to the floor.
	assert.Equal(t, minEnergyThreshold, gateFromAmbient(0))
	assert.Equal(t, minEnergyThreshold, gateFromAmbient(0.001))

	// Noisy rooms scale above ambient.
	assert.InDelta(t, 0.05, gateFromAmbient(0.02), 1e-9)
}

func TestParseSinkInputs(t *testing.T) {
	out := `Sink Input #42
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #7
	Volume: front-left: 32768 / 50% / -18.06 dB
	Properties:
		application.name = "mpv"
`
	streams := parseSinkInputs(out)
	assert.Equal(t, []sinkInput{
		{id: 42, volume: 100, app: "Firefox"},
		{id: 7, volume: 50, app: "mpv"},
	}, streams)

	assert.Nil(t, parseSinkInputs(""))
	assert.Nil(t, parseSinkInputs("No sink inputs."))
}

func TestPCMStreamer(t *testing.T) {
	s := &pcmStreamer{samples: []float32{0.1, 0.2, 0.3}}

	buf := make([][2]float64, 2)
	n, ok := s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 0.1, buf[0][0], 1e-6)
	assert.InDelta(t, 0.1, buf[0][1], 1e-6)

	n, ok = s.Stream(buf)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = s.Stream(buf)
	assert.False(t, ok, "drained streamer must report completion")
	assert.NoError(t, s.Err())
}

func TestListenWithoutMic(t *testing.T) {
	var mic *Mic
	_, outcome, err := mic.Listen(0, 0)
	assert.Equal(t, CaptureError, outcome)
	assert.ErrorIs(t, err, errNoMic)
}

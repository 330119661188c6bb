package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTonePairShape(t *testing.T) {
	samples := risingTone()
	require.NotEmpty(t, samples)
	assert.Len(t, samples, 2*int(0.08*cueRate))

	// Faded edges stay quiet, the middle does not.
	assert.InDelta(t, 0, samples[0], 0.01)
	assert.InDelta(t, 0, samples[len(samples)-1], 0.05)

	var peak float32
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	assert.Greater(t, peak, float32(0.2))
	assert.LessOrEqual(t, peak, float32(0.31))
}

func TestLoadCueSoundMissing(t *testing.T) {
	samples, rate := loadCueSound(t.TempDir(), "activation")
	assert.Nil(t, samples)
	assert.Zero(t, rate)
}

func TestLoadCuesFallsBackToTones(t *testing.T) {
	c := LoadCues(t.TempDir(), nil)
	assert.NotEmpty(t, c.activation)
	assert.NotEmpty(t, c.deactivation)
	assert.Equal(t, cueRate, c.activationRate)
	assert.Equal(t, cueRate, c.deactivationRate)
}

package audioconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDownmix(t *testing.T) {
	mono := []float32{0.1, 0.2}
	assert.Equal(t, mono, downmix(mono, 1))

	stereo := []float32{1, 0, 0.5, 0.5}
	assert.Equal(t, []float32{0.5, 0.5}, downmix(stereo, 2))
}

func TestResample(t *testing.T) {
	in := []float32{0, 1, 0, -1}
	assert.Equal(t, in, Resample(in, 16000, 16000))

	// Halving the rate keeps every other sample.
	out := Resample(in, 32000, 16000)
	assert.Len(t, out, 2)
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 0, out[1], 1e-6)

	// Doubling interpolates between neighbors.
	up := Resample([]float32{0, 1}, 16000, 32000)
	assert.Len(t, up, 4)
	assert.InDelta(t, 0.5, up[1], 1e-6)

	assert.Empty(t, Resample(nil, 16000, 48000))
}

func TestInt16Conversion(t *testing.T) {
	out := int16sToFloat32([]int16{0, 16384, -32768})
	assert.InDelta(t, 0, out[0], 1e-6)
	assert.InDelta(t, 0.5, out[1], 1e-6)
	assert.InDelta(t, -1, out[2], 1e-6)
}

func TestIntsToFloat32Clamps(t *testing.T) {
	out := intsToFloat32([]int{32767, -32768, 40000}, 16)
	assert.InDelta(t, 1, out[0], 1e-3)
	assert.InDelta(t, -1, out[1], 1e-6)
	assert.Equal(t, float32(1), out[2], "overflowing samples clamp instead of wrapping")
}

func TestDecodeFileUnknownFormat(t *testing.T) {
	_, _, err := DecodeFile("testdata/definitely-missing.xyz")
	assert.Error(t, err)
}

package audio

import (
	"errors"
	"time"
)

var errNoMic = errors.New("no microphone handle")

// CaptureOutcome classifies a listen attempt. Timeouts are expected
// per-iteration results, not errors.
type CaptureOutcome int

const (
	CaptureOK CaptureOutcome = iota
	CaptureTimeout
	CaptureError
)

const (
	frameDuration   = 20 * time.Millisecond
	trailingSilence = 600 * time.Millisecond
)

// Listen blocks until a phrase is captured or the start timeout elapses.
// Capture begins when frame energy crosses the calibrated gate and ends
// after 600ms of trailing silence or when the phrase limit is reached.
// The returned samples are mono float32 at 16kHz.
func (m *Mic) Listen(timeout, phraseLimit time.Duration) ([]float32, CaptureOutcome, error) {
	if m == nil {
		return nil, CaptureError, errNoMic
	}

	buf := make([]float32, frameSize)
	stream, err := openCapture(m.device, buf)
	if err != nil {
		return nil, CaptureError, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, CaptureError, err
	}
	defer stream.Stop()

	waitFrames := int(timeout / frameDuration)
	maxFrames := int(phraseLimit / frameDuration)
	silenceLimit := int(trailingSilence / frameDuration)

	// Wait for speech onset.
	started := false
	for i := 0; i < waitFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, CaptureError, err
		}
		if frameRMS(buf) > m.threshold {
			started = true
			break
		}
	}
	if !started {
		return nil, CaptureTimeout, nil
	}

	out := make([]float32, 0, maxFrames*frameSize)
	out = append(out, buf...)

	silent := 0
	for i := 1; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, CaptureError, err
		}
		out = append(out, buf...)

		if frameRMS(buf) > m.threshold {
			silent = 0
		} else {
			silent++
			if silent >= silenceLimit {
				break
			}
		}
	}

	return out, CaptureOK, nil
}

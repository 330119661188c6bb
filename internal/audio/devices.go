package audio

import (
	"fmt"
	"math"
	"time"

	log "log/slog"

	"github.com/gordonklaus/portaudio"
)

const (
	captureRate = 16000
	frameSize   = 320 // 20ms at 16kHz

	calibrationDuration      = 1 * time.Second
	calibrationRetryDuration = 500 * time.Millisecond

	// Floor for the speech energy gate so a dead-silent room does not
	// trigger on breathing.
	minEnergyThreshold = 0.010
)

// Mic is an acquired input device with a calibrated energy threshold.
// device == nil means the system default input.
type Mic struct {
	device    *portaudio.DeviceInfo
	threshold float64
}

// Manager initializes and reinitializes the capture and playback devices.
// Handles follow replace-don't-mutate: a reconfiguration builds a new Mic
// and swaps it, never touching one a capture call may be using.
type Manager struct {
	engine *Engine
}

func NewManager(engine *Engine) *Manager {
	return &Manager{engine: engine}
}

// Start initializes the portaudio host once per process.
func (m *Manager) Start() error {
	return portaudio.Initialize()
}

// Close tears the portaudio host down.
func (m *Manager) Close() {
	portaudio.Terminate()
}

// InputNames lists the available capture device names.
func InputNames() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var names []string
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// OutputNames lists the available playback device names.
func OutputNames() ([]string, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var names []string
	for _, d := range devices {
		if d.MaxOutputChannels > 0 {
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// resolveIndex finds the configured name in the device list. Matching is a
// case-sensitive exact comparison; -1 means "use the system default".
func resolveIndex(names []string, want, systemDefault string) int {
	if want == systemDefault {
		return -1
	}
	for i, name := range names {
		if name == want {
			return i
		}
	}
	return -1
}

// InitializeMic resolves micName against the input devices, acquires the
// microphone, and calibrates the ambient-noise gate. A name that cannot be
// found falls back to the system default with a log line. If calibration
// fails it is retried once on a bare default device at a shorter duration;
// if that also fails the returned Mic is nil and speech capture no-ops
// until the next reconfiguration.
func (m *Manager) InitializeMic(micName, systemDefault string) *Mic {
	log.Info("initializing microphone", "device", micName)

	var device *portaudio.DeviceInfo
	if micName != systemDefault {
		devices, err := portaudio.Devices()
		if err != nil {
			log.Warn("could not list capture devices, using system default", "err", err)
		} else {
			for _, d := range devices {
				if d.MaxInputChannels > 0 && d.Name == micName {
					device = d
					break
				}
			}
			if device == nil {
				log.Warn("microphone not found, using system default", "device", micName)
			}
		}
	}

	mic := &Mic{device: device}
	threshold, err := calibrate(device, calibrationDuration)
	if err != nil {
		log.Warn("ambient noise calibration failed, retrying on default device", "err", err)
		mic = &Mic{}
		threshold, err = calibrate(nil, calibrationRetryDuration)
		if err != nil {
			log.Error("microphone initialization failed", "err", err)
			return nil
		}
	}
	mic.threshold = threshold
	log.Info("ambient noise calibration complete", "threshold", threshold)
	return mic
}

// InitializeSpeaker reinitializes the playback engine for the configured
// device, retrying once with the system default before surfacing the error.
func (m *Manager) InitializeSpeaker(speakerName, systemDefault string) error {
	log.Info("initializing speaker", "device", speakerName)

	if speakerName != systemDefault {
		names, err := OutputNames()
		if err != nil || resolveIndex(names, speakerName, systemDefault) < 0 {
			log.Warn("speaker not found, using system default", "device", speakerName)
		}
	}

	if err := m.engine.Init(); err != nil {
		log.Warn("speaker init failed, retrying with defaults", "err", err)
		if err := m.engine.Init(); err != nil {
			return fmt.Errorf("speaker init: %w", err)
		}
	}
	return nil
}

// calibrate reads ambient audio for the given duration and derives the
// speech energy gate from its RMS level.
func calibrate(device *portaudio.DeviceInfo, duration time.Duration) (float64, error) {
	buf := make([]float32, frameSize)
	stream, err := openCapture(device, buf)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return 0, err
	}
	defer stream.Stop()

	frames := int(duration.Seconds() * captureRate / frameSize)
	if frames < 1 {
		frames = 1
	}

	var sum float64
	for i := 0; i < frames; i++ {
		if err := stream.Read(); err != nil {
			return 0, err
		}
		sum += frameRMS(buf)
	}

	return gateFromAmbient(sum / float64(frames)), nil
}

// gateFromAmbient turns a measured ambient RMS into the capture gate.
func gateFromAmbient(ambient float64) float64 {
	threshold := ambient * 2.5
	if threshold < minEnergyThreshold {
		threshold = minEnergyThreshold
	}
	return threshold
}

func openCapture(device *portaudio.DeviceInfo, buf []float32) (*portaudio.Stream, error) {
	if device == nil {
		return portaudio.OpenDefaultStream(1, 0, captureRate, len(buf), buf)
	}
	params := portaudio.HighLatencyParameters(device, nil)
	params.Input.Channels = 1
	params.SampleRate = captureRate
	params.FramesPerBuffer = len(buf)
	return portaudio.OpenStream(params, buf)
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}

package assistant

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	log "log/slog"

	"milo/internal/audio"
	"milo/internal/config"
	"milo/internal/lang"
	"milo/internal/tts"
)

// ChatConfigurer is the chat manager surface the runtime reconfigures.
type ChatConfigurer interface {
	Ensure(apiKey, instruction string, preserveHistory bool) error
}

// DeviceManager acquires audio devices on (re)configuration.
type DeviceManager interface {
	InitializeMic(micName, systemDefault string) *audio.Mic
	InitializeSpeaker(speakerName, systemDefault string) error
}

// Notifier surfaces fatal-ish conditions to the desktop.
type Notifier interface {
	Notify(title, body string)
}

// Runtime owns the resolved configuration and the subsystem handles derived
// from it. Apply swaps everything atomically enough for the capture loop:
// readers always see either the previous complete set of handles or the new
// one, never a half-applied mix, because each handle is published through
// its own atomic pointer after it is fully built.
type Runtime struct {
	mu sync.Mutex

	chatMgr  ChatConfigurer
	devices  DeviceManager
	phrases  *lang.Manager
	notifier Notifier

	envKey     string
	httpClient *http.Client

	cfg    atomic.Pointer[config.Effective]
	mic    atomic.Pointer[audio.Mic]
	speech atomic.Pointer[tts.Client]
}

func NewRuntime(chatMgr ChatConfigurer, devices DeviceManager, phrases *lang.Manager,
	notifier Notifier, envKey string, httpClient *http.Client) *Runtime {
	return &Runtime{
		chatMgr:    chatMgr,
		devices:    devices,
		phrases:    phrases,
		notifier:   notifier,
		envKey:     envKey,
		httpClient: httpClient,
	}
}

// Config returns the current resolved configuration, nil before the first
// Apply.
func (r *Runtime) Config() *config.Effective { return r.cfg.Load() }

// Mic returns the current microphone handle, nil when acquisition failed.
func (r *Runtime) Mic() *audio.Mic { return r.mic.Load() }

// Synthesize delegates to the current TTS client so the synthesizer always
// speaks against the endpoint of the latest configuration.
func (r *Runtime) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	client := r.speech.Load()
	if client == nil {
		return nil, errors.New("tts client not configured")
	}
	return client.Synthesize(ctx, text, voiceID)
}

// Apply resolves settings and agents into an effective configuration and
// reinitializes exactly the subsystems whose inputs changed. It is safe to
// call from the IPC reload path while the capture loop is running; the loop
// picks up new handles on its next iteration.
func (r *Runtime) Apply(settings config.Settings, agents map[string]config.AgentRecord, initial bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eff, warning := config.Resolve(settings, agents, r.envKey)
	if warning != "" {
		log.Warn(warning)
	}

	var ch config.Changes
	if old := r.cfg.Load(); old != nil {
		ch = config.Diff(*old, eff)
	} else {
		initial = true
	}
	if !initial && !ch.Any {
		log.Debug("configuration unchanged")
		return nil
	}

	log.Info("applying configuration",
		"agent", eff.AgentName,
		"wake_word", eff.WakeWord,
		"voice", eff.TTSVoice,
		"stt_language", eff.STTLanguage)

	if initial || ch.UILanguage {
		r.phrases.SetLanguage(eff.UILanguage)
	}

	if initial || ch.Mic {
		mic := r.devices.InitializeMic(eff.Mic, config.SystemDefault)
		r.mic.Store(mic)
		if mic == nil && r.notifier != nil {
			r.notifier.Notify(r.phrases.Get(lang.AudioInitFailedTitle), r.phrases.Get(lang.AudioInitFailedBody))
		}
	}

	if initial || ch.Speaker {
		if err := r.devices.InitializeSpeaker(eff.Speaker, config.SystemDefault); err != nil {
			log.Error("speaker initialization failed", "err", err)
			if r.notifier != nil {
				r.notifier.Notify(r.phrases.Get(lang.AudioInitFailedTitle), r.phrases.Get(lang.AudioInitFailedBody))
			}
		}
	}

	if old := r.cfg.Load(); initial || ch.APIKey || old == nil || old.TTSEndpoint != eff.TTSEndpoint {
		r.speech.Store(tts.New(eff.TTSEndpoint, eff.APIKey, r.httpClient))
	}

	// A key change discards history, anything else keeps the conversation.
	if err := r.chatMgr.Ensure(eff.APIKey, eff.SystemPrompt, !ch.APIKey); err != nil {
		log.Error("chat session setup failed", "err", err)
	}

	r.cfg.Store(&eff)
	return nil
}

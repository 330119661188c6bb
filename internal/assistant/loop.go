package assistant

import (
	"context"
	"errors"
	"time"

	log "log/slog"

	"milo/internal/audio"
	"milo/internal/chat"
	"milo/internal/config"
	"milo/internal/lang"
	"milo/pkg/stt"
)

const (
	listenTimeout = 2 * time.Second
	phraseLimit   = 7 * time.Second

	// How long to wait when the chat session or microphone is unavailable
	// before checking again.
	waitingSleep = 5 * time.Second

	errorCooldown = 3 * time.Second
	micBackoff    = 1 * time.Second
)

// Listener captures one phrase from the microphone.
type Listener interface {
	Listen(timeout, phraseLimit time.Duration) ([]float32, audio.CaptureOutcome, error)
}

// Recognizer transcribes captured audio.
type Recognizer interface {
	Transcribe(ctx context.Context, pcm []float32, languageTag string) (string, error)
}

// ChatService is the conversation surface the loop drives.
type ChatService interface {
	Ready() bool
	Send(ctx context.Context, text string) (string, error)
	Trim(maxTurns int)
}

// Speaker voices a reply. Generate reports whether there is something to
// play.
type Speaker interface {
	Generate(ctx context.Context, text, voiceID string) bool
	Speak()
}

// CuePlayer plays the short activation and deactivation sounds.
type CuePlayer interface {
	Activation()
	Deactivation()
}

// Orchestrator runs the capture-recognize-activate-respond loop. It reads
// its configuration and microphone handle fresh each iteration so a reload
// takes effect without restarting the loop.
type Orchestrator struct {
	cfg        func() *config.Effective
	mic        func() Listener
	recognizer Recognizer
	chat       ChatService
	synth      Speaker
	browser    Launcher
	cues       CuePlayer
	status     StatusSink
	phrases    *lang.Manager
	notifier   Notifier

	mainStop *Flag

	sleep func(time.Duration)
}

func NewOrchestrator(cfg func() *config.Effective, mic func() Listener, recognizer Recognizer,
	chatSvc ChatService, synth Speaker, browser Launcher, cues CuePlayer, status StatusSink,
	phrases *lang.Manager, notifier Notifier, mainStop *Flag) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		mic:        mic,
		recognizer: recognizer,
		chat:       chatSvc,
		synth:      synth,
		browser:    browser,
		cues:       cues,
		status:     status,
		phrases:    phrases,
		notifier:   notifier,
		mainStop:   mainStop,
		sleep:      time.Sleep,
	}
}

// Run blocks until the stop flag is set or the context is canceled. The
// loop survives every per-iteration failure; only shutdown ends it.
func (o *Orchestrator) Run(ctx context.Context) {
	state := Idle
	o.status.SetStatus(StatusListening)
	defer o.status.SetStatus(StatusOff)

	for !o.mainStop.IsSet() && ctx.Err() == nil {
		cfg := o.cfg()
		mic := o.mic()
		if cfg == nil || mic == nil || !o.chat.Ready() {
			log.Debug("assistant not ready, waiting", "have_config", cfg != nil, "have_mic", mic != nil)
			o.sleep(waitingSleep)
			continue
		}

		pcm, outcome, err := mic.Listen(listenTimeout, phraseLimit)
		if err != nil {
			log.Warn("speech capture failed", "err", err)
			o.sleep(micBackoff)
			continue
		}
		if outcome != audio.CaptureOK {
			continue
		}

		text, err := o.recognizer.Transcribe(ctx, pcm, cfg.STTLanguage)
		if err != nil {
			if errors.Is(err, stt.ErrUnintelligible) {
				// Ambient noise tripped the gate; only worth a line when
				// the user is mid-conversation.
				if state == Activated {
					log.Debug("unintelligible input while activated")
				}
				continue
			}
			log.Warn("speech recognition failed", "err", err)
			o.say(ctx, cfg, o.phrases.Get(lang.RecognitionProblem))
			continue
		}
		log.Debug("heard", "text", text)

		var command string
		var cue Cue
		state, command, cue = Evaluate(state, text, cfg.WakeWord, cfg.StopWords)

		switch cue {
		case CueActivation:
			if o.cues != nil {
				o.cues.Activation()
			}
			if command == "" {
				o.say(ctx, cfg, o.phrases.Get(lang.ActivationConfirmation))
				continue
			}
		case CueDeactivation:
			if o.cues != nil {
				o.cues.Deactivation()
			}
			log.Info("assistant deactivated")
			continue
		}
		if command == "" {
			continue
		}

		log.Info("sending command", "text", command)
		reply, err := o.chat.Send(ctx, command)
		if err != nil {
			o.handleChatError(ctx, cfg, err)
			continue
		}

		plan := PlanReply(reply, cfg.OpenLinks, o.phrases.Get(lang.LinkOpened))
		if plan.OpenURL != "" {
			if err := o.browser.Open(plan.OpenURL); err != nil {
				log.Warn("could not open link", "url", plan.OpenURL, "err", err)
				o.say(ctx, cfg, o.phrases.Get(lang.FailedToOpenLink))
				continue
			}
			log.Info("opened link", "url", plan.OpenURL)
		}

		o.say(ctx, cfg, plan.Speak)
		o.chat.Trim(cfg.MaxTurns)
	}
}

func (o *Orchestrator) say(ctx context.Context, cfg *config.Effective, text string) {
	if text == "" {
		return
	}
	if o.synth.Generate(ctx, text, cfg.TTSVoice) {
		o.synth.Speak()
	}
}

// handleChatError voices or surfaces a failed model call. All paths cool
// down so a persistent failure does not turn into a tight error loop.
func (o *Orchestrator) handleChatError(ctx context.Context, cfg *config.Effective, err error) {
	switch {
	case errors.Is(err, chat.ErrAuth):
		log.Error("api key rejected", "err", err)
		if o.notifier != nil {
			o.notifier.Notify(o.phrases.Get(lang.APIKeyInvalidTitle), o.phrases.Get(lang.APIKeyInvalidBody))
		}
	case errors.Is(err, chat.ErrRateLimited):
		log.Warn("rate limited", "err", err)
		o.say(ctx, cfg, o.phrases.Get(lang.RateLimited))
	case errors.Is(err, chat.ErrSafetyBlocked):
		log.Info("response blocked by content filter")
		o.say(ctx, cfg, o.phrases.Get(lang.ResponseBlocked))
	case errors.Is(err, chat.ErrUnavailable):
		log.Debug("chat session unavailable")
	default:
		log.Error("chat request failed", "err", err)
		o.say(ctx, cfg, o.phrases.Get(lang.UnexpectedError))
	}
	o.sleep(errorCooldown)
}

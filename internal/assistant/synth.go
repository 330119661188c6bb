package assistant

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "log/slog"

	"milo/internal/lang"
)

const (
	artifactName = "reply.mp3"
	playbackName = "reply_playing.mp3"

	deleteRetries = 5
	deleteBackoff = 500 * time.Millisecond
	playbackPoll  = 50 * time.Millisecond
)

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SpeechBackend turns text into mp3 bytes.
type SpeechBackend interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Player is the playback backend the synthesizer drives.
type Player interface {
	Ready() bool
	Load(path string) error
	Play() error
	IsBusy() bool
	Stop()
	Unload()
}

// VolumeDucker fades other applications down while the assistant speaks.
type VolumeDucker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Unduck(ctx context.Context, duration time.Duration) error
}

// Synthesizer produces and plays the single pending audio artifact. The
// artifact file and its playback-renamed twin live in the data directory;
// at most one of each exists at a time. Producer and player coordinate
// through rename-then-play-then-delete with retry, because the previous
// file may still be held by the playback backend.
type Synthesizer struct {
	dir     string
	backend SpeechBackend
	player  Player
	ducker  VolumeDucker
	phrases *lang.Manager

	speechStop *Flag
	mainStop   *Flag
	status     StatusSink

	// test seams
	sleep  func(time.Duration)
	remove func(string) error
}

func NewSynthesizer(dir string, backend SpeechBackend, player Player, ducker VolumeDucker,
	phrases *lang.Manager, speechStop, mainStop *Flag, status StatusSink) *Synthesizer {
	return &Synthesizer{
		dir:        dir,
		backend:    backend,
		player:     player,
		ducker:     ducker,
		phrases:    phrases,
		speechStop: speechStop,
		mainStop:   mainStop,
		status:     status,
		sleep:      time.Sleep,
		remove:     os.Remove,
	}
}

func (s *Synthesizer) artifactPath() string { return filepath.Join(s.dir, artifactName) }
func (s *Synthesizer) playbackPath() string { return filepath.Join(s.dir, playbackName) }

// sanitize strips filesystem-unsafe characters and newlines. Text that
// sanitizes away entirely becomes a canned short acknowledgement.
func (s *Synthesizer) sanitize(text string) string {
	if strings.TrimSpace(text) == "" {
		return s.phrases.Get(lang.DefaultOkay)
	}
	clean := unsafeChars.ReplaceAllString(text, "")
	clean = strings.NewReplacer("\n", " ", "\r", "").Replace(clean)
	if strings.TrimSpace(clean) == "" {
		return s.phrases.Get(lang.DefaultUnderstood)
	}
	return clean
}

// Generate synthesizes text into the artifact file. A previous artifact
// still locked by playback is retried up to five times with backoff; when
// it cannot be cleared the reply is dropped with a log line. Generate
// reports whether there is something to play, never an error.
func (s *Synthesizer) Generate(ctx context.Context, text, voiceID string) bool {
	target := s.artifactPath()

	if !s.clearArtifact(target) {
		log.Warn("could not free audio artifact, dropping reply", "path", target)
		return false
	}

	data, err := s.backend.Synthesize(ctx, s.sanitize(text), voiceID)
	if err != nil {
		log.Error("speech synthesis failed", "err", err)
		return false
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		log.Error("could not write audio artifact", "path", target, "err", err)
		return false
	}
	return true
}

// clearArtifact deletes a leftover artifact, stopping and unloading the
// player first since it may still hold the file.
func (s *Synthesizer) clearArtifact(target string) bool {
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return true
	}

	for attempt := 1; attempt <= deleteRetries; attempt++ {
		if s.player.IsBusy() {
			s.player.Stop()
		}
		s.player.Unload()

		err := s.remove(target)
		if err == nil || os.IsNotExist(err) {
			return true
		}
		log.Debug("artifact still in use", "attempt", attempt, "err", err)
		s.sleep(deleteBackoff)
	}
	return false
}

// Speak plays the pending artifact with cancellation. The artifact is
// renamed first so a concurrent Generate for the next reply cannot collide
// with the file being played. A missing artifact is a no-op. Whatever the
// exit path, the speech-stop flag is cleared and the status indicator
// restored.
func (s *Synthesizer) Speak() {
	s.status.SetStatus(StatusSpeaking)

	defer func() {
		s.speechStop.Clear()
		if s.mainStop.IsSet() {
			s.status.SetStatus(StatusOff)
		} else {
			s.status.SetStatus(StatusListening)
		}
	}()

	if !s.player.Ready() {
		log.Warn("playback backend not initialized, cannot speak")
		return
	}

	source, temp := s.artifactPath(), s.playbackPath()
	if _, err := os.Stat(source); os.IsNotExist(err) {
		log.Debug("no audio artifact to play")
		return
	}

	if s.player.IsBusy() {
		s.player.Stop()
	}
	s.player.Unload()

	if err := s.remove(temp); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove previous playback file", "err", err)
	}
	if err := os.Rename(source, temp); err != nil {
		log.Warn("could not stage artifact for playback", "err", err)
		return
	}

	if s.ducker != nil {
		if err := s.ducker.Duck(context.Background(), 0.3, 200*time.Millisecond); err != nil {
			log.Debug("duck failed", "err", err)
		}
		defer func() {
			if err := s.ducker.Unduck(context.Background(), 300*time.Millisecond); err != nil {
				log.Debug("unduck failed", "err", err)
			}
		}()
	}

	if err := s.player.Load(temp); err != nil {
		log.Error("could not load artifact", "err", err)
		return
	}
	if err := s.player.Play(); err != nil {
		log.Error("could not start playback", "err", err)
		s.player.Unload()
		return
	}

	for s.player.IsBusy() && !s.speechStop.IsSet() && !s.mainStop.IsSet() {
		s.sleep(playbackPoll)
	}

	if s.player.IsBusy() {
		s.player.Stop()
	}
	s.player.Unload()

	if err := s.remove(temp); err != nil && !os.IsNotExist(err) {
		log.Warn("could not remove playback file", "err", err)
	}
}

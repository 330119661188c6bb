package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// ErrUnintelligible marks audio the model produced no text for. It is an
// expected per-utterance outcome, handled quietly by the caller.
var ErrUnintelligible = errors.New("stt: no speech recognized")

// Transcriber recognizes speech from mono 16 kHz float32 PCM using a local
// whisper.cpp model. Calls are serialized internally.
type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m}, nil
}

func (t *Transcriber) Close() error {
	if t.model == nil {
		return nil
	}
	return t.model.Close()
}

// Transcribe recognizes pcm in the given BCP-47 language tag ("de-DE").
// Whisper takes bare language codes, so only the primary subtag is used;
// an unparseable tag autodetects. Returns ErrUnintelligible when the model
// yields no text.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []float32, languageTag string) (string, error) {
	if t.model == nil {
		return "", errors.New("nil model")
	}
	if len(pcm) == 0 {
		return "", ErrUnintelligible
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	wctx, err := t.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("new context: %w", err)
	}

	if err := wctx.SetLanguage(whisperLanguage(languageTag)); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	wctx.SetThreads(uint(runtime.NumCPU()))

	if err := wctx.Process(pcm, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		parts = append(parts, strings.TrimSpace(seg.Text))
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", ErrUnintelligible
	}
	return text, nil
}

// whisperLanguage maps "de-DE" to "de"; anything unparseable autodetects.
func whisperLanguage(tag string) string {
	primary, _, _ := strings.Cut(tag, "-")
	primary = strings.ToLower(strings.TrimSpace(primary))
	if len(primary) < 2 || len(primary) > 3 {
		return "auto"
	}
	return primary
}

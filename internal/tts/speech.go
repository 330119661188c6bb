// Package tts synthesizes speech through an OpenAI-compatible speech
// endpoint. Self-hosted servers speaking the same API (with their own
// voice catalogs) work by pointing the endpoint setting at them; the voice
// id is passed through opaquely.
package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Client converts reply text to mp3 audio.
type Client struct {
	api openai.Client
}

// New builds a synthesis client for the given endpoint base URL. apiKey
// may be empty for local servers; httpClient may be nil.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	opts := []option.RequestOption{}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &Client{api: openai.NewClient(opts...)}
}

// Synthesize returns the spoken text as mp3 bytes.
func (c *Client) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	res, err := c.api.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voiceID),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read speech response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty speech response")
	}
	return data, nil
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const defaultModel = openai.ChatModelGPT5Nano

// Message is one history entry.
type Message struct {
	Role    string `json:"role"` // "user" or "model"
	Content string `json:"content"`
}

// Session is one configured conversation. It is a value object: the
// history slice is never mutated after construction, so a session can be
// read concurrently with the manager swapping in a replacement.
type Session struct {
	instruction string
	model       string
	history     []Message
}

func (s *Session) Instruction() string { return s.instruction }

// History returns the ordered history. Callers must not modify it.
func (s *Session) History() []Message { return s.history }

// completer is the underlying LLM call, split out so tests can script it.
type completer interface {
	Complete(ctx context.Context, instruction string, history []Message, text, model string) (string, error)
}

// Manager owns the LLM client handle and the current session. The handle
// state machine is Uninitialized -> Ready on successful creation, Ready ->
// Ready on trim or instruction change, and back to Uninitialized on auth
// failure or key removal. There are no half-initialized states: a failed
// Ensure nulls both the client and the session.
type Manager struct {
	mu        sync.Mutex
	apiKey    string
	client    completer
	session   *Session
	model     string
	newClient func(apiKey string) (completer, error)
}

// NewManager builds a manager using the real OpenAI-compatible backend.
// httpClient may be nil; pass a SOCKS-wrapped client to route API calls
// through a proxy.
func NewManager(httpClient *http.Client) *Manager {
	return &Manager{
		model: defaultModel,
		newClient: func(apiKey string) (completer, error) {
			opts := []option.RequestOption{option.WithAPIKey(apiKey)}
			if httpClient != nil {
				opts = append(opts, option.WithHTTPClient(httpClient))
			}
			return &openaiCompleter{client: openai.NewClient(opts...)}, nil
		},
	}
}

// Ensure creates or refreshes the session for the given key and system
// instruction. A key change replaces the client and discards history; an
// instruction-only change keeps history when preserveHistory is set. An
// empty key tears everything down (the feature is disabled, not an error).
func (m *Manager) Ensure(apiKey, instruction string, preserveHistory bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if apiKey == "" {
		m.client = nil
		m.session = nil
		m.apiKey = ""
		return nil
	}

	keyChanged := apiKey != m.apiKey
	if m.client == nil || keyChanged {
		client, err := m.newClient(apiKey)
		if err != nil {
			m.client = nil
			m.session = nil
			m.apiKey = ""
			return fmt.Errorf("create client: %w", err)
		}
		m.client = client
		m.apiKey = apiKey
	}

	var history []Message
	if preserveHistory && !keyChanged && m.session != nil {
		history = m.session.history
		log.Debug("preserving chat history", "messages", len(history))
	}

	m.session = &Session{
		instruction: instruction,
		model:       m.model,
		history:     history,
	}
	return nil
}

// Ready reports whether a session exists.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.session != nil
}

// Session returns the current session, nil when unavailable.
func (m *Manager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Send forwards one user message to the model and records the exchange.
// Failures are surfaced classified (ErrAuth, ErrRateLimited,
// ErrSafetyBlocked, ErrTransport) and leave the history untouched. An auth
// failure additionally drops the handle back to Uninitialized.
func (m *Manager) Send(ctx context.Context, text string) (string, error) {
	m.mu.Lock()
	client, session := m.client, m.session
	m.mu.Unlock()

	if client == nil || session == nil {
		return "", ErrUnavailable
	}

	reply, err := client.Complete(ctx, session.instruction, session.history, text, session.model)
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, ErrAuth) {
			m.mu.Lock()
			m.client = nil
			m.session = nil
			m.apiKey = ""
			m.mu.Unlock()
		}
		return "", classified
	}

	next := &Session{
		instruction: session.instruction,
		model:       session.model,
		history: append(append(make([]Message, 0, len(session.history)+2), session.history...),
			Message{Role: "user", Content: text},
			Message{Role: "model", Content: reply},
		),
	}

	m.mu.Lock()
	// The session may have been replaced by a concurrent reconfiguration
	// while the request was in flight; only publish onto the one we used.
	if m.session == session {
		m.session = next
	}
	m.mu.Unlock()

	return reply, nil
}

// Trim rebuilds the session carrying only the newest maxTurns*2 history
// entries. Under the threshold, or with no session, it is a no-op.
func (m *Manager) Trim(maxTurns int) {
	if maxTurns <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil || m.session == nil {
		return
	}

	keep := maxTurns * 2
	history := m.session.history
	if len(history) <= keep {
		return
	}

	trimmed := history[len(history)-keep:]
	log.Info("chat history trimmed", "old", len(history), "new", len(trimmed))
	m.session = &Session{
		instruction: m.session.instruction,
		model:       m.session.model,
		history:     trimmed,
	}
}

// openaiCompleter is the production transport.
type openaiCompleter struct {
	client openai.Client
}

func (c *openaiCompleter) Complete(ctx context.Context, instruction string, history []Message, text, model string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	if instruction != "" {
		messages = append(messages, openai.SystemMessage(instruction))
	}
	for _, msg := range history {
		if msg.Role == "user" {
			messages = append(messages, openai.UserMessage(msg.Content))
		} else {
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(text))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	choice := resp.Choices[0]
	if choice.FinishReason == "content_filter" {
		return "", ErrSafetyBlocked
	}
	return choice.Message.Content, nil
}

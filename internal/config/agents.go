package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const agentsFile = "agents.json"

const (
	DefaultAgentName = "Default Agent"

	DefaultAgentText = "You are {name}, a highly intelligent and efficient AI assistant. " +
		"Reply without formatting and keep replies short and simple. " +
		"You always speak respectfully and fluently. " +
		"Your responses must be clear, concise, and helpful. Avoid unnecessary " +
		"elaboration, especially for simple tasks. A good amount of humor keeps " +
		"the conversation natural and friend-like. Your top priorities are " +
		"efficiency and clarity."
)

// AgentRecord is one named agent: a prompt text plus optional per-agent
// overrides for the voice-interaction settings. Nil pointer means "use the
// global setting".
type AgentRecord struct {
	Text           string    `json:"text"`
	ActivationWord *string   `json:"activation_word_override"`
	StopWords      *[]string `json:"stop_words_override"`
	ChatLength     *int      `json:"chat_length_override"`
	TTSVoice       *string   `json:"tts_voice_override"`
	OpenLinks      *bool     `json:"open_links_automatically_override"`
}

// AgentStore persists the agent map as JSON in the data directory.
//
// Older installations stored each agent as a bare prompt string. Load
// normalizes those to structured records immediately so nothing downstream
// ever branches on shape again, and writes the upgraded file back.
type AgentStore struct {
	dir string
}

func NewAgentStore(dir string) *AgentStore {
	return &AgentStore{dir: dir}
}

func (s *AgentStore) path() string {
	return filepath.Join(s.dir, agentsFile)
}

// Load reads all agent records. The default agent always exists in the
// result; a missing or unreadable file yields just the default agent.
func (s *AgentStore) Load() (map[string]AgentRecord, error) {
	agents := map[string]AgentRecord{
		DefaultAgentName: {Text: DefaultAgentText},
	}

	raw, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		if err := s.Save(agents); err != nil {
			return agents, fmt.Errorf("create default agents: %w", err)
		}
		return agents, nil
	}
	if err != nil {
		return agents, fmt.Errorf("read agents: %w", err)
	}

	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		return agents, fmt.Errorf("parse agents: %w", err)
	}

	migrated := false
	for name, entry := range stored {
		rec, wasLegacy, err := decodeAgent(entry)
		if err != nil {
			return agents, fmt.Errorf("agent %q: %w", name, err)
		}
		if wasLegacy {
			migrated = true
		}
		if rec.Text == "" && name == DefaultAgentName {
			rec.Text = DefaultAgentText
		}
		agents[name] = rec
	}

	if _, ok := stored[DefaultAgentName]; !ok {
		migrated = true
	}

	if migrated {
		if err := s.Save(agents); err != nil {
			return agents, fmt.Errorf("persist migrated agents: %w", err)
		}
	}

	return agents, nil
}

// decodeAgent accepts either the structured record or the legacy bare
// prompt string and reports whether migration happened.
func decodeAgent(raw json.RawMessage) (AgentRecord, bool, error) {
	var legacy string
	if err := json.Unmarshal(raw, &legacy); err == nil {
		return AgentRecord{Text: legacy}, true, nil
	}

	var rec AgentRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return AgentRecord{}, false, err
	}
	return rec, false, nil
}

// Save writes the agent map atomically.
func (s *AgentStore) Save(agents map[string]AgentRecord) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(agents, "", "    ")
	if err != nil {
		return err
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write agents: %w", err)
	}

	return os.Rename(tmp, s.path())
}

// Names returns the agent names sorted, default agent first.
func Names(agents map[string]AgentRecord) []string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		if name != DefaultAgentName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{DefaultAgentName}, names...)
}

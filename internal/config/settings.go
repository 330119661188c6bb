package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const settingsFile = "settings.json"

// Settings is the persisted global configuration record.
type Settings struct {
	APIKey           string   `json:"api_key"`
	ChatLength       int      `json:"chat_length"`
	ActivationWord   string   `json:"activation_word"`
	StopWords        []string `json:"stop_words"`
	OpenLinks        bool     `json:"open_links_automatically"`
	ActiveAgent      string   `json:"active_agent"`
	UILanguage       string   `json:"ui_language"`
	TTSVoice         string   `json:"tts_voice"`
	SelectedMic      string   `json:"selected_microphone"`
	SelectedSpeaker  string   `json:"selected_speaker"`
	TTSEndpoint      string   `json:"tts_endpoint"`
	WhisperModelPath string   `json:"whisper_model"`
}

// SystemDefault is the device name meaning "let the backend pick".
const SystemDefault = "System Default"

func DefaultSettings() Settings {
	return Settings{
		APIKey:           "",
		ChatLength:       5,
		ActivationWord:   "Milo",
		StopWords:        []string{"stop", "stopp", "exit", "quit"},
		OpenLinks:        true,
		ActiveAgent:      DefaultAgentName,
		UILanguage:       "en-US",
		TTSVoice:         "en-US-AriaNeural",
		SelectedMic:      SystemDefault,
		SelectedSpeaker:  SystemDefault,
		TTSEndpoint:      "http://localhost:8000/v1",
		WhisperModelPath: "models/ggml-base.bin",
	}
}

// SettingsStore persists Settings as JSON in the data directory.
type SettingsStore struct {
	dir string
}

func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{dir: dir}
}

func (s *SettingsStore) path() string {
	return filepath.Join(s.dir, settingsFile)
}

// Load reads the settings file, backfilling any missing keys with defaults.
// A backfilled result is written back so new keys get persisted. A missing
// file is created with defaults.
func (s *SettingsStore) Load() (Settings, error) {
	defaults := DefaultSettings()

	raw, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		if err := s.Save(defaults); err != nil {
			return defaults, fmt.Errorf("create default settings: %w", err)
		}
		return defaults, nil
	}
	if err != nil {
		return defaults, fmt.Errorf("read settings: %w", err)
	}

	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		return defaults, fmt.Errorf("parse settings: %w", err)
	}

	defRaw, err := json.Marshal(defaults)
	if err != nil {
		return defaults, err
	}
	var defMap map[string]json.RawMessage
	if err := json.Unmarshal(defRaw, &defMap); err != nil {
		return defaults, err
	}

	updated := false
	for key, val := range defMap {
		if _, ok := stored[key]; !ok {
			stored[key] = val
			updated = true
		}
	}

	merged, err := json.Marshal(stored)
	if err != nil {
		return defaults, err
	}
	out := defaults
	if err := json.Unmarshal(merged, &out); err != nil {
		return defaults, fmt.Errorf("decode settings: %w", err)
	}

	if updated {
		if err := s.Save(out); err != nil {
			return out, fmt.Errorf("persist backfilled settings: %w", err)
		}
	}

	return out, nil
}

// Save writes the settings file atomically.
func (s *SettingsStore) Save(settings Settings) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return err
	}

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return os.Rename(tmp, s.path())
}

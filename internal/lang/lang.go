// Package lang holds the spoken and user-visible phrases per UI language.
// Phrase tables are compiled in; an unknown tag or missing key falls back
// to en-US.
package lang

import (
	"sort"
	"sync"
)

const fallbackTag = "en-US"

// Phrase keys used by the assistant core.
const (
	ActivationConfirmation = "activation_confirmation"
	LinkOpened             = "link_opened"
	FailedToOpenLink       = "failed_to_open_link"
	RecognitionProblem     = "recognition_problem"
	ResponseBlocked        = "response_blocked"
	RateLimited            = "rate_limited"
	UnexpectedError        = "unexpected_error"
	DefaultOkay            = "default_okay"
	DefaultUnderstood      = "default_understood"
	AlreadyRunningTitle    = "already_running_title"
	AlreadyRunningBody     = "already_running_body"
	APIKeyInvalidTitle     = "api_key_invalid_title"
	APIKeyInvalidBody      = "api_key_invalid_body"
	AudioInitFailedTitle   = "audio_init_failed_title"
	AudioInitFailedBody    = "audio_init_failed_body"
)

var tables = map[string]map[string]string{
	"en-US": {
		ActivationConfirmation: "Yes?",
		LinkOpened:             "I opened the link for you.",
		FailedToOpenLink:       "Sorry, I could not open the link.",
		RecognitionProblem:     "Sorry, I am having trouble understanding you right now.",
		ResponseBlocked:        "Sorry, I can't answer that.",
		RateLimited:            "Sorry, I need a short break. Please try again in a moment.",
		UnexpectedError:        "Sorry, something went wrong.",
		DefaultOkay:            "Okay.",
		DefaultUnderstood:      "Understood.",
		AlreadyRunningTitle:    "Already running",
		AlreadyRunningBody:     "Another instance is already running.",
		APIKeyInvalidTitle:     "API key invalid",
		APIKeyInvalidBody:      "The configured API key was rejected. Please update it in the settings.",
		AudioInitFailedTitle:   "Audio device error",
		AudioInitFailedBody:    "An audio device could not be initialized. Speech input or output may not work.",
	},
	"de-DE": {
		ActivationConfirmation: "Ja?",
		LinkOpened:             "Ich habe den Link geöffnet.",
		FailedToOpenLink:       "Entschuldigung, ich konnte den Link nicht öffnen.",
		RecognitionProblem:     "Entschuldigung, ich habe gerade Probleme, dich zu verstehen.",
		ResponseBlocked:        "Entschuldigung, das kann ich nicht beantworten.",
		RateLimited:            "Entschuldigung, ich brauche eine kurze Pause. Versuche es gleich nochmal.",
		UnexpectedError:        "Entschuldigung, etwas ist schiefgelaufen.",
		DefaultOkay:            "Okay.",
		DefaultUnderstood:      "Verstanden.",
		AlreadyRunningTitle:    "Bereits gestartet",
		AlreadyRunningBody:     "Eine andere Instanz läuft bereits.",
		APIKeyInvalidTitle:     "API-Schlüssel ungültig",
		APIKeyInvalidBody:      "Der konfigurierte API-Schlüssel wurde abgelehnt. Bitte in den Einstellungen aktualisieren.",
		AudioInitFailedTitle:   "Audiogerätefehler",
		AudioInitFailedBody:    "Ein Audiogerät konnte nicht initialisiert werden. Sprachein- oder -ausgabe funktioniert eventuell nicht.",
	},
}

// Manager resolves phrase keys for the currently selected UI language.
// SetLanguage may be called at any time from the reconfiguration path.
type Manager struct {
	mu  sync.RWMutex
	tag string
}

func NewManager(tag string) *Manager {
	m := &Manager{}
	m.SetLanguage(tag)
	return m
}

func (m *Manager) SetLanguage(tag string) {
	if _, ok := tables[tag]; !ok {
		tag = fallbackTag
	}
	m.mu.Lock()
	m.tag = tag
	m.mu.Unlock()
}

func (m *Manager) Language() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tag
}

// Get returns the phrase for key in the current language, falling back to
// en-US and finally to the key itself so a missing entry stays visible.
func (m *Manager) Get(key string) string {
	m.mu.RLock()
	tag := m.tag
	m.mu.RUnlock()

	if s, ok := tables[tag][key]; ok {
		return s
	}
	if s, ok := tables[fallbackTag][key]; ok {
		return s
	}
	return key
}

// Available lists the language tags with a compiled-in table, sorted.
func Available() []string {
	out := make([]string, 0, len(tables))
	for tag := range tables {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

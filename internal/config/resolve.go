package config

import (
	"fmt"
	"strings"
)

// FallbackSTTLanguage is used when the voice id cannot be parsed into a
// locale tag.
const FallbackSTTLanguage = "en-US"

// Effective is the fully resolved configuration for the active agent.
// Every field follows the same precedence: agent override if present, else
// global setting, else hardcoded default. A value is never left undefined.
//
// Instances are immutable once published; reconfiguration builds a new
// Effective and swaps the pointer.
type Effective struct {
	AgentName    string
	WakeWord     string
	StopWords    []string
	MaxTurns     int
	OpenLinks    bool
	TTSVoice     string
	STTLanguage  string
	SystemPrompt string
	UILanguage   string

	APIKey      string
	Mic         string
	Speaker     string
	TTSEndpoint string
}

// Changes reports which subsystems a configuration swap affects.
type Changes struct {
	APIKey       bool
	SystemPrompt bool
	Mic          bool
	Speaker      bool
	TTSVoice     bool
	UILanguage   bool
	Any          bool
}

// Resolve merges global settings with the active agent's overrides into an
// Effective configuration. It is a pure function of its inputs; the only
// observable side condition is the returned warning when the configured
// active agent does not exist (the default agent is used instead).
func Resolve(settings Settings, agents map[string]AgentRecord, envAPIKey string) (Effective, string) {
	defaults := DefaultSettings()
	warning := ""

	name := settings.ActiveAgent
	if name == "" {
		name = defaults.ActiveAgent
	}
	agent, ok := agents[name]
	if !ok {
		warning = fmt.Sprintf("active agent %q not found, falling back to %q", name, DefaultAgentName)
		name = DefaultAgentName
		agent = agents[name]
	}

	eff := Effective{
		AgentName:   name,
		UILanguage:  pickString(settings.UILanguage, defaults.UILanguage),
		Mic:         pickString(settings.SelectedMic, defaults.SelectedMic),
		Speaker:     pickString(settings.SelectedSpeaker, defaults.SelectedSpeaker),
		TTSEndpoint: pickString(settings.TTSEndpoint, defaults.TTSEndpoint),
	}

	eff.WakeWord = pickString(settings.ActivationWord, defaults.ActivationWord)
	if agent.ActivationWord != nil && *agent.ActivationWord != "" {
		eff.WakeWord = *agent.ActivationWord
	}

	eff.StopWords = settings.StopWords
	if eff.StopWords == nil {
		eff.StopWords = defaults.StopWords
	}
	if agent.StopWords != nil {
		eff.StopWords = *agent.StopWords
	}

	eff.MaxTurns = settings.ChatLength
	if eff.MaxTurns <= 0 {
		eff.MaxTurns = defaults.ChatLength
	}
	if agent.ChatLength != nil && *agent.ChatLength > 0 {
		eff.MaxTurns = *agent.ChatLength
	}

	eff.OpenLinks = settings.OpenLinks
	if agent.OpenLinks != nil {
		eff.OpenLinks = *agent.OpenLinks
	}

	eff.TTSVoice = pickString(settings.TTSVoice, defaults.TTSVoice)
	if agent.TTSVoice != nil && *agent.TTSVoice != "" {
		eff.TTSVoice = *agent.TTSVoice
	}

	eff.STTLanguage = DeriveSTTLanguage(eff.TTSVoice)

	// Environment wins over the stored key.
	eff.APIKey = settings.APIKey
	if envAPIKey != "" {
		eff.APIKey = envAPIKey
	}

	eff.SystemPrompt = BuildSystemPrompt(agent.Text, eff.WakeWord, eff.TTSVoice, eff.OpenLinks)

	return eff, warning
}

// DeriveSTTLanguage derives the recognition language tag from a TTS voice
// id by taking its first two hyphen-delimited segments: "de-DE-ConradNeural"
// yields "de-DE". Unparseable ids fall back to FallbackSTTLanguage.
func DeriveSTTLanguage(voiceID string) string {
	parts := strings.SplitN(voiceID, "-", 3)
	if len(parts) >= 2 && parts[0] != "" && parts[1] != "" {
		return parts[0] + "-" + parts[1]
	}
	return FallbackSTTLanguage
}

// BuildSystemPrompt substitutes the wake word into the agent prompt and
// appends the generated suffix describing TTS friendliness, the spoken
// language, and the link-opening policy.
func BuildSystemPrompt(agentText, wakeWord, voiceID string, openLinks bool) string {
	if agentText == "" {
		agentText = DefaultAgentText
	}

	var b strings.Builder
	b.WriteString(strings.ReplaceAll(agentText, "{name}", wakeWord))
	b.WriteString("\n\nGenerate the reply so that a simple TTS can read it correctly.")

	if lang := LanguageNameForVoice(voiceID); lang != "" {
		fmt.Fprintf(&b, "\nSpeak in fluent %s.", lang)
	}

	if openLinks {
		b.WriteString("\nYou can open links on the users computer by just putting them " +
			"somewhere in your response with https://. If the user asks you to search " +
			"for something you can also open it with url parameters.")
	} else {
		b.WriteString("\nYou can't open links on the users computer because this setting is disabled.")
	}

	return b.String()
}

// Diff compares two resolved configurations field by field so callers can
// skip reinitialization when nothing actually changed.
func Diff(old, next Effective) Changes {
	ch := Changes{
		APIKey:       old.APIKey != next.APIKey,
		SystemPrompt: old.SystemPrompt != next.SystemPrompt,
		Mic:          old.Mic != next.Mic,
		Speaker:      old.Speaker != next.Speaker,
		TTSVoice:     old.TTSVoice != next.TTSVoice,
		UILanguage:   old.UILanguage != next.UILanguage,
	}
	ch.Any = ch.APIKey || ch.SystemPrompt || ch.Mic || ch.Speaker || ch.TTSVoice || ch.UILanguage ||
		old.WakeWord != next.WakeWord ||
		!equalStrings(old.StopWords, next.StopWords) ||
		old.MaxTurns != next.MaxTurns ||
		old.OpenLinks != next.OpenLinks ||
		old.AgentName != next.AgentName ||
		old.TTSEndpoint != next.TTSEndpoint
	return ch
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func pickString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

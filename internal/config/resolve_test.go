package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func boolPtr(b bool) *bool       { return &b }
func wordsPtr(w ...string) *[]string { return &w }

func baseSettings() Settings {
	s := DefaultSettings()
	s.APIKey = "sk-test"
	s.ActivationWord = "Max"
	s.StopWords = []string{"stop"}
	s.ChatLength = 2
	return s
}

func TestResolvePrecedence(t *testing.T) {
	settings := baseSettings()
	agents := map[string]AgentRecord{
		DefaultAgentName: {Text: DefaultAgentText},
		"Coder": {
			Text:           "You are {name}, a coding assistant.",
			ActivationWord: strPtr("Hex"),
			StopWords:      wordsPtr("enough", "silence"),
			ChatLength:     intPtr(9),
			TTSVoice:       strPtr("de-DE-ConradNeural"),
			OpenLinks:      boolPtr(false),
		},
	}

	// Global values win when no override is set.
	eff, warn := Resolve(settings, agents, "")
	require.Empty(t, warn)
	assert.Equal(t, "Max", eff.WakeWord)
	assert.Equal(t, []string{"stop"}, eff.StopWords)
	assert.Equal(t, 2, eff.MaxTurns)
	assert.True(t, eff.OpenLinks)
	assert.Equal(t, "en-US-AriaNeural", eff.TTSVoice)

	// Agent overrides win over globals, field by field.
	settings.ActiveAgent = "Coder"
	eff, warn = Resolve(settings, agents, "")
	require.Empty(t, warn)
	assert.Equal(t, "Hex", eff.WakeWord)
	assert.Equal(t, []string{"enough", "silence"}, eff.StopWords)
	assert.Equal(t, 9, eff.MaxTurns)
	assert.False(t, eff.OpenLinks)
	assert.Equal(t, "de-DE-ConradNeural", eff.TTSVoice)
	assert.Equal(t, "de-DE", eff.STTLanguage)

	// Nil overrides fall through to globals (scenario from the design doc:
	// wake word stays "Max" when the agent leaves it unset).
	agents["Plain"] = AgentRecord{Text: "You are {name}."}
	settings.ActiveAgent = "Plain"
	eff, warn = Resolve(settings, agents, "")
	require.Empty(t, warn)
	assert.Equal(t, "Max", eff.WakeWord)
	assert.Equal(t, []string{"stop"}, eff.StopWords)
}

func TestResolveHardcodedDefaults(t *testing.T) {
	// Zero-valued globals resolve to the hardcoded defaults, never to
	// undefined values.
	eff, _ := Resolve(Settings{}, map[string]AgentRecord{
		DefaultAgentName: {Text: DefaultAgentText},
	}, "")

	def := DefaultSettings()
	assert.Equal(t, def.ActivationWord, eff.WakeWord)
	assert.Equal(t, def.StopWords, eff.StopWords)
	assert.Equal(t, def.ChatLength, eff.MaxTurns)
	assert.Equal(t, def.TTSVoice, eff.TTSVoice)
	assert.Equal(t, def.SelectedMic, eff.Mic)
	assert.Equal(t, def.SelectedSpeaker, eff.Speaker)
}

func TestResolveUnknownAgentFallsBack(t *testing.T) {
	settings := baseSettings()
	settings.ActiveAgent = "Ghost"

	eff, warn := Resolve(settings, map[string]AgentRecord{
		DefaultAgentName: {Text: DefaultAgentText},
	}, "")

	assert.Contains(t, warn, "Ghost")
	assert.Equal(t, DefaultAgentName, eff.AgentName)
}

func TestResolveEnvKeyWins(t *testing.T) {
	settings := baseSettings()
	eff, _ := Resolve(settings, map[string]AgentRecord{
		DefaultAgentName: {},
	}, "sk-env")
	assert.Equal(t, "sk-env", eff.APIKey)
}

func TestDeriveSTTLanguage(t *testing.T) {
	assert.Equal(t, "de-DE", DeriveSTTLanguage("de-DE-ConradNeural"))
	assert.Equal(t, "en-US", DeriveSTTLanguage("en-US-AriaNeural"))
	assert.Equal(t, "fr-FR", DeriveSTTLanguage("fr-FR-DeniseNeural"))

	// Malformed ids fall back.
	assert.Equal(t, FallbackSTTLanguage, DeriveSTTLanguage("alloy"))
	assert.Equal(t, FallbackSTTLanguage, DeriveSTTLanguage(""))
	assert.Equal(t, FallbackSTTLanguage, DeriveSTTLanguage("-DE-Conrad"))
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := BuildSystemPrompt("You are {name}, be brief. {name} is your name.", "Nova", "de-DE-KatjaNeural", true)

	assert.NotContains(t, prompt, "{name}")
	assert.Contains(t, prompt, "You are Nova")
	assert.Contains(t, prompt, "Nova is your name")
	assert.Contains(t, prompt, "simple TTS")
	assert.Contains(t, prompt, "Speak in fluent German.")
	assert.Contains(t, prompt, "can open links")

	prompt = BuildSystemPrompt("Prompt.", "Nova", "unknown-voice", false)
	assert.NotContains(t, prompt, "Speak in fluent")
	assert.Contains(t, prompt, "can't open links")
}

func TestLanguageNameForVoice(t *testing.T) {
	assert.Equal(t, "English", LanguageNameForVoice("en-US-AriaNeural"))
	assert.Equal(t, "German", LanguageNameForVoice("de-DE-ConradNeural"))
	assert.Equal(t, "", LanguageNameForVoice("nope"))
}

func TestDiff(t *testing.T) {
	settings := baseSettings()
	agents := map[string]AgentRecord{DefaultAgentName: {Text: DefaultAgentText}}

	a, _ := Resolve(settings, agents, "")
	b, _ := Resolve(settings, agents, "")
	ch := Diff(a, b)
	assert.False(t, ch.Any, "identical inputs must not trigger reinitialization")

	settings.APIKey = "sk-other"
	c, _ := Resolve(settings, agents, "")
	ch = Diff(a, c)
	assert.True(t, ch.Any)
	assert.True(t, ch.APIKey)
	assert.False(t, ch.SystemPrompt)
	assert.False(t, ch.Mic)

	// A TTS voice change from an agent override still recomputes the
	// derived STT language and marks both voice and prompt changed.
	agents["Voiced"] = AgentRecord{Text: DefaultAgentText, TTSVoice: strPtr("de-DE-AmalaNeural")}
	settings.ActiveAgent = "Voiced"
	d, _ := Resolve(settings, agents, "")
	assert.Equal(t, "de-DE", d.STTLanguage)
	ch = Diff(c, d)
	assert.True(t, ch.TTSVoice)
	assert.True(t, ch.SystemPrompt)
}

func TestStopWordChangeDetected(t *testing.T) {
	settings := baseSettings()
	agents := map[string]AgentRecord{DefaultAgentName: {Text: DefaultAgentText}}
	a, _ := Resolve(settings, agents, "")

	settings.StopWords = []string{"stop", "halt"}
	b, _ := Resolve(settings, agents, "")

	assert.True(t, Diff(a, b).Any)
}

func TestPromptSuffixMentionsPolicyExactlyOnce(t *testing.T) {
	prompt := BuildSystemPrompt(DefaultAgentText, "Milo", "en-US-GuyNeural", true)
	assert.Equal(t, 1, strings.Count(prompt, "Generate the reply"))
}

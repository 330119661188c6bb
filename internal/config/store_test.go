package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsLoadCreatesDefaults(t *testing.T) {
	dir := t.TempDir()
	store := NewSettingsStore(dir)

	settings, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	// File must exist afterwards.
	_, err = os.Stat(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
}

func TestSettingsLoadBackfillsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	partial := `{"api_key": "sk-abc", "activation_word": "Nova"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(partial), 0o644))

	store := NewSettingsStore(dir)
	settings, err := store.Load()
	require.NoError(t, err)

	// Present keys survive, missing keys get defaults.
	assert.Equal(t, "sk-abc", settings.APIKey)
	assert.Equal(t, "Nova", settings.ActivationWord)
	assert.Equal(t, DefaultSettings().ChatLength, settings.ChatLength)
	assert.Equal(t, DefaultSettings().StopWords, settings.StopWords)

	// And the merged record is persisted back.
	raw, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Contains(t, onDisk, "chat_length")
	assert.Contains(t, onDisk, "stop_words")
	assert.Equal(t, "sk-abc", onDisk["api_key"])
}

func TestSettingsRoundTrip(t *testing.T) {
	store := NewSettingsStore(t.TempDir())

	want := DefaultSettings()
	want.APIKey = "sk-round"
	want.SelectedMic = "USB Microphone"
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAgentsLoadCreatesDefault(t *testing.T) {
	store := NewAgentStore(t.TempDir())

	agents, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, agents, DefaultAgentName)
	assert.Equal(t, DefaultAgentText, agents[DefaultAgentName].Text)
}

func TestAgentsLegacyStringMigration(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
		"Default Agent": "You are {name}, an old-style prompt.",
		"Butler": "You are {name}, a butler."
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.json"), []byte(legacy), 0o644))

	store := NewAgentStore(dir)
	agents, err := store.Load()
	require.NoError(t, err)

	butler := agents["Butler"]
	assert.Equal(t, "You are {name}, a butler.", butler.Text)
	assert.Nil(t, butler.ActivationWord)
	assert.Nil(t, butler.StopWords)
	assert.Nil(t, butler.ChatLength)
	assert.Nil(t, butler.TTSVoice)
	assert.Nil(t, butler.OpenLinks)

	// The upgraded structured form is written back; a second load must not
	// see strings anymore.
	raw, err := os.ReadFile(filepath.Join(dir, "agents.json"))
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	var asString string
	assert.Error(t, json.Unmarshal(onDisk["Butler"], &asString))

	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, agents, again)
}

func TestAgentsMixedShapes(t *testing.T) {
	dir := t.TempDir()
	mixed := `{
		"Old": "legacy text",
		"New": {"text": "structured", "chat_length_override": 3}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agents.json"), []byte(mixed), 0o644))

	agents, err := NewAgentStore(dir).Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy text", agents["Old"].Text)
	require.NotNil(t, agents["New"].ChatLength)
	assert.Equal(t, 3, *agents["New"].ChatLength)

	// Default agent is backfilled even when absent from the file.
	assert.Contains(t, agents, DefaultAgentName)
}

func TestNamesDefaultFirst(t *testing.T) {
	agents := map[string]AgentRecord{
		"Zeta":           {},
		DefaultAgentName: {},
		"Alpha":          {},
	}
	assert.Equal(t, []string{DefaultAgentName, "Alpha", "Zeta"}, Names(agents))
}

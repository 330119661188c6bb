package config

import (
	"sort"
	"strings"
)

// VoiceGroup is one spoken language with its selectable voices.
type VoiceGroup struct {
	Code   string
	Voices map[string]string // display name -> voice id
}

// Voices is the selectable TTS voice catalog, keyed by language display
// name. The resolver uses it to name the spoken language inside the system
// prompt; the ctl status output lists it for UI pickers.
var Voices = map[string]VoiceGroup{
	"German": {
		Code: "de-DE",
		Voices: map[string]string{
			"Amala":  "de-DE-AmalaNeural",
			"Conrad": "de-DE-ConradNeural",
			"Katja":  "de-DE-KatjaNeural",
		},
	},
	"English (US)": {
		Code: "en-US",
		Voices: map[string]string{
			"Aria":  "en-US-AriaNeural",
			"Jenny": "en-US-JennyNeural",
			"Guy":   "en-US-GuyNeural",
		},
	},
	"English (UK)": {
		Code: "en-GB",
		Voices: map[string]string{
			"Libby": "en-GB-LibbyNeural",
			"Ryan":  "en-GB-RyanNeural",
		},
	},
	"French": {
		Code: "fr-FR",
		Voices: map[string]string{
			"Denise": "fr-FR-DeniseNeural",
			"Henri":  "fr-FR-HenriNeural",
		},
	},
	"Spanish": {
		Code: "es-ES",
		Voices: map[string]string{
			"Elvira": "es-ES-ElviraNeural",
			"Alvaro": "es-ES-AlvaroNeural",
		},
	},
	"Russian": {
		Code: "ru-RU",
		Voices: map[string]string{
			"Svetlana": "ru-RU-SvetlanaNeural",
			"Dmitry":   "ru-RU-DmitryNeural",
		},
	},
}

// VoiceIDs returns every selectable voice id, sorted.
func VoiceIDs() []string {
	var ids []string
	for _, group := range Voices {
		for _, id := range group.Voices {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// LanguageNameForVoice returns the plain language name ("English" for
// "English (US)") of a voice id, or "" when the id is not in the catalog.
func LanguageNameForVoice(voiceID string) string {
	for name, group := range Voices {
		for _, id := range group.Voices {
			if id == voiceID {
				base, _, _ := strings.Cut(name, " (")
				return base
			}
		}
	}
	return ""
}

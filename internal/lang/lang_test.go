package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetAndFallback(t *testing.T) {
	m := NewManager("de-DE")
	assert.Equal(t, "de-DE", m.Language())
	assert.Equal(t, "Ja?", m.Get(ActivationConfirmation))

	// Unknown tag falls back to en-US.
	m = NewManager("xx-XX")
	assert.Equal(t, "en-US", m.Language())
	assert.Equal(t, "Yes?", m.Get(ActivationConfirmation))

	// Unknown key stays visible instead of vanishing.
	assert.Equal(t, "no_such_key", m.Get("no_such_key"))
}

func TestSetLanguage(t *testing.T) {
	m := NewManager("en-US")
	m.SetLanguage("de-DE")
	assert.Equal(t, "Verstanden.", m.Get(DefaultUnderstood))
}

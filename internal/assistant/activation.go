package assistant

import (
	"regexp"
	"strings"
)

// State is the wake-word activation state. It lives only in the
// orchestrator loop and resets to Idle on process start.
type State int

const (
	Idle State = iota
	Activated
)

// Cue is a side effect the caller should play for a transition.
type Cue int

const (
	CueNone Cue = iota
	CueActivation
	CueDeactivation
)

// Evaluate interprets one recognized utterance against the wake word and
// stop words and decides the next state and the command to dispatch, if
// any.
//
// From Idle, the utterance activates when it contains the wake word
// (case-insensitive); the command is what follows the first occurrence.
// A bare wake word activates with no command and asks for the activation
// cue. From Activated, a whole-word stop-word match deactivates with the
// deactivation cue; any other utterance is the command verbatim.
//
// Only the rule for the current state runs: an utterance that activates is
// deliberately not re-checked against the stop words.
func Evaluate(state State, text, wakeWord string, stopWords []string) (State, string, Cue) {
	lower := strings.ToLower(text)

	if state == Idle {
		wake := strings.ToLower(wakeWord)
		if wake == "" || !strings.Contains(lower, wake) {
			return Idle, "", CueNone
		}
		_, after, _ := strings.Cut(lower, wake)
		command := strings.TrimSpace(after)
		if command == "" {
			return Activated, "", CueActivation
		}
		return Activated, command, CueNone
	}

	if matchesStopWord(lower, stopWords) {
		return Idle, "", CueDeactivation
	}
	return Activated, strings.TrimSpace(text), CueNone
}

// matchesStopWord reports whether any stop word appears as a whole word.
func matchesStopWord(lower string, stopWords []string) bool {
	for _, sw := range stopWords {
		sw = strings.ToLower(strings.TrimSpace(sw))
		if sw == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(sw) + `\b`)
		if err != nil {
			continue
		}
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

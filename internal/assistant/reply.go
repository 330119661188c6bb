package assistant

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`(https?://[^\s]+|www\.[^\s]+)`)

// ReplyPlan is the decision for one model reply: what to say aloud and
// which URL, if any, to hand to the browser.
type ReplyPlan struct {
	Speak   string
	OpenURL string
}

// PlanReply finds the first URL in the reply. With link opening enabled
// the URL is stripped from the spoken text and scheduled for the browser
// (www-style links get an https scheme first); linkOpenedPhrase covers a
// reply that was nothing but the link. With link opening disabled the
// reply is spoken untouched.
func PlanReply(reply string, openLinks bool, linkOpenedPhrase string) ReplyPlan {
	match := urlPattern.FindString(reply)
	if match == "" || !openLinks {
		return ReplyPlan{Speak: reply}
	}

	url := match
	if !strings.HasPrefix(url, "http") {
		url = "https://" + url
	}

	speak := strings.TrimSpace(urlPattern.ReplaceAllString(reply, ""))
	if speak == "" {
		speak = linkOpenedPhrase
	}
	return ReplyPlan{Speak: speak, OpenURL: url}
}

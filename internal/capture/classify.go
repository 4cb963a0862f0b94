// Package capture extracts side-channel facts from inbound SMS replies:
// shared email addresses, permission phrases, booking intent, and opt-outs.
// Classification is plain keyword and regex matching.
package capture

import (
	"regexp"
	"strings"

	"github.com/nextier/outreach-cli/internal/model"
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Opt-out keywords per CTIA guidance. Matched as whole messages or leading
// words, case-insensitive.
var optOutWords = []string{"stop", "stopall", "unsubscribe", "cancel", "end", "quit"}

var permissionPhrases = []string{
	"yes", "sure", "ok", "okay", "sounds good", "go ahead", "send it",
	"interested", "tell me more", "more info",
}

var bookingPhrases = []string{
	"book", "schedule", "calendar", "appointment", "call me", "meeting",
	"set up a time", "when can we talk",
}

// Classify extracts every capture event present in an inbound reply. The
// returned slice is ordered: opt-out first (it overrides everything
// downstream), then email, permission, booking. An empty slice means the
// reply carried nothing actionable.
func Classify(phone, body string) []model.CaptureEvent {
	var events []model.CaptureEvent
	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)

	if isOptOut(lower) {
		events = append(events, model.CaptureEvent{Kind: model.CaptureOptOut, Phone: phone})
		return events
	}

	if email := emailRe.FindString(trimmed); email != "" {
		events = append(events, model.CaptureEvent{Kind: model.CaptureEmail, Value: email, Phone: phone})
	}

	if phrase := firstMatch(lower, bookingPhrases); phrase != "" {
		events = append(events, model.CaptureEvent{Kind: model.CaptureBooking, Value: phrase, Phone: phone})
	} else if phrase := firstMatch(lower, permissionPhrases); phrase != "" {
		// Booking intent subsumes permission; only one of the two is emitted.
		events = append(events, model.CaptureEvent{Kind: model.CapturePermission, Value: phrase, Phone: phone})
	}

	return events
}

func isOptOut(lower string) bool {
	firstWord := lower
	if i := strings.IndexAny(lower, " \t\n"); i >= 0 {
		firstWord = lower[:i]
	}
	firstWord = strings.Trim(firstWord, ".,!")
	for _, w := range optOutWords {
		if firstWord == w {
			return true
		}
	}
	return false
}

func firstMatch(lower string, phrases []string) string {
	for _, p := range phrases {
		if containsWord(lower, p) {
			return p
		}
	}
	return ""
}

// containsWord matches a phrase on word boundaries so that "stop" does not
// fire inside "stopwatch" or "yes" inside "eyes".
func containsWord(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		i += idx
		before := i == 0 || !isWordChar(s[i-1])
		afterIdx := i + len(phrase)
		after := afterIdx >= len(s) || !isWordChar(s[afterIdx])
		if before && after {
			return true
		}
		idx = i + 1
		if idx >= len(s) {
			return false
		}
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

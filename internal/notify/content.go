package notify

import (
	"fmt"
	"strings"
	"time"

	"breeze/internal/types"
)

// Tone is one sine note of a chime
type Tone struct {
	FrequencyHz float64       `json:"frequencyHz"`
	Offset      time.Duration `json:"offset"`
	Duration    time.Duration `json:"duration"`
	Gain        float64       `json:"gain"`
}

// Notification is what sinks receive for a phase transition
type Notification struct {
	Kind        types.TransitionKind `json:"kind"`
	Title       string               `json:"title"`
	Body        string               `json:"body"`
	Suggestions []string             `json:"suggestions,omitempty"`
	Tones       []Tone               `json:"tones,omitempty"`
	At          int64                `json:"at"`
}

var wellnessSuggestions = []string{
	"Close your eyes and rest for 1 minute",
	"Stand up and stretch your legs",
	"Take a short walk and get fresh air",
	"Drink a glass of water",
	"Do 10 gentle neck rolls",
	"Look 20 ft away for 20 seconds (20-20-20 rule)",
	"Have a healthy snack (nuts, fruit)",
	"Relax your shoulders and breathe deeply",
}

// completionChime is two overlapping notes, the second a fifth above the first
var completionChime = []Tone{
	{FrequencyHz: 880, Duration: 1250 * time.Millisecond, Gain: 0.2},
	{FrequencyHz: 1320, Offset: 200 * time.Millisecond, Duration: 850 * time.Millisecond, Gain: 0.18},
}

// Suggestions returns the pair of wellness suggestions for the given rotation.
// Consecutive rotations never repeat a suggestion.
func Suggestions(rotation int) []string {
	n := len(wellnessSuggestions)
	i := ((rotation*2)%n + n) % n
	return []string{wellnessSuggestions[i], wellnessSuggestions[(i+1)%n]}
}

// Build renders the notification for kind. ok is false for unknown kinds.
func Build(kind types.TransitionKind, rotation int, at time.Time) (n Notification, ok bool) {
	n = Notification{Kind: kind, At: at.UnixMilli()}

	switch kind {
	case types.TransitionSessionComplete:
		n.Title = "Work session complete"
		n.Suggestions = Suggestions(rotation)
		var b strings.Builder
		b.WriteString("Time for a break! Great job staying focused.")
		for _, s := range n.Suggestions {
			fmt.Fprintf(&b, "\n• %s", s)
		}
		n.Body = b.String()
		n.Tones = append([]Tone(nil), completionChime...)
	case types.TransitionBreakStart:
		n.Title = "Break started"
		n.Body = "Time to rest. Your break timer is running."
	case types.TransitionBreakEnd:
		n.Title = "Break complete"
		n.Body = "Ready to get back to work. Start your next session when ready."
	default:
		return Notification{}, false
	}

	return n, true
}

package activity

import (
	"strings"

	"breeze/internal/types"
)

const unknownTarget = "unknown"

// Target is the structural description of an event target supplied by the host.
// Text content is deliberately not part of it.
type Target interface {
	TagName() string
	ID() string
	ClassList() []string
}

// Describe builds a selector-like descriptor such as "button#save.primary.large".
// Nil or misbehaving targets degrade to "unknown".
func Describe(t Target) (desc string) {
	if t == nil {
		return unknownTarget
	}
	defer func() {
		if recover() != nil {
			desc = unknownTarget
		}
	}()

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(t.TagName())))
	if id := strings.TrimSpace(t.ID()); id != "" {
		b.WriteByte('#')
		b.WriteString(id)
	}
	for _, class := range t.ClassList() {
		if class = strings.TrimSpace(class); class != "" {
			b.WriteByte('.')
			b.WriteString(class)
		}
	}

	if b.Len() == 0 {
		return unknownTarget
	}
	return b.String()
}

var navigationKeys = map[string]bool{
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
	"Home": true, "End": true, "PageUp": true, "PageDown": true,
}

// ClassifyKey reduces a key press to its category; the key itself is never kept
func ClassifyKey(key string, mods types.Modifiers) types.KeyCategory {
	switch {
	case mods.Ctrl || mods.Meta || mods.Alt:
		return types.KeyShortcut
	case len([]rune(key)) == 1, key == "Backspace", key == "Delete":
		return types.KeyTyping
	case navigationKeys[key]:
		return types.KeyNavigation
	default:
		return types.KeyOther
	}
}

package activity

import (
	"testing"

	"breeze/internal/types"
)

type panickyTarget struct{}

func (panickyTarget) TagName() string     { panic("detached node") }
func (panickyTarget) ID() string          { return "" }
func (panickyTarget) ClassList() []string { return nil }

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		want   string
	}{
		{"nil", nil, "unknown"},
		{"tag only", &types.ElementInfo{Tag: "DIV"}, "div"},
		{"full", &types.ElementInfo{Tag: "Button", ElemID: "save", Classes: []string{"primary", " ", "large"}}, "button#save.primary.large"},
		{"id only", &types.ElementInfo{ElemID: "root"}, "#root"},
		{"empty", &types.ElementInfo{}, "unknown"},
		{"panicking host", panickyTarget{}, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.target); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassifyKey(t *testing.T) {
	tests := []struct {
		key  string
		mods types.Modifiers
		want types.KeyCategory
	}{
		{"a", types.Modifiers{}, types.KeyTyping},
		{"é", types.Modifiers{}, types.KeyTyping},
		{"Backspace", types.Modifiers{}, types.KeyTyping},
		{"Delete", types.Modifiers{}, types.KeyTyping},
		{"ArrowLeft", types.Modifiers{}, types.KeyNavigation},
		{"PageDown", types.Modifiers{}, types.KeyNavigation},
		{"c", types.Modifiers{Ctrl: true}, types.KeyShortcut},
		{"Tab", types.Modifiers{Alt: true}, types.KeyShortcut},
		{"Escape", types.Modifiers{}, types.KeyOther},
		{"", types.Modifiers{}, types.KeyOther},
	}

	for _, tt := range tests {
		if got := ClassifyKey(tt.key, tt.mods); got != tt.want {
			t.Errorf("ClassifyKey(%q, %+v) = %q, want %q", tt.key, tt.mods, got, tt.want)
		}
	}
}

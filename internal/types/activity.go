package types

// EventKind names a raw input event delivered by the host
type EventKind string

const (
	EventMouseMove  EventKind = "mousemove"
	EventClick      EventKind = "click"
	EventHoverEnter EventKind = "hoverenter"
	EventHoverLeave EventKind = "hoverleave"
	EventScroll     EventKind = "scroll"
	EventKeydown    EventKind = "keydown"
	EventVisibility EventKind = "visibility"
)

// ElementInfo is the host-supplied description of an event target
type ElementInfo struct {
	Tag     string   `json:"tagName"`
	ElemID  string   `json:"id"`
	Classes []string `json:"classList"`
}

func (e *ElementInfo) TagName() string {
	if e == nil {
		return ""
	}
	return e.Tag
}

func (e *ElementInfo) ID() string {
	if e == nil {
		return ""
	}
	return e.ElemID
}

func (e *ElementInfo) ClassList() []string {
	if e == nil {
		return nil
	}
	return e.Classes
}

// Modifiers are the modifier keys held during a click or keydown
type Modifiers struct {
	Ctrl  bool `json:"ctrl"`
	Meta  bool `json:"meta"`
	Alt   bool `json:"alt"`
	Shift bool `json:"shift"`
}

// RawEvent is one input event as delivered by a browser or desktop host.
// Timestamp is wall-clock milliseconds; zero means "now".
type RawEvent struct {
	Kind      EventKind    `json:"kind"`
	Timestamp int64        `json:"timestamp,omitempty"`
	X         float64      `json:"x,omitempty"`
	Y         float64      `json:"y,omitempty"`
	Target    *ElementInfo `json:"target,omitempty"`
	Button    int          `json:"button,omitempty"`
	Modifiers Modifiers    `json:"modifiers"`

	ScrollTop    float64 `json:"scrollTop,omitempty"`
	ScrollHeight float64 `json:"scrollHeight,omitempty"` // scrollable range (document height minus viewport)

	// Key is classified on arrival and never stored
	Key string `json:"key,omitempty"`

	Visible bool `json:"visible"`
	Focused bool `json:"focused"`
}

type MouseMoveRecord struct {
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Timestamp int64    `json:"timestamp"`
	Velocity  *float64 `json:"velocity,omitempty"` // px/ms
}

type ClickRecord struct {
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Target    string    `json:"target"`
	Button    int       `json:"button"`
	Modifiers Modifiers `json:"modifiers"`
	Timestamp int64     `json:"timestamp"`
}

type HoverRecord struct {
	Target    string `json:"target"`
	EnterTime int64  `json:"enterTime"`
	LeaveTime int64  `json:"leaveTime,omitempty"`
	DwellMs   int64  `json:"dwellMs,omitempty"`
}

type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

type ScrollRecord struct {
	ScrollTop float64         `json:"scrollTop"`
	ScrollPct float64         `json:"scrollPct"`
	Direction ScrollDirection `json:"direction"`
	Speed     float64         `json:"speed"` // px/s
	Timestamp int64           `json:"timestamp"`
}

type KeyCategory string

const (
	KeyTyping     KeyCategory = "typing"
	KeyNavigation KeyCategory = "navigation"
	KeyShortcut   KeyCategory = "shortcut"
	KeyOther      KeyCategory = "other"
)

type KeydownRecord struct {
	Category  KeyCategory `json:"category"`
	Timestamp int64       `json:"timestamp"`
}

type VisibilityRecord struct {
	Visible   bool  `json:"visible"`
	Focused   bool  `json:"focused"`
	Timestamp int64 `json:"timestamp"`
}

// IdleInterval is open while IdleEnd is nil
type IdleInterval struct {
	IdleStart int64  `json:"idleStart"`
	IdleEnd   *int64 `json:"idleEnd,omitempty"`
	IdleMs    *int64 `json:"idleMs,omitempty"`
}

// ActivitySnapshot summarises the trailing minute of activity. Derived, never stored.
type ActivitySnapshot struct {
	EventsLastMinute     int     `json:"eventsLastMinute"`
	MouseMovesLastMinute int     `json:"mouseMovesLastMinute"`
	ClicksLastMinute     int     `json:"clicksLastMinute"`
	ScrollsLastMinute    int     `json:"scrollsLastMinute"`
	KeydownsLastMinute   int     `json:"keydownsLastMinute"`
	HoversLastMinute     int     `json:"hoversLastMinute"`
	IsCurrentlyIdle      bool    `json:"isCurrentlyIdle"`
	AverageVelocity      float64 `json:"averageVelocity"`
	TotalEvents          int     `json:"totalEvents"`
	CurrentHover         string  `json:"currentHover,omitempty"`
	Visible              bool    `json:"visible"`
	Focused              bool    `json:"focused"`
	At                   int64   `json:"at"`
}

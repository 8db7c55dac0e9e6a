package types

import "time"

type Preferences struct {
	WorkSessionDuration     int  `json:"workSessionDuration" yaml:"workSessionDuration"` // minutes
	BreakDuration           int  `json:"breakDuration" yaml:"breakDuration"`             // minutes
	Notifications           bool `json:"notifications" yaml:"notifications"`
	WeatherBasedSuggestions bool `json:"weatherBasedSuggestions" yaml:"weatherBasedSuggestions"`
}

type ProfileStats struct {
	TotalWorkTime     int64     `json:"totalWorkTime" yaml:"totalWorkTime"`   // seconds
	TotalBreakTime    int64     `json:"totalBreakTime" yaml:"totalBreakTime"` // seconds
	SessionsCompleted int64     `json:"sessionsCompleted" yaml:"sessionsCompleted"`
	LastActive        time.Time `json:"lastActive" yaml:"lastActive"`
}

type UserProfile struct {
	ID          string       `json:"id" yaml:"id"`
	DisplayName string       `json:"displayName" yaml:"displayName"`
	Preferences Preferences  `json:"preferences" yaml:"preferences"`
	Stats       ProfileStats `json:"stats" yaml:"stats"`
	CreatedAt   time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// ProfilePatch is a partial update; nil fields are left alone and the
// stat deltas are added to the stored totals.
type ProfilePatch struct {
	DisplayName  *string
	Preferences  *Preferences
	AddWorkTime  int64
	AddBreakTime int64
	AddSessions  int64
	LastActive   *time.Time
}

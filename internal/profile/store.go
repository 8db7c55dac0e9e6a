// Package profile stores user profiles: display name, timer preferences and
// lifetime stats.
package profile

import (
	"context"
	"time"

	"breeze/internal/types"
)

// DefaultID is the profile used by single-user hosts
const DefaultID = "default"

// Store persists profiles. Get returns (nil, nil) for an unknown id.
type Store interface {
	Get(ctx context.Context, id string) (*types.UserProfile, error)
	Set(ctx context.Context, id string, patch types.ProfilePatch) error
	Subscribe(id string, cb func(types.UserProfile)) (unsubscribe func())
}

// New returns the profile created on first write
func New(id string, now time.Time) types.UserProfile {
	return types.UserProfile{
		ID:          id,
		DisplayName: id,
		Preferences: DefaultPreferences(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func DefaultPreferences() types.Preferences {
	return types.Preferences{
		WorkSessionDuration:     25,
		BreakDuration:           5,
		Notifications:           true,
		WeatherBasedSuggestions: true,
	}
}

// Apply merges patch into p. Stat deltas are added; negative results are
// clamped to zero.
func Apply(p *types.UserProfile, patch types.ProfilePatch, now time.Time) {
	if patch.DisplayName != nil {
		p.DisplayName = *patch.DisplayName
	}
	if patch.Preferences != nil {
		prefs := *patch.Preferences
		prefs.WorkSessionDuration = max(prefs.WorkSessionDuration, 0)
		prefs.BreakDuration = max(prefs.BreakDuration, 0)
		p.Preferences = prefs
	}

	p.Stats.TotalWorkTime = max(p.Stats.TotalWorkTime+patch.AddWorkTime, 0)
	p.Stats.TotalBreakTime = max(p.Stats.TotalBreakTime+patch.AddBreakTime, 0)
	p.Stats.SessionsCompleted = max(p.Stats.SessionsCompleted+patch.AddSessions, 0)
	if patch.LastActive != nil {
		p.Stats.LastActive = *patch.LastActive
	}
	p.UpdatedAt = now
}

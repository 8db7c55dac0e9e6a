package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"breeze/internal/infrastructure/errors"
	"breeze/internal/metrics"
	"breeze/internal/repository"
	"breeze/internal/timer"
	"breeze/internal/types"
)

// restore loads timer records, today's accumulators and the profile. Any
// read failure falls back to defaults; nothing here is fatal.
func (s *Session) restore(ctx context.Context, now time.Time) {
	repo := s.deps.Repository

	var state *types.TimerState
	var settings *types.TimerSettings
	if repo != nil {
		var err error
		if state, err = repository.LoadTimerState(ctx, repo); err != nil {
			s.logger.Warn("Failed to load timer state, using defaults", "error", err)
			state = nil
		}
		if settings, err = repository.LoadTimerSettings(ctx, repo); err != nil {
			s.logger.Warn("Failed to load timer settings, using defaults", "error", err)
			settings = nil
		}
	}

	base := s.cfg.Timer
	var prefs *types.Preferences
	if s.deps.Profiles != nil {
		p, err := s.deps.Profiles.Get(ctx, s.cfg.ProfileID)
		switch {
		case err != nil:
			s.logger.Warn("Failed to load profile", "profile", s.cfg.ProfileID, "error", err)
		case p != nil:
			prefs = &p.Preferences
			s.dispatcher.SetEnabled(p.Preferences.Notifications)
			if settings == nil {
				base = settingsFromPreferences(p.Preferences, base)
			}
		}
	}

	if repo != nil {
		accs, err := repo.GetAccumulators(ctx, metrics.DayKey(now))
		if err != nil {
			s.logger.Warn("Failed to load today's accumulators", "error", err)
		} else {
			s.agg.Restore(accs, now)
		}
	}

	snap := s.sampler.SnapshotAt(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastPrefs = prefs
	s.timer = timer.New(base)
	out := s.timer.Restore(state, settings, now)
	if settings == nil && !out.Changed {
		// write the seeded settings so the next start reads the same values
		s.persistTimer(s.timer.State(), s.timer.Settings())
	}
	// no observers can be registered yet
	s.commitLocked(ReasonTransition, now, snap, out)
	s.pruneOldData(now)

	s.logger.Debug("Timer restored",
		"phase", s.timer.State().Phase,
		"active", s.timer.State().IsActive,
		"persisted_state", state != nil,
		"persisted_settings", settings != nil,
		"transitions", len(out.Transitions))
}

func settingsFromPreferences(p types.Preferences, base types.TimerSettings) types.TimerSettings {
	if p.WorkSessionDuration > 0 {
		base.WorkDurationSeconds = int64(p.WorkSessionDuration) * 60
	}
	if p.BreakDuration > 0 {
		base.BreakDurationSeconds = int64(p.BreakDuration) * 60
	}
	return base
}

// persistTimer queues both timer records; safe to call with s.mu held
func (s *Session) persistTimer(state types.TimerState, settings types.TimerSettings) {
	repo := s.deps.Repository
	if repo == nil {
		return
	}
	s.writer.Put("kv:"+repository.TimerStateKey, func(ctx context.Context) error {
		return repository.SaveJSON(ctx, repo, repository.TimerStateKey, state)
	})
	s.writer.Put("kv:"+repository.TimerSettingsKey, func(ctx context.Context) error {
		return repository.SaveJSON(ctx, repo, repository.TimerSettingsKey, settings)
	})
}

func (s *Session) persistAccumulators(accs []types.DailyAccumulator) {
	repo := s.deps.Repository
	if repo == nil || len(accs) == 0 {
		return
	}
	s.writer.Put(fmt.Sprintf("accumulators:%d", accs[0].Day), func(ctx context.Context) error {
		return repo.SaveAccumulators(ctx, accs)
	})
}

// pruneOldData queues retention cleanup relative to today's midnight
func (s *Session) pruneOldData(now time.Time) {
	repo := s.deps.Repository
	if repo == nil || s.cfg.RetentionDays <= 0 {
		return
	}
	y, m, d := now.Date()
	cutoff := time.Date(y, m, d-s.cfg.RetentionDays, 0, 0, 0, 0, now.Location())
	s.writer.Put("retention", func(ctx context.Context) error {
		return repo.DeleteOldData(ctx, cutoff)
	})
}

// writeBackStats adds a finished phase to the profile's lifetime stats
func (s *Session) writeBackStats(tr types.Transition, now time.Time) {
	store := s.deps.Profiles
	if store == nil {
		return
	}

	patch := types.ProfilePatch{LastActive: &now}
	switch tr.Kind {
	case types.TransitionSessionComplete:
		patch.AddSessions = 1
		patch.AddWorkTime = tr.PhaseSeconds
	case types.TransitionBreakEnd:
		patch.AddBreakTime = tr.PhaseSeconds
	default:
		return
	}

	id := s.cfg.ProfileID
	// stat deltas are additive, so every patch gets its own key
	s.writer.Put("profile:"+uuid.NewString(), func(ctx context.Context) error {
		return store.Set(ctx, id, patch)
	})
}

// onProfileChange mirrors the notification preference when it changes
func (s *Session) onProfileChange(p types.UserProfile) {
	s.mu.Lock()
	changed := s.lastPrefs == nil || s.lastPrefs.Notifications != p.Preferences.Notifications
	prefs := p.Preferences
	s.lastPrefs = &prefs
	s.mu.Unlock()

	if changed {
		s.dispatcher.SetEnabled(p.Preferences.Notifications)
		s.logger.Debug("Notification preference updated", "enabled", p.Preferences.Notifications)
	}
}

// Flush writes every queued record before returning
func (s *Session) Flush(ctx context.Context) error {
	return s.writer.Flush(ctx)
}

// History returns per-day totals for the last days days, oldest first. Today
// comes from the live accumulators.
func (s *Session) History(ctx context.Context, days int) ([]types.DailyTotals, error) {
	if days <= 0 {
		return nil, errors.HandleValidationError("History", "days", fmt.Sprintf("%d", days), "must be positive")
	}

	now := s.now()
	var out []types.DailyTotals
	if repo := s.deps.Repository; repo != nil {
		var err error
		if out, err = repository.DailyHistory(ctx, repo, days, now); err != nil {
			return nil, err
		}
	} else {
		out = repository.HistoryDays(days, now)
	}

	if today := s.Metrics().Totals; today.Day == out[len(out)-1].Day {
		out[len(out)-1] = today
	}
	return out, nil
}

// Heartbeats lists stored heartbeats since sinceMs
func (s *Session) Heartbeats(ctx context.Context, sinceMs int64, limit int) ([]types.ActivityHeartbeat, error) {
	if s.deps.Repository == nil {
		return nil, nil
	}
	return s.deps.Repository.GetHeartbeats(ctx, sinceMs, limit)
}

// Health checks the backing repository, if any
func (s *Session) Health(ctx context.Context) error {
	if s.deps.Repository == nil {
		return nil
	}
	return s.deps.Repository.Health(ctx)
}

package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

func newTestStore(t *testing.T) *YAMLStore {
	t.Helper()
	store := NewYAMLStore(filepath.Join(t.TempDir(), "nested", profilesFileName), logging.NewNopLogger())
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }
	return store
}

func TestYAMLStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	p, err := store.Get(context.Background(), DefaultID)
	if err != nil || p != nil {
		t.Errorf("Get() = %v, %v, want nil, nil", p, err)
	}
}

func TestYAMLStore_SetCreatesWithDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, DefaultID, types.ProfilePatch{AddSessions: 1, AddWorkTime: 1500}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	p, err := store.Get(ctx, DefaultID)
	if err != nil || p == nil {
		t.Fatalf("Get() = %v, %v", p, err)
	}
	if p.Preferences != DefaultPreferences() {
		t.Errorf("Preferences = %+v, want defaults", p.Preferences)
	}
	if p.Stats.SessionsCompleted != 1 || p.Stats.TotalWorkTime != 1500 {
		t.Errorf("Stats = %+v", p.Stats)
	}
}

func TestYAMLStore_PatchAccumulatesAcrossInstances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	name := "Asha"
	prefs := types.Preferences{WorkSessionDuration: 50, BreakDuration: 10}
	last := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

	patches := []types.ProfilePatch{
		{DisplayName: &name, Preferences: &prefs},
		{AddBreakTime: 300},
		{AddBreakTime: 300, LastActive: &last},
	}
	for _, patch := range patches {
		if err := store.Set(ctx, "u1", patch); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	reopened := NewYAMLStore(store.path, logging.NewNopLogger())
	p, err := reopened.Get(ctx, "u1")
	if err != nil || p == nil {
		t.Fatalf("Get() = %v, %v", p, err)
	}
	if p.DisplayName != "Asha" || p.Preferences.WorkSessionDuration != 50 || p.Preferences.Notifications {
		t.Errorf("profile = %+v", p)
	}
	if p.Stats.TotalBreakTime != 600 || !p.Stats.LastActive.Equal(last) {
		t.Errorf("Stats = %+v", p.Stats)
	}
}

func TestApply_ClampsNegatives(t *testing.T) {
	p := New("x", time.Now())
	Apply(&p, types.ProfilePatch{AddWorkTime: -10, Preferences: &types.Preferences{WorkSessionDuration: -5}}, time.Now())

	if p.Stats.TotalWorkTime != 0 || p.Preferences.WorkSessionDuration != 0 {
		t.Errorf("Apply() = %+v", p)
	}
}

func TestYAMLStore_Subscribe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var seen []types.UserProfile
	unsubscribe := store.Subscribe("u1", func(p types.UserProfile) { seen = append(seen, p) })
	store.Subscribe("other", func(types.UserProfile) { t.Error("callback for another id fired") })

	if err := store.Set(ctx, "u1", types.ProfilePatch{AddSessions: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	unsubscribe()
	if err := store.Set(ctx, "u1", types.ProfilePatch{AddSessions: 1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if len(seen) != 1 || seen[0].Stats.SessionsCompleted != 1 {
		t.Errorf("callbacks = %+v, want one call with one session", seen)
	}
}

func TestYAMLStore_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.path, []byte("profiles: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get(context.Background(), DefaultID); !repoerrors.HasCode(err, repoerrors.ErrCodeCorruption) {
		t.Errorf("Get() error = %v, want corruption", err)
	}
}

func TestYAMLStore_RejectsEmptyID(t *testing.T) {
	store := newTestStore(t)
	if err := store.Set(context.Background(), "", types.ProfilePatch{}); !repoerrors.IsValidation(err) {
		t.Errorf("Set(\"\") error = %v, want validation", err)
	}
}

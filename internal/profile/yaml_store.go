package profile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

const profilesFileName = "profiles.yaml"

type yamlProfiles struct {
	Profiles map[string]types.UserProfile `yaml:"profiles"`
}

// YAMLStore keeps every profile in one YAML file. Writes go to a temp file
// that is renamed over the original.
type YAMLStore struct {
	mu     sync.Mutex
	path   string
	now    func() time.Time
	logger logging.Logger

	subs   map[string]map[int]func(types.UserProfile)
	nextID int
}

var _ Store = (*YAMLStore)(nil)

func NewYAMLStore(path string, logger logging.Logger) *YAMLStore {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &YAMLStore{
		path:   path,
		now:    time.Now,
		logger: logger,
		subs:   make(map[string]map[int]func(types.UserProfile)),
	}
}

// DefaultPath resolves <user config dir>/<appName>/profiles.yaml
func DefaultPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, profilesFileName), nil
}

func (s *YAMLStore) load() (yamlProfiles, error) {
	data := yamlProfiles{Profiles: map[string]types.UserProfile{}}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return data, nil
		}
		return data, repoerrors.NewRepositoryErrorWithContext("profile.load", err, repoerrors.ClassifyError(err),
			map[string]string{"path": s.path})
	}

	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, repoerrors.NewRepositoryErrorWithContext("profile.load", err, repoerrors.ErrCodeCorruption,
			map[string]string{"path": s.path})
	}
	if data.Profiles == nil {
		data.Profiles = map[string]types.UserProfile{}
	}
	return data, nil
}

func (s *YAMLStore) save(data yamlProfiles) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}

	serialized, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal profiles yaml: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, serialized, 0o644); err != nil {
		return fmt.Errorf("write profiles file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace profiles file: %w", err)
	}
	return nil
}

func (s *YAMLStore) Get(ctx context.Context, id string) (*types.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	p, ok := data.Profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Set applies patch to the profile, creating it with defaults first if needed.
// Subscribers are called after the write, outside the store lock.
func (s *YAMLStore) Set(ctx context.Context, id string, patch types.ProfilePatch) error {
	if id == "" {
		return repoerrors.HandleValidationError("profile.Set", "id", id, "profile id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	data, err := s.load()
	if err != nil {
		s.mu.Unlock()
		return err
	}

	now := s.now()
	p, ok := data.Profiles[id]
	if !ok {
		p = New(id, now)
	}
	Apply(&p, patch, now)
	data.Profiles[id] = p

	if err := s.save(data); err != nil {
		s.mu.Unlock()
		logging.LogError(s.logger, err, "profile.Set", map[string]interface{}{"id": id})
		return err
	}

	callbacks := make([]func(types.UserProfile), 0, len(s.subs[id]))
	for _, cb := range s.subs[id] {
		callbacks = append(callbacks, cb)
	}
	s.mu.Unlock()

	for _, cb := range callbacks {
		cb(p)
	}
	return nil
}

func (s *YAMLStore) Subscribe(id string, cb func(types.UserProfile)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[id] == nil {
		s.subs[id] = make(map[int]func(types.UserProfile))
	}
	key := s.nextID
	s.nextID++
	s.subs[id][key] = cb

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[id], key)
	}
}

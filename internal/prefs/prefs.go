// Package prefs persists the narration mute preference.
package prefs

import (
	"fmt"
	"sync"

	"github.com/quasilyte/gdata/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// MuteStore is the capability the orchestrator depends on. A missing value reads as unmuted.
type MuteStore interface {
	LoadMuted() (bool, error)
	SaveMuted(muted bool) error
}

const (
	AppName = "basis_tower"

	prefsObject   = "preferences"
	prefsProperty = "narration.yaml"
)

type narrationPrefs struct {
	Muted bool `yaml:"muted"`
}

// LocalStore keeps preferences in the user's data directory through gdata.
type LocalStore struct {
	m *gdata.Manager
}

func OpenLocal(appName string) (*LocalStore, error) {
	if appName == "" {
		appName = AppName
	}
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open preference storage: %w", err)
	}
	return &LocalStore{m: m}, nil
}

func NewLocalStore(m *gdata.Manager) *LocalStore { return &LocalStore{m: m} }

// OpenLocalOrMemory opens the local store. When no data directory is usable the preference
// lives in memory for this run, which reads as unmuted.
func OpenLocalOrMemory(appName string, log *zap.Logger) MuteStore {
	s, err := OpenLocal(appName)
	if err != nil {
		if log != nil {
			log.Warn("local preferences unavailable, keeping mute in memory", zap.Error(err))
		}
		return &Memory{}
	}
	return s
}

func (s *LocalStore) LoadMuted() (bool, error) {
	if !s.m.ObjectPropExists(prefsObject, prefsProperty) {
		return false, nil
	}
	data, err := s.m.LoadObjectProp(prefsObject, prefsProperty)
	if err != nil {
		return false, fmt.Errorf("load preferences: %w", err)
	}
	var p narrationPrefs
	if err := yaml.Unmarshal(data, &p); err != nil {
		return false, fmt.Errorf("decode preferences: %w", err)
	}
	return p.Muted, nil
}

func (s *LocalStore) SaveMuted(muted bool) error {
	data, err := yaml.Marshal(narrationPrefs{Muted: muted})
	if err != nil {
		return err
	}
	if err := s.m.SaveObjectProp(prefsObject, prefsProperty, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// Memory is an in-process store. SaveErr, when set, is returned by every save.
type Memory struct {
	mu      sync.Mutex
	muted   bool
	Saves   int
	SaveErr error
}

func (m *Memory) LoadMuted() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.muted, nil
}

func (m *Memory) SaveMuted(muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.muted = muted
	return nil
}

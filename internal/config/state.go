package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/LISSConsulting/LISSTech.Revise/internal/fsutil"
)

// State is runtime data persisted next to the datasets so it survives
// restarts. It is written by the program, never edited by hand.
type State struct {
	ShuffleSeed int64  `toml:"shuffle_seed"`
	HasSeed     bool   `toml:"has_seed"`
	LastActive  string `toml:"last_active"`
}

// StateFile reads and writes State at a fixed path.
type StateFile struct {
	path string
}

// NewStateFile returns a StateFile backed by path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load reads the state. Returns a zero State (not an error) if the file
// does not exist.
func (s *StateFile) Load() (State, error) {
	var st State
	if _, err := toml.DecodeFile(s.path, &st); err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("config: read state %s: %w", s.path, err)
	}
	return st, nil
}

// Save replaces the state file atomically.
func (s *StateFile) Save(st State) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(st); err != nil {
		return fmt.Errorf("config: encode state: %w", err)
	}
	return fsutil.WriteFile(s.path, buf.Bytes(), 0644)
}

// SaveSeed records the shuffle seed, keeping the other state fields.
func (s *StateFile) SaveSeed(seed int64) error {
	st, err := s.Load()
	if err != nil {
		return err
	}
	st.ShuffleSeed = seed
	st.HasSeed = true
	return s.Save(st)
}

// Seed returns the last persisted shuffle seed.
func (s *StateFile) Seed() (int64, bool) {
	st, err := s.Load()
	if err != nil || !st.HasSeed {
		return 0, false
	}
	return st.ShuffleSeed, true
}

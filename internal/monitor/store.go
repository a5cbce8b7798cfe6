package monitor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Store persists the check state between runs
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps the state in a YAML file replaced atomically on save
type FileStore struct {
	Path string
}

// NewFileStore creates a store at path
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Load reads the state. A missing file yields the initial state.
// A corrupt file yields the initial state and an error.
func (f *FileStore) Load() (State, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return InitialState(), nil
		}
		return InitialState(), fmt.Errorf("failed to read state file: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return InitialState(), fmt.Errorf("failed to parse state file %s: %w", f.Path, err)
	}
	if s.Version > stateVersion {
		return InitialState(), fmt.Errorf("state file %s has unsupported version %d", f.Path, s.Version)
	}

	return s.normalized(), nil
}

// Save writes the state through a temporary file and a rename
func (f *FileStore) Save(s State) error {
	data, err := yaml.Marshal(s.normalized())
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if err := renameio.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	return nil
}

// ReadOnlyStore loads from Store but never saves
type ReadOnlyStore struct {
	Store  Store
	Logger zerolog.Logger
}

// Load reads from the wrapped store
func (r ReadOnlyStore) Load() (State, error) {
	return r.Store.Load()
}

// Save discards the state
func (r ReadOnlyStore) Save(s State) error {
	r.Logger.Info().
		Str("adapter", string(s.Adapter)).
		Str("line1", s.Line1.String()).
		Str("line2", s.Line2.String()).
		Msg("dry run: state not saved")
	return nil
}

package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sift-dev/sift/pkg/entity"
)

// FileSnapshotter writes state snapshots to a single JSON file. It exists
// for debugging; snapshots are not part of the task contract and nothing
// resumes from them automatically.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter creates a snapshotter writing to path.
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Save writes the state atomically via a temp file and rename.
func (f *FileSnapshotter) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	return nil
}

// Load reads a previously saved state.
func (f *FileSnapshotter) Load() (*State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	state := &State{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("corrupt snapshot: %w", err)
	}

	if state.ProposedEntities == nil {
		state.ProposedEntities = make(map[string]entity.ProposedEntity)
	}
	if state.SubmittedEntityIDs == nil {
		state.SubmittedEntityIDs = make(map[string]bool)
	}
	if state.VisitedURLs == nil {
		state.VisitedURLs = make(map[string]bool)
	}
	if state.DocumentURLs == nil {
		state.DocumentURLs = make(map[string]bool)
	}
	return state, nil
}

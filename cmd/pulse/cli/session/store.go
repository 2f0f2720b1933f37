package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pulsehq/cli/cmd/pulse/cli/paths"
)

// Store persists session state documents under the sessions directory, one
// JSON file per session ID. Hook invocations are separate processes; the
// document provides last-write-wins continuity between them.
type Store struct {
	dir string
}

// NewStore returns a store rooted at the default sessions directory.
func NewStore() (*Store, error) {
	dir, err := paths.SessionsDir()
	if err != nil {
		return nil, fmt.Errorf("resolving sessions directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewStoreAt returns a store rooted at dir. Used by tests.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) statePath(sessionID string) string {
	// Session IDs come from the host; flatten anything path-like.
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(sessionID)
	return filepath.Join(s.dir, safe+".json")
}

// Load returns the state for a session, or nil when none exists.
func (s *Store) Load(sessionID string) (*State, error) {
	data, err := os.ReadFile(s.statePath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil //nolint:nilnil // absent state is a state, not an error
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}
	return &st, nil
}

// Save writes the state document, creating the directory as needed.
func (s *Store) Save(st *State) error {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating sessions directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}
	if err := os.WriteFile(s.statePath(st.SessionID), append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}
	return nil
}

// Delete removes a session's state document. Missing documents are fine.
func (s *Store) Delete(sessionID string) error {
	err := os.Remove(s.statePath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting session state: %w", err)
	}
	return nil
}

// List returns all persisted session states, skipping unreadable documents.
func (s *Store) List() ([]*State, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing sessions directory: %w", err)
	}

	var states []*State
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		states = append(states, &st)
	}
	return states, nil
}

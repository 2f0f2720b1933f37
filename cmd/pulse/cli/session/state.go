// Package session holds per-session tracking state: the project, branch and
// model resolved at session start, the config gates, and wakatime-cli
// availability. State is a single-owner object threaded through the
// lifecycle router; the Store persists it between hook invocations.
package session

import (
	"path/filepath"
	"time"

	"github.com/pulsehq/cli/cmd/pulse/cli/paths"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/wakatime"
)

// State is the ambient session state read by every heartbeat construction.
// All fields are defined before the first dispatch of a session; detection
// failures fall back to defaults or absence, never to errors.
type State struct {
	SessionID    string `json:"session_id"`
	AgentName    string `json:"agent"`
	AgentVersion string `json:"agent_version,omitempty"`

	// Config gates, copied from settings at session start.
	Enabled       bool   `json:"enabled"`
	TrackFiles    bool   `json:"track_files"`
	TrackSessions bool   `json:"track_sessions"`
	Category      string `json:"category"`

	// CLIAvailable is recomputed at session start; CLIPath is the
	// resolved binary location when available.
	CLIAvailable bool   `json:"cli_available"`
	CLIPath      string `json:"cli_path,omitempty"`
	APIURL       string `json:"api_url,omitempty"`

	// Project is the working-directory basename, immutable within a
	// session. Branch is resolved once at session start. Model is
	// last-write-wins, refreshed opportunistically by events.
	Project    string `json:"project,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Model      string `json:"model,omitempty"`
	WorkingDir string `json:"working_dir,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// Initialize builds session state for a new session. Configuration load,
// CLI discovery and branch detection are all best-effort: any failure
// resolves to defaults or absence. Never returns an error.
func Initialize(sessionID, agentName, workingDir string) *State {
	cfg, _ := settings.Load() // defaults on any failure, intentionally swallowed

	cliPath := wakatime.Locate(cfg.Tracking.CLIPath)

	st := &State{
		SessionID:     sessionID,
		AgentName:     agentName,
		Enabled:       cfg.Tracking.Enabled,
		TrackFiles:    cfg.Tracking.TrackFiles,
		TrackSessions: cfg.Tracking.TrackSessions,
		Category:      cfg.Tracking.Category,
		CLIAvailable:  cliPath != "",
		CLIPath:       cliPath,
		APIURL:        cfg.Tracking.APIURL,
		WorkingDir:    workingDir,
		StartedAt:     time.Now(),
	}

	if workingDir != "" {
		st.Project = filepath.Base(workingDir)
		st.Branch = paths.BranchForDir(workingDir)
	}

	return st
}

// UpdateModel assigns the active model identifier. Last-write-wins; empty
// identifiers are ignored so events without model context never clear it.
func (s *State) UpdateModel(identifier string) {
	if identifier == "" {
		return
	}
	s.Model = identifier
}

// Toggle flips the dispatch gate and returns the new value for display.
func (s *State) Toggle() bool {
	s.Enabled = !s.Enabled
	return s.Enabled
}

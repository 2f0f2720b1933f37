// Package settings provides configuration loading for Pulse. The settings
// file is read-only from the plugin's perspective: tracking gates live under
// the single "tracking" key and a missing or unreadable file resolves to
// documented defaults rather than an error surfaced to the host.
package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pulsehq/cli/cmd/pulse/cli/paths"
)

// DefaultCategory is attached to every heartbeat unless overridden.
const DefaultCategory = "coding"

// Settings is the top-level shape of ~/.pulse/settings.json.
type Settings struct {
	// Tracking holds the config gates. All other top-level keys are
	// ignored so the file can be shared with host-side configuration.
	Tracking Tracking `json:"tracking"`
}

// Tracking holds the per-concern gates and overrides.
type Tracking struct {
	// Enabled gates all heartbeat dispatch. Defaults to true.
	Enabled bool `json:"enabled"`

	// TrackFiles gates file-level heartbeats from tool results.
	TrackFiles bool `json:"track_files"`

	// TrackSessions gates session-level heartbeats (start/turn/shutdown).
	TrackSessions bool `json:"track_sessions"`

	// Category is the free-form label attached to every heartbeat.
	Category string `json:"category,omitempty"`

	// CLIPath overrides wakatime-cli discovery when set.
	CLIPath string `json:"cli_path,omitempty"`

	// APIURL overrides the time-tracking API endpoint (passed through to
	// wakatime-cli, e.g. for Hackatime).
	APIURL string `json:"api_url,omitempty"`

	// LogLevel sets logging verbosity (debug, info, warn, error).
	// PULSE_LOG_LEVEL takes precedence. Defaults to "info".
	LogLevel string `json:"log_level,omitempty"`

	// Telemetry opts into anonymous usage analytics. Defaults to false.
	Telemetry bool `json:"telemetry,omitempty"`
}

// Default returns the documented default settings.
func Default() *Settings {
	return &Settings{
		Tracking: Tracking{
			Enabled:       true,
			TrackFiles:    true,
			TrackSessions: true,
			Category:      DefaultCategory,
		},
	}
}

// Load reads settings from the default location. On any failure the
// returned settings are the documented defaults; the error is informational
// and callers on detection paths swallow it.
func Load() (*Settings, error) {
	path, err := paths.SettingsFile()
	if err != nil {
		return Default(), fmt.Errorf("resolving settings path: %w", err)
	}
	return LoadFromFile(path)
}

// LoadFromFile reads settings from a specific path. A missing file is not
// an error: the defaults apply. A malformed file returns the defaults
// alongside the parse error.
func LoadFromFile(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return Default(), fmt.Errorf("reading settings file: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return Default(), fmt.Errorf("parsing settings file: %w", err)
	}
	if s.Tracking.Category == "" {
		s.Tracking.Category = DefaultCategory
	}
	return s, nil
}

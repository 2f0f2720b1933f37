// Package paths resolves filesystem locations used by Pulse: the data
// directory, the session state directory, and version-control metadata.
package paths

import (
	"os"
	"path/filepath"
)

// DataDir returns the Pulse data directory (~/.pulse). The directory is not
// created here; writers create it on demand.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".pulse"), nil
}

// SessionsDir returns the directory holding per-session state documents.
func SessionsDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions"), nil
}

// SettingsFile returns the path to the Pulse settings file.
func SettingsFile() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

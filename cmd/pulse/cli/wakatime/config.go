// Package wakatime handles the interface boundary with wakatime-cli: its
// credentials file, binary discovery, and the small set of invocations Pulse
// performs outside heartbeat dispatch.
package wakatime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"
)

const (
	// ConfigFileName is the wakatime-cli configuration file in $HOME.
	ConfigFileName = ".wakatime.cfg"

	configSection = "settings"
	apiKeyKey     = "api_key"

	// apiKeyPrefix is the prefixed credential variant (Hackatime-style).
	apiKeyPrefix = "waka_"
)

// ConfigFilePath returns the path to ~/.wakatime.cfg.
func ConfigFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ConfigFileName), nil
}

// ValidAPIKey reports whether key matches one of the two accepted shapes:
// a bare canonical UUID, or the same with the "waka_" prefix.
func ValidAPIKey(key string) bool {
	k := strings.TrimPrefix(key, apiKeyPrefix)
	if len(k) != 36 {
		return false
	}
	_, err := uuid.Parse(k)
	return err == nil
}

// APIKey returns the configured credential, or "" when the config file is
// missing, unreadable, or has no key. Never errors: an absent credential is
// a state, not a failure.
func APIKey() string {
	path, err := ConfigFilePath()
	if err != nil {
		return ""
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cfg.Section(configSection).Key(apiKeyKey).String())
}

// SetAPIKey validates and persists the credential to ~/.wakatime.cfg,
// creating the file and its settings section if absent and replacing any
// prior value in place. The file is written with restrictive permissions.
// An invalid key aborts before any file access.
func SetAPIKey(key string) error {
	if !ValidAPIKey(key) {
		return fmt.Errorf("invalid API key format: expected a UUID or %sUUID", apiKeyPrefix)
	}

	path, err := ConfigFilePath()
	if err != nil {
		return err
	}

	// LooseLoad tolerates a missing file and starts from an empty config.
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}
	cfg.Section(configSection).Key(apiKeyKey).SetValue(key)

	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("writing %s: %w", ConfigFileName, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting %s permissions: %w", ConfigFileName, err)
	}
	return nil
}

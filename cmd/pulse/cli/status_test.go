package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/cli/cmd/pulse/cli/session"
)

func TestRunStatus_DefaultsShowEnabled(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &out, false))

	assert.Contains(t, out.String(), "Enabled")
	assert.Contains(t, out.String(), "coding")
	assert.Contains(t, out.String(), "wakatime-cli not found")
	assert.Contains(t, out.String(), "API key missing")
}

func TestRunStatus_ShowsActiveSessions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store := session.NewStoreAt(filepath.Join(home, ".pulse", "sessions"))
	require.NoError(t, store.Save(&session.State{
		SessionID: "abcdef1234",
		AgentName: "claude-code",
		Enabled:   true,
		Project:   "myproject",
		Branch:    "main",
		Model:     "anthropic/claude-sonnet-4-5",
		StartedAt: time.Now(),
	}))

	var out bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &out, false))

	assert.Contains(t, out.String(), "Active Sessions")
	assert.Contains(t, out.String(), "claude-code")
	assert.Contains(t, out.String(), "abcdef1")
	assert.NotContains(t, out.String(), "abcdef1234", "session IDs are shortened")
	assert.Contains(t, out.String(), "myproject")
	assert.Contains(t, out.String(), "branch main")
}

func TestRunStatus_DisabledInSettings(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, os.MkdirAll(filepath.Join(home, ".pulse"), 0o755))
	cfg := `{"tracking": {"enabled": false}}`
	require.NoError(t, os.WriteFile(filepath.Join(home, ".pulse", "settings.json"), []byte(cfg), 0o644))

	var out bytes.Buffer
	require.NoError(t, runStatus(context.Background(), &out, false))

	assert.Contains(t, out.String(), "Disabled")
}

func TestRunToggle_FlipsAllSessions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store := session.NewStoreAt(filepath.Join(home, ".pulse", "sessions"))
	require.NoError(t, store.Save(&session.State{SessionID: "a", Enabled: true}))
	require.NoError(t, store.Save(&session.State{SessionID: "b", Enabled: false}))

	var out bytes.Buffer
	require.NoError(t, runToggle(&out))

	// A mixed set converges to off.
	assert.Contains(t, out.String(), "disabled for 2 session(s)")
	states, err := store.List()
	require.NoError(t, err)
	for _, st := range states {
		assert.False(t, st.Enabled)
	}

	out.Reset()
	require.NoError(t, runToggle(&out))
	assert.Contains(t, out.String(), "enabled for 2 session(s)")
}

func TestRunToggle_NoSessions(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, runToggle(&out))
	assert.Contains(t, out.String(), "No active sessions")
}

func TestRunSetKey_SavesAndReenablesSessions(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store := session.NewStoreAt(filepath.Join(home, ".pulse", "sessions"))
	require.NoError(t, store.Save(&session.State{SessionID: "a", Enabled: false}))

	var out bytes.Buffer
	require.NoError(t, runSetKey(&out, "00000000-4000-4000-8000-000000000000"))

	assert.Contains(t, out.String(), "API key saved")
	assert.Contains(t, out.String(), "re-enabled for 1 session(s)")

	st, err := store.Load("a")
	require.NoError(t, err)
	assert.True(t, st.Enabled)
}

func TestRunSetKey_RejectsInvalidKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	err := runSetKey(&out, "not-a-key")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(os.Getenv("HOME"), ".wakatime.cfg"))
}

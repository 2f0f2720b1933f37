package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsehq/cli/cmd/pulse/cli/agent"
	"github.com/pulsehq/cli/cmd/pulse/cli/heartbeat"
	"github.com/pulsehq/cli/cmd/pulse/cli/session"
)

// stubAgent satisfies agent.Agent for router tests; parsing is exercised in
// the agent implementation packages.
type stubAgent struct{}

func (stubAgent) Name() agent.Name    { return "stub" }
func (stubAgent) Description() string { return "Stub" }
func (stubAgent) HookNames() []string { return nil }
func (stubAgent) ParseHookEvent(string, io.Reader) (*agent.Event, error) {
	return nil, nil
}

type recordingRunner struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, args)
	return nil
}

func (r *recordingRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingRunner) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// testEnv prepares an isolated HOME with a discoverable fake wakatime-cli
// and a configured API key, and returns a router wired to a recording runner.
type testEnv struct {
	router  *Router
	runner  *recordingRunner
	store   *session.Store
	notices []string
	home    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	cliPath := filepath.Join(home, ".wakatime", "wakatime-cli")
	require.NoError(t, os.MkdirAll(filepath.Dir(cliPath), 0o755))
	require.NoError(t, os.WriteFile(cliPath, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	cfg := "[settings]\napi_key = 00000000-4000-4000-8000-000000000000\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".wakatime.cfg"), []byte(cfg), 0o600))

	runner := &recordingRunner{}
	store := session.NewStoreAt(filepath.Join(home, ".pulse", "sessions"))

	env := &testEnv{
		runner: runner,
		store:  store,
		home:   home,
	}
	env.router = NewRouter(store, heartbeat.NewDispatcherWithRunner(runner))
	env.router.notify = func(msg string) { env.notices = append(env.notices, msg) }
	return env
}

func (e *testEnv) dispatch(t *testing.T, event *agent.Event) {
	t.Helper()
	require.NoError(t, e.router.DispatchLifecycleEvent(stubAgent{}, event))
	e.router.dispatcher.Wait()
}

func startEvent(workingDir string) *agent.Event {
	return &agent.Event{
		Type:         agent.SessionStart,
		SessionID:    "s1",
		WorkingDir:   workingDir,
		AgentVersion: "2.1.0",
		Timestamp:    time.Now(),
	}
}

func argValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func TestSessionStart_DispatchesSessionHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	workDir := t.TempDir()

	env.dispatch(t, startEvent(workDir))

	require.Equal(t, 1, env.runner.count())
	args := env.runner.last()
	if got, _ := argValue(args, "--entity"); got != workDir {
		t.Errorf("--entity = %q, want working dir", got)
	}
	if got, _ := argValue(args, "--entity-type"); got != "app" {
		t.Errorf("--entity-type = %q, want app", got)
	}
	assert.NotContains(t, args, "--write")

	st, err := env.store.Load("s1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.True(t, st.Enabled)
	assert.Equal(t, "2.1.0", st.AgentVersion)
}

func TestSessionStart_MissingAPIKeyDisablesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.home, ".wakatime.cfg")))

	env.dispatch(t, startEvent(t.TempDir()))

	assert.Zero(t, env.runner.count(), "disabled session must not dispatch")
	require.NotEmpty(t, env.notices)

	st, err := env.store.Load("s1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.False(t, st.Enabled)
}

func TestSessionStart_MissingCLINotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.home, ".wakatime", "wakatime-cli")))

	env.dispatch(t, startEvent(t.TempDir()))

	assert.Zero(t, env.runner.count())
	found := slices.ContainsFunc(env.notices, func(m string) bool {
		return strings.Contains(m, "wakatime-cli")
	})
	assert.True(t, found, "missing CLI must surface a notice")
}

func TestModelSelect_UpdatesStateWithoutDispatch(t *testing.T) {
	env := newTestEnv(t)
	env.dispatch(t, startEvent(t.TempDir()))
	before := env.runner.count()

	env.dispatch(t, &agent.Event{
		Type:      agent.ModelSelect,
		SessionID: "s1",
		Model:     "anthropic/claude-opus-4-1",
	})

	assert.Equal(t, before, env.runner.count(), "model select never dispatches")
	st, err := env.store.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-opus-4-1", st.Model)
}

func TestTurnStart_DispatchesAndCarriesModel(t *testing.T) {
	env := newTestEnv(t)
	env.dispatch(t, startEvent(t.TempDir()))

	env.dispatch(t, &agent.Event{
		Type:      agent.TurnStart,
		SessionID: "s1",
		Model:     "anthropic/claude-sonnet-4-5",
	})

	require.Equal(t, 2, env.runner.count())
	plugin, _ := argValue(env.runner.last(), "--plugin")
	assert.Contains(t, plugin, "model/anthropic/claude-sonnet-4-5")
}

func TestToolResult_ReadOfMissingFileIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	workDir := t.TempDir()
	env.dispatch(t, startEvent(workDir))
	before := env.runner.count()

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool:      &agent.ToolPayload{Name: "read", Path: "no/such/file.go"},
	})

	assert.Equal(t, before, env.runner.count())
}

func TestToolResult_ReadOfExistingFileIsNotAWrite(t *testing.T) {
	env := newTestEnv(t)
	workDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "main.go"), []byte("package main\n"), 0o644))
	env.dispatch(t, startEvent(workDir))

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool:      &agent.ToolPayload{Name: "read", Path: "main.go"},
	})

	args := env.runner.last()
	if got, _ := argValue(args, "--entity"); got != filepath.Join(workDir, "main.go") {
		t.Errorf("--entity = %q, want path resolved against working dir", got)
	}
	assert.NotContains(t, args, "--write")
	if _, ok := argValue(args, "--ai-line-changes"); ok {
		t.Error("read heartbeats carry no line changes")
	}
}

func TestToolResult_WriteReportsContentLineCount(t *testing.T) {
	env := newTestEnv(t)
	env.dispatch(t, startEvent(t.TempDir()))

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool: &agent.ToolPayload{
			Name:    "write",
			Path:    "/tmp/out.go",
			Content: "package main\n\nfunc main() {}",
		},
	})

	args := env.runner.last()
	assert.Contains(t, args, "--write")
	if got, _ := argValue(args, "--ai-line-changes"); got != "3" {
		t.Errorf("--ai-line-changes = %q, want 3", got)
	}
}

func TestToolResult_NetZeroEditStillReportsOne(t *testing.T) {
	env := newTestEnv(t)
	env.dispatch(t, startEvent(t.TempDir()))

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool: &agent.ToolPayload{
			Name:    "edit",
			Path:    "/tmp/out.go",
			OldText: "a\nb",
			NewText: "x\ny",
		},
	})

	if got, _ := argValue(env.runner.last(), "--ai-line-changes"); got != "1" {
		t.Errorf("--ai-line-changes = %q, want floor of 1", got)
	}
}

func TestToolResult_UntrackedToolIsIgnored(t *testing.T) {
	env := newTestEnv(t)
	env.dispatch(t, startEvent(t.TempDir()))
	before := env.runner.count()

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool:      &agent.ToolPayload{Name: "bash", Path: "/tmp/x"},
	})

	assert.Equal(t, before, env.runner.count())
}

func TestToolResult_TrackFilesOffSuppressesFileHeartbeats(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.home, ".pulse"), 0o755))
	settings := `{"tracking": {"track_files": false}}`
	require.NoError(t, os.WriteFile(filepath.Join(env.home, ".pulse", "settings.json"), []byte(settings), 0o644))

	env.dispatch(t, startEvent(t.TempDir()))
	before := env.runner.count()

	env.dispatch(t, &agent.Event{
		Type:      agent.ToolResult,
		SessionID: "s1",
		Tool:      &agent.ToolPayload{Name: "write", Path: "/tmp/x.go", Content: "x"},
	})

	assert.Equal(t, before, env.runner.count())
}

func TestToolResult_LazilyInitializesState(t *testing.T) {
	env := newTestEnv(t)

	// No session-start was ever delivered for this session.
	env.dispatch(t, &agent.Event{
		Type:       agent.ToolResult,
		SessionID:  "orphan",
		WorkingDir: t.TempDir(),
		Tool:       &agent.ToolPayload{Name: "write", Path: "/tmp/x.go", Content: "x\ny"},
	})

	assert.Equal(t, 1, env.runner.count())
	st, err := env.store.Load("orphan")
	require.NoError(t, err)
	require.NotNil(t, st)
}

func TestSessionEnd_FinalHeartbeatThenStateDiscarded(t *testing.T) {
	env := newTestEnv(t)
	workDir := t.TempDir()
	env.dispatch(t, startEvent(workDir))
	before := env.runner.count()

	env.dispatch(t, &agent.Event{Type: agent.SessionEnd, SessionID: "s1"})

	assert.Equal(t, before+1, env.runner.count(), "shutdown sends a final session heartbeat")
	st, err := env.store.Load("s1")
	require.NoError(t, err)
	assert.Nil(t, st, "session state is discarded at shutdown")
}

func TestSessionEnd_WithoutStateStillCleansUp(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.router.DispatchLifecycleEvent(stubAgent{}, &agent.Event{
		Type:      agent.SessionEnd,
		SessionID: "never-started",
	}))
	assert.Zero(t, env.runner.count())
}

func TestDispatch_RejectsMissingSessionID(t *testing.T) {
	env := newTestEnv(t)

	err := env.router.DispatchLifecycleEvent(stubAgent{}, &agent.Event{Type: agent.TurnStart})
	assert.Error(t, err)
}

// Package claudecode implements the agent integration for Claude Code.
// Hook payloads arrive as JSON on stdin and are normalized into lifecycle
// events for the router.
package claudecode

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pulsehq/cli/cmd/pulse/cli/agent"
)

// AgentName is the registry key for Claude Code.
const AgentName agent.Name = "claude-code"

// Hook verbs supported by Claude Code.
const (
	HookNameSessionStart     = "session-start"
	HookNameModelSelect      = "model-select"
	HookNameUserPromptSubmit = "user-prompt-submit"
	HookNamePostToolUse      = "post-tool-use"
	HookNameSessionEnd       = "session-end"
)

//nolint:gochecknoinits // Agent registration at startup is the intended pattern
func init() {
	agent.Register(&ClaudeCodeAgent{})
}

// ClaudeCodeAgent normalizes Claude Code hooks.
type ClaudeCodeAgent struct{}

var _ agent.Agent = (*ClaudeCodeAgent)(nil)

// Name returns the agent registry key.
func (c *ClaudeCodeAgent) Name() agent.Name { return AgentName }

// Description returns a human-readable description for UI.
func (c *ClaudeCodeAgent) Description() string { return "Claude Code" }

// HookNames returns the hook verbs Claude Code supports.
func (c *ClaudeCodeAgent) HookNames() []string {
	return []string{
		HookNameSessionStart,
		HookNameModelSelect,
		HookNameUserPromptSubmit,
		HookNamePostToolUse,
		HookNameSessionEnd,
	}
}

// ParseHookEvent translates a Claude Code hook into a normalized lifecycle
// Event. Returns nil if the hook has no lifecycle significance.
func (c *ClaudeCodeAgent) ParseHookEvent(hookName string, stdin io.Reader) (*agent.Event, error) {
	switch hookName {
	case HookNameSessionStart:
		return c.parseSimple(stdin, agent.SessionStart)
	case HookNameModelSelect:
		return c.parseSimple(stdin, agent.ModelSelect)
	case HookNameUserPromptSubmit:
		return c.parseSimple(stdin, agent.TurnStart)
	case HookNamePostToolUse:
		return c.parseToolResult(stdin)
	case HookNameSessionEnd:
		return c.parseSimple(stdin, agent.SessionEnd)
	default:
		return nil, nil //nolint:nilnil // Unknown hooks have no lifecycle action
	}
}

// --- Raw hook payload shapes ---

type modelRaw struct {
	Provider string `json:"provider"`
	ID       string `json:"id"`
}

type hookInputRaw struct {
	SessionID string    `json:"session_id"`
	CWD       string    `json:"cwd"`
	Version   string    `json:"version"`
	Model     *modelRaw `json:"model"`

	ToolName  string          `json:"tool_name"`
	ToolInput json.RawMessage `json:"tool_input"`
}

type toolInputRaw struct {
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	OldString string `json:"old_string"`
	NewString string `json:"new_string"`
}

func (c *ClaudeCodeAgent) parseSimple(stdin io.Reader, typ agent.EventType) (*agent.Event, error) {
	raw, err := readAndParse(stdin)
	if err != nil {
		return nil, err
	}
	return &agent.Event{
		Type:         typ,
		SessionID:    raw.SessionID,
		WorkingDir:   raw.CWD,
		AgentVersion: raw.Version,
		Model:        modelIdentifier(raw.Model),
		Timestamp:    time.Now(),
	}, nil
}

func (c *ClaudeCodeAgent) parseToolResult(stdin io.Reader) (*agent.Event, error) {
	raw, err := readAndParse(stdin)
	if err != nil {
		return nil, err
	}

	event := &agent.Event{
		Type:         agent.ToolResult,
		SessionID:    raw.SessionID,
		WorkingDir:   raw.CWD,
		AgentVersion: raw.Version,
		Model:        modelIdentifier(raw.Model),
		Timestamp:    time.Now(),
	}

	tool := &agent.ToolPayload{Name: strings.ToLower(raw.ToolName)}
	if len(raw.ToolInput) > 0 {
		var input toolInputRaw
		if err := json.Unmarshal(raw.ToolInput, &input); err != nil {
			return nil, fmt.Errorf("failed to parse tool input: %w", err)
		}
		tool.Path = input.FilePath
		tool.Content = input.Content
		tool.OldText = input.OldString
		tool.NewText = input.NewString
	}
	event.Tool = tool

	return event, nil
}

// modelIdentifier flattens the {provider, id} descriptor into a single
// identifier string.
func modelIdentifier(m *modelRaw) string {
	if m == nil || m.ID == "" {
		return ""
	}
	if m.Provider == "" {
		return m.ID
	}
	return m.Provider + "/" + m.ID
}

// readAndParse reads stdin and unmarshals the hook payload.
func readAndParse(stdin io.Reader) (*hookInputRaw, error) {
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read hook input: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty hook input")
	}
	var result hookInputRaw
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse hook input: %w", err)
	}
	return &result, nil
}

package agent

import "time"

// EventType represents a normalized lifecycle event from any agent.
// Agents translate their native hooks into these via ParseHookEvent.
type EventType int

const (
	// SessionStart indicates the agent session has begun.
	SessionStart EventType = iota + 1

	// ModelSelect indicates the user switched the active model.
	ModelSelect

	// TurnStart indicates the user submitted a prompt and the agent is
	// about to work.
	TurnStart

	// ToolResult indicates a tool invocation completed.
	ToolResult

	// SessionEnd indicates the session has been terminated.
	SessionEnd
)

// String returns a human-readable name for the event type.
func (e EventType) String() string {
	switch e {
	case SessionStart:
		return "SessionStart"
	case ModelSelect:
		return "ModelSelect"
	case TurnStart:
		return "TurnStart"
	case ToolResult:
		return "ToolResult"
	case SessionEnd:
		return "SessionEnd"
	default:
		return "Unknown"
	}
}

// Event is a normalized lifecycle event produced by an agent's
// ParseHookEvent method. The lifecycle router consumes these to drive
// session state and heartbeat dispatch.
type Event struct {
	// Type is the kind of lifecycle event.
	Type EventType

	// SessionID identifies the agent session.
	SessionID string

	// WorkingDir is the session working directory from the hook context.
	WorkingDir string

	// AgentVersion is the host application's version, when the hook
	// payload carries one.
	AgentVersion string

	// Model is the active model identifier ("provider/id" when the
	// provider is known), empty when the payload carries none.
	Model string

	// Tool is populated on ToolResult events.
	Tool *ToolPayload

	// Timestamp is when the event was parsed.
	Timestamp time.Time
}

// ToolPayload carries the tool-completion payload for tracked tools.
type ToolPayload struct {
	// Name is the normalized lowercase tool name ("read", "write",
	// "edit", or anything else for untracked tools).
	Name string

	// Path is the file the tool operated on; may be relative to the
	// session working directory.
	Path string

	// Content is the full written content (write tools).
	Content string

	// OldText and NewText are the replaced and replacement spans
	// (edit tools).
	OldText string
	NewText string
}

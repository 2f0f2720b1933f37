// lifecycle.go implements the lifecycle event router. It consumes normalized
// events from any agent and drives the two effects the tracker has: session
// state mutation and heartbeat dispatch. Agents are passive parsers; all
// orchestration lives here.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pulsehq/cli/cmd/pulse/cli/agent"
	"github.com/pulsehq/cli/cmd/pulse/cli/heartbeat"
	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/telemetry"
	"github.com/pulsehq/cli/cmd/pulse/cli/wakatime"
)

// Tool names that produce file heartbeats. Any other tool result is ignored.
const (
	toolRead  = "read"
	toolWrite = "write"
	toolEdit  = "edit"
)

// Router routes normalized lifecycle events to session state transitions and
// heartbeat dispatches. One router handles any number of sessions; state is
// keyed by session ID through the store.
type Router struct {
	store      *session.Store
	dispatcher *heartbeat.Dispatcher
	telemetry  *telemetry.Client

	// notify surfaces one-time user-facing messages (missing CLI, missing
	// credential). Hook handlers write to stderr so the host agent's own
	// output stays clean.
	notify func(string)
}

// NewRouter returns a router over the given store and dispatcher.
func NewRouter(store *session.Store, dispatcher *heartbeat.Dispatcher) *Router {
	return &Router{
		store:      store,
		dispatcher: dispatcher,
		notify:     func(msg string) { fmt.Fprintln(os.Stderr, msg) },
	}
}

// DispatchLifecycleEvent routes one normalized event. Handlers degrade rather
// than fail: a missing CLI or credential disables dispatch but never returns
// an error, so the host agent is never blocked by tracking.
func (r *Router) DispatchLifecycleEvent(ag agent.Agent, event *agent.Event) error {
	if ag == nil {
		return errors.New("agent cannot be nil")
	}
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.SessionID == "" {
		return fmt.Errorf("no session_id in %s event", event.Type)
	}

	logCtx := logging.WithComponent(context.Background(), "lifecycle")
	logging.Debug(logCtx, "event",
		slog.String("type", event.Type.String()),
		slog.String("agent", string(ag.Name())),
		slog.String("session_id", event.SessionID),
	)

	switch event.Type {
	case agent.SessionStart:
		return r.handleSessionStart(ag, event)
	case agent.ModelSelect:
		return r.handleModelSelect(ag, event)
	case agent.TurnStart:
		return r.handleTurnStart(ag, event)
	case agent.ToolResult:
		return r.handleToolResult(ag, event)
	case agent.SessionEnd:
		return r.handleSessionEnd(ag, event)
	default:
		return fmt.Errorf("unknown lifecycle event type: %d", event.Type)
	}
}

// handleSessionStart builds fresh session state, gates it on the external
// prerequisites, persists it, and sends the opening session heartbeat.
func (r *Router) handleSessionStart(ag agent.Agent, event *agent.Event) error {
	st := session.Initialize(event.SessionID, string(ag.Name()), event.WorkingDir)
	st.AgentVersion = event.AgentVersion
	st.UpdateModel(event.Model)

	if !st.CLIAvailable {
		r.notify("Pulse: wakatime-cli not found; activity will not be tracked. Install it to ~/.wakatime/ or set tracking.cli_path.")
	} else {
		wakatime.CheckVersion(context.Background(), st.CLIPath)
	}

	if st.Enabled && wakatime.APIKey() == "" {
		st.Enabled = false
		r.notify("Pulse: no API key configured; tracking disabled. Run 'pulse set-key' to enable it.")
	}

	if err := r.store.Save(st); err != nil {
		return err
	}

	r.telemetry.Capture("session_start", map[string]any{"agent": st.AgentName})

	if st.TrackSessions {
		r.dispatcher.Send(st, heartbeat.Request{
			Entity:     sessionEntity(st),
			EntityType: heartbeat.EntityApp,
			Time:       event.Timestamp,
		})
	}
	return nil
}

// handleModelSelect refreshes the active model. No heartbeat: switching
// models is not activity.
func (r *Router) handleModelSelect(ag agent.Agent, event *agent.Event) error {
	st, err := r.loadOrInit(ag, event)
	if err != nil {
		return err
	}
	st.UpdateModel(event.Model)
	return r.store.Save(st)
}

// handleTurnStart marks the session alive with a session-level heartbeat.
func (r *Router) handleTurnStart(ag agent.Agent, event *agent.Event) error {
	st, err := r.loadOrInit(ag, event)
	if err != nil {
		return err
	}
	st.UpdateModel(event.Model)
	if err := r.store.Save(st); err != nil {
		return err
	}

	if st.TrackSessions {
		r.dispatcher.Send(st, heartbeat.Request{
			Entity:     sessionEntity(st),
			EntityType: heartbeat.EntityApp,
			Time:       event.Timestamp,
		})
	}
	return nil
}

// handleToolResult converts a completed read/write/edit into a file
// heartbeat. Untracked tools and pathless payloads are ignored.
func (r *Router) handleToolResult(ag agent.Agent, event *agent.Event) error {
	st, err := r.loadOrInit(ag, event)
	if err != nil {
		return err
	}
	st.UpdateModel(event.Model)
	if err := r.store.Save(st); err != nil {
		return err
	}

	if !st.TrackFiles {
		return nil
	}
	tool := event.Tool
	if tool == nil || tool.Path == "" {
		return nil
	}

	path := tool.Path
	if !filepath.IsAbs(path) && st.WorkingDir != "" {
		path = filepath.Join(st.WorkingDir, path)
	}

	req := heartbeat.Request{Entity: path, Time: event.Timestamp}
	switch tool.Name {
	case toolRead:
		// A read of a file that does not exist is a failed tool call, not
		// activity on an entity.
		if _, statErr := os.Stat(path); statErr != nil {
			return nil
		}
	case toolWrite:
		req.IsWrite = true
		req.AILineChanges = heartbeat.CountLines(tool.Content)
	case toolEdit:
		req.IsWrite = true
		req.AILineChanges = heartbeat.EditLineChanges(tool.OldText, tool.NewText)
	default:
		return nil
	}

	r.dispatcher.Send(st, req)
	return nil
}

// handleSessionEnd sends a closing session heartbeat and discards the state
// document. The discard happens regardless of tracking gates.
func (r *Router) handleSessionEnd(_ agent.Agent, event *agent.Event) error {
	st, err := r.store.Load(event.SessionID)
	if err == nil && st != nil {
		st.UpdateModel(event.Model)
		if st.TrackSessions {
			r.dispatcher.Send(st, heartbeat.Request{
				Entity:     sessionEntity(st),
				EntityType: heartbeat.EntityApp,
				Time:       event.Timestamp,
			})
		}
	}
	return r.store.Delete(event.SessionID)
}

// loadOrInit returns the session's persisted state, lazily initializing it
// when the session-start hook was never delivered (agent restarts, hooks
// installed mid-session).
func (r *Router) loadOrInit(ag agent.Agent, event *agent.Event) (*session.State, error) {
	st, err := r.store.Load(event.SessionID)
	if err != nil {
		return nil, err
	}
	if st != nil {
		return st, nil
	}

	st = session.Initialize(event.SessionID, string(ag.Name()), event.WorkingDir)
	st.AgentVersion = event.AgentVersion
	if st.Enabled && wakatime.APIKey() == "" {
		st.Enabled = false
	}
	return st, nil
}

// sessionEntity is the subject of session-level heartbeats: the workspace
// location, falling back to the session ID for directory-less sessions.
func sessionEntity(st *session.State) string {
	if st.WorkingDir != "" {
		return st.WorkingDir
	}
	return st.SessionID
}

package cli

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pulsehq/cli/cmd/pulse/cli/agent"
	// Import agents to ensure they are registered before we iterate
	_ "github.com/pulsehq/cli/cmd/pulse/cli/agent/claudecode"
	"github.com/pulsehq/cli/cmd/pulse/cli/heartbeat"
	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/telemetry"
)

// spawnGrace is how long a hook process lingers for the heartbeat subprocess
// to be spawned. The subprocess itself survives this process exiting.
const spawnGrace = 3 * time.Second

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers",
		Long:   "Commands called by agent hooks. These are internal and not for direct user use.",
		Hidden: true,
	}

	for _, name := range agent.List() {
		ag, err := agent.Get(name)
		if err != nil {
			continue
		}
		cmd.AddCommand(newAgentHooksCmd(ag))
	}

	return cmd
}

// newAgentHooksCmd creates a hooks subcommand for an agent, one subcommand
// per hook verb the agent supports.
func newAgentHooksCmd(ag agent.Agent) *cobra.Command {
	cmd := &cobra.Command{
		Use:    string(ag.Name()),
		Short:  ag.Description() + " hook handlers",
		Hidden: true,
	}

	for _, hookName := range ag.HookNames() {
		cmd.AddCommand(newHookVerbCmd(ag, hookName))
	}

	return cmd
}

// newHookVerbCmd creates the command for one hook verb. Hooks never fail the
// host agent: every error is logged and swallowed.
func newHookVerbCmd(ag agent.Agent, hookName string) *cobra.Command {
	return &cobra.Command{
		Use:    hookName,
		Hidden: true,
		Short:  "Called on " + hookName,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCtx := logging.WithComponent(cmd.Context(), "hooks")

			event, err := ag.ParseHookEvent(hookName, cmd.InOrStdin())
			if err != nil {
				logging.Warn(logCtx, "hook parse failed",
					slog.String("hook", hookName),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if event == nil {
				return nil
			}

			store, err := session.NewStore()
			if err != nil {
				logging.Warn(logCtx, "session store unavailable", slog.String("error", err.Error()))
				return nil
			}

			dispatcher := heartbeat.NewDispatcher()
			router := newDefaultRouter(store, dispatcher)
			defer router.telemetry.Close()

			if err := router.DispatchLifecycleEvent(ag, event); err != nil {
				logging.Warn(logCtx, "event dispatch failed",
					slog.String("hook", hookName),
					slog.String("error", err.Error()),
				)
			}

			dispatcher.WaitTimeout(spawnGrace)
			return nil
		},
	}
}

// newDefaultRouter builds a router with telemetry wired per settings.
func newDefaultRouter(store *session.Store, dispatcher *heartbeat.Dispatcher) *Router {
	cfg, _ := settings.Load()
	r := NewRouter(store, dispatcher)
	r.telemetry = telemetry.New(cfg.Tracking.Telemetry)
	return r
}

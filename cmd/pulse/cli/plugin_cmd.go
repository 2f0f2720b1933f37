package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/pulsehq/cli/cmd/pulse/cli/agent"
	"github.com/pulsehq/cli/cmd/pulse/cli/heartbeat"
	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
	"github.com/pulsehq/cli/cmd/pulse/cli/session"
)

// maxEventLine bounds a single event line. Write-tool payloads carry full
// file contents, so the limit is generous.
const maxEventLine = 10 * 1024 * 1024

func newPluginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugin <agent>",
		Short: "Run as a long-lived plugin reading lifecycle events from stdin",
		Long:  "Read newline-delimited JSON hook events from stdin until EOF. Each line carries the host's hook_event_name plus the usual hook payload.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ag, err := agent.Get(agent.Name(args[0]))
			if err != nil {
				return err
			}

			store, err := session.NewStore()
			if err != nil {
				return err
			}
			router := newDefaultRouter(store, heartbeat.NewDispatcher())
			defer router.telemetry.Close()

			return runPluginLoop(cmd.Context(), ag, cmd.InOrStdin(), router)
		},
	}
}

func runPluginLoop(ctx context.Context, ag agent.Agent, r io.Reader, router *Router) error {
	logCtx := logging.WithComponent(ctx, "plugin")
	hookNames := ag.HookNames()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var envelope struct {
			HookEventName string `json:"hook_event_name"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			logging.Debug(logCtx, "unparseable event line", slog.String("error", err.Error()))
			continue
		}

		verb := hookVerb(envelope.HookEventName)
		if !slices.Contains(hookNames, verb) {
			continue
		}

		event, err := ag.ParseHookEvent(verb, bytes.NewReader(line))
		if err != nil {
			logging.Warn(logCtx, "event parse failed",
				slog.String("hook", verb),
				slog.String("error", err.Error()),
			)
			continue
		}
		if event == nil {
			continue
		}

		if err := router.DispatchLifecycleEvent(ag, event); err != nil {
			logging.Warn(logCtx, "event dispatch failed",
				slog.String("hook", verb),
				slog.String("error", err.Error()),
			)
		}
	}

	// Give in-flight heartbeats their full window before exiting.
	router.dispatcher.WaitTimeout(heartbeat.DefaultTimeout)
	return scanner.Err()
}

// hookVerb converts a host event name like "PostToolUse" into the kebab-case
// hook verb ("post-tool-use") used by the agent registry.
func hookVerb(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/telemetry"
)

func newToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle",
		Short: "Toggle tracking for all active sessions",
		Long:  "Flip heartbeat dispatch on or off for every active session. The settings file is not modified; new sessions start from its defaults.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToggle(cmd.OutOrStdout())
		},
	}
}

func runToggle(w io.Writer) error {
	store, err := session.NewStore()
	if err != nil {
		return err
	}
	states, err := store.List()
	if err != nil {
		return err
	}
	if len(states) == 0 {
		fmt.Fprintln(w, "No active sessions.")
		return nil
	}

	// A mixed set converges: if anything is on, everything turns off.
	target := true
	for _, st := range states {
		if st.Enabled {
			target = false
			break
		}
	}

	for _, st := range states {
		st.Enabled = target
		if err := store.Save(st); err != nil {
			return fmt.Errorf("updating session %s: %w", st.SessionID, err)
		}
	}

	cfg, _ := settings.Load()
	tcl := telemetry.New(cfg.Tracking.Telemetry)
	tcl.Capture("tracking_toggled", map[string]any{"enabled": target, "sessions": len(states)})
	tcl.Close()

	sty := newStatusStyles(w)
	if target {
		fmt.Fprintf(w, "%s Tracking enabled for %d session(s)\n", sty.render(sty.green, "●"), len(states))
	} else {
		fmt.Fprintf(w, "%s Tracking disabled for %d session(s)\n", sty.render(sty.red, "○"), len(states))
	}
	return nil
}

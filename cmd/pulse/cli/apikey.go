package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/telemetry"
	"github.com/pulsehq/cli/cmd/pulse/cli/wakatime"
)

func newSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key [api-key]",
		Short: "Configure the WakaTime API key",
		Long:  "Store the WakaTime (or Hackatime) API key in ~/.wakatime.cfg. Prompts interactively when no key is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				var err error
				key, err = promptAPIKey()
				if err != nil {
					return err
				}
			}
			return runSetKey(cmd.OutOrStdout(), key)
		},
	}
}

func promptAPIKey() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("api key required: pass it as an argument when not running interactively")
	}

	var key string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("WakaTime API key").
			Description("Found at wakatime.com/settings (or your Hackatime account)").
			EchoMode(huh.EchoModePassword).
			Value(&key).
			Validate(func(s string) error {
				if !wakatime.ValidAPIKey(s) {
					return errors.New("expected a UUID, optionally prefixed with waka_")
				}
				return nil
			}),
	))
	if err := form.Run(); err != nil {
		return "", err
	}
	return key, nil
}

func runSetKey(w io.Writer, key string) error {
	if err := wakatime.SetAPIKey(key); err != nil {
		return err
	}

	// Sessions disabled at start for the missing credential come back on.
	reenabled := 0
	if store, err := session.NewStore(); err == nil {
		if states, err := store.List(); err == nil {
			for _, st := range states {
				if st.Enabled {
					continue
				}
				st.Enabled = true
				if err := store.Save(st); err == nil {
					reenabled++
				}
			}
		}
	}

	cfg, _ := settings.Load()
	tcl := telemetry.New(cfg.Tracking.Telemetry)
	tcl.Capture("api_key_configured", nil) // never the key itself
	tcl.Close()

	fmt.Fprintf(w, "API key saved to ~/%s\n", wakatime.ConfigFileName)
	if reenabled > 0 {
		fmt.Fprintf(w, "Tracking re-enabled for %d session(s)\n", reenabled)
	}
	return nil
}

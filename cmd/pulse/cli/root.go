// Package cli implements the pulse command tree and the lifecycle event
// router behind it.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
	"github.com/pulsehq/cli/cmd/pulse/cli/paths"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/version"
	"github.com/pulsehq/cli/cmd/pulse/cli/wakatime"
)

// Execute runs the root command. Called from main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logCleanup func()

	root := &cobra.Command{
		Use:           version.Name,
		Short:         "Automatic time tracking for AI coding agents",
		Long:          "Pulse converts coding-agent activity into WakaTime heartbeats via wakatime-cli.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			logCleanup = initLogging()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logCleanup != nil {
				logCleanup()
			}
		},
	}

	root.AddCommand(
		newStatusCmd(),
		newToggleCmd(),
		newSetKeyCmd(),
		newHooksCmd(),
		newPluginCmd(),
		newVersionCmd(),
	)

	return root
}

// initLogging routes structured logs to ~/.pulse/pulse.log. The level comes
// from PULSE_LOG_LEVEL, then settings, then the info default.
func initLogging() func() {
	level := os.Getenv("PULSE_LOG_LEVEL")
	if level == "" {
		cfg, _ := settings.Load()
		level = cfg.Tracking.LogLevel
	}

	dir, err := paths.DataDir()
	if err != nil {
		return func() {}
	}
	return logging.InitFile(dir, level)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the plugin and wakatime-cli versions",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", version.Name, version.Version)

			cfg, _ := settings.Load()
			cliPath := wakatime.Locate(cfg.Tracking.CLIPath)
			if cliPath == "" {
				fmt.Fprintln(w, "wakatime-cli not found")
				return
			}
			if v, err := wakatime.Version(cmd.Context(), cliPath); err == nil {
				fmt.Fprintf(w, "wakatime-cli %s\n", v)
			}
		},
	}
}

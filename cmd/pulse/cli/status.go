package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/settings"
	"github.com/pulsehq/cli/cmd/pulse/cli/wakatime"
)

func newStatusCmd() *cobra.Command {
	var today bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracking status",
		Long:  "Show whether tracking is enabled, wakatime-cli availability, credential state, and active sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), today)
		},
	}

	cmd.Flags().BoolVar(&today, "today", false, "Also query wakatime-cli for today's tracked total")

	return cmd
}

func runStatus(ctx context.Context, w io.Writer, today bool) error {
	sty := newStatusStyles(w)
	cfg, _ := settings.Load() // defaults on any failure

	fmt.Fprintln(w)
	fmt.Fprintln(w, formatTrackingStatus(cfg, sty))

	cliPath := wakatime.Locate(cfg.Tracking.CLIPath)
	fmt.Fprintln(w, formatCLIStatus(ctx, cliPath, sty))
	fmt.Fprintln(w, formatCredentialStatus(sty))

	if today && cliPath != "" {
		if total, err := wakatime.TodayTotal(ctx, cliPath); err == nil && total != "" {
			fmt.Fprintf(w, "%s %s\n", sty.render(sty.dim, "today ·"), total)
		}
	}

	writeActiveSessions(w, sty)
	return nil
}

// formatTrackingStatus renders the headline line, e.g.
// "● Enabled · coding" or "○ Disabled".
func formatTrackingStatus(cfg *settings.Settings, sty statusStyles) string {
	var b strings.Builder

	if cfg.Tracking.Enabled {
		b.WriteString(sty.render(sty.green, "●"))
		b.WriteString(" ")
		b.WriteString(sty.render(sty.bold, "Enabled"))
		b.WriteString(sty.render(sty.dim, " · "))
		b.WriteString(cfg.Tracking.Category)
	} else {
		b.WriteString(sty.render(sty.red, "○"))
		b.WriteString(" ")
		b.WriteString(sty.render(sty.bold, "Disabled"))
	}

	if cfg.Tracking.APIURL != "" {
		b.WriteString(sty.render(sty.dim, " · "))
		b.WriteString(sty.render(sty.cyan, cfg.Tracking.APIURL))
	}

	return b.String()
}

func formatCLIStatus(ctx context.Context, cliPath string, sty statusStyles) string {
	if cliPath == "" {
		return "✕ wakatime-cli not found (install to ~/.wakatime/ or set tracking.cli_path)"
	}

	line := sty.render(sty.dim, "wakatime-cli · ") + cliPath
	if v, err := wakatime.Version(ctx, cliPath); err == nil && v != "" {
		line += sty.render(sty.dim, " · ") + v
	}
	return line
}

func formatCredentialStatus(sty statusStyles) string {
	if wakatime.APIKey() == "" {
		return "✕ API key missing (run `pulse set-key`)"
	}
	return sty.render(sty.dim, "API key · ") + "configured"
}

// writeActiveSessions lists persisted sessions, newest first.
func writeActiveSessions(w io.Writer, sty statusStyles) {
	store, err := session.NewStore()
	if err != nil {
		return
	}
	states, err := store.List()
	if err != nil || len(states) == 0 {
		return
	}

	sort.Slice(states, func(i, j int) bool {
		return states[i].StartedAt.After(states[j].StartedAt)
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, sty.sectionRule("Active Sessions", sty.width))
	fmt.Fprintln(w)

	for _, st := range states {
		agentLabel := st.AgentName
		if agentLabel == "" {
			agentLabel = "(unknown)"
		}
		shortID := st.SessionID
		if len(shortID) > 7 {
			shortID = shortID[:7]
		}

		fmt.Fprintf(w, "%s %s %s\n",
			sty.render(sty.agent, agentLabel),
			sty.render(sty.dim, "·"),
			shortID)

		var details []string
		if st.Project != "" {
			details = append(details, st.Project)
		}
		if st.Branch != "" {
			details = append(details, "branch "+st.Branch)
		}
		if st.Model != "" {
			details = append(details, st.Model)
		}
		if len(details) > 0 {
			fmt.Fprintf(w, "  %s\n", sty.render(sty.dim, strings.Join(details, " · ")))
		}

		var stats []string
		stats = append(stats, "started "+timeAgo(st.StartedAt))
		if !st.Enabled {
			stats = append(stats, "tracking off")
		}
		fmt.Fprintf(w, "  %s\n", sty.render(sty.dim, strings.Join(stats, " · ")))
		fmt.Fprintln(w)
	}
}

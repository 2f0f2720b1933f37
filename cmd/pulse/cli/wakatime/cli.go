package wakatime

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
)

// minCLIVersion is the oldest wakatime-cli known to accept the
// --ai-line-changes flag. Older versions still work; the flag is ignored.
const minCLIVersion = "v1.90.0"

const probeTimeout = 5 * time.Second

// Locate resolves the wakatime-cli binary path. Discovery order: the
// configured override, the standard install location (~/.wakatime/), then
// $PATH. Returns "" when no binary is found.
func Locate(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
		return ""
	}

	if home, err := os.UserHomeDir(); err == nil {
		name := "wakatime-cli"
		if runtime.GOOS == "windows" {
			name += ".exe"
		}
		candidate := filepath.Join(home, ".wakatime", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	if path, err := exec.LookPath("wakatime-cli"); err == nil {
		return path
	}
	return ""
}

// Version probes the binary for its version string.
func Version(ctx context.Context, cliPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, cliPath, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// CheckVersion probes the binary and logs a warning when it predates
// minCLIVersion. Never fails: an old or unprobeable CLI still receives
// heartbeats.
func CheckVersion(ctx context.Context, cliPath string) {
	logCtx := logging.WithComponent(ctx, "wakatime")

	v, err := Version(ctx, cliPath)
	if err != nil {
		logging.Debug(logCtx, "version probe failed", slog.String("error", err.Error()))
		return
	}
	canonical := v
	if !strings.HasPrefix(canonical, "v") {
		canonical = "v" + canonical
	}
	if !semver.IsValid(canonical) {
		logging.Debug(logCtx, "unparseable version", slog.String("version", v))
		return
	}
	if semver.Compare(canonical, minCLIVersion) < 0 {
		logging.Warn(logCtx, "wakatime-cli is older than the recommended minimum",
			slog.String("version", v),
			slog.String("minimum", minCLIVersion),
		)
	}
}

// TodayTotal queries the CLI for today's cumulative tracked time as text.
func TodayTotal(ctx context.Context, cliPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, cliPath, "--today").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Package heartbeat builds normalized heartbeat requests from partial
// inputs plus ambient session state and hands them to wakatime-cli for
// asynchronous, fire-and-forget execution. Queueing, rate limiting and
// delivery are the CLI's job; this package only guarantees correct
// construction and dispatch.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pulsehq/cli/cmd/pulse/cli/logging"
	"github.com/pulsehq/cli/cmd/pulse/cli/session"
	"github.com/pulsehq/cli/cmd/pulse/cli/version"
)

// EntityType classifies the subject of a heartbeat.
type EntityType string

// Entity types accepted by wakatime-cli.
const (
	EntityFile   EntityType = "file"
	EntityApp    EntityType = "app"
	EntityDomain EntityType = "domain"
)

// DefaultTimeout bounds each external invocation so a hung CLI process
// cannot accumulate.
const DefaultTimeout = 10 * time.Second

// Request is a partial heartbeat. Category, Project and Branch inherit from
// session state when empty; an explicit value wins. A request is constructed
// once, dispatched once, and discarded.
type Request struct {
	// Entity is the absolute file path, or a location identifier for
	// session-level pings.
	Entity string

	EntityType EntityType

	Category string
	Project  string
	Branch   string

	// IsWrite marks write/edit activity. Read heartbeats never set it.
	IsWrite bool

	// AILineChanges is the AI-authored line-change count; 0 means absent.
	AILineChanges int

	// Time defaults to now when zero.
	Time time.Time
}

// Runner executes the external CLI. Injected so the router and dispatcher
// are testable without spawning processes.
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// Dispatcher issues fire-and-forget wakatime-cli invocations. The result is
// observed only for diagnostic logging; it never reaches session state or
// the caller. There is no cancellation on session end: in-flight
// invocations are abandoned, not cancelled.
type Dispatcher struct {
	runner  Runner
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher backed by real subprocess execution.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{runner: execRunner{}, timeout: DefaultTimeout}
}

// NewDispatcherWithRunner returns a dispatcher with an injected runner.
func NewDispatcherWithRunner(r Runner) *Dispatcher {
	return &Dispatcher{runner: r, timeout: DefaultTimeout}
}

// Send merges req with session defaults and dispatches it asynchronously.
// Silent no-op unless the session is enabled and the CLI is available: the
// gating is a feature, not a failure path. Send never blocks on the
// external process.
func (d *Dispatcher) Send(st *session.State, req Request) {
	if !st.Enabled || !st.CLIAvailable {
		return
	}

	merged := merge(st, req)
	plugin := PluginIdentifier(st.AgentName, st.AgentVersion, st.Model)
	args := BuildArgs(merged, st.APIURL, plugin)
	cliPath := st.CLIPath

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		logCtx := logging.WithComponent(ctx, "heartbeat")
		start := time.Now()
		if err := d.runner.Run(ctx, cliPath, args); err != nil {
			// Heartbeat loss is acceptable degradation; never retried,
			// never surfaced.
			logging.Debug(logCtx, "dispatch failed",
				slog.String("entity", merged.Entity),
				slog.String("error", err.Error()),
				slog.Duration("elapsed", time.Since(start)),
			)
			return
		}
		logging.Debug(logCtx, "heartbeat sent",
			slog.String("entity", merged.Entity),
			slog.Bool("write", merged.IsWrite),
			slog.Duration("elapsed", time.Since(start)),
		)
	}()
}

// Wait blocks until all in-flight dispatches complete. Tests and the
// plugin event loop's shutdown grace use it; hook handlers never do.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// WaitTimeout waits up to limit for in-flight dispatches, reporting whether
// they all finished.
func (d *Dispatcher) WaitTimeout(limit time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(limit):
		return false
	}
}

// merge fills absent request fields from session state. Explicit field wins
// over session default; session default wins over absence.
func merge(st *session.State, req Request) Request {
	if req.EntityType == "" {
		req.EntityType = EntityFile
	}
	if req.Category == "" {
		req.Category = st.Category
	}
	if req.Project == "" {
		req.Project = st.Project
	}
	if req.Branch == "" {
		req.Branch = st.Branch
	}
	if req.Time.IsZero() {
		req.Time = time.Now()
	}
	return req
}

// PluginIdentifier composes the plugin string from the host application's
// name and version, this plugin's identity, and the active model when known.
func PluginIdentifier(agentName, agentVersion, model string) string {
	if agentName == "" {
		agentName = "unknown"
	}
	if agentVersion == "" {
		agentVersion = "unknown"
	}
	id := fmt.Sprintf("%s/%s %s/%s", agentName, agentVersion, version.Name, version.Version)
	if model != "" {
		id += " model/" + model
	}
	return id
}

// BuildArgs serializes a merged request into wakatime-cli arguments.
func BuildArgs(req Request, apiURL, plugin string) []string {
	args := []string{
		"--entity", req.Entity,
		"--entity-type", string(req.EntityType),
		"--time", fmt.Sprintf("%.3f", float64(req.Time.UnixMilli())/1000.0),
		"--plugin", plugin,
	}

	if req.Category != "" {
		args = append(args, "--category", req.Category)
	}
	if req.Project != "" {
		args = append(args, "--alternate-project", req.Project)
	}
	if req.Branch != "" {
		args = append(args, "--alternate-branch", req.Branch)
	}
	if req.AILineChanges > 0 {
		args = append(args, "--ai-line-changes", strconv.Itoa(req.AILineChanges))
	}
	if apiURL != "" {
		args = append(args, "--api-url", apiURL)
	}
	if req.IsWrite {
		args = append(args, "--write")
	}

	return args
}

// CountLines returns the number of newline-delimited segments in content.
// A full-file write of N segments reports exactly N.
func CountLines(content string) int {
	return strings.Count(content, "\n") + 1
}

// EditLineChanges returns the line-change magnitude for an in-place edit:
// the absolute difference between the old and new segment counts, floored
// at 1. A net-zero change still reports 1, since some edit occurred. This
// is an undercount-avoidance policy, not a diff.
func EditLineChanges(oldText, newText string) int {
	diff := CountLines(oldText) - CountLines(newText)
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return 1
	}
	return diff
}

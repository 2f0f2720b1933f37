// Package telemetry reports anonymous product usage to PostHog. Reporting is
// opt-in via settings and compiled out entirely when no project key is set at
// build time. Events carry no file paths, project names, or credentials.
package telemetry

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"

	"github.com/pulsehq/cli/cmd/pulse/cli/version"
)

// posthogAPIKey is injected at build time via -ldflags. Empty in local
// builds, which disables telemetry regardless of settings.
var posthogAPIKey string

const posthogEndpoint = "https://us.i.posthog.com"

// Client wraps a PostHog client with a stable anonymous identity. The zero
// value and nil are both safe: every method no-ops.
type Client struct {
	ph         posthog.Client
	distinctID string
}

// New returns a telemetry client, or nil when telemetry is disabled or the
// build carries no project key. Callers never need to nil-check before use.
func New(enabled bool) *Client {
	if !enabled || posthogAPIKey == "" {
		return nil
	}

	ph, err := posthog.NewWithConfig(posthogAPIKey, posthog.Config{Endpoint: posthogEndpoint})
	if err != nil {
		return nil
	}

	id, err := machineid.ProtectedID(version.Name)
	if err != nil {
		id = "anonymous"
	}
	return &Client{ph: ph, distinctID: id}
}

// Capture enqueues an event. Delivery is asynchronous and best-effort.
func (c *Client) Capture(event string, props map[string]any) {
	if c == nil || c.ph == nil {
		return
	}

	p := posthog.NewProperties().Set("version", version.Version)
	for k, v := range props {
		p.Set(k, v)
	}
	_ = c.ph.Enqueue(posthog.Capture{
		DistinctId: c.distinctID,
		Event:      event,
		Properties: p,
	})
}

// Close flushes pending events. Safe on nil.
func (c *Client) Close() {
	if c == nil || c.ph == nil {
		return
	}
	_ = c.ph.Close()
}

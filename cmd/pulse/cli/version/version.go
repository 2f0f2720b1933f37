// Package version holds build identity shared across the CLI.
package version

// Name is the plugin's fixed name as reported to wakatime-cli.
const Name = "pulse"

// Version is the plugin version. Overridden at release time via -ldflags.
var Version = "1.2.0"

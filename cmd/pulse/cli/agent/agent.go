// Package agent provides interfaces and types for integrating with coding
// agents. Each agent implementation converts its native hook payloads into
// the normalized Event type so the same lifecycle router works for any host.
package agent

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Name is an agent registry key (e.g. "claude-code").
type Name string

// Agent defines the interface for interacting with a coding agent host.
type Agent interface {
	// Name returns the agent registry key.
	Name() Name

	// Description returns a human-readable description for UI.
	Description() string

	// HookNames returns the hook verbs this agent supports. These become
	// subcommands under `pulse hooks <agent>` and the accepted event
	// names on the plugin event stream.
	HookNames() []string

	// ParseHookEvent translates an agent-native hook payload into a
	// normalized lifecycle Event. Returns nil if the hook has no
	// lifecycle significance.
	ParseHookEvent(hookName string, stdin io.Reader) (*Event, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[Name]Agent{}
)

// Register adds an agent implementation to the registry. Called from the
// implementation package's init.
func Register(ag Agent) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[ag.Name()] = ag
}

// Get returns the registered agent with the given name.
func Get(name Name) (Agent, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ag, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s", name)
	}
	return ag, nil
}

// List returns registered agent names in stable order.
func List() []Name {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]Name, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

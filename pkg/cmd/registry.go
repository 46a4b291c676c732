package cmd

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry stores commands by name and alias. It does not perform dispatch;
// each adapter looks up commands and invokes them with its own context.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	aliases  map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}
}

// Register adds a command under its name and aliases. A name or alias that
// is already taken is an error.
func (r *Registry) Register(c Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := []string{c.Name()}
	if a, ok := Root(c).(Aliased); ok {
		names = append(names, a.Aliases()...)
	}
	for _, n := range names {
		n = strings.ToLower(n)
		if _, ok := r.commands[n]; ok {
			return fmt.Errorf("command name %q already registered", n)
		}
		if _, ok := r.aliases[n]; ok {
			return fmt.Errorf("command name %q already registered", n)
		}
	}

	r.commands[strings.ToLower(c.Name())] = c
	for _, n := range names[1:] {
		r.aliases[strings.ToLower(n)] = strings.ToLower(c.Name())
	}
	return nil
}

// Get returns the command registered under name or alias, or nil.
// Lookup ignores case.
func (r *Registry) Get(name string) Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	if c, ok := r.commands[name]; ok {
		return c
	}
	if target, ok := r.aliases[name]; ok {
		return r.commands[target]
	}
	return nil
}

// GetAll returns all registered commands, sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name() < list[j].Name()
	})
	return list
}

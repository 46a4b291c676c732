// Package cmd is the transport-neutral core of the bot's text commands:
// named commands, a registry that resolves names and aliases, and
// middleware that decorates Run.
package cmd

import "context"

// Invocation is one call of a command. Invoked is the name or alias the
// user typed; Data carries whatever the transport needs the command to see.
type Invocation struct {
	Invoked string
	Args    []string
	Data    any
}

type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Aliased commands can also be invoked by the returned names.
type Aliased interface {
	Aliases() []string
}

// Middleware decorates a command's Run.
type Middleware func(Command) Command

// Apply wraps c with mws. The last middleware ends up outermost.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

type decorated struct {
	Command
	run func(ctx context.Context, inv *Invocation) error
}

func (d *decorated) Run(ctx context.Context, inv *Invocation) error { return d.run(ctx, inv) }

// Wrap returns c with Run replaced by run. Name and description stay those
// of c, and Root can still reach c.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &decorated{Command: c, run: run}
}

// Root strips every Wrap layer off c.
func Root(c Command) Command {
	for {
		d, ok := c.(*decorated)
		if !ok {
			return c
		}
		c = d.Command
	}
}

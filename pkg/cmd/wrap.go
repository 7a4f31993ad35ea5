package cmd

import "context"

// Unwrappable exposes the command a middleware decorated, so adapters can
// reach provider interfaces on the innermost command.
type Unwrappable interface {
	Command
	Unwrap() Command
}

type Wrapped struct {
	Inner   Command
	RunFunc func(ctx context.Context, inv *Invocation) error
}

func (w *Wrapped) Name() string { return w.Inner.Name() }

func (w *Wrapped) Description() string { return w.Inner.Description() }

func (w *Wrapped) Run(ctx context.Context, inv *Invocation) error {
	if w.RunFunc == nil {
		return w.Inner.Run(ctx, inv)
	}
	return w.RunFunc(ctx, inv)
}

func (w *Wrapped) Unwrap() Command { return w.Inner }

// Wrap replaces c's Run with run.
func Wrap(c Command, run func(ctx context.Context, inv *Invocation) error) Command {
	return &Wrapped{Inner: c, RunFunc: run}
}

// Root peels every wrapper off c.
func Root(c Command) Command {
	for {
		u, ok := c.(Unwrappable)
		if !ok {
			return c
		}
		c = u.Unwrap()
	}
}

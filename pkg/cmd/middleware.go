package cmd

// Middleware decorates a command. The result must still report the inner
// command's Name and Description.
type Middleware func(Command) Command

// Apply wraps c with mws in order, so the last middleware runs first.
func Apply(c Command, mws ...Middleware) Command {
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}

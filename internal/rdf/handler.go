package rdf

// Handler receives the events of one decode session. StartRDF and EndRDF bound
// the session; any error returned by a method aborts the decode and is returned
// to the caller unchanged.
type Handler interface {
	StartRDF() error
	HandleNamespace(prefix, iri string) error
	HandleStatement(st Statement) error
	HandleComment(text string) error
	EndRDF() error
}

// Nop is a Handler that ignores every event.
type Nop struct{}

func (Nop) StartRDF() error                      { return nil }
func (Nop) HandleNamespace(string, string) error { return nil }
func (Nop) HandleStatement(Statement) error      { return nil }
func (Nop) HandleComment(string) error           { return nil }
func (Nop) EndRDF() error                        { return nil }

// Wrapper forwards every event to Handler. Embed it and override the methods
// that need different behaviour.
type Wrapper struct {
	Handler Handler
}

func (w Wrapper) StartRDF() error { return w.Handler.StartRDF() }

func (w Wrapper) HandleNamespace(prefix, iri string) error {
	return w.Handler.HandleNamespace(prefix, iri)
}

func (w Wrapper) HandleStatement(st Statement) error { return w.Handler.HandleStatement(st) }

func (w Wrapper) HandleComment(text string) error { return w.Handler.HandleComment(text) }

func (w Wrapper) EndRDF() error { return w.Handler.EndRDF() }

type dropStartEnd struct {
	Wrapper
}

func (dropStartEnd) StartRDF() error { return nil }
func (dropStartEnd) EndRDF() error   { return nil }

// DropStartEnd returns a handler forwarding statements, namespaces and comments
// to h while discarding StartRDF and EndRDF. It lets many nested documents feed
// a single logical stream.
func DropStartEnd(h Handler) Handler {
	return dropStartEnd{Wrapper{Handler: h}}
}

// Stats counts the events that went through a Counter.
type Stats struct {
	Statements int
	Namespaces int
	Comments   int
}

// Counter forwards every event to the wrapped handler and counts them.
type Counter struct {
	Wrapper
	Stats Stats
}

// Counting wraps h with a Counter.
func Counting(h Handler) *Counter {
	return &Counter{Wrapper: Wrapper{Handler: h}}
}

func (c *Counter) HandleNamespace(prefix, iri string) error {
	if err := c.Handler.HandleNamespace(prefix, iri); err != nil {
		return err
	}
	c.Stats.Namespaces++
	return nil
}

func (c *Counter) HandleStatement(st Statement) error {
	if err := c.Handler.HandleStatement(st); err != nil {
		return err
	}
	c.Stats.Statements++
	return nil
}

func (c *Counter) HandleComment(text string) error {
	if err := c.Handler.HandleComment(text); err != nil {
		return err
	}
	c.Stats.Comments++
	return nil
}

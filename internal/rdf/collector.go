package rdf

// EventKind identifies a Handler call recorded by a Collector.
type EventKind int

const (
	EventStart EventKind = iota
	EventNamespace
	EventStatement
	EventComment
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventNamespace:
		return "namespace"
	case EventStatement:
		return "statement"
	case EventComment:
		return "comment"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one recorded Handler call. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Prefix    string
	IRI       string
	Statement Statement
	Text      string
}

// Collector is a Handler that records every call in order.
type Collector struct {
	Events []Event
}

func (c *Collector) StartRDF() error {
	c.Events = append(c.Events, Event{Kind: EventStart})
	return nil
}

func (c *Collector) HandleNamespace(prefix, iri string) error {
	c.Events = append(c.Events, Event{Kind: EventNamespace, Prefix: prefix, IRI: iri})
	return nil
}

func (c *Collector) HandleStatement(st Statement) error {
	c.Events = append(c.Events, Event{Kind: EventStatement, Statement: st})
	return nil
}

func (c *Collector) HandleComment(text string) error {
	c.Events = append(c.Events, Event{Kind: EventComment, Text: text})
	return nil
}

func (c *Collector) EndRDF() error {
	c.Events = append(c.Events, Event{Kind: EventEnd})
	return nil
}

// Statements returns the recorded statements in arrival order.
func (c *Collector) Statements() []Statement {
	var out []Statement
	for _, ev := range c.Events {
		if ev.Kind == EventStatement {
			out = append(out, ev.Statement)
		}
	}
	return out
}

// Count returns how many events of kind k were recorded.
func (c *Collector) Count(k EventKind) int {
	n := 0
	for _, ev := range c.Events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

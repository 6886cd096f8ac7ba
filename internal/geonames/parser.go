// Package geonames decodes the GeoNames "all-geonames-rdf.zip" dump.
//
// The archive holds text entries of alternating lines: a feature URL followed
// by a one-line RDF/XML document describing it. Parse turns the whole archive
// into a single RDF stream: the handler sees one StartRDF, the statements of
// every embedded document, and one EndRDF.
package geonames

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/markis/geonames-rdf/internal/framing"
	"github.com/markis/geonames-rdf/internal/rdf"
	"github.com/markis/geonames-rdf/internal/rdfxml"
	"github.com/markis/geonames-rdf/internal/rio"
)

// Format identifies the GeoNames dump in the rio registry.
var Format = rio.Format{
	Name:               "Geonames RDF",
	MIMEType:           "application/x-geonames-rdf",
	Extension:          "geonames",
	SupportsNamespaces: true,
	SupportsContexts:   true,
}

var (
	ErrBinaryInputRequired = errors.New("geonames: binary input required")
	ErrNoHandler           = errors.New("geonames: no handler set")
)

var registerOnce sync.Once

// Init registers Format, and the RDF/XML format its payloads are written in,
// with rio. Calling it more than once has no further effect.
func Init() {
	registerOnce.Do(func() {
		rdfxml.Init()
		_ = rio.Register(Format, func() rio.Parser { return NewParser() })
	})
}

type options struct {
	log         zerolog.Logger
	maxLineSize int
	subParser   func() rio.Parser
}

// Option configures a Parser.
type Option func(*options)

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMaxLineSize bounds the length of a single identifier or payload line.
func WithMaxLineSize(n int) Option {
	return func(o *options) { o.maxLineSize = n }
}

// WithSubParser replaces the RDF/XML parser used for each payload.
func WithSubParser(factory func() rio.Parser) Option {
	return func(o *options) {
		if factory != nil {
			o.subParser = factory
		}
	}
}

// Stats describes the last Parse call.
type Stats struct {
	Entries   int
	Units     int
	Truncated bool
}

// Parser implements rio.Parser for GeoNames archives.
type Parser struct {
	handler rdf.Handler
	opts    options
	stats   Stats
}

func NewParser(opts ...Option) *Parser {
	o := options{
		log:         zerolog.Nop(),
		maxLineSize: framing.DefaultMaxLineSize,
		subParser:   func() rio.Parser { return rdfxml.NewParser() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Parser{opts: o}
}

func (p *Parser) Format() rio.Format { return Format }

func (p *Parser) SetHandler(h rdf.Handler) { p.handler = h }

// Stats returns the counters of the last Parse call.
func (p *Parser) Stats() Stats { return p.stats }

// Parse decodes the archive read from r. The parser owns r for the duration
// of the call and closes it before returning if it is an io.Closer.
//
// EndRDF is only called when the archive was read to its end or to a
// tolerated truncation. Errors raised by the handler are returned unchanged;
// a malformed payload is reported with its entry and line.
func (p *Parser) Parse(ctx context.Context, r io.Reader, baseIRI string) error {
	if p.handler == nil {
		closeQuietly(r)
		return ErrNoHandler
	}
	p.stats = Stats{}

	units := framing.NewReader(r,
		framing.WithMaxLineSize(p.opts.maxLineSize),
		framing.WithLogger(p.opts.log),
	)
	defer units.Close()

	if err := p.handler.StartRDF(); err != nil {
		return err
	}

	inner := &consumer{Wrapper: rdf.Wrapper{Handler: rdf.DropStartEnd(p.handler)}}
	sub := p.opts.subParser()
	sub.SetHandler(inner)

	for units.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		u := units.Unit()
		if err := sub.ParseString(ctx, u.Payload, baseIRI); err != nil {
			if inner.err != nil && errors.Is(err, inner.err) {
				return inner.err
			}
			return fmt.Errorf("geonames: entry %q line %d: %w", u.Entry, u.Line, err)
		}
		p.stats.Units++
	}
	p.stats.Entries = units.Entries()
	p.stats.Truncated = units.Truncated()
	if err := units.Err(); err != nil {
		return err
	}

	p.opts.log.Debug().
		Int("entries", p.stats.Entries).
		Int("units", p.stats.Units).
		Bool("truncated", p.stats.Truncated).
		Msg("archive decoded")
	return p.handler.EndRDF()
}

// ParseString always fails: the dump is only defined as a ZIP byte stream.
func (p *Parser) ParseString(context.Context, string, string) error {
	return ErrBinaryInputRequired
}

// consumer remembers the last error raised by the downstream handler so it
// can be returned as is instead of being reported as a payload error.
type consumer struct {
	rdf.Wrapper
	err error
}

func (c *consumer) keep(err error) error {
	if err != nil {
		c.err = err
	}
	return err
}

func (c *consumer) HandleNamespace(prefix, iri string) error {
	return c.keep(c.Handler.HandleNamespace(prefix, iri))
}

func (c *consumer) HandleStatement(st rdf.Statement) error {
	return c.keep(c.Handler.HandleStatement(st))
}

func (c *consumer) HandleComment(text string) error {
	return c.keep(c.Handler.HandleComment(text))
}

func closeQuietly(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		_ = c.Close()
	}
}

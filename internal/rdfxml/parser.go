// Package rdfxml parses RDF/XML documents into RDF statements.
//
// The parser is lenient in the same places as the GeoNames dumps need it to
// be: unknown datatypes and language tags are accepted, language tags are
// lower-cased, rdf:nodeID labels are kept verbatim and unqualified attributes
// are ignored. Documents that are not well-formed XML are rejected.
package rdfxml

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	uuid "github.com/satori/go.uuid"
	"golang.org/x/net/html/charset"

	"github.com/markis/geonames-rdf/internal/rdf"
	"github.com/markis/geonames-rdf/internal/rio"
)

// Format identifies RDF/XML in the rio registry.
var Format = rio.Format{
	Name:               "RDF/XML",
	MIMEType:           "application/rdf+xml",
	Extension:          "rdf",
	SupportsNamespaces: true,
}

var ErrNoHandler = errors.New("rdfxml: no handler set")

var registerOnce sync.Once

// Init registers Format with rio. It is safe to call any number of times.
func Init() {
	registerOnce.Do(func() {
		_ = rio.Register(Format, func() rio.Parser { return NewParser() })
	})
}

// ParseError reports a malformed document with the position where parsing
// stopped.
type ParseError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rdfxml: %d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

type options struct {
	bnodePrefix string
}

// Option configures a Parser.
type Option func(*options)

// WithBNodePrefix fixes the label prefix of generated blank nodes. By default
// every parse draws a fresh random prefix so that blank nodes of different
// documents never collide.
func WithBNodePrefix(prefix string) Option {
	return func(o *options) { o.bnodePrefix = prefix }
}

// Parser decodes RDF/XML documents. A Parser may be reused for several
// documents but not concurrently.
type Parser struct {
	handler rdf.Handler
	opts    options
}

func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

func (p *Parser) Format() rio.Format { return Format }

func (p *Parser) SetHandler(h rdf.Handler) { p.handler = h }

// Parse decodes one document from r, resolving relative references against
// baseIRI. Errors returned by the handler are passed through unchanged;
// syntax errors are reported as *ParseError.
func (p *Parser) Parse(ctx context.Context, r io.Reader, baseIRI string) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	return p.parse(ctx, dec, baseIRI)
}

// ParseString decodes a document held in memory. The text is already decoded,
// so an encoding named in the XML declaration is ignored.
func (p *Parser) ParseString(ctx context.Context, text, baseIRI string) error {
	dec := xml.NewDecoder(strings.NewReader(text))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	return p.parse(ctx, dec, baseIRI)
}

func (p *Parser) parse(ctx context.Context, dec *xml.Decoder, baseIRI string) error {
	if p.handler == nil {
		return ErrNoHandler
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := &state{dec: dec, h: p.handler, prefix: p.opts.bnodePrefix}
	if s.prefix == "" {
		s.prefix = "genid-" + strings.ReplaceAll(uuid.NewV4().String(), "-", "") + "-"
	}

	if err := p.handler.StartRDF(); err != nil {
		return err
	}
	if err := s.document(baseIRI); err != nil {
		return err
	}
	return p.handler.EndRDF()
}

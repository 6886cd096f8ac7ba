package rdfxml

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markis/geonames-rdf/internal/rdf"
	"github.com/markis/geonames-rdf/internal/rio"
)

const (
	gn   = "http://www.geonames.org/ontology#"
	ex   = "http://example.org/"
	rdfs = "http://www.w3.org/2000/01/rdf-schema#"
)

const geonamesFeature = `<?xml version="1.0" encoding="UTF-8" standalone="no"?><rdf:RDF xmlns:gn="http://www.geonames.org/ontology#" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:rdfs="http://www.w3.org/2000/01/rdf-schema#" xmlns:wgs84_pos="http://www.w3.org/2003/01/geo/wgs84_pos#"><gn:Feature rdf:about="http://sws.geonames.org/3169070/"><rdfs:isDefinedBy rdf:resource="http://sws.geonames.org/3169070/about.rdf"/><gn:name>Roma</gn:name><gn:alternateName xml:lang="IT">Roma</gn:alternateName><gn:featureClass rdf:resource="http://www.geonames.org/ontology#P"/><gn:countryCode>IT</gn:countryCode><wgs84_pos:lat>41.89193</wgs84_pos:lat></gn:Feature></rdf:RDF>`

func parse(t *testing.T, doc, base string, opts ...Option) *rdf.Collector {
	t.Helper()
	var c rdf.Collector
	p := NewParser(append([]Option{WithBNodePrefix("b")}, opts...)...)
	p.SetHandler(&c)
	require.NoError(t, p.ParseString(context.Background(), doc, base))
	return &c
}

func TestParser_GeonamesFeature(t *testing.T) {
	c := parse(t, geonamesFeature, "http://sws.geonames.org/")

	require.Equal(t, rdf.EventStart, c.Events[0].Kind)
	require.Equal(t, rdf.EventEnd, c.Events[len(c.Events)-1].Kind)
	assert.Equal(t, 4, c.Count(rdf.EventNamespace))

	feature := rdf.IRI("http://sws.geonames.org/3169070/")
	want := []rdf.Statement{
		{Subject: feature, Predicate: rdf.RDFType, Object: rdf.IRI(gn + "Feature")},
		{Subject: feature, Predicate: rdfs + "isDefinedBy", Object: rdf.IRI("http://sws.geonames.org/3169070/about.rdf")},
		{Subject: feature, Predicate: gn + "name", Object: rdf.Literal{Label: "Roma"}},
		{Subject: feature, Predicate: gn + "alternateName", Object: rdf.Literal{Label: "Roma", Lang: "it"}},
		{Subject: feature, Predicate: gn + "featureClass", Object: rdf.IRI(gn + "P")},
		{Subject: feature, Predicate: gn + "countryCode", Object: rdf.Literal{Label: "IT"}},
		{Subject: feature, Predicate: "http://www.w3.org/2003/01/geo/wgs84_pos#lat", Object: rdf.Literal{Label: "41.89193"}},
	}
	if diff := cmp.Diff(want, c.Statements()); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestParser_NamespacesInDocumentOrder(t *testing.T) {
	c := parse(t, `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns="http://example.org/"><rdf:Description rdf:about="http://example.org/s" xmlns:gn="http://www.geonames.org/ontology#"/></rdf:RDF>`, "")

	var got []rdf.Event
	for _, ev := range c.Events {
		if ev.Kind == rdf.EventNamespace {
			got = append(got, ev)
		}
	}
	assert.Equal(t, []rdf.Event{
		{Kind: rdf.EventNamespace, Prefix: "rdf", IRI: rdf.RDFNamespace},
		{Kind: rdf.EventNamespace, Prefix: "", IRI: ex},
		{Kind: rdf.EventNamespace, Prefix: "gn", IRI: gn},
	}, got)
}

func TestParser_RelativeReferences(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <rdf:Description rdf:about="a"><ex:p rdf:resource="../b"/></rdf:Description>
  <rdf:Description rdf:ID="c"><ex:p rdf:resource=""/></rdf:Description>
  <rdf:Description xml:base="http://other.org/base/" rdf:about="d"><ex:p rdf:resource="e"/></rdf:Description>
</rdf:RDF>`
	c := parse(t, doc, "http://example.org/dir/doc#frag")

	assert.Equal(t, []rdf.Statement{
		{Subject: rdf.IRI("http://example.org/dir/a"), Predicate: ex + "p", Object: rdf.IRI("http://example.org/b")},
		{Subject: rdf.IRI("http://example.org/dir/doc#c"), Predicate: ex + "p", Object: rdf.IRI("http://example.org/dir/doc")},
		{Subject: rdf.IRI("http://other.org/base/d"), Predicate: ex + "p", Object: rdf.IRI("http://other.org/base/e")},
	}, c.Statements())
}

func TestParser_BlankNodes(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <ex:Place>
    <ex:near><ex:Place rdf:nodeID="n9" ex:label="there"/></ex:near>
    <ex:address rdf:parseType="Resource"><ex:city>Trento</ex:city></ex:address>
  </ex:Place>
</rdf:RDF>`
	c := parse(t, doc, "")

	assert.Equal(t, []rdf.Statement{
		{Subject: rdf.BNode("b1"), Predicate: rdf.RDFType, Object: rdf.IRI(ex + "Place")},
		{Subject: rdf.BNode("b1"), Predicate: ex + "near", Object: rdf.BNode("n9")},
		{Subject: rdf.BNode("n9"), Predicate: rdf.RDFType, Object: rdf.IRI(ex + "Place")},
		{Subject: rdf.BNode("n9"), Predicate: ex + "label", Object: rdf.Literal{Label: "there"}},
		{Subject: rdf.BNode("b1"), Predicate: ex + "address", Object: rdf.BNode("b2")},
		{Subject: rdf.BNode("b2"), Predicate: ex + "city", Object: rdf.Literal{Label: "Trento"}},
	}, c.Statements())
}

func TestParser_GeneratedBlankNodesDifferPerParse(t *testing.T) {
	doc := `<rdf:Description xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/" ex:p="v"/>`
	var c rdf.Collector
	p := NewParser()
	p.SetHandler(&c)

	require.NoError(t, p.ParseString(context.Background(), doc, ""))
	require.NoError(t, p.ParseString(context.Background(), doc, ""))

	sts := c.Statements()
	require.Len(t, sts, 2)
	assert.NotEqual(t, sts[0].Subject, sts[1].Subject)
	assert.Contains(t, sts[0].Subject.String(), "_:genid-")
}

func TestParser_Literals(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/" xml:lang="EN-GB">
  <rdf:Description rdf:about="http://example.org/s">
    <ex:name>colour</ex:name>
    <ex:count rdf:datatype="http://www.w3.org/2001/XMLSchema#int">42</ex:count>
    <ex:code xml:lang="">X1</ex:code>
    <ex:markup rdf:parseType="Literal"><b xmlns="http://www.w3.org/1999/xhtml">bold &amp; <i>it</i></b></ex:markup>
  </rdf:Description>
</rdf:RDF>`
	c := parse(t, doc, "")

	s := rdf.IRI(ex + "s")
	assert.Equal(t, []rdf.Statement{
		{Subject: s, Predicate: ex + "name", Object: rdf.Literal{Label: "colour", Lang: "en-gb"}},
		{Subject: s, Predicate: ex + "count", Object: rdf.Literal{Label: "42", Datatype: rdf.XSDNamespace + "int"}},
		{Subject: s, Predicate: ex + "code", Object: rdf.Literal{Label: "X1"}},
		{Subject: s, Predicate: ex + "markup", Object: rdf.Literal{
			Label:    `<b xmlns="http://www.w3.org/1999/xhtml">bold &amp; <i>it</i></b>`,
			Datatype: rdf.RDFXMLLiteral,
		}},
	}, c.Statements())
}

func TestParser_XMLLiteralKeepsWhitespace(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">` +
		`<rdf:Description rdf:about="http://example.org/s">` +
		"<ex:markup rdf:parseType=\"Literal\"><b>a\tb\r\nc &gt; d</b></ex:markup>" +
		`</rdf:Description></rdf:RDF>`
	c := parse(t, doc, "")

	sts := c.Statements()
	require.Len(t, sts, 1)
	// the decoder normalizes \r\n to \n
	assert.Equal(t, rdf.Literal{Label: "<b>a\tb\nc &gt; d</b>", Datatype: rdf.RDFXMLLiteral}, sts[0].Object)
}

const latin1Feature = `<?xml version="1.0" encoding="ISO-8859-1"?>` +
	`<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:gn="http://www.geonames.org/ontology#">` +
	`<rdf:Description rdf:about="http://sws.geonames.org/2657896/"><gn:name>Zürich</gn:name></rdf:Description>` +
	`</rdf:RDF>`

func TestParser_ParseStringIgnoresDeclaredEncoding(t *testing.T) {
	c := parse(t, latin1Feature, "")

	sts := c.Statements()
	require.Len(t, sts, 1)
	assert.Equal(t, rdf.Literal{Label: "Zürich"}, sts[0].Object)
}

func TestParser_ParseDecodesDeclaredEncoding(t *testing.T) {
	latin1 := strings.Replace(latin1Feature, "ü", "\xfc", 1)
	var c rdf.Collector
	p := NewParser()
	p.SetHandler(&c)

	require.NoError(t, p.Parse(context.Background(), strings.NewReader(latin1), ""))

	sts := c.Statements()
	require.Len(t, sts, 1)
	assert.Equal(t, rdf.Literal{Label: "Zürich"}, sts[0].Object)
}

func TestParser_ContainersAndCollections(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/">
  <rdf:Bag rdf:about="http://example.org/bag"><rdf:li>one</rdf:li><rdf:li>two</rdf:li></rdf:Bag>
  <rdf:Description rdf:about="http://example.org/s">
    <ex:list rdf:parseType="Collection"><rdf:Description rdf:about="http://example.org/x"/><rdf:Description rdf:about="http://example.org/y"/></ex:list>
    <ex:empty rdf:parseType="Collection"/>
  </rdf:Description>
</rdf:RDF>`
	c := parse(t, doc, "")

	bag := rdf.IRI(ex + "bag")
	s := rdf.IRI(ex + "s")
	assert.Equal(t, []rdf.Statement{
		{Subject: bag, Predicate: rdf.RDFType, Object: rdf.IRI(rdf.RDFNamespace + "Bag")},
		{Subject: bag, Predicate: rdf.RDFNamespace + "_1", Object: rdf.Literal{Label: "one"}},
		{Subject: bag, Predicate: rdf.RDFNamespace + "_2", Object: rdf.Literal{Label: "two"}},
		{Subject: s, Predicate: ex + "list", Object: rdf.BNode("b1")},
		{Subject: rdf.BNode("b1"), Predicate: rdf.RDFFirst, Object: rdf.IRI(ex + "x")},
		{Subject: rdf.BNode("b1"), Predicate: rdf.RDFRest, Object: rdf.BNode("b2")},
		{Subject: rdf.BNode("b2"), Predicate: rdf.RDFFirst, Object: rdf.IRI(ex + "y")},
		{Subject: rdf.BNode("b2"), Predicate: rdf.RDFRest, Object: rdf.RDFNil},
		{Subject: s, Predicate: ex + "empty", Object: rdf.RDFNil},
	}, c.Statements())
}

func TestParser_Reification(t *testing.T) {
	doc := `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/"><rdf:Description rdf:about="http://example.org/s"><ex:p rdf:ID="st1">v</ex:p></rdf:Description></rdf:RDF>`
	c := parse(t, doc, "http://example.org/doc")

	sts := c.Statements()
	require.Len(t, sts, 5)
	assert.Equal(t, rdf.IRI("http://example.org/doc#st1"), sts[1].Subject)
	assert.Equal(t, rdf.IRI(rdf.RDFNamespace+"Statement"), sts[1].Object)
	assert.Equal(t, rdf.Literal{Label: "v"}, sts[4].Object)
}

func TestParser_Comments(t *testing.T) {
	doc := `<!-- head --><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><!-- inside --></rdf:RDF>`
	c := parse(t, doc, "")

	var texts []string
	for _, ev := range c.Events {
		if ev.Kind == rdf.EventComment {
			texts = append(texts, ev.Text)
		}
	}
	assert.Equal(t, []string{" head ", " inside "}, texts)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty", doc: ""},
		{name: "whitespace", doc: "  \n "},
		{name: "not well formed", doc: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description>`},
		{name: "mismatched tags", doc: `<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"></rdf:Description>`},
		{name: "text in node", doc: `<rdf:Description xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">stray</rdf:Description>`},
		{name: "non empty resource property", doc: `<rdf:Description xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:ex="http://example.org/"><ex:p rdf:resource="x">text</ex:p></rdf:Description>`},
		{name: "two roots", doc: `<rdf:Description xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/><rdf:Description xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			p.SetHandler(rdf.Nop{})

			err := p.ParseString(context.Background(), tt.doc, "")

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.Positive(t, perr.Line)
		})
	}
}

type rejectingHandler struct {
	rdf.Nop
	err error
}

func (h rejectingHandler) HandleStatement(rdf.Statement) error { return h.err }

func TestParser_HandlerErrorPassesThrough(t *testing.T) {
	boom := errors.New("consumer failed")
	p := NewParser()
	p.SetHandler(rejectingHandler{err: boom})

	err := p.ParseString(context.Background(), geonamesFeature, "")

	assert.Same(t, boom, err)
}

func TestParser_NoHandler(t *testing.T) {
	err := NewParser().ParseString(context.Background(), geonamesFeature, "")
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestParser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var c rdf.Collector
	p := NewParser()
	p.SetHandler(&c)

	assert.ErrorIs(t, p.ParseString(ctx, geonamesFeature, ""), context.Canceled)
	assert.Empty(t, c.Events)
}

func TestInit_RegistersOnce(t *testing.T) {
	Init()
	Init()

	f, factory, err := rio.Lookup(Format.MIMEType)
	require.NoError(t, err)
	assert.Equal(t, Format, f)
	assert.Equal(t, Format, factory().Format())
}

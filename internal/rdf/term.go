package rdf

import "strings"

// Well-known vocabulary IRIs.
const (
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	RDFType       IRI = RDFNamespace + "type"
	RDFFirst      IRI = RDFNamespace + "first"
	RDFRest       IRI = RDFNamespace + "rest"
	RDFNil        IRI = RDFNamespace + "nil"
	RDFXMLLiteral IRI = RDFNamespace + "XMLLiteral"
	RDFLangString IRI = RDFNamespace + "langString"
	XSDString     IRI = XSDNamespace + "string"
)

// Term is a node of an RDF statement: an IRI, a blank node or a literal.
type Term interface {
	// String renders the term in N-Triples syntax.
	String() string
	isTerm()
}

// IRI is an absolute resource identifier.
type IRI string

func (i IRI) String() string { return "<" + escapeIRI(string(i)) + ">" }
func (IRI) isTerm()          {}

// BNode is a blank node identified by a document-scoped label.
type BNode string

func (b BNode) String() string { return "_:" + string(b) }
func (BNode) isTerm()          {}

// Literal is a lexical value with an optional language tag or datatype.
// A literal with a language tag has no datatype.
type Literal struct {
	Label    string
	Lang     string
	Datatype IRI
}

func (l Literal) String() string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(escapeLiteral(l.Label))
	b.WriteByte('"')
	switch {
	case l.Lang != "":
		b.WriteByte('@')
		b.WriteString(l.Lang)
	case l.Datatype != "" && l.Datatype != XSDString:
		b.WriteString("^^")
		b.WriteString(l.Datatype.String())
	}
	return b.String()
}

func (Literal) isTerm() {}

// Statement is a quad. A nil Context denotes the default graph.
type Statement struct {
	Subject   Term
	Predicate IRI
	Object    Term
	Context   Term
}

// String renders the statement as an N-Quads line without the trailing newline.
func (s Statement) String() string {
	var b strings.Builder
	b.WriteString(termString(s.Subject))
	b.WriteByte(' ')
	b.WriteString(s.Predicate.String())
	b.WriteByte(' ')
	b.WriteString(termString(s.Object))
	if s.Context != nil {
		b.WriteByte(' ')
		b.WriteString(s.Context.String())
	}
	b.WriteString(" .")
	return b.String()
}

func termString(t Term) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

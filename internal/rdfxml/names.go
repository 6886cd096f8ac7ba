package rdfxml

import (
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/markis/geonames-rdf/internal/rdf"
)

const (
	xmlNS   = "http://www.w3.org/XML/1998/namespace"
	xmlnsNS = "xmlns"
)

func rdfName(local string) xml.Name {
	return xml.Name{Space: rdf.RDFNamespace, Local: local}
}

var (
	nameRDF         = rdfName("RDF")
	nameDescription = rdfName("Description")
	nameLi          = rdfName("li")
	nameAbout       = rdfName("about")
	nameID          = rdfName("ID")
	nameNodeID      = rdfName("nodeID")
	nameResource    = rdfName("resource")
	nameDatatype    = rdfName("datatype")
	nameParseType   = rdfName("parseType")
)

var syntaxAttrs = map[string]bool{
	"about":           true,
	"ID":              true,
	"nodeID":          true,
	"resource":        true,
	"datatype":        true,
	"parseType":       true,
	"aboutEach":       true,
	"aboutEachPrefix": true,
	"bagID":           true,
}

// isPropertyAttr reports whether an attribute encodes a statement.
func isPropertyAttr(n xml.Name) bool {
	switch {
	case n.Space == "", n.Space == xmlnsNS, n.Space == xmlNS:
		return false
	case n.Space == rdf.RDFNamespace:
		return !syntaxAttrs[n.Local]
	}
	return true
}

func nameIRI(n xml.Name) rdf.IRI {
	return rdf.IRI(n.Space + n.Local)
}

// scope carries the inherited xml:base and xml:lang of an element.
type scope struct {
	base string
	lang string
}

func (sc scope) enter(start xml.StartElement) scope {
	for _, a := range start.Attr {
		if a.Name.Space != xmlNS {
			continue
		}
		switch a.Name.Local {
		case "base":
			sc.base = stripFragment(resolve(sc.base, a.Value))
		case "lang":
			sc.lang = a.Value
		}
	}
	return sc
}

// resolve resolves ref against base. References that cannot be parsed are
// kept verbatim.
func resolve(base, ref string) string {
	if base == "" {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if ref == "" {
		return stripFragment(base)
	}
	return b.ResolveReference(r).String()
}

func stripFragment(iri string) string {
	if i := strings.IndexByte(iri, '#'); i >= 0 {
		return iri[:i]
	}
	return iri
}

func isSpace(b []byte) bool {
	return len(strings.TrimSpace(string(b))) == 0
}

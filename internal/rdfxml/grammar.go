package rdfxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/markis/geonames-rdf/internal/rdf"
)

type state struct {
	dec    *xml.Decoder
	h      rdf.Handler
	prefix string
	next   int
}

func (s *state) errorf(format string, args ...any) error {
	line, col := s.dec.InputPos()
	return &ParseError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (s *state) wrap(err error) error {
	line, col := s.dec.InputPos()
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return &ParseError{Line: syn.Line, Column: col, Msg: syn.Msg, Err: err}
	}
	return &ParseError{Line: line, Column: col, Msg: err.Error(), Err: err}
}

// token returns the next token inside an element; running out of input there
// is a syntax error.
func (s *state) token() (xml.Token, error) {
	tok, err := s.dec.Token()
	if err == io.EOF {
		return nil, s.errorf("unexpected end of document")
	}
	if err != nil {
		return nil, s.wrap(err)
	}
	return tok, nil
}

func (s *state) newBNode() rdf.BNode {
	s.next++
	return rdf.BNode(s.prefix + strconv.Itoa(s.next))
}

func (s *state) emit(subj rdf.Term, pred rdf.IRI, obj rdf.Term) error {
	return s.h.HandleStatement(rdf.Statement{Subject: subj, Predicate: pred, Object: obj})
}

func (s *state) namespaces(start xml.StartElement) error {
	for _, a := range start.Attr {
		switch {
		case a.Name.Space == xmlnsNS:
			if err := s.h.HandleNamespace(a.Name.Local, a.Value); err != nil {
				return err
			}
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			if err := s.h.HandleNamespace("", a.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *state) document(baseIRI string) error {
	sc := scope{base: stripFragment(baseIRI)}
	seenRoot := false
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			if !seenRoot {
				return s.errorf("no root element")
			}
			return nil
		}
		if err != nil {
			return s.wrap(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if seenRoot {
				return s.errorf("unexpected second root element <%s>", t.Name.Local)
			}
			seenRoot = true
			t = t.Copy()
			if t.Name == nameRDF {
				if err := s.namespaces(t); err != nil {
					return err
				}
				err = s.nodeElementList(sc.enter(t))
			} else {
				_, err = s.nodeElement(t, sc, nil)
			}
			if err != nil {
				return err
			}
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		case xml.CharData:
			if !isSpace(t) {
				return s.errorf("text outside of the root element")
			}
		}
	}
}

func (s *state) nodeElementList(sc scope) error {
	for {
		tok, err := s.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if _, err := s.nodeElement(t.Copy(), sc, nil); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		case xml.CharData:
			if !isSpace(t) {
				return s.errorf("unexpected text in rdf:RDF")
			}
		}
	}
}

// nodeElement parses a node element and its properties. link, when set, is
// called with the subject before any of the node's own statements.
func (s *state) nodeElement(start xml.StartElement, parent scope, link func(rdf.Term) error) (rdf.Term, error) {
	if err := s.namespaces(start); err != nil {
		return nil, err
	}
	sc := parent.enter(start)
	if start.Name == nameRDF || start.Name == nameLi {
		return nil, s.errorf("rdf:%s is not allowed as a node element", start.Name.Local)
	}

	subj := s.subject(start, sc)
	if link != nil {
		if err := link(subj); err != nil {
			return nil, err
		}
	}
	if start.Name != nameDescription {
		if err := s.emit(subj, rdf.RDFType, nameIRI(start.Name)); err != nil {
			return nil, err
		}
	}
	if err := s.propertyAttrs(subj, start.Attr, sc); err != nil {
		return nil, err
	}
	return subj, s.propertyElements(subj, sc)
}

func (s *state) subject(start xml.StartElement, sc scope) rdf.Term {
	for _, a := range start.Attr {
		switch a.Name {
		case nameAbout:
			return rdf.IRI(resolve(sc.base, a.Value))
		case nameID:
			return rdf.IRI(resolve(sc.base, "#"+a.Value))
		case nameNodeID:
			return rdf.BNode(a.Value)
		}
	}
	return s.newBNode()
}

func (s *state) propertyAttrs(subj rdf.Term, attrs []xml.Attr, sc scope) error {
	for _, a := range attrs {
		if !isPropertyAttr(a.Name) {
			continue
		}
		pred := nameIRI(a.Name)
		var obj rdf.Term
		if pred == rdf.RDFType {
			obj = rdf.IRI(resolve(sc.base, a.Value))
		} else {
			obj = literal(a.Value, sc, "")
		}
		if err := s.emit(subj, pred, obj); err != nil {
			return err
		}
	}
	return nil
}

// propertyElements parses property elements until the enclosing element ends.
func (s *state) propertyElements(subj rdf.Term, sc scope) error {
	li := 0
	for {
		tok, err := s.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if err := s.propertyElement(t.Copy(), subj, sc, &li); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		case xml.CharData:
			if !isSpace(t) {
				return s.errorf("unexpected text %q in node element", strings.TrimSpace(string(t)))
			}
		}
	}
}

type propAttrs struct {
	resource    string
	hasResource bool
	nodeID      string
	hasNodeID   bool
	datatype    string
	parseType   string
	id          string
	props       []xml.Attr
}

func readPropAttrs(start xml.StartElement) propAttrs {
	var pa propAttrs
	for _, a := range start.Attr {
		switch a.Name {
		case nameResource:
			pa.resource, pa.hasResource = a.Value, true
		case nameNodeID:
			pa.nodeID, pa.hasNodeID = a.Value, true
		case nameDatatype:
			pa.datatype = a.Value
		case nameParseType:
			pa.parseType = a.Value
		case nameID:
			pa.id = a.Value
		default:
			if isPropertyAttr(a.Name) {
				pa.props = append(pa.props, a)
			}
		}
	}
	return pa
}

func (s *state) propertyElement(start xml.StartElement, subj rdf.Term, parent scope, li *int) error {
	if err := s.namespaces(start); err != nil {
		return err
	}
	sc := parent.enter(start)
	pred := nameIRI(start.Name)
	if start.Name == nameLi {
		*li++
		pred = rdf.IRI(rdf.RDFNamespace + "_" + strconv.Itoa(*li))
	}
	pa := readPropAttrs(start)

	link := func(obj rdf.Term) error {
		if err := s.emit(subj, pred, obj); err != nil {
			return err
		}
		if pa.id == "" {
			return nil
		}
		return s.reify(rdf.IRI(resolve(sc.base, "#"+pa.id)), subj, pred, obj)
	}

	switch {
	case pa.parseType == "Resource":
		obj := s.newBNode()
		if err := link(obj); err != nil {
			return err
		}
		return s.propertyElements(obj, sc)
	case pa.parseType == "Collection":
		return s.collection(sc, link)
	case pa.parseType != "":
		text, err := s.xmlLiteral()
		if err != nil {
			return err
		}
		return link(rdf.Literal{Label: text, Datatype: rdf.RDFXMLLiteral})
	case pa.hasResource || pa.hasNodeID || len(pa.props) > 0:
		var obj rdf.Term
		switch {
		case pa.hasResource:
			obj = rdf.IRI(resolve(sc.base, pa.resource))
		case pa.hasNodeID:
			obj = rdf.BNode(pa.nodeID)
		default:
			obj = s.newBNode()
		}
		if err := link(obj); err != nil {
			return err
		}
		if err := s.propertyAttrs(obj, pa.props, sc); err != nil {
			return err
		}
		return s.emptyElement(start)
	default:
		return s.propertyContent(sc, pa.datatype, link)
	}
}

// propertyContent parses either a literal or a single nested node element.
func (s *state) propertyContent(sc scope, datatype string, link func(rdf.Term) error) error {
	var text strings.Builder
	nested := false
	for {
		tok, err := s.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.CharData:
			if nested {
				if !isSpace(t) {
					return s.errorf("unexpected text after nested node element")
				}
				continue
			}
			text.Write(t)
		case xml.StartElement:
			if nested {
				return s.errorf("property element holds more than one node element")
			}
			if strings.TrimSpace(text.String()) != "" {
				return s.errorf("property element mixes text and elements")
			}
			nested = true
			if _, err := s.nodeElement(t.Copy(), sc, link); err != nil {
				return err
			}
		case xml.EndElement:
			if nested {
				return nil
			}
			return link(literal(text.String(), sc, resolveDatatype(sc, datatype)))
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		}
	}
}

func (s *state) collection(sc scope, link func(rdf.Term) error) error {
	var items []rdf.Term
	for done := false; !done; {
		tok, err := s.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			item, err := s.nodeElement(t.Copy(), sc, nil)
			if err != nil {
				return err
			}
			items = append(items, item)
		case xml.EndElement:
			done = true
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		case xml.CharData:
			if !isSpace(t) {
				return s.errorf("unexpected text in collection")
			}
		}
	}

	if len(items) == 0 {
		return link(rdf.RDFNil)
	}
	cells := make([]rdf.Term, len(items))
	for i := range cells {
		cells[i] = s.newBNode()
	}
	if err := link(cells[0]); err != nil {
		return err
	}
	for i, item := range items {
		if err := s.emit(cells[i], rdf.RDFFirst, item); err != nil {
			return err
		}
		var rest rdf.Term = rdf.RDFNil
		if i+1 < len(cells) {
			rest = cells[i+1]
		}
		if err := s.emit(cells[i], rdf.RDFRest, rest); err != nil {
			return err
		}
	}
	return nil
}

func (s *state) reify(stmt rdf.IRI, subj rdf.Term, pred rdf.IRI, obj rdf.Term) error {
	for _, st := range []rdf.Statement{
		{Subject: stmt, Predicate: rdf.RDFType, Object: rdf.IRI(rdf.RDFNamespace + "Statement")},
		{Subject: stmt, Predicate: rdf.RDFNamespace + "subject", Object: subj},
		{Subject: stmt, Predicate: rdf.RDFNamespace + "predicate", Object: pred},
		{Subject: stmt, Predicate: rdf.RDFNamespace + "object", Object: obj},
	} {
		if err := s.h.HandleStatement(st); err != nil {
			return err
		}
	}
	return nil
}

// emptyElement consumes the rest of an element that must have no content.
func (s *state) emptyElement(start xml.StartElement) error {
	for {
		tok, err := s.token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			return nil
		case xml.CharData:
			if !isSpace(t) {
				return s.errorf("property element <%s> with a resource must be empty", start.Name.Local)
			}
		case xml.StartElement:
			return s.errorf("property element <%s> with a resource must be empty", start.Name.Local)
		case xml.Comment:
			if err := s.h.HandleComment(string(t)); err != nil {
				return err
			}
		}
	}
}

func resolveDatatype(sc scope, datatype string) string {
	if datatype == "" {
		return ""
	}
	return resolve(sc.base, datatype)
}

// literal builds a literal; a datatype wins over the inherited language.
func literal(label string, sc scope, datatype string) rdf.Literal {
	if datatype != "" {
		return rdf.Literal{Label: label, Datatype: rdf.IRI(datatype)}
	}
	if sc.lang != "" {
		return rdf.Literal{Label: label, Lang: strings.ToLower(sc.lang)}
	}
	return rdf.Literal{Label: label}
}

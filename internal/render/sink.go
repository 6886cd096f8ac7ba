package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/markis/geonames-rdf/internal/rdf"
)

// Sink is a handler writing records to an output stream. Flush must be called
// when a decode stops early; EndRDF flushes on its own.
type Sink interface {
	rdf.Handler
	Flush() error
}

// NewSink returns the sink for output, "nquads" or "jsonl".
func NewSink(output string, w io.Writer) (Sink, error) {
	switch output {
	case "nquads":
		return NewNQuadsWriter(w), nil
	case "jsonl":
		return NewJSONLinesWriter(w), nil
	default:
		return nil, fmt.Errorf("render: unknown output %q", output)
	}
}

// NQuadsWriter writes statements as N-Quads and comments as "#" lines.
// Namespaces have no N-Quads form and are dropped.
type NQuadsWriter struct {
	w *bufio.Writer
}

func NewNQuadsWriter(w io.Writer) *NQuadsWriter {
	return &NQuadsWriter{w: bufio.NewWriter(w)}
}

func (n *NQuadsWriter) StartRDF() error                      { return nil }
func (n *NQuadsWriter) HandleNamespace(string, string) error { return nil }

func (n *NQuadsWriter) HandleStatement(st rdf.Statement) error {
	n.w.WriteString(st.String())
	return n.w.WriteByte('\n')
}

func (n *NQuadsWriter) HandleComment(text string) error {
	n.w.WriteString("#")
	n.w.WriteString(strings.NewReplacer("\r", " ", "\n", " ").Replace(text))
	return n.w.WriteByte('\n')
}

func (n *NQuadsWriter) EndRDF() error { return n.Flush() }
func (n *NQuadsWriter) Flush() error  { return n.w.Flush() }

type jsonTerm struct {
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Lang     string `json:"lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

type jsonRecord struct {
	Type      string    `json:"type"`
	Subject   *jsonTerm `json:"subject,omitempty"`
	Predicate string    `json:"predicate,omitempty"`
	Object    *jsonTerm `json:"object,omitempty"`
	Graph     *jsonTerm `json:"graph,omitempty"`
	Prefix    *string   `json:"prefix,omitempty"`
	Namespace string    `json:"namespace,omitempty"`
	Text      string    `json:"text,omitempty"`
}

func toJSONTerm(t rdf.Term) *jsonTerm {
	switch v := t.(type) {
	case rdf.IRI:
		return &jsonTerm{Kind: "iri", Value: string(v)}
	case rdf.BNode:
		return &jsonTerm{Kind: "bnode", Value: string(v)}
	case rdf.Literal:
		return &jsonTerm{Kind: "literal", Value: v.Label, Lang: v.Lang, Datatype: string(v.Datatype)}
	default:
		return nil
	}
}

// JSONLinesWriter writes one JSON object per statement, namespace and comment.
type JSONLinesWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

func NewJSONLinesWriter(w io.Writer) *JSONLinesWriter {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLinesWriter{w: bw, enc: enc}
}

func (j *JSONLinesWriter) StartRDF() error { return nil }

func (j *JSONLinesWriter) HandleNamespace(prefix, iri string) error {
	return j.enc.Encode(jsonRecord{Type: "namespace", Prefix: &prefix, Namespace: iri})
}

func (j *JSONLinesWriter) HandleStatement(st rdf.Statement) error {
	return j.enc.Encode(jsonRecord{
		Type:      "statement",
		Subject:   toJSONTerm(st.Subject),
		Predicate: string(st.Predicate),
		Object:    toJSONTerm(st.Object),
		Graph:     toJSONTerm(st.Context),
	})
}

func (j *JSONLinesWriter) HandleComment(text string) error {
	return j.enc.Encode(jsonRecord{Type: "comment", Text: text})
}

func (j *JSONLinesWriter) EndRDF() error { return j.Flush() }
func (j *JSONLinesWriter) Flush() error  { return j.w.Flush() }

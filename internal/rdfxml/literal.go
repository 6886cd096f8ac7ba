package rdfxml

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// textEscaper escapes element content. Whitespace is kept as is, unlike
// xml.EscapeText.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// xmlLiteral serializes the content of the current element up to its end tag.
// Namespaces are re-declared where they change so the fragment stands alone.
func (s *state) xmlLiteral() (string, error) {
	var b strings.Builder
	spaces := []string{""}
	for {
		tok, err := s.token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			b.WriteByte('<')
			b.WriteString(t.Name.Local)
			if t.Name.Space != spaces[len(spaces)-1] {
				writeAttr(&b, "xmlns", t.Name.Space)
			}
			spaces = append(spaces, t.Name.Space)
			n := 0
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == xmlnsNS, a.Name.Space == "" && a.Name.Local == "xmlns":
				case a.Name.Space == "":
					writeAttr(&b, a.Name.Local, a.Value)
				case a.Name.Space == xmlNS:
					writeAttr(&b, "xml:"+a.Name.Local, a.Value)
				default:
					n++
					prefix := "ns" + strconv.Itoa(n)
					writeAttr(&b, "xmlns:"+prefix, a.Name.Space)
					writeAttr(&b, prefix+":"+a.Name.Local, a.Value)
				}
			}
			b.WriteByte('>')
		case xml.EndElement:
			if len(spaces) == 1 {
				return b.String(), nil
			}
			spaces = spaces[:len(spaces)-1]
			b.WriteString("</")
			b.WriteString(t.Name.Local)
			b.WriteByte('>')
		case xml.CharData:
			textEscaper.WriteString(&b, string(t))
		case xml.Comment:
			b.WriteString("<!--")
			b.Write(t)
			b.WriteString("-->")
		case xml.ProcInst:
			b.WriteString("<?")
			b.WriteString(t.Target)
			if len(t.Inst) > 0 {
				b.WriteByte(' ')
				b.Write(t.Inst)
			}
			b.WriteString("?>")
		}
	}
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	_ = xml.EscapeText(b, []byte(value))
	b.WriteByte('"')
}

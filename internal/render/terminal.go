package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/cli/go-gh/v2/pkg/markdown"
)

// Summary describes one finished decode.
type Summary struct {
	Source     string
	Format     string
	Entries    int
	Units      int
	Statements int
	Namespaces int
	Comments   int
	Truncated  bool
	Elapsed    time.Duration
}

// Markdown renders the summary as a markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", s.Source)
	b.WriteString("| | |\n|---|---:|\n")
	fmt.Fprintf(&b, "| format | %s |\n", s.Format)
	fmt.Fprintf(&b, "| entries | %d |\n", s.Entries)
	fmt.Fprintf(&b, "| documents | %d |\n", s.Units)
	fmt.Fprintf(&b, "| statements | %d |\n", s.Statements)
	fmt.Fprintf(&b, "| namespaces | %d |\n", s.Namespaces)
	fmt.Fprintf(&b, "| comments | %d |\n", s.Comments)
	fmt.Fprintf(&b, "| elapsed | %s |\n", s.Elapsed.Round(time.Millisecond))
	if s.Truncated {
		b.WriteString("\n> The archive ended on a truncated entry; everything before it was decoded.\n")
	}
	return b.String()
}

type TerminalRenderer struct {
	out       io.Writer
	markdown  *glamour.TermRenderer
	plainText bool
}

func NewTerminalRenderer(out io.Writer, usePlainText bool) *TerminalRenderer {
	var md *glamour.TermRenderer
	if !usePlainText {
		md, _ = glamour.NewTermRenderer(
			markdown.WithWrap(120),
			glamour.WithAutoStyle(),
		)
	}

	return &TerminalRenderer{
		out:       out,
		markdown:  md,
		plainText: usePlainText || md == nil,
	}
}

func (t *TerminalRenderer) RenderSummary(s Summary) error {
	content := s.Markdown()
	if t.plainText {
		_, err := io.WriteString(t.out, content)
		return err
	}

	mdContent, err := t.markdown.Render(content)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}

	_, err = fmt.Fprintln(t.out, strings.TrimSpace(mdContent))
	return err
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/markis/geonames-rdf/internal/args"
	"github.com/markis/geonames-rdf/internal/geonames"
	"github.com/markis/geonames-rdf/internal/rdf"
	"github.com/markis/geonames-rdf/internal/render"
	"github.com/markis/geonames-rdf/internal/rio"
)

// openInput opens the archive named on the command line. The parser closes it.
func openInput(name string) (io.ReadCloser, string, error) {
	if name == args.Stdin {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open archive: %w", err)
	}
	return f, filepath.Base(name), nil
}

func decode(ctx context.Context, a args.Arguments, logger zerolog.Logger) error {
	in, source, err := openInput(a.Input)
	if err != nil {
		return err
	}

	sink, err := render.NewSink(a.Output, os.Stdout)
	if err != nil {
		_ = in.Close()
		return err
	}
	counter := rdf.Counting(sink)

	p := geonames.NewParser(
		geonames.WithLogger(logger.With().Str("source", source).Logger()),
		geonames.WithMaxLineSize(a.MaxLineSize),
	)
	p.SetHandler(counter)

	start := time.Now()
	if err := p.Parse(ctx, in, a.BaseIRI); err != nil {
		_ = sink.Flush()
		return err
	}
	if !a.Summary {
		return nil
	}

	stats := p.Stats()
	return render.NewTerminalRenderer(os.Stderr, a.UsePlainText).RenderSummary(render.Summary{
		Source:     source,
		Format:     p.Format().String(),
		Entries:    stats.Entries,
		Units:      stats.Units,
		Statements: counter.Stats.Statements,
		Namespaces: counter.Stats.Namespaces,
		Comments:   counter.Stats.Comments,
		Truncated:  stats.Truncated,
		Elapsed:    time.Since(start),
	})
}

func listFormats(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMEDIA TYPE\tEXTENSION\tNAMESPACES\tCONTEXTS")
	for _, f := range rio.Formats() {
		fmt.Fprintf(tw, "%s\t%s\t.%s\t%t\t%t\n", f.Name, f.MIMEType, f.Extension, f.SupportsNamespaces, f.SupportsContexts)
	}
	return tw.Flush()
}

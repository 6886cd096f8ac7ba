// Package framing turns a ZIP archive of line-framed documents into a stream
// of identifier/payload pairs.
//
// Every entry holds alternating lines: an identifier followed by its payload.
// Entries are read in archive order and lines in entry order; a trailing
// identifier without payload is dropped.
package framing

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/markis/geonames-rdf/internal/zipstream"
)

// Reader iterates over the framed units of an archive. It is not safe for
// concurrent use.
type Reader struct {
	zr      *zipstream.Reader
	src     *errRecorder
	scanner *bufio.Scanner
	opts    options

	entry     string
	line      int
	unit      Unit
	entries   int
	err       error
	done      bool
	truncated bool
	closed    bool
}

// NewReader returns a Reader over the archive bytes of r. The Reader owns r
// and closes it once the sequence ends.
func NewReader(r io.Reader, opts ...Option) *Reader {
	o := options{
		maxLineSize: DefaultMaxLineSize,
		truncated:   InvalidEntrySize,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	zr := zipstream.NewReader(r)
	return &Reader{zr: zr, src: &errRecorder{r: zr}, opts: o}
}

// Next advances to the next unit. It returns false when the archive is
// exhausted, a tolerated truncation was met, or an error occurred; Err tells
// the last case apart.
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	for {
		if r.scanner == nil {
			e, err := r.zr.Next()
			if err != nil {
				r.stop(err)
				return false
			}
			r.openEntry(e)
		}

		id, ok := r.scanLine()
		if !ok {
			if r.done {
				return false
			}
			continue
		}
		payload, ok := r.scanLine()
		if !ok {
			if r.done {
				return false
			}
			r.opts.log.Debug().Str("entry", r.entry).Int("line", r.line).Msg("dropping identifier without payload")
			continue
		}
		r.unit = Unit{
			Entry:   r.entry,
			Line:    r.line,
			ID:      id,
			Payload: strings.ToValidUTF8(payload, "\uFFFD"),
		}
		return true
	}
}

// Unit returns the unit read by the last successful Next.
func (r *Reader) Unit() Unit { return r.unit }

// Err returns the error that stopped the traversal. A tolerated truncation is
// not an error.
func (r *Reader) Err() error { return r.err }

// Truncated reports whether the traversal ended on a tolerated archive defect.
func (r *Reader) Truncated() bool { return r.truncated }

// Entries returns how many archive entries were opened so far.
func (r *Reader) Entries() int { return r.entries }

// Close releases the archive stream. Close errors are logged, not returned.
func (r *Reader) Close() error {
	r.done = true
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.zr.Close(); err != nil {
		r.opts.log.Debug().Err(err).Msg("closing archive")
	}
	return nil
}

func (r *Reader) openEntry(e *zipstream.Entry) {
	r.entries++
	r.entry = e.Name
	r.line = 0
	r.src.err = nil
	r.scanner = bufio.NewScanner(r.src)
	r.scanner.Buffer(make([]byte, 0, min(64*1024, r.opts.maxLineSize)), r.opts.maxLineSize)
	r.scanner.Split(r.splitLines)
	r.opts.log.Trace().Str("entry", e.Name).Uint64("size", e.Size).Msg("entry")
}

// scanLine reads one line of the current entry. On false the entry is over;
// r.done is set when the whole traversal is over too.
func (r *Reader) scanLine() (string, bool) {
	if r.scanner.Scan() {
		r.line++
		return r.scanner.Text(), true
	}
	err := r.scanner.Err()
	r.scanner = nil
	if err != nil {
		r.stop(err)
	}
	return "", false
}

func (r *Reader) stop(err error) {
	switch {
	case err == io.EOF:
	case r.opts.truncated != nil && r.opts.truncated(err):
		r.truncated = true
		r.opts.log.Warn().Err(err).Str("entry", r.entry).Msg("archive truncated, ending input")
	default:
		r.err = err
	}
	_ = r.Close()
}

// splitLines splits on "\n", "\r\n" or a lone "\r". A final line is held
// back when the entry ended on an error, as its content is unreliable.
func (r *Reader) splitLines(data []byte, atEOF bool) (int, []byte, error) {
	i := bytes.IndexAny(data, "\r\n")
	if i < 0 {
		if !atEOF {
			return 0, nil, nil
		}
		if r.src.err != nil {
			return 0, nil, r.src.err
		}
		if len(data) == 0 {
			return 0, nil, nil
		}
		return len(data), data, nil
	}
	if data[i] == '\n' {
		return i + 1, data[:i], nil
	}
	if i+1 < len(data) {
		if data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}
	if !atEOF {
		return 0, nil, nil
	}
	return i + 1, data[:i], nil
}

// errRecorder remembers the non-EOF error of the entry being scanned.
type errRecorder struct {
	r   io.Reader
	err error
}

func (e *errRecorder) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		e.err = err
	}
	return n, err
}

package framing

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/markis/geonames-rdf/internal/zipstream"
)

// Unit is one identifier/payload line pair read from an archive entry.
type Unit struct {
	// Entry is the name of the archive entry holding the pair.
	Entry string
	// Line is the 1-based line number of the payload within Entry.
	Line    int
	ID      string
	Payload string
}

// TruncationPolicy reports whether an archive error marks a known trailing
// defect that should end the traversal cleanly.
type TruncationPolicy func(err error) bool

// InvalidEntrySize is the default policy: an entry whose decompressed length
// disagrees with its header ends the archive.
func InvalidEntrySize(err error) bool {
	return errors.Is(err, zipstream.ErrInvalidEntrySize)
}

// DefaultMaxLineSize bounds a single line.
const DefaultMaxLineSize = 64 * 1024 * 1024

type options struct {
	maxLineSize int
	truncated   TruncationPolicy
	log         zerolog.Logger
}

// Option configures a Reader.
type Option func(*options)

func WithMaxLineSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

// WithTruncationPolicy replaces InvalidEntrySize. A nil policy makes every
// archive error fatal.
func WithTruncationPolicy(p TruncationPolicy) Option {
	return func(o *options) { o.truncated = p }
}

func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

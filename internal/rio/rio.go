// Package rio keeps the process-wide table of RDF formats and their parsers.
package rio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/markis/geonames-rdf/internal/rdf"
)

var (
	ErrUnknownFormat     = errors.New("rio: unknown format")
	ErrAlreadyRegistered = errors.New("rio: format already registered")
	ErrUnsupportedSource = errors.New("rio: unsupported input source")
)

// Format describes a serialization of RDF statements.
type Format struct {
	Name      string
	MIMEType  string
	Extension string
	// SupportsNamespaces reports whether documents carry prefix declarations.
	SupportsNamespaces bool
	// SupportsContexts reports whether documents carry graph information.
	SupportsContexts bool
}

func (f Format) String() string {
	return fmt.Sprintf("%s (%s)", f.Name, f.MIMEType)
}

// Parser decodes one document into the handler set with SetHandler.
type Parser interface {
	Format() Format
	SetHandler(h rdf.Handler)
	// Parse decodes a byte stream.
	Parse(ctx context.Context, r io.Reader, baseIRI string) error
	// ParseString decodes already-decoded text.
	ParseString(ctx context.Context, text, baseIRI string) error
}

// ParserFactory creates a fresh Parser.
type ParserFactory func() Parser

type registration struct {
	format  Format
	factory ParserFactory
}

var (
	registryMu sync.RWMutex
	registry   = map[string]registration{}
)

// Register adds a format to the process-wide table. Registering a media type
// twice returns ErrAlreadyRegistered and keeps the first registration.
func Register(f Format, factory ParserFactory) error {
	if f.MIMEType == "" || factory == nil {
		return fmt.Errorf("rio: invalid registration for %q", f.Name)
	}
	key := strings.ToLower(f.MIMEType)

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[key]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, f.MIMEType)
	}
	registry[key] = registration{format: f, factory: factory}
	return nil
}

// Lookup returns the format registered under mediaType.
func Lookup(mediaType string) (Format, ParserFactory, error) {
	registryMu.RLock()
	r, ok := registry[strings.ToLower(strings.TrimSpace(mediaType))]
	registryMu.RUnlock()
	if !ok {
		return Format{}, nil, fmt.Errorf("%w: %s", ErrUnknownFormat, mediaType)
	}
	return r.format, r.factory, nil
}

// ByExtension returns the format whose extension hint matches ext. A leading
// dot is ignored.
func ByExtension(ext string) (Format, ParserFactory, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, r := range registry {
		if strings.ToLower(r.format.Extension) == ext {
			return r.format, r.factory, nil
		}
	}
	return Format{}, nil, fmt.Errorf("%w: extension %q", ErrUnknownFormat, ext)
}

// Formats lists the registered formats sorted by name.
func Formats() []Format {
	registryMu.RLock()
	out := make([]Format, 0, len(registry))
	for _, r := range registry {
		out = append(out, r.format)
	}
	registryMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// unregister is used by tests to keep the table isolated.
func unregister(mediaType string) {
	registryMu.Lock()
	delete(registry, strings.ToLower(mediaType))
	registryMu.Unlock()
}

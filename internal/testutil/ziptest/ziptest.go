// Package ziptest builds ZIP archives in memory for tests.
package ziptest

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
)

// Builder accumulates entries into an in-memory archive.
type Builder struct {
	t   testing.TB
	buf bytes.Buffer
	w   *zip.Writer
}

func New(t testing.TB) *Builder {
	t.Helper()
	b := &Builder{t: t}
	b.w = zip.NewWriter(&b.buf)
	return b
}

// Add appends a deflated entry written with a trailing data descriptor.
func (b *Builder) Add(name, content string) *Builder {
	b.t.Helper()
	w, err := b.w.Create(name)
	if err != nil {
		b.t.Fatalf("create %s: %v", name, err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		b.t.Fatalf("write %s: %v", name, err)
	}
	return b
}

// AddStored appends an uncompressed entry whose sizes live in the local header.
func (b *Builder) AddStored(name, content string) *Builder {
	b.t.Helper()
	return b.raw(name, zip.Store, []byte(content), content, uint64(len(content)))
}

// AddDeclaredSize appends a deflated entry whose local header announces size
// instead of the real length of content.
func (b *Builder) AddDeclaredSize(name, content string, size uint64) *Builder {
	b.t.Helper()
	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, flate.DefaultCompression)
	if err != nil {
		b.t.Fatalf("flate: %v", err)
	}
	if _, err := io.WriteString(fw, content); err != nil {
		b.t.Fatalf("flate write: %v", err)
	}
	if err := fw.Close(); err != nil {
		b.t.Fatalf("flate close: %v", err)
	}
	return b.raw(name, zip.Deflate, compressed.Bytes(), content, size)
}

func (b *Builder) raw(name string, method uint16, data []byte, content string, size uint64) *Builder {
	b.t.Helper()
	w, err := b.w.CreateRaw(&zip.FileHeader{
		Name:               name,
		Method:             method,
		CRC32:              crc32.ChecksumIEEE([]byte(content)),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: size,
	})
	if err != nil {
		b.t.Fatalf("create raw %s: %v", name, err)
	}
	if _, err := w.Write(data); err != nil {
		b.t.Fatalf("write raw %s: %v", name, err)
	}
	return b
}

// Bytes finishes the archive and returns its encoding.
func (b *Builder) Bytes() []byte {
	b.t.Helper()
	if err := b.w.Close(); err != nil {
		b.t.Fatalf("close archive: %v", err)
	}
	return b.buf.Bytes()
}

// Reader finishes the archive and returns it behind a ReadCloser that counts
// Close calls.
func (b *Builder) Reader() *TrackingReader {
	return NewTrackingReader(b.Bytes())
}

// TrackingReader is a non-seekable ReadCloser recording how often it was closed.
type TrackingReader struct {
	r      io.Reader
	Closes int
}

func NewTrackingReader(data []byte) *TrackingReader {
	return &TrackingReader{r: bytes.NewReader(data)}
}

func (r *TrackingReader) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *TrackingReader) Close() error {
	r.Closes++
	return nil
}

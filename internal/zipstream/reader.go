// Package zipstream reads ZIP archives front to back from a non-seekable
// stream, relying on local file headers only.
package zipstream

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"time"

	"github.com/klauspost/compress/flate"
)

const (
	localHeaderSig     = 0x04034b50
	centralHeaderSig   = 0x02014b50
	endOfCentralSig    = 0x06054b50
	zip64EndSig        = 0x06064b50
	dataDescriptorSig  = 0x08074b50
	localHeaderLen     = 30
	zip64ExtraID       = 0x0001
	uint32Max          = 0xffffffff
	flagDataDescriptor = 0x8
	flagEncrypted      = 0x1
)

// Compression methods.
const (
	Store   uint16 = 0
	Deflate uint16 = 8
)

// Entry is the local header of one archive member.
type Entry struct {
	Name           string
	Method         uint16
	Flags          uint16
	CRC32          uint32
	CompressedSize uint64
	Size           uint64
	Modified       time.Time
}

func (e *Entry) hasDescriptor() bool { return e.Flags&flagDataDescriptor != 0 }

// Reader walks the entries of a ZIP stream. Call Next to advance to an entry
// and Read to consume its decompressed content.
type Reader struct {
	src    io.Reader
	br     *bufio.Reader
	cur    *entryReader
	err    error
	closed bool
}

// NewReader returns a Reader consuming r. If r is an io.Closer it is closed by
// Close.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: r, br: bufio.NewReaderSize(r, 64*1024)}
}

// Next advances to the next entry, draining whatever is left of the current
// one. It returns io.EOF once the central directory or the end of the stream is
// reached.
func (z *Reader) Next() (*Entry, error) {
	if z.closed {
		return nil, ErrClosed
	}
	if z.err != nil {
		return nil, z.err
	}
	if z.cur != nil {
		if _, err := io.Copy(io.Discard, z.cur); err != nil {
			z.err = err
			return nil, err
		}
		z.cur = nil
	}

	e, err := z.readLocalHeader()
	if err != nil {
		z.err = err
		return nil, err
	}
	cur, err := z.open(e)
	if err != nil {
		z.err = err
		return nil, err
	}
	z.cur = cur
	return e, nil
}

// Read reads decompressed bytes of the current entry. It returns io.EOF at the
// end of the entry, after the entry has been validated against its metadata.
func (z *Reader) Read(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	if z.cur == nil {
		if z.err != nil {
			return 0, z.err
		}
		return 0, io.EOF
	}
	n, err := z.cur.Read(p)
	if err != nil && err != io.EOF {
		z.err = err
	}
	return n, err
}

// Close releases the reader and closes the underlying stream when it is an
// io.Closer. Only the first call has an effect.
func (z *Reader) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true
	if z.cur != nil {
		z.cur.release()
		z.cur = nil
	}
	if c, ok := z.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (z *Reader) readLocalHeader() (*Entry, error) {
	var sig [4]byte
	if _, err := io.ReadFull(z.br, sig[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, io.ErrUnexpectedEOF
	}
	switch binary.LittleEndian.Uint32(sig[:]) {
	case localHeaderSig:
	case centralHeaderSig, endOfCentralSig, zip64EndSig:
		return nil, io.EOF
	default:
		return nil, fmt.Errorf("%w: bad signature %#08x", ErrFormat, binary.LittleEndian.Uint32(sig[:]))
	}

	var buf [localHeaderLen - 4]byte
	if _, err := io.ReadFull(z.br, buf[:]); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	b := readBuf(buf[:])
	b.uint16() // version needed
	e := &Entry{}
	e.Flags = b.uint16()
	e.Method = b.uint16()
	modTime := b.uint16()
	modDate := b.uint16()
	e.CRC32 = b.uint32()
	e.CompressedSize = uint64(b.uint32())
	e.Size = uint64(b.uint32())
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(z.br, name); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	e.Name = string(name)
	extra := make([]byte, extraLen)
	if _, err := io.ReadFull(z.br, extra); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	e.Modified = msDosTimeToTime(modDate, modTime)

	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: encrypted entry %q", ErrAlgorithm, e.Name)
	}
	if !e.hasDescriptor() && (e.Size == uint32Max || e.CompressedSize == uint32Max) {
		readZip64Extra(e, extra)
	}
	return e, nil
}

// readZip64Extra replaces saturated sizes with the values of the ZIP64 extra
// field, in the order the format mandates.
func readZip64Extra(e *Entry, extra []byte) {
	b := readBuf(extra)
	for len(b) >= 4 {
		id := b.uint16()
		size := int(b.uint16())
		if len(b) < size {
			return
		}
		field := readBuf(b[:size])
		b = b[size:]
		if id != zip64ExtraID {
			continue
		}
		if e.Size == uint32Max && len(field) >= 8 {
			e.Size = field.uint64()
		}
		if e.CompressedSize == uint32Max && len(field) >= 8 {
			e.CompressedSize = field.uint64()
		}
		return
	}
}

func (z *Reader) open(e *Entry) (*entryReader, error) {
	er := &entryReader{z: z, entry: e, hash: crc32.NewIEEE()}
	switch e.Method {
	case Store:
		if e.hasDescriptor() {
			return nil, fmt.Errorf("%w: %q", ErrDescriptorStored, e.Name)
		}
		if e.CompressedSize != e.Size {
			return nil, &EntryError{Entry: e.Name, Kind: ErrInvalidEntrySize, Expected: e.Size, Actual: e.CompressedSize}
		}
		er.in = &countingReader{r: z.br}
		er.rc = io.NopCloser(io.LimitReader(er.in, int64(e.CompressedSize)))
	case Deflate:
		er.in = &countingReader{r: z.br}
		er.rc = flate.NewReader(er.in)
	default:
		return nil, fmt.Errorf("%w: %d in %q", ErrAlgorithm, e.Method, e.Name)
	}
	return er, nil
}

type entryReader struct {
	z       *Reader
	entry   *Entry
	in      *countingReader
	rc      io.ReadCloser
	hash    hash.Hash32
	written uint64
	err     error
}

func (r *entryReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n, err := r.rc.Read(p)
	r.hash.Write(p[:n])
	r.written += uint64(n)
	switch {
	case err == io.EOF:
		if r.entry.Method == Store && r.written < r.entry.Size {
			r.err = io.ErrUnexpectedEOF
		} else {
			r.err = r.finish()
		}
		r.release()
		if r.err == nil {
			r.err = io.EOF
		}
		return n, r.err
	case err != nil:
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.ErrUnexpectedEOF
		}
		r.err = err
		r.release()
		return n, err
	}
	return n, nil
}

func (r *entryReader) release() {
	if r.rc != nil {
		_ = r.rc.Close()
		r.rc = nil
	}
}

// finish validates the entry once its content is exhausted: declared size
// first, then compressed size, then checksum.
func (r *entryReader) finish() error {
	e := r.entry
	if e.hasDescriptor() {
		if err := r.readDescriptor(); err != nil {
			return err
		}
	}
	if e.Size != r.written {
		return &EntryError{Entry: e.Name, Kind: ErrInvalidEntrySize, Expected: e.Size, Actual: r.written}
	}
	if e.CompressedSize != r.in.n {
		return &EntryError{Entry: e.Name, Kind: ErrInvalidCompressedSize, Expected: e.CompressedSize, Actual: r.in.n}
	}
	if sum := r.hash.Sum32(); sum != e.CRC32 {
		return &EntryError{Entry: e.Name, Kind: ErrChecksum, Expected: uint64(e.CRC32), Actual: uint64(sum)}
	}
	return nil
}

func (r *entryReader) readDescriptor() error {
	br := r.z.br
	var word [4]byte
	if _, err := io.ReadFull(br, word[:]); err != nil {
		return io.ErrUnexpectedEOF
	}
	crc := binary.LittleEndian.Uint32(word[:])
	if crc == dataDescriptorSig {
		if _, err := io.ReadFull(br, word[:]); err != nil {
			return io.ErrUnexpectedEOF
		}
		crc = binary.LittleEndian.Uint32(word[:])
	}
	r.entry.CRC32 = crc

	sizeLen := 4
	if r.written > uint32Max || r.in.n > uint32Max {
		sizeLen = 8
	}
	buf := make([]byte, 2*sizeLen)
	if _, err := io.ReadFull(br, buf); err != nil {
		return io.ErrUnexpectedEOF
	}
	b := readBuf(buf)
	if sizeLen == 8 {
		r.entry.CompressedSize = b.uint64()
		r.entry.Size = b.uint64()
	} else {
		r.entry.CompressedSize = uint64(b.uint32())
		r.entry.Size = uint64(b.uint32())
	}
	return nil
}

// countingReader counts the compressed bytes handed to the decompressor. It
// implements io.ByteReader so flate never reads past the end of an entry.
type countingReader struct {
	r *bufio.Reader
	n uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += uint64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

type readBuf []byte

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9+1980),
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f*2),
		0,
		time.UTC,
	)
}

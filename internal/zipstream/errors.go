package zipstream

import (
	"errors"
	"fmt"
)

var (
	ErrFormat                = errors.New("zipstream: not a valid zip stream")
	ErrAlgorithm             = errors.New("zipstream: unsupported compression method")
	ErrDescriptorStored      = errors.New("zipstream: stored entry with data descriptor")
	ErrInvalidEntrySize      = errors.New("zipstream: invalid entry size")
	ErrInvalidCompressedSize = errors.New("zipstream: invalid entry compressed size")
	ErrChecksum              = errors.New("zipstream: invalid entry CRC")
	ErrClosed                = errors.New("zipstream: reader closed")
)

// EntryError reports an entry whose content disagrees with its declared
// metadata. Kind is one of ErrInvalidEntrySize, ErrInvalidCompressedSize or
// ErrChecksum and can be matched with errors.Is.
type EntryError struct {
	Entry    string
	Kind     error
	Expected uint64
	Actual   uint64
}

func (e *EntryError) Error() string {
	if errors.Is(e.Kind, ErrChecksum) {
		return fmt.Sprintf("%v (expected %#08x but got %#08x) in %q", e.Kind, e.Expected, e.Actual, e.Entry)
	}
	return fmt.Sprintf("%v (expected %d but got %d bytes) in %q", e.Kind, e.Expected, e.Actual, e.Entry)
}

func (e *EntryError) Unwrap() error { return e.Kind }

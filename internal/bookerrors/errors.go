// Package bookerrors holds the typed errors returned by the book, sequencer
// and journal: package-level sentinel errors for simple validation/policy
// failures, and small struct types wherever a caller needs structured
// detail (a path, a sequence number, a byte count) alongside the message.
package bookerrors

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrDuplicateOrderId   = errors.New("duplicate order id")
	ErrZeroQuantity       = errors.New("zero quantity")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrUnknownOrderId     = errors.New("unknown order id")
	ErrInvalidModification = errors.New("invalid modification")
)

// Policy errors.
var (
	ErrPostOnlyWouldCross  = errors.New("post-only order would cross the book")
	ErrFillOrKillUnfillable = errors.New("fill-or-kill order cannot be fully filled")
)

// Resource errors.
var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Snapshot errors.
var (
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrVersionMismatch  = errors.New("snapshot version mismatch")
	ErrSymbolMismatch   = errors.New("snapshot symbol mismatch")
)

// Journal errors.
var (
	ErrMutexPoisoned = errors.New("mutex poisoned")
)

// IoError wraps an underlying I/O failure from the journal with the path
// that failed, if any.
type IoError struct {
	Message string
	Path    string
	Err     error
}

func (e *IoError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("journal io error at %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("journal io error: %s: %v", e.Message, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// CorruptEntryError reports a CRC mismatch discovered on read or during an
// integrity scan.
type CorruptEntryError struct {
	Sequence uint64
	Expected uint32
	Actual   uint32
}

func (e *CorruptEntryError) Error() string {
	return fmt.Sprintf("corrupt journal entry at sequence %d: expected crc %#x, got %#x", e.Sequence, e.Expected, e.Actual)
}

// DeserializationError reports a failure decoding an entry's payload.
type DeserializationError struct {
	Sequence uint64
	Message  string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("failed to deserialize entry at sequence %d: %s", e.Sequence, e.Message)
}

// SerializationError reports a failure encoding a command's payload.
type SerializationError struct {
	Message string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to serialize entry: %s", e.Message)
}

// EntryTooLargeError reports a command whose serialized size exceeds the
// configured segment size.
type EntryTooLargeError struct {
	Bytes       int
	SegmentSize int
}

func (e *EntryTooLargeError) Error() string {
	return fmt.Sprintf("entry of %d bytes exceeds segment size %d", e.Bytes, e.SegmentSize)
}

// InvalidDirectoryError reports a journal directory that does not exist at
// Sequencer startup.
type InvalidDirectoryError struct {
	Path string
}

func (e *InvalidDirectoryError) Error() string {
	return fmt.Sprintf("invalid journal directory: %s", e.Path)
}

// SequenceNotFoundError reports a requested sequence number that does not
// exist in the journal, including gaps.
type SequenceNotFoundError struct {
	Sequence uint64
}

func (e *SequenceNotFoundError) Error() string {
	return fmt.Sprintf("sequence %d not found in journal", e.Sequence)
}

// InvalidEntryHeaderError reports a malformed entry header encountered
// during a segment scan at the given byte offset.
type InvalidEntryHeaderError struct {
	Offset  int64
	Message string
}

func (e *InvalidEntryHeaderError) Error() string {
	return fmt.Sprintf("invalid entry header at offset %d: %s", e.Offset, e.Message)
}

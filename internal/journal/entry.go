package journal

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"io"

	"glacier/internal/bookerrors"
)

// Entry is one record in the journal: a sequencer-assigned sequence number,
// the timestamp the sequencer stamped it with, and an opaque command
// payload the sequencer package encodes and decodes.
//
// On-disk frame, all integers big-endian:
//
//	[4B body length][8B sequence][8B timestamp_ns][payload][4B CRC32]
//
// The CRC32 covers the sequence, timestamp, and payload, not the length
// prefix itself.
type Entry struct {
	Sequence    uint64
	TimestampNs uint64
	Payload     []byte
}

const entryFixedLen = 8 + 8 // sequence + timestamp_ns, before payload

// frameLen returns the total on-disk size of e's encoding.
func frameLen(e Entry) int {
	return 4 + entryFixedLen + len(e.Payload) + 4
}

func encodeEntry(e Entry) []byte {
	bodyLen := entryFixedLen + len(e.Payload)
	frame := make([]byte, 4+bodyLen+4)

	binary.BigEndian.PutUint32(frame[0:4], uint32(bodyLen))
	binary.BigEndian.PutUint64(frame[4:12], e.Sequence)
	binary.BigEndian.PutUint64(frame[12:20], e.TimestampNs)
	copy(frame[20:20+len(e.Payload)], e.Payload)

	crc := crc32.ChecksumIEEE(frame[4 : 4+bodyLen])
	binary.BigEndian.PutUint32(frame[4+bodyLen:], crc)
	return frame
}

// decodeEntry reads one entry frame from r. A truncated tail — fewer bytes
// available than the frame declares, which happens when a process dies
// mid-write — is reported as io.ErrUnexpectedEOF so callers can treat it as
// "nothing more to read" rather than a corruption. A clean end of stream
// (zero bytes before the length prefix) is reported as io.EOF.
func decodeEntry(r *bufio.Reader) (Entry, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		if err == io.EOF {
			return Entry{}, io.EOF
		}
		return Entry{}, io.ErrUnexpectedEOF
	}
	bodyLen := binary.BigEndian.Uint32(lenBuf)

	rest := make([]byte, int(bodyLen)+4)
	if _, err := io.ReadFull(r, rest); err != nil {
		return Entry{}, io.ErrUnexpectedEOF
	}

	body := rest[:bodyLen]
	wantCRC := binary.BigEndian.Uint32(rest[bodyLen:])
	gotCRC := crc32.ChecksumIEEE(body)
	if gotCRC != wantCRC {
		seq := uint64(0)
		if len(body) >= 8 {
			seq = binary.BigEndian.Uint64(body[0:8])
		}
		return Entry{}, &bookerrors.CorruptEntryError{Sequence: seq, Expected: wantCRC, Actual: gotCRC}
	}

	if len(body) < entryFixedLen {
		return Entry{}, &bookerrors.InvalidEntryHeaderError{Message: "body shorter than fixed header"}
	}

	e := Entry{
		Sequence:    binary.BigEndian.Uint64(body[0:8]),
		TimestampNs: binary.BigEndian.Uint64(body[8:16]),
	}
	if len(body) > entryFixedLen {
		e.Payload = append([]byte(nil), body[entryFixedLen:]...)
	}
	return e, nil
}

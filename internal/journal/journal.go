// Package journal implements the append-only, CRC32-protected command log
// that backs crash-consistent replay for the sequencer.
// Entries are grouped into size-bounded segment files; the first segment is
// named 0 and each later one by the first sequence number it contains.
// Entries are appended durably (flush + fsync before
// Append returns), and replayed in sequence order on recovery.
package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"glacier/internal/bookerrors"
	"glacier/internal/config"
)

const segmentNameWidth = 20 // zero-padded decimal first-sequence, sorts lexically == numerically

// Journal is a single append-only log directory for one symbol's command
// history. The zero value is not usable; construct with Open.
type Journal struct {
	mu sync.Mutex

	dir string
	cfg config.Config

	segments    []segmentMeta // sorted by firstSeq ascending
	active      *os.File
	activeSize  int64
	lastSeq     uint64
	haveLastSeq bool
}

type segmentMeta struct {
	firstSeq uint64
	path     string
}

// Open attaches to an existing journal directory, indexing whatever segment
// files are already there. The directory must already exist —
// InvalidDirectoryError is a startup validation failure, not something the
// journal silently repairs by creating the directory itself.
func Open(dir string, cfg config.Config) (*Journal, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, &bookerrors.InvalidDirectoryError{Path: dir}
	}

	j := &Journal{dir: dir, cfg: cfg}
	if err := j.indexSegments(); err != nil {
		return nil, err
	}
	if err := j.openOrCreateActive(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) indexSegments() error {
	matches, err := filepath.Glob(filepath.Join(j.dir, "*.seg"))
	if err != nil {
		return &bookerrors.IoError{Message: "listing segments", Path: j.dir, Err: err}
	}
	sort.Strings(matches)
	for _, m := range matches {
		base := filepath.Base(m)
		numPart := base[:len(base)-len(".seg")]
		n, err := strconv.ParseUint(numPart, 10, 64)
		if err != nil {
			continue // not one of ours
		}
		j.segments = append(j.segments, segmentMeta{firstSeq: n, path: m})
	}
	return nil
}

func (j *Journal) openOrCreateActive() error {
	var path string
	if len(j.segments) == 0 {
		path = j.segmentPath(0)
		j.segments = append(j.segments, segmentMeta{firstSeq: 0, path: path})
	} else {
		path = j.segments[len(j.segments)-1].path
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &bookerrors.IoError{Message: "opening active segment", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		return &bookerrors.IoError{Message: "statting active segment", Path: path, Err: err}
	}
	j.active = f
	j.activeSize = info.Size()

	// Recover lastSeq/haveLastSeq by scanning what is already on disk.
	return j.VerifyIntegrity()
}

func (j *Journal) segmentPath(firstSeq uint64) string {
	return filepath.Join(j.dir, fmt.Sprintf("%0*d.seg", segmentNameWidth, firstSeq))
}

// Append writes one entry durably: the write is flushed and fsynced before
// Append returns, so a successful return guarantees the entry survives a
// crash. An entry whose encoded size exceeds the configured segment size is
// rejected with EntryTooLargeError rather than silently accepted into an
// oversized segment.
func (j *Journal) Append(sequence uint64, timestampNs uint64, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	e := Entry{Sequence: sequence, TimestampNs: timestampNs, Payload: payload}
	frame := encodeEntry(e)

	if len(frame) > j.cfg.SegmentSizeBytes {
		return &bookerrors.EntryTooLargeError{Bytes: len(frame), SegmentSize: j.cfg.SegmentSizeBytes}
	}

	if j.activeSize > 0 && j.activeSize+int64(len(frame)) > int64(j.cfg.SegmentSizeBytes) {
		if err := j.rotate(sequence); err != nil {
			return err
		}
	}

	if _, err := j.active.Write(frame); err != nil {
		return &bookerrors.IoError{Message: "writing entry", Path: j.active.Name(), Err: err}
	}
	if err := j.active.Sync(); err != nil {
		return &bookerrors.IoError{Message: "fsyncing entry", Path: j.active.Name(), Err: err}
	}

	j.activeSize += int64(len(frame))
	j.lastSeq = sequence
	j.haveLastSeq = true
	return nil
}

func (j *Journal) rotate(nextFirstSeq uint64) error {
	if err := j.active.Close(); err != nil {
		return &bookerrors.IoError{Message: "closing segment on rotate", Path: j.active.Name(), Err: err}
	}
	path := j.segmentPath(nextFirstSeq)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return &bookerrors.IoError{Message: "creating rotated segment", Path: path, Err: err}
	}
	j.segments = append(j.segments, segmentMeta{firstSeq: nextFirstSeq, path: path})
	j.active = f
	j.activeSize = 0
	log.Info().Str("segment", path).Msg("journal rotated to new segment")
	return nil
}

// LastSequence returns the highest sequence number durably recorded, or
// false if the journal is empty.
func (j *Journal) LastSequence() (uint64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq, j.haveLastSeq
}

// ReadFrom replays every entry with Sequence >= from, in order, calling fn
// for each. A gap in the sequence (the journal jumps from N to something
// greater than N+1) is fatal: SequenceNotFoundError, since it means an
// entry was lost rather than simply not yet reached. fn's own error stops
// the replay and is returned unwrapped.
func (j *Journal) ReadFrom(from uint64, fn func(Entry) error) error {
	j.mu.Lock()
	segments := append([]segmentMeta(nil), j.segments...)
	j.mu.Unlock()

	var expected uint64
	haveExpected := false

	for _, seg := range segments {
		if err := j.scanSegment(seg.path, func(e Entry) error {
			if haveExpected && e.Sequence != expected {
				return &bookerrors.SequenceNotFoundError{Sequence: expected}
			}
			expected = e.Sequence + 1
			haveExpected = true
			if e.Sequence < from {
				return nil
			}
			return fn(e)
		}); err != nil {
			return err
		}
	}
	return nil
}

// VerifyIntegrity performs a full scan of every segment, validating every
// entry's CRC32 and the monotonic, gap-free sequence across the whole
// journal. It also has the side effect of establishing lastSeq/haveLastSeq,
// which Open relies on during recovery.
func (j *Journal) VerifyIntegrity() error {
	var expected uint64
	haveExpected := false
	var last uint64
	haveLast := false

	for _, seg := range j.segments {
		if err := j.scanSegment(seg.path, func(e Entry) error {
			if haveExpected && e.Sequence != expected {
				return &bookerrors.SequenceNotFoundError{Sequence: expected}
			}
			expected = e.Sequence + 1
			haveExpected = true
			last = e.Sequence
			haveLast = true
			return nil
		}); err != nil {
			return err
		}
	}

	j.lastSeq = last
	j.haveLastSeq = haveLast
	return nil
}

// scanSegment reads every complete entry in the segment at path, calling fn
// for each. A truncated final entry (a partial write that never completed
// before a crash) ends the scan without error rather than failing recovery.
func (j *Journal) scanSegment(path string, fn func(Entry) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &bookerrors.IoError{Message: "opening segment for scan", Path: path, Err: err}
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		e, err := decodeEntry(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

// Close flushes and closes the active segment file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.active == nil {
		return nil
	}
	if err := j.active.Close(); err != nil {
		return &bookerrors.IoError{Message: "closing segment", Path: j.active.Name(), Err: err}
	}
	return nil
}

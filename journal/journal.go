// Package journal implements the dual-page, crash-safe boot journal: two
// fixed-size BootRecord pages written in a fixed order with an fsync after
// each, so that any single-point failure (torn write, power loss mid-commit,
// corruption of one page) still leaves at least one page recoverable.
//
// Unlike the original C source's module-level journal_state, this package
// returns an explicit *Store handle from Open and never holds process-wide
// mutable state — the preferred alternative named in the source spec's
// design notes. Recovery is exhaustive: Read never reports corruption to
// the caller, it always produces a valid record, self-healing the file as
// a side effect when it has to.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/pacboot/resilience/bootrecord"
	"github.com/pacboot/resilience/pkg/fs"
)

// ErrInvalid reports a record that failed self-validation after the journal
// recomputed its CRC and trailer.
var ErrInvalid = errors.New("journal: invalid")

// ErrClosed reports an operation attempted on a closed or never-opened Store.
var ErrClosed = errors.New("journal: closed")

// ErrLocked reports that another process already holds the journal's
// advisory single-writer lock.
var ErrLocked = errors.New("journal: locked by another process")

const (
	pageAOffset int64 = 0
	pageBOffset       = int64(bootrecord.Size)
	fileSize          = bootrecord.Size * 2
	filePerm          = 0o600
)

// Store is a single-writer handle onto a journal file. The zero value is
// not usable; construct one with Open.
//
// A Store is not safe for concurrent use. The spec's concurrency model is
// single-threaded cooperative: at most one goroutine, and at most one
// process (enforced by an advisory flock acquired in Open and released in
// Close), owns a Store at a time.
type Store struct {
	fsys fs.FS
	path string
	file fs.File
	now  func() uint64

	mu     sync.Mutex
	closed bool
}

// Option configures Open.
type Option func(*Store)

// WithClock overrides the clock used to stamp Record.Timestamp on Write and
// CreateDefault. Defaults to the current Unix time. Tests use this for
// deterministic timestamps.
func WithClock(now func() uint64) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if missing) the two-page journal file at path on
// fsys, acquires the advisory single-writer lock, and establishes the
// two-page invariant for fresh or undersized files: a default record is
// synthesized and fsynced to Page A, then to Page B.
//
// Open does not itself return a record — callers wanting the persisted
// state must call Read after Open, matching the source's split between
// journal_init and journal_read.
func Open(fsys fs.FS, path string, opts ...Option) (*Store, error) {
	if fsys == nil {
		panic("journal: fsys is nil")
	}

	s := &Store{
		fsys: fsys,
		path: path,
		now:  defaultClock,
	}

	for _, opt := range opts {
		opt(s)
	}

	existed, err := fsys.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("journal: stat %q: %w", path, err)
	}

	file, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE, filePerm)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}

	if err := lockFile(file); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("%w: %q: %w", ErrLocked, path, err)
	}

	s.file = file

	info, statErr := file.Stat()
	if statErr != nil {
		_ = s.Close()

		return nil, fmt.Errorf("journal: stat %q: %w", path, statErr)
	}

	if !existed || info.Size() < fileSize {
		def := bootrecord.CreateDefault(s.now)

		if err := s.writePage(pageAOffset, &def); err != nil {
			_ = s.Close()

			return nil, err
		}

		if err := s.writePage(pageBOffset, &def); err != nil {
			_ = s.Close()

			return nil, err
		}
	}

	return s, nil
}

func defaultClock() uint64 {
	return uint64(nowUnix())
}

// Close releases the journal's file handle and advisory lock. Safe to call
// more than once and safe to call on a Store that failed to fully open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		s.closed = true

		return nil
	}

	unlockErr := unlockFile(s.file)
	closeErr := s.file.Close()
	s.closed = true

	return errors.Join(unlockErr, closeErr)
}

// Read recovers the current committed record. It is an alias for Recover —
// the store never trusts a single page, so every read is a full recovery.
func (s *Store) Read() (bootrecord.Record, error) {
	return s.Recover()
}

// Recover performs the dual-page recovery algorithm:
//
//   - both pages valid: the page with the larger BootCount wins; ties
//     prefer Page A. No repair write.
//   - exactly one page valid: its contents are copied to the other page
//     (a repair write, fsynced) and returned.
//   - neither page valid: a fresh default record is synthesized and
//     written to both pages (last-resort policy — the surrounding boot
//     manager is expected to notice BootCount==0 unexpectedly and raise an
//     alert).
//
// Recover never reports corruption to the caller; it always returns a
// valid record.
func (s *Store) Recover() (bootrecord.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return bootrecord.Record{}, ErrClosed
	}

	pageA, aValid := s.readPage(pageAOffset)
	pageB, bValid := s.readPage(pageBOffset)

	switch {
	case aValid && bValid:
		if pageA.BootCount >= pageB.BootCount {
			return pageA, nil
		}

		return pageB, nil

	case aValid:
		if err := s.writePage(pageBOffset, &pageA); err != nil {
			return bootrecord.Record{}, err
		}

		return pageA, nil

	case bValid:
		if err := s.writePage(pageAOffset, &pageB); err != nil {
			return bootrecord.Record{}, err
		}

		return pageB, nil

	default:
		def := bootrecord.CreateDefault(s.now)

		if err := s.writePage(pageAOffset, &def); err != nil {
			return bootrecord.Record{}, err
		}

		if err := s.writePage(pageBOffset, &def); err != nil {
			return bootrecord.Record{}, err
		}

		return def, nil
	}
}

// Write commits rec: Timestamp is overwritten with the current time,
// Trailer and CRC32 are recomputed, then Page A is written and fsynced
// before Page B begins (never concurrently, never reordered — this
// ordering is the basis of the recovery proof in Recover).
//
// If the Page A write fails, Page B is untouched and still holds the
// previous committed record. If the Page B write fails after Page A
// succeeded, Page A holds the newer (higher BootCount) record; the next
// Recover call picks it up by BootCount and repairs Page B. In both
// failure cases Write returns the wrapped IO error.
func (s *Store) Write(rec bootrecord.Record) (bootrecord.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.file == nil {
		return bootrecord.Record{}, ErrClosed
	}

	updated := rec
	updated.Timestamp = s.now()
	bootrecord.Finalize(&updated)

	if !bootrecord.Validate(&updated) {
		return bootrecord.Record{}, fmt.Errorf("%w: record failed self-validation after finalize", ErrInvalid)
	}

	if err := s.writePage(pageAOffset, &updated); err != nil {
		return bootrecord.Record{}, err
	}

	if err := s.writePage(pageBOffset, &updated); err != nil {
		return bootrecord.Record{}, err
	}

	return updated, nil
}

// readPage reads and validates the page at offset. A read failure or a
// failed validation are both treated as "invalid page" — the caller cannot
// tell them apart, which matches the spec's recovery algorithm (both are
// folded into the same case analysis).
func (s *Store) readPage(offset int64) (bootrecord.Record, bool) {
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return bootrecord.Record{}, false
	}

	buf := make([]byte, bootrecord.Size)
	if _, err := io.ReadFull(s.file, buf); err != nil {
		return bootrecord.Record{}, false
	}

	rec, ok := bootrecord.Unmarshal(buf)
	if !ok {
		return bootrecord.Record{}, false
	}

	if !bootrecord.Validate(&rec) {
		return bootrecord.Record{}, false
	}

	return rec, true
}

// writePage writes rec at offset and fsyncs before returning, so the write
// is durable by the time Write or Recover reports success for that page.
func (s *Store) writePage(offset int64, rec *bootrecord.Record) error {
	buf := bootrecord.Marshal(rec)

	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("journal: seek page at %d: %w", offset, err)
	}

	n, err := s.file.Write(buf)
	if err != nil {
		return fmt.Errorf("journal: write page at %d: %w", offset, err)
	}

	if n != len(buf) {
		return fmt.Errorf("journal: short write at %d: wrote %d of %d bytes", offset, n, len(buf))
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("journal: fsync page at %d: %w", offset, err)
	}

	return nil
}

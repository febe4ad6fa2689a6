package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/pacboot/resilience/bootrecord"
	"github.com/pacboot/resilience/pkg/fs"
)

func fixedClock(t uint64) func() uint64 {
	return func() uint64 { return t }
}

func journalPath(t *testing.T) string {
	t.Helper()

	return filepath.Join(t.TempDir(), "journal.dat")
}

func TestOpen_FreshFile_WritesDefaultToBothPages(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path, WithClock(fixedClock(1700000000)))
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Read()
	require.NoError(t, err)
	require.Equal(t, bootrecord.Tier1, rec.Tier)
	require.Equal(t, bootrecord.DefaultTries, rec.TriesT2)
	require.Equal(t, bootrecord.DefaultTries, rec.TriesT3)
	require.Equal(t, uint32(0), rec.Flags)
	require.Equal(t, uint64(0), rec.BootCount)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, bootrecord.Size*2, info.Size())
}

func TestOpen_SecondTimeOnExistingFile_PreservesState(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store1, err := Open(real, path, WithClock(fixedClock(1700000000)))
	require.NoError(t, err)

	rec, err := store1.Read()
	require.NoError(t, err)
	rec.Tier = bootrecord.Tier2
	rec.BootCount = 7

	written, err := store1.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := Open(real, path, WithClock(fixedClock(1700000100)))
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Read()
	require.NoError(t, err)
	require.Equal(t, written, got)
	require.Equal(t, bootrecord.Tier2, got.Tier)
	require.Equal(t, uint64(7), got.BootCount)
}

func TestOpen_SecondHandleWhileFirstOpen_FailsWithErrLocked(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store1, err := Open(real, path)
	require.NoError(t, err)
	defer store1.Close()

	_, err = Open(real, path)
	require.ErrorIs(t, err, ErrLocked)
}

func TestWrite_MonotonicBootCountAcrossCloseReopen(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	for i := uint64(1); i <= 5; i++ {
		store, err := Open(real, path, WithClock(fixedClock(1700000000+i)))
		require.NoError(t, err)

		rec, err := store.Read()
		require.NoError(t, err)

		rec.BootCount = i
		_, err = store.Write(rec)
		require.NoError(t, err)
		require.NoError(t, store.Close())
	}

	store, err := Open(real, path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Read()
	require.NoError(t, err)
	require.Equal(t, uint64(5), got.BootCount)
}

func TestWrite_BrownoutFlagLatchesAcrossReopen(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store1, err := Open(real, path)
	require.NoError(t, err)

	rec, err := store1.Read()
	require.NoError(t, err)
	rec.SetFlag(bootrecord.FlagBrownout)

	_, err = store1.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store1.Close())

	store2, err := Open(real, path)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Read()
	require.NoError(t, err)
	require.True(t, got.HasFlag(bootrecord.FlagBrownout))
}

func TestWrite_TierTwoTriesExhaustAcrossCycles(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Read()
	require.NoError(t, err)

	for i := 0; i < int(bootrecord.DefaultTries); i++ {
		remaining, err := bootrecord.DecrementTries(&rec, bootrecord.Tier2)
		require.NoError(t, err)
		rec, err = store.Write(rec)
		require.NoError(t, err)
		require.Equal(t, remaining, rec.TriesT2)
	}

	require.Equal(t, uint8(0), rec.TriesT2)

	remaining, err := bootrecord.DecrementTries(&rec, bootrecord.Tier2)
	require.NoError(t, err)
	require.Equal(t, uint8(0), remaining, "tries must saturate at zero, not wrap")
}

func TestRecover_PageACorrupted_RepairsFromPageB(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path)
	require.NoError(t, err)

	rec, err := store.Read()
	require.NoError(t, err)
	rec.Tier = bootrecord.Tier3
	rec.BootCount = 3
	written, err := store.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	corruptByte(t, path, 0)

	store2, err := Open(real, path)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Recover()
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(written, got), "recovered record must equal what was written")

	pageA := readRawPage(t, path, pageAOffset)
	pageB := readRawPage(t, path, pageBOffset)
	require.Equal(t, pageB, pageA, "corrupted page A must be repaired to match page B")
}

func TestRecover_PageBCorrupted_RepairsFromPageA(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path)
	require.NoError(t, err)

	rec, err := store.Read()
	require.NoError(t, err)
	rec.Tier = bootrecord.Tier2
	rec.BootCount = 9
	written, err := store.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	corruptByte(t, path, int64(bootrecord.Size))

	store2, err := Open(real, path)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Recover()
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(written, got), "recovered record must equal what was written")

	pageA := readRawPage(t, path, pageAOffset)
	pageB := readRawPage(t, path, pageBOffset)
	require.Equal(t, pageA, pageB, "corrupted page B must be repaired to match page A")
}

func TestRecover_BothPagesCorrupted_SynthesizesDefault(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path, WithClock(fixedClock(1700000000)))
	require.NoError(t, err)

	rec, err := store.Read()
	require.NoError(t, err)
	rec.BootCount = 42
	_, err = store.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	corruptByte(t, path, 0)
	corruptByte(t, path, int64(bootrecord.Size))

	store2, err := Open(real, path, WithClock(fixedClock(1700000500)))
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Recover()
	require.NoError(t, err)
	require.Equal(t, bootrecord.Tier1, got.Tier)
	require.Equal(t, uint64(0), got.BootCount)
	require.True(t, bootrecord.Validate(&got))
}

func TestRecover_BothPagesValidDifferentBootCount_PrefersHigherNoRepair(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path, WithClock(fixedClock(1700000000)))
	require.NoError(t, err)

	rec, err := store.Read()
	require.NoError(t, err)
	rec.BootCount = 7
	rec, err = store.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Directly overwrite page A with a newer, independently valid record,
	// leaving page B as the older (still valid) committed page. This is
	// the state a crash leaves behind when page A's write/fsync completes
	// but page B's write is never attempted at all.
	newer := rec
	newer.BootCount = 8
	bootrecord.Finalize(&newer)
	writeRawPage(t, path, pageAOffset, bootrecord.Marshal(&newer))

	store2, err := Open(real, path)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Recover()
	require.NoError(t, err)
	require.Equal(t, uint64(8), got.BootCount)

	pageA := readRawPage(t, path, pageAOffset)
	pageB := readRawPage(t, path, pageBOffset)
	require.NotEqual(t, pageA, pageB, "both-valid case must not repair page B")
}

// TestWrite_TornWriteOnPageB_RecoveryRepairsFromPageA reproduces the
// "injected failure before page B's fsync" scenario: page A's write
// succeeds and is synced, then the write to page B fails partway through,
// leaving page B's bytes neither the old nor the new record (a torn
// write). Recovery must treat page B as invalid and repair it from page A.
func TestWrite_TornWriteOnPageB_RecoveryRepairsFromPageA(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	real := fs.NewReal()

	store, err := Open(real, path, WithClock(fixedClock(1700000000)))
	require.NoError(t, err)

	rec, err := store.Read()
	require.NoError(t, err)
	rec.BootCount = 7
	_, err = store.Write(rec)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Open counts happen in pairs (page A, page B) for every fresh-file
	// init and every Write; a pre-existing file skips the init pair, so
	// the next Write's page B write is call #2.
	torn := newTornWriteFS(real, path, 2)

	store2, err := Open(torn, path, WithClock(fixedClock(1700000100)))
	require.NoError(t, err)

	rec2, err := store2.Read()
	require.NoError(t, err)
	rec2.BootCount = 8

	_, writeErr := store2.Write(rec2)
	require.Error(t, writeErr, "the torn write on page B must surface as a write error")
	require.NoError(t, store2.Close())

	store3, err := Open(real, path)
	require.NoError(t, err)
	defer store3.Close()

	got, err := store3.Recover()
	require.NoError(t, err)
	require.Equal(t, uint64(8), got.BootCount)

	pageA := readRawPage(t, path, pageAOffset)
	pageB := readRawPage(t, path, pageBOffset)
	require.Equal(t, pageA, pageB, "page B must be repaired to match page A after recovery")
}

func TestClose_IsIdempotent(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	store, err := Open(fs.NewReal(), path)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

func TestReadWrite_OnClosedStore_ReturnErrClosed(t *testing.T) {
	t.Parallel()

	path := journalPath(t)
	store, err := Open(fs.NewReal(), path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Read()
	require.ErrorIs(t, err, ErrClosed)

	_, err = store.Write(bootrecord.CreateDefault(fixedClock(0)))
	require.ErrorIs(t, err, ErrClosed)
}

func corruptByte(t *testing.T, path string, offset int64) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 1)
	_, err = f.ReadAt(buf, offset)
	require.NoError(t, err)

	buf[0] ^= 0xFF

	_, err = f.WriteAt(buf, offset)
	require.NoError(t, err)
}

func readRawPage(t *testing.T, path string, offset int64) []byte {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, bootrecord.Size)
	_, err = f.ReadAt(buf, offset)
	require.NoError(t, err)

	return buf
}

func writeRawPage(t *testing.T, path string, offset int64, buf []byte) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteAt(buf, offset)
	require.NoError(t, err)
	require.NoError(t, f.Sync())
}

// tornWriteFS wraps an [fs.FS] and turns the failOnNth call to Write on a
// file opened at path into a torn write: a short write followed by an
// error, leaving the target bytes neither the old nor the new record. The
// failure is keyed on a call count rather than a random rate, so the exact
// commit step that tears can be pinned down in a test.
type tornWriteFS struct {
	fs.FS

	path      string
	failOnNth int
	calls     int
}

func newTornWriteFS(underlying fs.FS, path string, failOnNth int) *tornWriteFS {
	return &tornWriteFS{FS: underlying, path: path, failOnNth: failOnNth}
}

func (t *tornWriteFS) OpenFile(path string, flag int, perm os.FileMode) (fs.File, error) {
	f, err := t.FS.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	if path != t.path {
		return f, nil
	}

	return &tornWriteFile{File: f, owner: t}, nil
}

type tornWriteFile struct {
	fs.File

	owner *tornWriteFS
}

func (f *tornWriteFile) Write(p []byte) (int, error) {
	f.owner.calls++

	if f.owner.calls != f.owner.failOnNth {
		return f.File.Write(p)
	}

	half := len(p) / 2

	n, err := f.File.Write(p[:half])
	if err != nil {
		return n, err
	}

	return n, errors.New("journal_test: injected torn write")
}

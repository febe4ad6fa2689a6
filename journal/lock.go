package journal

import (
	"syscall"
)

// lockFile acquires a non-blocking exclusive advisory lock directly on the
// journal file's descriptor, held for the lifetime of the Store (released
// in Close).
//
// This differs from the ticket store's lock, which uses a separate
// ".lock" sibling file so that acquiring/releasing a lock never touches
// the parent directory's mtime (that store caches directory listings keyed
// on mtime). The journal has no such cache to protect, and its contract is
// single-writer for the life of the process, not per-operation — flocking
// the journal's own fd for the Store's whole lifetime is the simpler
// mechanism and is what the spec's "advisory file lock" note describes.
func lockFile(f fdProvider) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlockFile(f fdProvider) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}

// fdProvider is the subset of fs.File that advisory locking needs.
type fdProvider interface {
	Fd() uintptr
}

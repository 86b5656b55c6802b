package broker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where Linux keeps its POSIX shared-memory namespace as a
// tmpfs-backed directory, used instead of cgo's shm_open/shm_unlink.
const shmDir = "/dev/shm"

// normalizeName prefixes a single leading separator, matching the
// POSIX shm_open naming convention.
func normalizeName(name string) string {
	return "/" + strings.TrimPrefix(name, "/")
}

func shmPath(name string) string {
	return filepath.Join(shmDir, normalizeName(name))
}

// createSegment unlinks any existing segment with this name then
// creates a fresh one exclusively, truncated to size. The unlink does
// not check whether another producer is still using that segment, so
// a running producer is not detected. O_EXCL only reports
// ErrSecondProducer when another process creates the name between
// the unlink and the open.
func createSegment(name string, size int64) (*os.File, error) {
	path := shmPath(name)

	_ = unix.Unlink(path)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0666)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, fmt.Errorf("%w: %s", ErrSecondProducer, path)
		}

		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	file := os.NewFile(uintptr(fd), path)
	if file == nil {
		unix.Close(fd)
		return nil, ErrOpenFailed
	}

	if err := file.Truncate(size); err != nil {
		file.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	return file, nil
}

// openSegment opens an existing segment for a consumer or admin
// attach. It never creates: a missing segment means the producer
// isn't running, which is fatal to the caller.
func openSegment(name string) (*os.File, error) {
	path := shmPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	file := os.NewFile(uintptr(fd), path)
	if file == nil {
		unix.Close(fd)
		return nil, ErrOpenFailed
	}

	return file, nil
}

func statSegment(name string) (int64, error) {
	info, err := os.Stat(shmPath(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	return info.Size(), nil
}

// unlinkSegment removes the segment; a missing name is not an error,
// so repeated unlinks of the same name are safe.
func unlinkSegment(name string) error {
	err := unix.Unlink(shmPath(name))
	if err != nil && !errors.Is(err, unix.ENOENT) {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	return nil
}

//go:build !linux

package ool

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// createAnon allocates an anonymous memory-backed object on BSD-class
// kernels. shm_open(2) with SHM_ANON is the native primitive, but it is
// a libc-only entry point not exposed by golang.org/x/sys/unix's raw
// syscall wrappers; this uses an open-then-unlink idiom in os.TempDir()
// instead: the backing file becomes unreachable by any other path the
// instant Unlink returns, leaving the descriptor as the segment's sole
// owner. Whether the file is memory-backed depends on the filesystem
// behind os.TempDir().
func createAnon() (int, error) {
	path := fmt.Sprintf("%s/fpc-ool-%d-%d", os.TempDir(), os.Getpid(), segmentCounter.next())
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return 0, err
	}
	if err := unix.Unlink(path); err != nil {
		_ = unix.Close(fd)
		return 0, err
	}
	return fd, nil
}

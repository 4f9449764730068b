//go:build linux

package ool

import "golang.org/x/sys/unix"

// createAnon allocates an anonymous, unlinked memory object via
// memfd_create(2), the Linux analogue of FreeBSD's shm_open(SHM_ANON).
func createAnon() (int, error) {
	return unix.MemfdCreate("fpc-ool", unix.MFD_CLOEXEC)
}

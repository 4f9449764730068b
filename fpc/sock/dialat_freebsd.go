//go:build freebsd

package sock

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// connectat resolves relPath against dirFD and connects fd to it via
// the real connectat(2)/Capsicum cap_connectat facility. x/sys/unix
// has no Go wrapper for it, so the raw sockaddr_un and syscall are
// built by hand, mirroring the layout unix.SockaddrUnix.sockaddr()
// uses internally for plain Connect.
func connectat(dirFD, fd int, relPath string) error {
	var raw unix.RawSockaddrUnix
	if len(relPath) == 0 || len(relPath) >= len(raw.Path) {
		return errors.New("sock: relPath too long for sockaddr_un")
	}
	raw.Family = unix.AF_UNIX
	for i := 0; i < len(relPath); i++ {
		raw.Path[i] = int8(relPath[i])
	}
	raw.Len = uint8(3 + len(relPath)) // Family + Len + NUL terminator

	_, _, errno := unix.Syscall6(unix.SYS_CONNECTAT,
		uintptr(dirFD), uintptr(fd), uintptr(unsafe.Pointer(&raw)), uintptr(raw.Len), 0, 0)
	if errno != 0 {
		return errors.Wrap(errno, "sock: connectat")
	}
	return nil
}

//go:build linux

package sock

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// connectat resolves relPath against dirFD and connects fd to it.
// Linux has no connectat(2); /proc/self/fd/<dirFD>/<relPath> is the
// standard workaround other *at-less Linux tools use to connect
// relative to an open directory descriptor without racing a
// getcwd/chdir dance.
func connectat(dirFD, fd int, relPath string) error {
	path := fmt.Sprintf("/proc/self/fd/%d/%s", dirFD, relPath)
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		return errors.Wrap(err, "sock: connect via /proc/self/fd")
	}
	return nil
}

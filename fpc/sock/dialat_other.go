//go:build !linux && !freebsd

package sock

import "github.com/pkg/errors"

// connectat has no portable equivalent outside Linux's /proc/self/fd
// workaround and FreeBSD's native connectat(2)/Capsicum cap_connectat.
func connectat(dirFD, fd int, relPath string) error {
	return errors.New("sock: DialAt is not supported on this platform")
}

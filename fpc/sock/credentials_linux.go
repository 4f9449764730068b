//go:build linux

package sock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PeerCredentials queries SO_PEERCRED for the connected peer's
// {uid, gid, pid}.
func (c *unixConn) PeerCredentials() (Credentials, error) {
	ucred, err := unix.GetsockoptUcred(c.fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "sock: getsockopt SO_PEERCRED")
	}
	return Credentials{UID: ucred.Uid, GID: ucred.Gid, PID: ucred.Pid}, nil
}

//go:build !linux

package sock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PeerCredentials queries LOCAL_PEERCRED for the connected peer's
// {uid, gid}, and LOCAL_PEERPID for its pid — the BSD-family analogue
// of Linux's single SO_PEERCRED query.
func (c *unixConn) PeerCredentials() (Credentials, error) {
	xucred, err := unix.GetsockoptXucred(c.fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "sock: getsockopt LOCAL_PEERCRED")
	}
	var gid uint32
	if xucred.Ngroups > 0 {
		gid = xucred.Groups[0]
	}

	pid, err := unix.GetsockoptInt(c.fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID)
	if err != nil {
		return Credentials{}, errors.Wrap(err, "sock: getsockopt LOCAL_PEERPID")
	}

	return Credentials{UID: xucred.Uid, GID: gid, PID: int32(pid)}, nil
}

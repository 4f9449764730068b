// Package sock implements the transport primitives FPC endpoints sit
// on top of: one connected SOCK_SEQPACKET AF_UNIX socket per endpoint,
// atomic frame send/receive with ancillary descriptor passing, peer
// credential queries, and a listener that accepts inbound connections.
//
// The package exposes a narrow Socket interface (rather than a
// concrete struct) so the endpoint state machine in package fpc can be
// exercised in unit tests against fpc/sock/mocks.MockSocket without a
// real kernel socket.
package sock

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Descriptor is an ancillary descriptor carried alongside a frame.
// Kind is the wire kind tag from spec.md §3. This package does not
// transmit it: SendFrame ignores Kind and RecvFrame leaves it zero, so
// kinds travel only in the frame trailer.
type Descriptor struct {
	FD   int
	Kind uint8
}

// Credentials reports the identity of the process at the far end of a
// connected socket, as returned by PeerCredentials.
type Credentials struct {
	UID uint32
	GID uint32
	PID int32
}

// Socket is the transport surface an FPC endpoint drives: one
// datagram, with its ancillary descriptors, per Send/Recv call.
type Socket interface {
	// SendFrame issues one atomic datagram send carrying frame and fds.
	// An end-of-record marker and MSG_NOSIGNAL are always asserted.
	SendFrame(frame []byte, fds []Descriptor) error

	// RecvFrame issues one atomic datagram receive into buf, returning
	// the number of bytes read and any ancillary descriptors. A
	// zero-length read with no error signals a clean peer close.
	RecvFrame(buf []byte) (n int, fds []Descriptor, err error)

	// PeerCredentials queries the kernel for the identity of the
	// connected peer.
	PeerCredentials() (Credentials, error)

	// Close closes the underlying socket.
	Close() error
}

// unixConn is the real Socket implementation, a connected
// SOCK_SEQPACKET AF_UNIX socket.
type unixConn struct {
	fd int
}

func newUnixConn(fd int) *unixConn { return &unixConn{fd: fd} }

func (c *unixConn) SendFrame(frame []byte, fds []Descriptor) error {
	var oob []byte
	if len(fds) > 0 {
		raw := make([]int, len(fds))
		for i, d := range fds {
			raw[i] = d.FD
		}
		oob = unix.UnixRights(raw...)
	}

	n, err := unix.SendmsgN(c.fd, frame, oob, nil, unix.MSG_EOR|unix.MSG_NOSIGNAL)
	if err != nil {
		return errors.Wrap(err, "sock: sendmsg")
	}
	if n != len(frame) {
		return errors.New("sock: short write on a record-preserving transport")
	}
	return nil
}

func (c *unixConn) RecvFrame(buf []byte) (int, []Descriptor, error) {
	oob := make([]byte, unix.CmsgSpace(4*255))

	n, oobn, flags, _, err := unix.Recvmsg(c.fd, buf, oob, unix.MSG_CMSG_CLOEXEC)
	if err != nil {
		return 0, nil, errors.Wrap(err, "sock: recvmsg")
	}
	if n == 0 {
		return 0, nil, nil // clean peer close
	}
	if flags&unix.MSG_TRUNC != 0 || flags&unix.MSG_CTRUNC != 0 {
		return 0, nil, errors.New("sock: truncated datagram")
	}

	fds, err := parseAncillaryFDs(oob[:oobn])
	if err != nil {
		return 0, nil, err
	}
	return n, fds, nil
}

func parseAncillaryFDs(oob []byte) ([]Descriptor, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, errors.Wrap(err, "sock: parse control message")
	}
	var out []Descriptor
	for _, cmsg := range cmsgs {
		raw, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		for _, fd := range raw {
			out = append(out, Descriptor{FD: fd})
		}
	}
	return out, nil
}

func (c *unixConn) Close() error {
	// close(2) alone does not wake a recvmsg blocked on this fd in
	// another thread; shutdown(2) does, so a pending RecvFrame returns.
	_ = unix.Shutdown(c.fd, unix.SHUT_RDWR)
	return unix.Close(c.fd)
}

// Dial connects to a SOCK_SEQPACKET AF_UNIX socket bound at path.
func Dial(path string) (Socket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "sock: socket")
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "sock: connect")
	}
	return newUnixConn(fd), nil
}

// DialAt connects to a SOCK_SEQPACKET AF_UNIX socket at relPath,
// resolved relative to dirFD — the sandboxed-caller form named in
// spec.md §4.6. Platform-specific: see dialat_linux.go/dialat_other.go.
func DialAt(dirFD int, relPath string) (Socket, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "sock: socket")
	}
	if err := connectat(dirFD, fd, relPath); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "sock: connect")
	}
	return newUnixConn(fd), nil
}

// Pair creates two connected endpoints over a kernel-provided
// SOCK_SEQPACKET socket pair.
func Pair() (a, b Socket, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "sock: socketpair")
	}
	return newUnixConn(fds[0]), newUnixConn(fds[1]), nil
}

// Listener is a bound, listening SOCK_SEQPACKET AF_UNIX socket.
type Listener struct {
	fd   int
	path string
}

// Listen binds a SOCK_SEQPACKET AF_UNIX socket to path and begins
// listening. Removing any stale filesystem node at path first is the
// caller's responsibility (spec.md §4.5).
func Listen(path string) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrap(err, "sock: socket")
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "sock: bind")
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return nil, errors.Wrap(err, "sock: listen")
	}
	return &Listener{fd: fd, path: path}, nil
}

// Accept blocks until an inbound connection arrives and returns it as
// a new Socket.
func (l *Listener) Accept() (Socket, error) {
	nfd, _, err := unix.Accept4(l.fd, unix.SOCK_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "sock: accept")
	}
	return newUnixConn(nfd), nil
}

// Close closes the listening socket.
func (l *Listener) Close() error {
	// close(2) alone does not wake an accept blocked on this fd in
	// another thread; shutdown(2) does, so a pending Accept returns.
	_ = unix.Shutdown(l.fd, unix.SHUT_RDWR)
	return unix.Close(l.fd)
}

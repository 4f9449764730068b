package sock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPairSendRecv(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()

	require.NoError(t, a.SendFrame([]byte("hello"), nil))

	buf := make([]byte, 64)
	n, fds, err := b.RecvFrame(buf)
	require.NoError(t, err)
	require.Empty(t, fds)
	require.Equal(t, "hello", string(buf[:n]))
}

func TestPairCleanClose(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	require.NoError(t, a.Close())

	buf := make([]byte, 64)
	n, _, err := b.RecvFrame(buf)
	require.NoError(t, err)
	require.Equal(t, 0, n, "a zero-length read signals a clean peer close")
}

func TestPairDescriptorPassing(t *testing.T) {
	a, b, err := Pair()
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	defer func() { _ = b.Close() }()

	r, w, err := pipeFDs()
	require.NoError(t, err)
	defer closeFD(r)

	require.NoError(t, a.SendFrame([]byte("x"), []Descriptor{{FD: w, Kind: 5}}))
	closeFD(w)

	buf := make([]byte, 64)
	n, fds, err := b.RecvFrame(buf)
	require.NoError(t, err)
	require.Equal(t, "x", string(buf[:n]))
	require.Len(t, fds, 1)
	closeFD(fds[0].FD)
}

func TestListenerAcceptsConnection(t *testing.T) {
	path := tempSocketPath(t)

	l, err := Listen(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	accepted := make(chan Socket, 1)
	go func() {
		s, err := l.Accept()
		require.NoError(t, err)
		accepted <- s
	}()

	client, err := Dial(path)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	server := <-accepted
	defer func() { _ = server.Close() }()

	require.NoError(t, client.SendFrame([]byte("ping"), nil))
	buf := make([]byte, 64)
	n, _, err := server.RecvFrame(buf)
	require.NoError(t, err)
	require.Equal(t, "ping", string(buf[:n]))
}

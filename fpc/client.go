package fpc

import (
	"context"
	"time"

	"github.com/hadronlabs/fpc/fpc/sock"
)

// Connect dials the SOCK_SEQPACKET AF_UNIX socket bound at path and
// returns an already-started Endpoint.
func Connect(ctx context.Context, path string, opts ...Option) (*Endpoint, error) {
	return connect(ctx, path, func() (sock.Socket, error) {
		return sock.Dial(path)
	}, opts...)
}

// ConnectAt dials relPath resolved relative to dirFD, the sandboxed
// form used by a caller holding only a directory descriptor rather
// than a resolvable filesystem path.
func ConnectAt(ctx context.Context, dirFD int, relPath string, opts ...Option) (*Endpoint, error) {
	return connect(ctx, relPath, func() (sock.Socket, error) {
		return sock.DialAt(dirFD, relPath)
	}, opts...)
}

func connect(ctx context.Context, path string, dial func() (sock.Socket, error), opts ...Option) (ep *Endpoint, err error) {
	resolved := resolveOptions(opts)
	trace := traceFor(ctx, resolved.Trace)

	trace.DialStart(path)
	start := time.Now()
	defer func() {
		trace.DialDone(path, err, time.Since(start))
	}()

	conn, err := dial()
	if err != nil {
		return nil, err
	}

	ep = NewEndpoint(conn, opts...)
	ep.Start()
	return ep, nil
}

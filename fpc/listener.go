package fpc

import (
	"sync"

	"github.com/hadronlabs/fpc/fpc/sock"
)

// EndpointListener accepts inbound connections on a bound AF_UNIX
// socket and wraps each into an idle Endpoint. The consumer is
// responsible for calling Start on each accepted endpoint.
type EndpointListener struct {
	listener *sock.Listener
	opts     []Option
	trace    *Trace

	conns     chan *Endpoint
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

// Listen binds a SOCK_SEQPACKET AF_UNIX socket at path and launches an
// accept task that delivers each inbound connection, wrapped as an
// idle Endpoint, on Connections.
func Listen(path string, opts ...Option) (*EndpointListener, error) {
	l, err := sock.Listen(path)
	if err != nil {
		return nil, err
	}
	resolved := resolveOptions(opts)

	el := &EndpointListener{
		listener: l,
		opts:     opts,
		trace:    resolved.Trace,
		conns:    make(chan *Endpoint),
		errs:     make(chan error, 1),
		closed:   make(chan struct{}),
	}
	go el.acceptLoop()
	return el, nil
}

// Connections delivers each accepted connection as an idle Endpoint,
// not yet started. The channel is closed once the listener stops
// accepting.
func (el *EndpointListener) Connections() <-chan *Endpoint {
	return el.conns
}

// Err returns the error that caused the accept task to stop, if any.
// It is only meaningful after Connections has been closed.
func (el *EndpointListener) Err() error {
	select {
	case err := <-el.errs:
		return err
	default:
		return nil
	}
}

// Close stops accepting new connections.
func (el *EndpointListener) Close() error {
	err := el.listener.Close()
	el.closeOnce.Do(func() { close(el.closed) })
	return err
}

func (el *EndpointListener) acceptLoop() {
	defer close(el.conns)

	for {
		conn, err := el.listener.Accept()
		el.trace.AcceptDone(err)
		if err != nil {
			el.errs <- err
			return
		}

		ep := NewEndpoint(conn, el.opts...)

		select {
		case el.conns <- ep:
		case <-el.closed:
			_ = ep.Stop()
			return
		}
	}
}

package fpc

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hadronlabs/fpc/fpc/sock"
	"github.com/hadronlabs/fpc/fpc/wire"
	"github.com/hadronlabs/fpc/fpc/wire/ool"
)

// protocolVersion is the only frame version this endpoint understands;
// it matches the wire package's sole supported version byte.
const protocolVersion uint8 = 0

// Endpoint is one side of a connected FPC transport. It owns a reader
// task, a pending-request table keyed by correlation value, and a
// bounded queue of unsolicited inbound messages.
type Endpoint struct {
	conn  sock.Socket
	opts  Options
	trace *Trace

	nextCorrelation uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan Message

	incoming chan Message

	startOnce sync.Once
	stopOnce  sync.Once
	started   int32
	stopped   int32

	readerDone chan struct{}
	stopping   chan struct{}
	closeErr   error
	closeErrMu sync.Mutex

	incomingClaimed int32
}

// NewEndpoint wraps conn in an Endpoint. The endpoint is not usable
// until Start is called.
func NewEndpoint(conn sock.Socket, opts ...Option) *Endpoint {
	resolved := resolveOptions(opts)
	return &Endpoint{
		conn:       conn,
		opts:       resolved,
		trace:      resolved.Trace,
		pending:    make(map[uint64]chan Message),
		incoming:   make(chan Message, resolved.IncomingCapacity),
		readerDone: make(chan struct{}),
		stopping:   make(chan struct{}),
	}
}

// Start launches the endpoint's reader task. Calling Start more than
// once is a no-op.
func (e *Endpoint) Start() {
	e.startOnce.Do(func() {
		atomic.StoreInt32(&e.started, 1)
		go e.readLoop()
	})
}

func (e *Endpoint) isStarted() bool { return atomic.LoadInt32(&e.started) == 1 }
func (e *Endpoint) isStopped() bool { return atomic.LoadInt32(&e.stopped) == 1 }

// Stop terminates the reader task and releases the underlying socket.
// Stop is idempotent; subsequent calls return the error recorded by
// the first call.
func (e *Endpoint) Stop() error {
	e.stopOnce.Do(func() {
		atomic.StoreInt32(&e.stopped, 1)
		close(e.stopping)
		err := e.conn.Close()
		if e.isStarted() {
			<-e.readerDone
		}
		e.setCloseErr(err)
	})
	return e.closeErrValue()
}

func (e *Endpoint) setCloseErr(err error) {
	e.closeErrMu.Lock()
	defer e.closeErrMu.Unlock()
	if e.closeErr == nil {
		e.closeErr = err
	}
}

func (e *Endpoint) closeErrValue() error {
	e.closeErrMu.Lock()
	defer e.closeErrMu.Unlock()
	return e.closeErr
}

// Send transmits an unsolicited message (correlation 0) with no
// expectation of a reply.
func (e *Endpoint) Send(m Message) error {
	m.Correlation = 0
	_, err := e.send(m)
	return err
}

// Reply sends a message answering an inbound request or message
// previously observed with the given token's correlation value.
func (e *Endpoint) Reply(token ReplyToken, m Message) error {
	if token.Correlation() == 0 {
		return ErrInvalidMessageFormat
	}
	m.Correlation = token.Correlation()
	_, err := e.send(m)
	return err
}

// Request sends m and blocks until a reply with a matching
// correlation arrives, ctx is done, or the endpoint stops.
func (e *Endpoint) Request(ctx context.Context, m Message) (Message, error) {
	if !e.isStarted() {
		return Message{}, ErrNotStarted
	}
	if e.isStopped() {
		return Message{}, ErrStopped
	}

	correlation := atomic.AddUint64(&e.nextCorrelation, 1)
	m.Correlation = correlation

	replyCh := make(chan Message, 1)
	e.registerPending(correlation, replyCh)
	defer e.clearPending(correlation)

	trace := traceFor(ctx, e.trace)
	trace.RequestStart(m.ID, correlation)
	start := time.Now()

	if _, err := e.sendFrame(m); err != nil {
		trace.RequestDone(m.ID, correlation, err, time.Since(start))
		return Message{}, err
	}

	select {
	case reply, ok := <-replyCh:
		if !ok {
			trace.RequestDone(m.ID, correlation, ErrDisconnected, time.Since(start))
			return Message{}, ErrDisconnected
		}
		trace.RequestDone(m.ID, correlation, nil, time.Since(start))
		return reply, nil
	case <-ctx.Done():
		trace.RequestDone(m.ID, correlation, ErrRequestCanceled, time.Since(start))
		return Message{}, ErrRequestCanceled
	case <-e.readerDone:
		trace.RequestDone(m.ID, correlation, ErrDisconnected, time.Since(start))
		return Message{}, ErrDisconnected
	}
}

// Incoming returns the channel of unsolicited (or unmatched) inbound
// messages. The channel is closed once the reader task exits. Only one
// caller may claim the stream; a second call returns
// ErrStreamAlreadyClaimed.
func (e *Endpoint) Incoming() (<-chan Message, error) {
	if !atomic.CompareAndSwapInt32(&e.incomingClaimed, 0, 1) {
		return nil, ErrStreamAlreadyClaimed
	}
	return e.incoming, nil
}

// PeerCredentials queries the operating system for the credentials of
// the process on the other end of the socket.
func (e *Endpoint) PeerCredentials() (sock.Credentials, error) {
	creds, err := e.conn.PeerCredentials()
	if err != nil {
		return sock.Credentials{}, &CredentialError{Op: "PeerCredentials", Err: err}
	}
	return creds, nil
}

func (e *Endpoint) registerPending(correlation uint64, ch chan Message) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pending[correlation] = ch
}

func (e *Endpoint) clearPending(correlation uint64) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	delete(e.pending, correlation)
}

func (e *Endpoint) takePending(correlation uint64) (chan Message, bool) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	ch, ok := e.pending[correlation]
	if ok {
		delete(e.pending, correlation)
	}
	return ch, ok
}

func (e *Endpoint) send(m Message) (int, error) {
	if !e.isStarted() {
		return 0, ErrNotStarted
	}
	if e.isStopped() {
		return 0, ErrStopped
	}
	return e.sendFrame(m)
}

func (e *Endpoint) sendFrame(m Message) (int, error) {
	trace := e.trace
	trace.SendStart(m.ID, m.Correlation)
	start := time.Now()

	n, err := e.encodeAndSend(m)

	trace.SendDone(m.ID, m.Correlation, err, time.Since(start))
	return n, err
}

func (e *Endpoint) encodeAndSend(m Message) (int, error) {
	if e.opts.MaxOOLPayload > 0 && len(m.Payload) > e.opts.MaxOOLPayload {
		return 0, ErrPayloadTooLarge
	}
	if len(m.Descriptors) > wire.MaxDescriptors {
		return 0, TooManyDescriptorsError{Count: len(m.Descriptors)}
	}

	frame := wire.Frame{
		ID:          uint32(m.ID),
		Correlation: m.Correlation,
		Version:     protocolVersion,
	}

	var seg ool.Segment
	var haveSeg bool
	if len(m.Payload) > e.opts.InlineThreshold {
		var err error
		seg, err = ool.Create(len(m.Payload))
		if err != nil {
			return 0, errors.Wrap(err, "fpc: create ool segment")
		}
		haveSeg = true
		if err := ool.WriteAndSeal(seg, m.Payload); err != nil {
			_ = ool.Close(seg)
			return 0, errors.Wrap(err, "fpc: write ool segment")
		}
		frame.OOL = true
	} else {
		frame.Payload = m.Payload
	}

	// Slot 0 of both the trailer and the ancillary fds is reserved for
	// the OOL segment when present; application descriptors follow in
	// order behind it.
	fds := descriptorFDs(m.Descriptors)
	kinds := descriptorKinds(m.Descriptors)
	if haveSeg {
		fds = append([]sock.Descriptor{{FD: seg.FD, Kind: uint8(KindSharedMemory)}}, fds...)
		kinds = append([]byte{wire.OOLMarker}, kinds...)
	}
	frame.DescKinds = kinds

	encoded, err := wire.Encode(frame)
	if err != nil {
		if haveSeg {
			_ = ool.Close(seg)
		}
		return 0, errors.Wrap(err, "fpc: encode frame")
	}

	if err := e.conn.SendFrame(encoded, fds); err != nil {
		if haveSeg {
			_ = ool.Close(seg)
		}
		return 0, errors.Wrap(err, "fpc: send frame")
	}

	if haveSeg {
		_ = ool.Close(seg)
	}
	return len(encoded), nil
}

func descriptorKinds(refs []DescriptorRef) []byte {
	kinds := make([]byte, len(refs))
	for i, r := range refs {
		kinds[i] = byte(r.Kind)
	}
	return kinds
}

func descriptorFDs(refs []DescriptorRef) []sock.Descriptor {
	fds := make([]sock.Descriptor, len(refs))
	for i, r := range refs {
		fds[i] = sock.Descriptor{FD: r.FD, Kind: byte(r.Kind)}
	}
	return fds
}

const maxFrameBuf = 1 << 20

func (e *Endpoint) readLoop() {
	defer close(e.readerDone)
	defer close(e.incoming)

	var readErr error
	buf := make([]byte, maxFrameBuf)

	for {
		n, fds, err := e.conn.RecvFrame(buf)
		if err != nil {
			readErr = err
			break
		}
		if n == 0 {
			readErr = ErrDisconnected
			break
		}

		m, err := e.decodeMessage(buf[:n], fds)
		if err != nil {
			e.trace.Error("decode frame", err)
			readErr = err
			break
		}

		e.trace.MessageReceived(m)
		e.route(m)
	}

	e.trace.ConnectionClosed(readErr)
	e.failPending()
}

// closeDescriptors releases every descriptor in fds. It is used to
// reclaim ancillary descriptors already received via SCM_RIGHTS when
// decodeMessage rejects the frame they arrived with — otherwise a
// malformed or mismatched frame leaks real kernel descriptors.
func closeDescriptors(fds []sock.Descriptor) {
	for _, fd := range fds {
		_ = unix.Close(fd.FD)
	}
}

func (e *Endpoint) decodeMessage(buf []byte, fds []sock.Descriptor) (Message, error) {
	frame, err := wire.Decode(buf)
	if err != nil {
		closeDescriptors(fds)
		return Message{}, translateWireError(err)
	}

	// fds is positional, zipped against the trailer's kind tags: slot 0
	// is the OOL segment when frame.OOL is set, and every other slot's
	// kind comes from frame.DescKinds, never from fds itself (sock
	// never populates Descriptor.Kind on receive).
	if len(fds) != len(frame.DescKinds) {
		closeDescriptors(fds)
		return Message{}, fmt.Errorf("%w: %d descriptors but %d trailer kind tags", ErrInvalidMessageFormat, len(fds), len(frame.DescKinds))
	}

	payload := frame.Payload
	descs := make([]DescriptorRef, 0, len(fds))
	for i, fd := range fds {
		kind := DescriptorKind(frame.DescKinds[i])
		if i == 0 && frame.OOL {
			segSize, err := ool.SizeOf(fd.FD)
			if err != nil {
				_ = ool.Close(ool.Segment{FD: fd.FD})
				closeDescriptors(fds[i+1:])
				return Message{}, errors.Wrap(err, "fpc: inspect ool segment")
			}
			payload, err = ool.MapAndCopy(ool.Segment{FD: fd.FD, Size: segSize})
			_ = ool.Close(ool.Segment{FD: fd.FD})
			if err != nil {
				closeDescriptors(fds[i+1:])
				return Message{}, errors.Wrap(err, "fpc: read ool segment")
			}
			continue
		}
		descs = append(descs, DescriptorRef{FD: fd.FD, Kind: kind})
	}

	return Message{
		ID:          MessageID(frame.ID),
		Correlation: frame.Correlation,
		Payload:     payload,
		Descriptors: descs,
	}, nil
}

// route delivers m either to a waiting Request call (reply isolation:
// a message matched in the pending table is never posted to
// Incoming), or to the bounded incoming queue.
func (e *Endpoint) route(m Message) {
	if m.Correlation != 0 {
		if ch, ok := e.takePending(m.Correlation); ok {
			ch <- m
			return
		}
	}

	select {
	case e.incoming <- m:
	case <-e.stopping:
		e.trace.MessageDropped(m)
	}
}

func (e *Endpoint) failPending() {
	e.pendingMu.Lock()
	pending := e.pending
	e.pending = make(map[uint64]chan Message)
	e.pendingMu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}

// translateWireError maps a package wire decode error onto the public
// fpc error taxonomy so callers never need to import wire directly.
func translateWireError(err error) error {
	switch e := err.(type) {
	case *wire.UnsupportedVersionError:
		return UnsupportedVersionError{Version: e.Version}
	case *wire.TooManyDescriptorsError:
		return TooManyDescriptorsError{Count: e.Count}
	case *wire.FormatError:
		return fmt.Errorf("%w: %s", ErrInvalidMessageFormat, e.Reason)
	default:
		return err
	}
}

func traceFor(ctx context.Context, fallback *Trace) *Trace {
	if t := ContextTrace(ctx); t != NoOpLoggingHooks {
		return t
	}
	return fallback
}

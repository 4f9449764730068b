package fpc

import (
	"context"
	"log"
	"time"

	"github.com/imdario/mergo"
)

// unique type to prevent assignment.
type traceContextKey struct{}

// ContextTrace returns the Trace associated with the provided context.
// If none is present, it returns NoOpLoggingHooks.
func ContextTrace(ctx context.Context) *Trace {
	trace, _ := ctx.Value(traceContextKey{}).(*Trace)
	if trace == nil {
		trace = NoOpLoggingHooks
	} else {
		_ = mergo.Merge(trace, NoOpLoggingHooks)
	}
	return trace
}

// WithTrace returns a new context based on the provided parent ctx.
// Requests made with the returned context use the provided trace hooks.
func WithTrace(ctx context.Context, trace *Trace) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// Trace defines a structure for handling endpoint trace events. Any
// field left nil is a no-op.
type Trace struct {
	// DialStart is called before a client dial attempt.
	DialStart func(path string)

	// DialDone is called after a dial attempt completes.
	DialDone func(path string, err error, d time.Duration)

	// AcceptDone is called after a listener accepts an inbound
	// connection.
	AcceptDone func(err error)

	// SendStart is called before a message is encoded and sent.
	SendStart func(id MessageID, correlation uint64)

	// SendDone is called after a send completes.
	SendDone func(id MessageID, correlation uint64, err error, d time.Duration)

	// RequestStart is called before Request blocks waiting for a reply.
	RequestStart func(id MessageID, correlation uint64)

	// RequestDone is called after Request returns, whether by reply,
	// cancellation, or error.
	RequestDone func(id MessageID, correlation uint64, err error, d time.Duration)

	// MessageReceived is called for every frame decoded off the wire,
	// before reply routing is applied.
	MessageReceived func(m Message)

	// MessageDropped is called when an unsolicited message is dropped
	// because the incoming queue consumer is not keeping up and the
	// endpoint is shutting down before it could be delivered.
	MessageDropped func(m Message)

	// ConnectionClosed is called once the endpoint's reader task exits.
	ConnectionClosed func(err error)

	// Error is called after any error condition not already covered by
	// a more specific hook.
	Error func(context string, err error)
}

// DefaultLoggingHooks logs only error conditions.
var DefaultLoggingHooks = &Trace{
	Error: func(context string, err error) {
		log.Printf("FPC-Error context:%s err:%v\n", context, err)
	},
}

// MetricLoggingHooks logs timing information for sends and requests.
var MetricLoggingHooks = &Trace{
	SendDone: func(id MessageID, correlation uint64, err error, d time.Duration) {
		log.Printf("FPC-SendDone id:%v correlation:%d err:%v took:%dus\n", id, correlation, err, d.Microseconds())
	},
	RequestDone: func(id MessageID, correlation uint64, err error, d time.Duration) {
		log.Printf("FPC-RequestDone id:%v correlation:%d err:%v took:%dus\n", id, correlation, err, d.Microseconds())
	},
	Error: DefaultLoggingHooks.Error,
}

// DiagnosticLoggingHooks logs every lifecycle and traffic event.
var DiagnosticLoggingHooks = &Trace{
	DialStart: func(path string) {
		log.Printf("FPC-DialStart path:%s\n", path)
	},
	DialDone: func(path string, err error, d time.Duration) {
		log.Printf("FPC-DialDone path:%s err:%v took:%dus\n", path, err, d.Microseconds())
	},
	AcceptDone: func(err error) {
		log.Printf("FPC-AcceptDone err:%v\n", err)
	},
	SendStart: func(id MessageID, correlation uint64) {
		log.Printf("FPC-SendStart id:%v correlation:%d\n", id, correlation)
	},
	SendDone: MetricLoggingHooks.SendDone,
	RequestStart: func(id MessageID, correlation uint64) {
		log.Printf("FPC-RequestStart id:%v correlation:%d\n", id, correlation)
	},
	RequestDone: MetricLoggingHooks.RequestDone,
	MessageReceived: func(m Message) {
		log.Printf("FPC-MessageReceived id:%v correlation:%d len:%d descriptors:%d\n",
			m.ID, m.Correlation, len(m.Payload), len(m.Descriptors))
	},
	MessageDropped: func(m Message) {
		log.Printf("FPC-MessageDropped id:%v correlation:%d\n", m.ID, m.Correlation)
	},
	ConnectionClosed: func(err error) {
		log.Printf("FPC-ConnectionClosed err:%v\n", err)
	},
	Error: DefaultLoggingHooks.Error,
}

// NoOpLoggingHooks is a set of hooks that do nothing. It is the base
// every trace is merged over, so unset fields never need a nil check.
var NoOpLoggingHooks = &Trace{
	DialStart:        func(path string) {},
	DialDone:         func(path string, err error, d time.Duration) {},
	AcceptDone:       func(err error) {},
	SendStart:        func(id MessageID, correlation uint64) {},
	SendDone:         func(id MessageID, correlation uint64, err error, d time.Duration) {},
	RequestStart:     func(id MessageID, correlation uint64) {},
	RequestDone:      func(id MessageID, correlation uint64, err error, d time.Duration) {},
	MessageReceived:  func(m Message) {},
	MessageDropped:   func(m Message) {},
	ConnectionClosed: func(err error) {},
	Error:            func(context string, err error) {},
}

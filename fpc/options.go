package fpc

import "github.com/imdario/mergo"

// Options configures an Endpoint's runtime behaviour.
type Options struct {
	// IncomingCapacity bounds the number of unsolicited messages an
	// Endpoint will buffer before its reader task blocks delivering the
	// next one.
	IncomingCapacity int

	// MaxOOLPayload caps the size of a payload moved out-of-line via an
	// anonymous shared-memory segment. Zero means unlimited.
	MaxOOLPayload int

	// InlineThreshold is the payload size above which the endpoint
	// switches from inlining bytes in the frame to an OOL segment.
	InlineThreshold int

	Trace *Trace
}

// DefaultOptions are the options applied to a new Endpoint unless
// overridden.
var DefaultOptions = Options{
	IncomingCapacity: 64,
	MaxOOLPayload:    0,
	InlineThreshold:  4096,
	Trace:            NoOpLoggingHooks,
}

// Option mutates an Options value at construction time.
type Option func(*Options)

// WithIncomingCapacity overrides the bound on the unsolicited-message
// queue.
func WithIncomingCapacity(n int) Option {
	return func(o *Options) { o.IncomingCapacity = n }
}

// WithMaxOOLPayload sets the largest payload an Endpoint will accept
// before returning ErrPayloadTooLarge. Zero means unlimited.
func WithMaxOOLPayload(n int) Option {
	return func(o *Options) { o.MaxOOLPayload = n }
}

// WithInlineThreshold sets the payload size above which messages move
// out-of-line via an anonymous shared-memory segment.
func WithInlineThreshold(n int) Option {
	return func(o *Options) { o.InlineThreshold = n }
}

// WithDefaultTrace installs a default Trace for an Endpoint, used
// whenever a call is not made with a context carrying its own trace
// (see WithTrace/ContextTrace).
func WithDefaultTrace(trace *Trace) Option {
	return func(o *Options) { o.Trace = trace }
}

func resolveOptions(opts []Option) Options {
	o := Options{}
	for _, apply := range opts {
		apply(&o)
	}
	merged := DefaultOptions
	_ = mergo.Merge(&o, merged)
	return o
}

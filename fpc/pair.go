package fpc

import "github.com/hadronlabs/fpc/fpc/sock"

// Pair creates two already-started endpoints connected over a
// kernel-provided socket pair, with no filesystem path involved. It is
// the cheapest way to set up a transport between a parent and a child
// it is about to fork, or between two goroutines in a test.
func Pair(opts ...Option) (a, b *Endpoint, err error) {
	sa, sb, err := sock.Pair()
	if err != nil {
		return nil, nil, err
	}

	a = NewEndpoint(sa, opts...)
	b = NewEndpoint(sb, opts...)
	a.Start()
	b.Start()
	return a, b, nil
}

// Package fpctest provides on-board test helpers for setting up FPC
// endpoints without a real deployment: loopback pairs, and a listener
// bound to a unique temporary socket path per test.
package fpctest

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hadronlabs/fpc/fpc"
)

// TempSocketPath returns a unique path under dir (or the default
// temporary directory, if dir is empty) suitable for binding a test
// listener. AF_UNIX has no kernel-assigned ephemeral-path equivalent
// to port 0, so uniqueness is manufactured with a UUID suffix.
func TempSocketPath(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "fpc-"+uuid.NewString()+".sock")
}

// TestListener is an EndpointListener bound to a unique temporary path,
// convenient for a test's defer-Close cleanup.
type TestListener struct {
	*fpc.EndpointListener
	Path string
}

// NewTestListener binds a listener at a unique temporary path with the
// supplied options.
func NewTestListener(opts ...fpc.Option) (*TestListener, error) {
	path := TempSocketPath("")
	l, err := fpc.Listen(path, opts...)
	if err != nil {
		return nil, err
	}
	return &TestListener{EndpointListener: l, Path: path}, nil
}

// Close stops the listener and removes the bound socket path.
func (tl *TestListener) Close() error {
	err := tl.EndpointListener.Close()
	_ = os.Remove(tl.Path)
	return err
}

// LoopbackPair is a convenience wrapper around fpc.Pair for tests that
// don't care about the path-based listener/dial flow.
func LoopbackPair(opts ...fpc.Option) (a, b *fpc.Endpoint, err error) {
	return fpc.Pair(opts...)
}

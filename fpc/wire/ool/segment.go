// Package ool implements the out-of-line payload engine: spilling a
// payload that exceeds the inline datagram limit into an anonymous
// shared-memory segment, and materializing it back into an owned
// buffer on the receiving side.
//
// Creation of the anonymous backing object is kernel-specific (see
// segment_linux.go / segment_other.go); everything else — resize, map,
// copy, unmap — is common POSIX mmap(2) machinery from
// golang.org/x/sys/unix.
package ool

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var segmentCounter atomicCounter

type atomicCounter struct{ n uint64 }

func (c *atomicCounter) next() uint64 { return atomic.AddUint64(&c.n, 1) }

// Segment is an anonymous, memory-backed object sized to carry one
// out-of-line payload.
type Segment struct {
	FD   int
	Size int
}

// Create allocates a new anonymous shared-memory segment of the given
// size. The caller owns the returned descriptor and must Close it when
// done; WriteAndSeal does not close it.
func Create(size int) (Segment, error) {
	fd, err := createAnon()
	if err != nil {
		return Segment{}, errors.Wrap(err, "ool: create anonymous segment")
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return Segment{}, errors.Wrap(err, "ool: resize segment")
	}
	return Segment{FD: fd, Size: size}, nil
}

// WriteAndSeal maps seg writable, copies payload into it, and unmaps.
// The descriptor itself is left open; the caller passes it as the
// first ancillary descriptor of the outbound datagram and then closes
// it (spec.md §4.2 step 4-6: the sender's mapping is transient, the fd
// travels with the frame).
func WriteAndSeal(seg Segment, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	b, err := unix.Mmap(seg.FD, 0, len(payload), unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "ool: map segment for write")
	}
	copy(b, payload)
	if err := unix.Munmap(b); err != nil {
		return errors.Wrap(err, "ool: unmap after write")
	}
	return nil
}

// MapAndCopy maps seg read-only, copies its bytes into an owned
// buffer, unmaps, and returns the buffer. It does not close seg.FD;
// the caller (the endpoint reader) owns that descriptor and closes it
// once MapAndCopy returns, per spec.md §4.2 receive step 2-3.
func MapAndCopy(seg Segment) ([]byte, error) {
	if seg.Size == 0 {
		return nil, nil
	}
	b, err := unix.Mmap(seg.FD, 0, seg.Size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "ool: map segment for read")
	}
	out := make([]byte, seg.Size)
	copy(out, b)
	if err := unix.Munmap(b); err != nil {
		return nil, errors.Wrap(err, "ool: unmap after read")
	}
	return out, nil
}

// SizeOf reports the current size of the segment's backing object, as
// observed by the receiver before it knows the original payload
// length (spec.md §4.2 receive step 2: "read its size via
// file-status").
func SizeOf(fd int) (int, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, errors.Wrap(err, "ool: stat segment")
	}
	return int(st.Size), nil
}

// Close releases the segment's descriptor.
func Close(seg Segment) error {
	return unix.Close(seg.FD)
}

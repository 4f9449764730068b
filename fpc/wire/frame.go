// Package wire implements the FPC fixed-layout binary frame format:
// encode, decode, and validation of the 256-byte header, the payload,
// and the 256-byte trailer. The package performs no I/O; sending and
// receiving the encoded bytes is the responsibility of package sock.
package wire

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSize  = 256
	trailerSize = 256

	// MinFrameSize is the smallest legal encoded frame: header + trailer,
	// zero-length payload.
	MinFrameSize = headerSize + trailerSize

	// MaxDescriptors is the largest number of application descriptors a
	// frame may carry. The OOL marker consumes one additional ancillary
	// slot when present, for a kernel-level ceiling of 255.
	MaxDescriptors = 254

	// OOLMarker is the reserved trailer value signalling that the
	// descriptor at slot 0 is the OOL shared-memory segment rather than
	// an application descriptor.
	OOLMarker = 255

	flagOOL = 1 << 0
)

var byteOrder = binary.LittleEndian

// Frame is the decoded representation of one datagram. ID and
// Correlation are carried as raw integers rather than the root
// package's typed aliases so that wire has no dependency on fpc,
// avoiding an import cycle (fpc imports wire).
type Frame struct {
	ID          uint32
	Correlation uint64
	Payload     []byte
	OOL         bool
	// DescKinds holds one wire kind-tag byte per ancillary descriptor, in
	// order. When OOL is set, DescKinds[0] is always 255 (the OOL
	// marker) and the remaining entries describe the application
	// descriptors that travel alongside the segment.
	DescKinds []byte
	Version   uint8
}

// FormatError reports that a received frame fails a structural or
// invariant check (spec.md §4.1).
type FormatError struct{ Reason string }

func (e *FormatError) Error() string { return "wire: invalid format: " + e.Reason }

// UnsupportedVersionError reports a non-zero version byte.
type UnsupportedVersionError struct{ Version uint8 }

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("wire: unsupported version %d", e.Version)
}

// TooManyDescriptorsError reports an outbound message exceeding
// MaxDescriptors.
type TooManyDescriptorsError struct{ Count int }

func (e *TooManyDescriptorsError) Error() string {
	return fmt.Sprintf("wire: too many descriptors (%d)", e.Count)
}

// Encode writes the three fixed regions of f in order and returns a
// contiguous buffer of length 256 + len(f.Payload) + 256. Reserved
// header bytes and unused trailer slots are left zero.
func Encode(f Frame) ([]byte, error) {
	descCount := len(f.DescKinds)
	if descCount > MaxDescriptors+1 { // +1 permits the OOL marker slot
		return nil, &TooManyDescriptorsError{Count: descCount}
	}
	if err := Validate(f); err != nil {
		return nil, err
	}

	total := MinFrameSize + len(f.Payload)
	buf := make([]byte, total)

	byteOrder.PutUint32(buf[0:4], f.ID)
	byteOrder.PutUint64(buf[4:12], f.Correlation)
	byteOrder.PutUint32(buf[12:16], uint32(len(f.Payload)))
	buf[16] = byte(descCount)
	buf[17] = f.Version
	if f.OOL {
		buf[18] = flagOOL
	}
	// offsets 19..255 remain zero (reserved).

	copy(buf[headerSize:headerSize+len(f.Payload)], f.Payload)

	trailerOff := headerSize + len(f.Payload)
	copy(buf[trailerOff:trailerOff+descCount], f.DescKinds)
	// remaining trailer bytes remain zero.

	return buf, nil
}

// Decode parses b into a Frame, applying every structural check named
// in spec.md §4.1. Any violation returns a *FormatError or
// *UnsupportedVersionError.
func Decode(b []byte) (Frame, error) {
	if len(b) < MinFrameSize {
		return Frame{}, &FormatError{Reason: "short frame"}
	}

	version := b[17]
	if version != 0 {
		return Frame{}, &UnsupportedVersionError{Version: version}
	}

	payloadLen := int(byteOrder.Uint32(b[12:16]))
	descCount := int(b[16])
	flags := b[18]
	ool := flags&flagOOL != 0

	if flags&^flagOOL != 0 {
		return Frame{}, &FormatError{Reason: "reserved flag bits set"}
	}
	if descCount > MaxDescriptors+1 {
		return Frame{}, &FormatError{Reason: "descriptor count out of range"}
	}

	expected := MinFrameSize + payloadLen
	if len(b) != expected {
		return Frame{}, &FormatError{Reason: "length does not match payload length field"}
	}

	payload := b[headerSize : headerSize+payloadLen]
	trailerOff := headerSize + payloadLen
	trailer := b[trailerOff : trailerOff+trailerSize]
	descKinds := append([]byte(nil), trailer[:descCount]...)

	f := Frame{
		ID:          byteOrder.Uint32(b[0:4]),
		Correlation: byteOrder.Uint64(b[4:12]),
		Payload:     append([]byte(nil), payload...),
		OOL:         ool,
		DescKinds:   descKinds,
		Version:     version,
	}

	if err := Validate(f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the invariants in spec.md §3 against an already
// decoded (or about-to-be-encoded) Frame.
func Validate(f Frame) error {
	if len(f.DescKinds) > MaxDescriptors+1 {
		return &FormatError{Reason: "descriptor count out of range"}
	}
	if f.OOL {
		if len(f.Payload) != 0 {
			return &FormatError{Reason: "OOL flag set with non-zero payload length"}
		}
		if len(f.DescKinds) == 0 {
			return &FormatError{Reason: "OOL flag set with no descriptors"}
		}
		if f.DescKinds[0] != OOLMarker {
			return &FormatError{Reason: "OOL flag set but trailer slot 0 is not the OOL marker"}
		}
		return nil
	}
	for _, k := range f.DescKinds {
		if k == OOLMarker {
			return &FormatError{Reason: "OOL marker present without OOL flag"}
		}
	}
	return nil
}

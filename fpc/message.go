// Package fpc implements the FPC transport core: a bidirectional,
// message-oriented IPC layer over connected SOCK_SEQPACKET AF_UNIX
// sockets. See SPEC_FULL.md for the full design.
package fpc

import "fmt"

// MessageID identifies the kind of a Message. Values 1..255 are
// reserved for the system; 0 is unused; values above 255 belong to
// applications.
type MessageID uint32

// System-reserved message identifiers.
const (
	MessagePing         MessageID = 1
	MessagePong         MessageID = 2
	MessageLookup       MessageID = 3
	MessageLookupReply  MessageID = 4
	MessageSubscribe    MessageID = 5
	MessageSubscribeAck MessageID = 6
	MessageEvent        MessageID = 7
	MessageError        MessageID = 255
)

const systemReservedMax MessageID = 255

// IsSystem reports whether id falls in the reserved [1, 255] range.
func (id MessageID) IsSystem() bool { return id != 0 && id <= systemReservedMax }

// IsUser reports whether id falls in the user-assignable [256, ∞) range.
func (id MessageID) IsUser() bool { return id > systemReservedMax }

func (id MessageID) String() string { return fmt.Sprintf("MessageID(%d)", uint32(id)) }

// DescriptorKind tags the kind of an ancillary descriptor (spec.md §3).
type DescriptorKind uint8

const (
	KindUnknown DescriptorKind = iota
	KindFile
	KindDirectory
	KindDevice
	KindSocket
	KindPipe
	KindProcess
	KindKqueue
	KindSharedMemory
	KindEvent
	KindJail
	KindJailOwning
)

// DescriptorRef pairs a transferable descriptor with its kind tag.
type DescriptorRef struct {
	FD   int
	Kind DescriptorKind
}

// Message is the unit callers send and receive: an identifier, a
// correlation value (0 for unsolicited), a payload, and an ordered
// list of descriptor references.
type Message struct {
	ID          MessageID
	Correlation uint64
	Payload     []byte
	Descriptors []DescriptorRef
}

// ReplyToken is a minimal capability — just the correlation value — that
// lets a handler produce a reply without retaining the whole inbound
// Message.
type ReplyToken struct {
	correlation uint64
}

// Correlation returns the correlation value the token carries.
func (t ReplyToken) Correlation() uint64 { return t.correlation }

// Token extracts the ReplyToken for m, for handlers that only need to
// reply and do not want to hold onto the rest of the message.
func (m Message) Token() ReplyToken { return ReplyToken{correlation: m.Correlation} }

// TakeDescriptor removes and returns the file descriptor at slot i,
// transferring ownership to the caller, provided it matches kind. On
// any mismatch — out-of-range slot or wrong kind — it returns (0,
// false) and m is left unmodified, so a caller cannot accidentally
// acquire a descriptor it misidentified.
func (m *Message) TakeDescriptor(i int, kind DescriptorKind) (fd int, ok bool) {
	if i < 0 || i >= len(m.Descriptors) || m.Descriptors[i].Kind != kind {
		return 0, false
	}
	fd = m.Descriptors[i].FD
	m.Descriptors = append(m.Descriptors[:i], m.Descriptors[i+1:]...)
	return fd, true
}

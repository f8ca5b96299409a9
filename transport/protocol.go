// Package transport implements the UDP transmission protocols from spec
// §4.3: Default (best-effort), RequestAck (at-least-once), and
// Handshake (reliable, chunked, at-most-once-capable), plus a faulty
// twin of each for fault-injection testing.
//
// Protocols operate on opaque payload bytes that the caller (rpcclient,
// dispatch) has already compressed — compression/decompression of the
// application-level method payload happens one layer up, exactly as
// spec §4.4 step 2 describes ("Compress; send_bytes"). What each
// protocol's SendBytes/RecvBytes constructs and tears down on the wire
// is its OWN reliability framing (envelope.KindPayload plus whatever
// Ack/Handshake* control frames that protocol needs) around that opaque
// blob.
package transport

import (
	"errors"
	"net"
	"time"
)

// MaxDatagramPayload is the practical UDP payload ceiling (65535 byte
// datagram size field minus the 8-byte UDP header and 20-byte minimum
// IPv4 header), matching the hard check in
// original_source/.../middleware.rs's HandshakeProto::send_and_recv.
const MaxDatagramPayload = 65507

// DefaultChunkSize is used by Handshake when no chunk size is
// configured; it comfortably fits common path MTUs (spec §4.3.3).
const DefaultChunkSize = 1024

var (
	// ErrTimeout is returned when retries are exhausted without a
	// matching response.
	ErrTimeout = errors.New("transport: timed out")
	// ErrTooLarge is returned by Default/RequestAck when the payload
	// exceeds a single UDP datagram (spec §9 open question, resolved in
	// favor of rejecting rather than silently fragmenting).
	ErrTooLarge = errors.New("transport: payload exceeds a single datagram")
	// ErrProtocolViolation is returned when an unexpected envelope kind
	// arrives in a context that doesn't know how to handle it.
	ErrProtocolViolation = errors.New("transport: unexpected envelope variant")
)

// Protocol is the capability set every transmission protocol
// implements (spec §9 "Polymorphic transmission protocol"). There is no
// dynamic swap mid-exchange; callers are parameterized over one concrete
// Protocol at construction.
type Protocol interface {
	// SendBytes transmits payload to target, retrying per the
	// protocol's own delivery guarantee, and returns the number of
	// application bytes sent.
	SendBytes(sock *net.UDPConn, target *net.UDPAddr, payload []byte, timeout time.Duration, retries int) (int, error)

	// RecvBytes blocks for one inbound exchange and returns the sender
	// and the application payload bytes.
	RecvBytes(sock *net.UDPConn, timeout time.Duration, retries int) (*net.UDPAddr, []byte, error)
}

// isTimeout reports whether err is a net.Error timeout, the only signal
// UDP read deadlines give us.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

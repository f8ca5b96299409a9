package transport

import (
	"net"
	"time"

	"udprpc/envelope"
)

// Default implements the Maybe invocation semantics' wire behavior
// (spec §4.3.1): one datagram out, no acknowledgment, no retry. Grounded
// on original_source/.../middleware.rs's SimpleProto, the one fully
// working reference protocol in the original.
type Default struct {
	drop *dropper
}

// NewFaultyDefault returns a Default that silently drops roughly one
// in n outbound datagrams, for fault-injection testing (spec §4.3.4).
func NewFaultyDefault(n uint32) *Default {
	return &Default{drop: newDropper(n)}
}

var _ Protocol = (*Default)(nil)

func (p *Default) SendBytes(sock *net.UDPConn, target *net.UDPAddr, payload []byte, timeout time.Duration, retries int) (int, error) {
	if len(payload) > MaxDatagramPayload {
		return 0, ErrTooLarge
	}
	if _, err := sendEnvelope(sock, target, envelope.Envelope{Kind: envelope.KindPayload, Payload: payload}, p.drop); err != nil {
		return 0, err
	}
	return len(payload), nil
}

func (p *Default) RecvBytes(sock *net.UDPConn, timeout time.Duration, retries int) (*net.UDPAddr, []byte, error) {
	addr, e, err := recvEnvelope(sock, timeout)
	if err != nil {
		return nil, nil, err
	}
	if e.Kind != envelope.KindPayload {
		return addr, nil, ErrProtocolViolation
	}
	return addr, e.Payload, nil
}

package transport

import (
	"net"
	"time"

	"udprpc/envelope"
)

// sendEnvelope encodes e and writes it to target, honoring drop (which
// may be nil for the non-faulty protocols). A simulated drop still
// returns the would-be byte count so callers can't distinguish it from
// a real send — the datagram simply never reaches the wire.
func sendEnvelope(sock *net.UDPConn, target *net.UDPAddr, e envelope.Envelope, drop *dropper) (int, error) {
	b, err := envelope.Encode(e)
	if err != nil {
		return 0, err
	}
	if drop.shouldDrop() {
		return len(b), nil
	}
	return sock.WriteToUDP(b, target)
}

// recvEnvelope reads one datagram within timeout and decodes its
// envelope.
func recvEnvelope(sock *net.UDPConn, timeout time.Duration) (*net.UDPAddr, envelope.Envelope, error) {
	if err := sock.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, envelope.Envelope{}, err
	}
	buf := make([]byte, MaxDatagramPayload)
	n, addr, err := sock.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return nil, envelope.Envelope{}, ErrTimeout
		}
		return nil, envelope.Envelope{}, err
	}
	e, err := envelope.Decode(buf[:n])
	if err != nil {
		return addr, envelope.Envelope{}, err
	}
	return addr, e, nil
}

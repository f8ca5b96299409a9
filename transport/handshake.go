package transport

import (
	"net"
	"time"

	"udprpc/envelope"
)

// Special AckIDs reserved for Handshake's control frames (spec §4.3.3),
// kept well clear of any real chunk sequence number (uint32) cast up
// to uint64.
const (
	initAckID uint64 = ^uint64(0)
	finAckID  uint64 = ^uint64(0) - 1
)

func dataAckID(seq uint32) uint64 { return uint64(seq) }

// Handshake implements the AtMostOnce-capable, fully reliable
// transmission protocol (spec §4.3.3): a three-phase Init/Data*/Fin
// exchange, each phase acknowledged and retried independently, with an
// idle timeout covering the whole transfer. On an incomplete Fin the
// receiver replies with a HandshakeNack naming the first missing chunk;
// the sender does not resend that chunk, it treats the Nack as a
// non-matching reply and retries the Fin. Grounded on
// original_source/.../middleware.rs's HandshakeProto
// (send_and_recv_sequence, transmit_final_ack) and
// protocol/protocol.go's fixed-header framing discipline.
type Handshake struct {
	ChunkSize uint32
	drop      *dropper
}

// NewHandshake returns a Handshake using chunkSize-byte chunks, or
// DefaultChunkSize when chunkSize is 0.
func NewHandshake(chunkSize uint32) *Handshake {
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	return &Handshake{ChunkSize: chunkSize}
}

// NewFaultyHandshake is NewHandshake with roughly one in n outbound
// datagrams silently dropped.
func NewFaultyHandshake(chunkSize uint32, n uint32) *Handshake {
	h := NewHandshake(chunkSize)
	h.drop = newDropper(n)
	return h
}

var _ Protocol = (*Handshake)(nil)

// sendAndAwaitAck transmits env and retries until ackID is observed or
// retries are exhausted.
func (p *Handshake) sendAndAwaitAck(sock *net.UDPConn, target *net.UDPAddr, env envelope.Envelope, ackID uint64, timeout time.Duration, retries int) error {
	for attempt := 0; attempt <= retries; attempt++ {
		if _, err := sendEnvelope(sock, target, env, p.drop); err != nil {
			return err
		}
		addr, resp, err := recvEnvelope(sock, timeout)
		if err != nil {
			if err == ErrTimeout {
				continue
			}
			return err
		}
		if addr.String() != target.String() {
			attempt--
			continue
		}
		if resp.Kind == envelope.KindAck && resp.AckID == ackID {
			return nil
		}
		if resp.Kind == envelope.KindHandshakeNack {
			// Receiver is missing an earlier chunk. The named chunk is
			// not resent; this attempt ends and env is retransmitted.
			continue
		}
	}
	return ErrTimeout
}

func (p *Handshake) SendBytes(sock *net.UDPConn, target *net.UDPAddr, payload []byte, timeout time.Duration, retries int) (int, error) {
	total := uint64(len(payload))
	init := envelope.Envelope{
		Kind: envelope.KindHandshakeInit,
		Init: envelope.HandshakeInit{TotalBytes: total, ChunkSize: p.ChunkSize, SeqBase: 0},
	}
	if err := p.sendAndAwaitAck(sock, target, init, initAckID, timeout, retries); err != nil {
		return 0, err
	}

	chunkSize := int(p.ChunkSize)
	numChunks := 0
	if total > 0 {
		numChunks = (len(payload) + chunkSize - 1) / chunkSize
	}
	for seq := 0; seq < numChunks; seq++ {
		start := seq * chunkSize
		end := start + chunkSize
		if end > len(payload) {
			end = len(payload)
		}
		data := envelope.Envelope{
			Kind: envelope.KindHandshakeData,
			Data: envelope.HandshakeData{Seq: uint32(seq), Bytes: payload[start:end]},
		}
		if err := p.sendAndAwaitAck(sock, target, data, dataAckID(uint32(seq)), timeout, retries); err != nil {
			return 0, err
		}
	}

	lastSeq := uint32(0)
	if numChunks > 0 {
		lastSeq = uint32(numChunks - 1)
	}
	fin := envelope.Envelope{Kind: envelope.KindHandshakeFin, Fin: envelope.HandshakeFin{LastSeq: lastSeq}}
	if err := p.sendAndAwaitAck(sock, target, fin, finAckID, timeout, retries); err != nil {
		return 0, err
	}
	return len(payload), nil
}

// RecvBytes blocks for one complete Init/Data*/Fin transfer from a
// single peer. The idle timeout (timeout * (retries+1)) bounds total
// time without progress; any progress resets it.
func (p *Handshake) RecvBytes(sock *net.UDPConn, timeout time.Duration, retries int) (*net.UDPAddr, []byte, error) {
	idleBudget := timeout * time.Duration(retries+1)

	peerAddr, e, err := recvEnvelope(sock, idleBudget)
	if err != nil {
		return nil, nil, err
	}
	if e.Kind != envelope.KindHandshakeInit {
		return peerAddr, nil, ErrProtocolViolation
	}
	chunkSize := int(e.Init.ChunkSize)
	if chunkSize == 0 {
		chunkSize = DefaultChunkSize
	}
	total := int(e.Init.TotalBytes)
	numChunks := 0
	if total > 0 {
		numChunks = (total + chunkSize - 1) / chunkSize
	}
	if _, err := sendEnvelope(sock, peerAddr, envelope.Envelope{Kind: envelope.KindAck, AckID: initAckID}, p.drop); err != nil {
		return peerAddr, nil, err
	}

	received := make([][]byte, numChunks)
	haveCount := 0

	deadline := time.Now().Add(idleBudget)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return peerAddr, nil, ErrTimeout
		}
		addr, frame, err := recvEnvelope(sock, remaining)
		if err != nil {
			if err == ErrTimeout {
				return peerAddr, nil, ErrTimeout
			}
			return peerAddr, nil, err
		}
		if addr.String() != peerAddr.String() {
			continue
		}
		switch frame.Kind {
		case envelope.KindHandshakeData:
			seq := int(frame.Data.Seq)
			if seq >= 0 && seq < numChunks && received[seq] == nil {
				received[seq] = frame.Data.Bytes
				haveCount++
				deadline = time.Now().Add(idleBudget)
			}
			if _, err := sendEnvelope(sock, peerAddr, envelope.Envelope{Kind: envelope.KindAck, AckID: dataAckID(frame.Data.Seq)}, p.drop); err != nil {
				return peerAddr, nil, err
			}
		case envelope.KindHandshakeFin:
			if haveCount < numChunks {
				// Incomplete: ask for the first gap instead of silently
				// waiting out the sender's blind Fin retry.
				missing := uint32(0)
				for i, c := range received {
					if c == nil {
						missing = uint32(i)
						break
					}
				}
				if _, err := sendEnvelope(sock, peerAddr, envelope.Envelope{Kind: envelope.KindHandshakeNack, Nack: envelope.HandshakeNack{MissingSeq: missing}}, p.drop); err != nil {
					return peerAddr, nil, err
				}
				continue
			}
			if _, err := sendEnvelope(sock, peerAddr, envelope.Envelope{Kind: envelope.KindAck, AckID: finAckID}, p.drop); err != nil {
				return peerAddr, nil, err
			}
			buf := make([]byte, 0, total)
			for _, chunk := range received {
				buf = append(buf, chunk...)
			}
			return peerAddr, buf, nil
		}
	}
}

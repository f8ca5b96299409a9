// Package rpcclient implements the Context Manager (spec §4.4): a
// one-shot, synchronous-from-the-caller's-view RPC client bound to one
// UDP socket, one server address, and one chosen transmission
// protocol.
package rpcclient

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"udprpc/compress"
	"udprpc/envelope"
	"udprpc/transport"
	"udprpc/wire"
)

// InvokeErrorKind classifies a failed Invoke the way spec §4.4/§7
// describes: distinct from envelope.ErrorKind, which is the dispatcher's
// own refusal taxonomy carried inside a Remote error here.
type InvokeErrorKind int

const (
	ErrTimeout InvokeErrorKind = iota
	ErrRemote
	ErrEncode
	ErrDecode
	ErrProtocolViolation
	ErrIO
)

func (k InvokeErrorKind) String() string {
	switch k {
	case ErrTimeout:
		return "Timeout"
	case ErrRemote:
		return "Remote"
	case ErrEncode:
		return "Encode"
	case ErrDecode:
		return "Decode"
	case ErrProtocolViolation:
		return "ProtocolViolation"
	case ErrIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// InvokeError is the error type every Invoke failure is returned as.
type InvokeError struct {
	Kind        InvokeErrorKind
	RemoteKind  envelope.ErrorKind // meaningful only when Kind == ErrRemote
	RemoteDetail string
	Err         error
}

func (e *InvokeError) Error() string {
	if e.Kind == ErrRemote {
		return fmt.Sprintf("rpcclient: remote error %s: %s", e.RemoteKind, e.RemoteDetail)
	}
	if e.Err != nil {
		return fmt.Sprintf("rpcclient: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("rpcclient: %s", e.Kind)
}

func (e *InvokeError) Unwrap() error { return e.Err }

func wrapErr(kind InvokeErrorKind, err error) *InvokeError {
	return &InvokeError{Kind: kind, Err: err}
}

// Config holds the Context Manager's construction-time parameters
// (spec §6 "Configuration").
type Config struct {
	TargetAddress string
	Protocol      transport.Protocol
	Timeout       time.Duration
	Retries       int
}

// Client is a one-shot Context Manager: it owns a bound UDP socket, a
// server address, a chosen transport.Protocol, and fixed timeout/retry
// parameters, and performs exactly one encode→compress→send→recv→
// decompress→decode round trip per Invoke call. It is not pooled or
// reused across concurrent goroutines; callers needing concurrency
// construct one Client per outstanding call, mirroring the teacher's
// client/client.go one-call-per-connection-acquisition shape.
type Client struct {
	sock   *net.UDPConn
	target *net.UDPAddr
	proto  transport.Protocol
	cfg    Config
}

// Dial binds a local UDP socket and resolves cfg.TargetAddress.
func Dial(cfg Config) (*Client, error) {
	target, err := net.ResolveUDPAddr("udp", cfg.TargetAddress)
	if err != nil {
		return nil, wrapErr(ErrIO, err)
	}
	sock, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero})
	if err != nil {
		return nil, wrapErr(ErrIO, err)
	}
	if cfg.Protocol == nil {
		cfg.Protocol = &transport.Default{}
	}
	return &Client{sock: sock, target: target, proto: cfg.Protocol, cfg: cfg}, nil
}

// Close releases the client's socket.
func (c *Client) Close() error { return c.sock.Close() }

// Invoke performs one request/reply exchange for methodSignature,
// following spec §4.4's four steps: wrap request_bytes in a Payload
// envelope and encode it, compress, send_bytes; recv_bytes once,
// decompress; decode the envelope and dispatch on its kind.
func (c *Client) Invoke(methodSignature string, args any) ([]byte, error) {
	reqBytes, err := envelope.EncodeRequest(methodSignature, args)
	if err != nil {
		return nil, wrapErr(ErrEncode, err)
	}
	encoded, err := envelope.Encode(envelope.Envelope{Kind: envelope.KindPayload, Payload: reqBytes})
	if err != nil {
		return nil, wrapErr(ErrEncode, err)
	}

	compressed := compress.Compress(encoded)
	if _, err := c.proto.SendBytes(c.sock, c.target, compressed, c.cfg.Timeout, c.cfg.Retries); err != nil {
		return nil, classifyTransportErr(err)
	}

	_, respBytes, err := c.proto.RecvBytes(c.sock, c.cfg.Timeout, c.cfg.Retries)
	if err != nil {
		return nil, classifyTransportErr(err)
	}

	decompressed, err := compress.Decompress(respBytes)
	if err != nil {
		return nil, wrapErr(ErrDecode, err)
	}
	env, err := envelope.Decode(decompressed)
	if err != nil {
		return nil, wrapErr(ErrDecode, err)
	}

	switch env.Kind {
	case envelope.KindPayload:
		name, payload, err := wire.DecodeVariantName(env.Payload)
		if err != nil {
			return nil, wrapErr(ErrDecode, err)
		}
		if name != envelope.ResponseVariantName(methodSignature) {
			log.Printf("rpcclient: unexpected response variant %q for %s", name, methodSignature)
			return nil, wrapErr(ErrProtocolViolation, errors.New(name))
		}
		return payload, nil
	case envelope.KindErrorResponse:
		return nil, &InvokeError{Kind: ErrRemote, RemoteKind: env.ErrorKind, RemoteDetail: env.ErrorDetail}
	default:
		return nil, wrapErr(ErrProtocolViolation, fmt.Errorf("unexpected envelope kind 0x%02x", byte(env.Kind)))
	}
}

func classifyTransportErr(err error) *InvokeError {
	switch {
	case errors.Is(err, transport.ErrTimeout):
		return wrapErr(ErrTimeout, err)
	case errors.Is(err, transport.ErrTooLarge):
		return wrapErr(ErrEncode, err)
	case errors.Is(err, transport.ErrProtocolViolation):
		return wrapErr(ErrProtocolViolation, err)
	default:
		return wrapErr(ErrIO, err)
	}
}

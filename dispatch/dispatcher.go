// Package dispatch implements the server-side Dispatcher (spec §4.5):
// the main receive loop, the fingerprint-keyed duplicate-suppression
// cache for AtMostOnce, and the PayloadHandler registry with
// longest-signature-prefix routing.
package dispatch

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

// Config holds the dispatcher's construction-time parameters (spec §6).
type Config struct {
	BindAddress string
	Protocol    transport.Protocol
	Semantics   envelope.Semantics
	Timeout     time.Duration
	Retries     int
	CacheTTL    time.Duration
	CacheSize   int

	// Admit, if set, is consulted for every inbound Payload before it
	// reaches the registry; a peer it refuses gets ErrorResponse
	//{ResourceExhausted} instead of being routed. Intended for a
	// ratelimit.PerPeerLimiter.Allow.
	Admit func(peer string) bool
}

// Dispatcher owns the UDP socket, the handler registry, the
// transmission protocol, and (under AtMostOnce) the fingerprint cache.
type Dispatcher struct {
	sock     *net.UDPConn
	registry *Registry
	proto    transport.Protocol
	semantic envelope.Semantics
	timeout  time.Duration
	retries  int
	cache    *FingerprintCache
	admit    func(peer string) bool
}

// New binds cfg.BindAddress and returns a ready Dispatcher.
func New(cfg Config, registry *Registry) (*Dispatcher, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.BindAddress)
	if err != nil {
		return nil, fmt.Errorf("dispatch: resolve bind address: %w", err)
	}
	sock, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dispatch: bind: %w", err)
	}
	proto := cfg.Protocol
	if proto == nil {
		proto = &transport.Default{}
	}
	d := &Dispatcher{
		sock:     sock,
		registry: registry,
		proto:    proto,
		semantic: cfg.Semantics,
		timeout:  cfg.Timeout,
		retries:  cfg.Retries,
		admit:    cfg.Admit,
	}
	if cfg.Semantics == envelope.AtMostOnce {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = 2 * cfg.Timeout * time.Duration(cfg.Retries+1)
		}
		d.cache = NewFingerprintCache(ttl, cfg.CacheSize)
	}
	return d, nil
}

// Close releases the dispatcher's socket.
func (d *Dispatcher) Close() error { return d.sock.Close() }

// Serve runs the main loop (spec §4.5) until the socket is closed or
// stop is closed. It is sequential: one complete envelope, including
// any in-protocol round trips, is processed before the next is
// accepted (spec §5's single-threaded cooperative model).
func (d *Dispatcher) Serve(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		peer, raw, err := d.proto.RecvBytes(d.sock, d.timeout, d.retries)
		if err != nil {
			if err == transport.ErrTimeout {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("dispatch: recv error: %v", err)
			continue
		}

		decompressed, err := compress.Decompress(raw)
		if err != nil {
			log.Printf("dispatch: decompress error from %s: %v", peer, err)
			continue
		}
		env, err := envelope.Decode(decompressed)
		if err != nil {
			log.Printf("dispatch: malformed envelope from %s: %v", peer, err)
			continue
		}
		if env.Kind != envelope.KindPayload {
			// Ack/Handshake* frames are consumed in-protocol by
			// RecvBytes and never reach here; anything else at this
			// point is a peer speaking out of turn.
			log.Printf("dispatch: unexpected top-level kind 0x%02x from %s", byte(env.Kind), peer)
			continue
		}

		if d.admit != nil && !d.admit(peer.String()) {
			d.reply(peer, d.errorEnvelope(envelope.ErrResourceExhausted, "rate limit exceeded"))
			continue
		}

		d.handleOne(peer, env.Payload)
	}
}

func (d *Dispatcher) handleOne(peer *net.UDPAddr, payload []byte) {
	var fp envelope.Fingerprint
	if d.semantic == envelope.AtMostOnce {
		fp = envelope.NewFingerprint(payload, peer.String())
		if cached, ok := d.cache.Get(fp); ok {
			d.reply(peer, cached)
			return
		}
	}

	replyBytes := d.invoke(payload)

	if d.semantic == envelope.AtMostOnce {
		d.cache.Put(fp, replyBytes)
	}
	d.reply(peer, replyBytes)
}

// invoke runs the registered handler and always returns a complete,
// ready-to-send envelope-encoded reply: either a Payload(Response) or
// an ErrorResponse. Handler failures never propagate out of invoke
// (spec §7: "Handler panics/faults are caught... the dispatch loop
// keeps running").
func (d *Dispatcher) invoke(payload []byte) []byte {
	variantName, argPayload, err := wire.DecodeVariantName(payload)
	if err != nil {
		return d.errorEnvelope(envelope.ErrMalformedRequest, err.Error())
	}

	result, herr := d.safeRoute(variantName, argPayload)
	if herr != nil {
		kind, detail := classifyHandlerErr(herr)
		return d.errorEnvelope(kind, detail)
	}

	respBytes, err := envelope.EncodeResponse(result.signature, result.value)
	if err != nil {
		return d.errorEnvelope(envelope.ErrInternalError, err.Error())
	}
	encoded, err := envelope.Encode(envelope.Envelope{Kind: envelope.KindPayload, Payload: respBytes})
	if err != nil {
		return d.errorEnvelope(envelope.ErrInternalError, err.Error())
	}
	return compress.Compress(encoded)
}

// safeRoute recovers from a panicking handler and turns it into an
// InternalError, matching spec §7's failure semantics.
func (d *Dispatcher) safeRoute(variantName string, argPayload []byte) (result dispatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewHandlerError(envelope.ErrInternalError, fmt.Sprintf("handler panic: %v", r))
		}
	}()
	return d.registry.route(variantName, argPayload)
}

func classifyHandlerErr(err error) (envelope.ErrorKind, string) {
	if he, ok := err.(*HandlerError); ok {
		return he.Kind, he.Detail
	}
	return envelope.ErrInternalError, err.Error()
}

func (d *Dispatcher) errorEnvelope(kind envelope.ErrorKind, detail string) []byte {
	encoded, err := envelope.Encode(envelope.Envelope{Kind: envelope.KindErrorResponse, ErrorKind: kind, ErrorDetail: detail})
	if err != nil {
		// Encoding a plain error envelope should never fail; if it
		// somehow does, there is nothing more specific to send back.
		log.Printf("dispatch: failed to encode ErrorResponse: %v", err)
		return nil
	}
	return compress.Compress(encoded)
}

func (d *Dispatcher) reply(peer *net.UDPAddr, replyBytes []byte) {
	if replyBytes == nil {
		return
	}
	if _, err := d.proto.SendBytes(d.sock, peer, replyBytes, d.timeout, d.retries); err != nil {
		log.Printf("dispatch: send reply to %s: %v", peer, err)
	}
}

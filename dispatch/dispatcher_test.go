package dispatch

import (
	"net"
	"testing"
	"time"

	"udprpc/compress"
	"udprpc/envelope"
	"udprpc/transport"
	"udprpc/wire"
)

// callOnce drives one invoke round trip against a running Dispatcher
// using the transport layer directly, standing in for rpcclient so
// this package's tests don't need to import it.
func callOnce(t *testing.T, client *net.UDPConn, proto transport.Protocol, target *net.UDPAddr, signature string, arg any) ([]byte, envelope.Envelope) {
	t.Helper()
	reqBytes, err := envelope.EncodeRequest(signature, arg)
	if err != nil {
		t.Fatal(err)
	}
	encoded, err := envelope.Encode(envelope.Envelope{Kind: envelope.KindPayload, Payload: reqBytes})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := proto.SendBytes(client, target, compress.Compress(encoded), time.Second, 3); err != nil {
		t.Fatal(err)
	}
	_, respRaw, err := proto.RecvBytes(client, time.Second, 3)
	if err != nil {
		t.Fatal(err)
	}
	decompressed, err := compress.Decompress(respRaw)
	if err != nil {
		t.Fatal(err)
	}
	env, err := envelope.Decode(decompressed)
	if err != nil {
		t.Fatal(err)
	}
	return decompressed, env
}

func TestDispatcherEchoAtMostOnce(t *testing.T) {
	var calls int
	reg, err := NewRegistry(Register("Echo", func(n int64) (int64, error) {
		calls++
		return n * 2, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(Config{
		BindAddress: "127.0.0.1:0",
		Semantics:   envelope.AtMostOnce,
		Timeout:     time.Second,
		Retries:     3,
		CacheTTL:    time.Minute,
	}, reg)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	stop := make(chan struct{})
	go d.Serve(stop)
	defer close(stop)

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	serverAddr := d.sock.LocalAddr().(*net.UDPAddr)
	proto := &transport.Default{}

	_, env := callOnce(t, client, proto, serverAddr, "Echo", int64(21))
	if env.Kind != envelope.KindPayload {
		t.Fatalf("want Payload reply, got %v (detail=%s)", env.Kind, env.ErrorDetail)
	}
	_, payload, err := wire.DecodeVariantName(env.Payload)
	if err != nil {
		t.Fatal(err)
	}
	var got int64
	if err := wire.Decode(payload, &got); err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("got %d want 42", got)
	}
	if calls != 1 {
		t.Fatalf("want handler invoked once, got %d", calls)
	}
}

func TestDispatcherUnknownMethodReturnsErrorResponse(t *testing.T) {
	reg, err := NewRegistry(Register("Known", func(n int64) (int64, error) { return n, nil }))
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(Config{
		BindAddress: "127.0.0.1:0",
		Semantics:   envelope.Maybe,
		Timeout:     time.Second,
		Retries:     1,
	}, reg)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	stop := make(chan struct{})
	go d.Serve(stop)
	defer close(stop)

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	serverAddr := d.sock.LocalAddr().(*net.UDPAddr)
	proto := &transport.Default{}

	_, env := callOnce(t, client, proto, serverAddr, "Missing::method", int64(1))
	if env.Kind != envelope.KindErrorResponse {
		t.Fatalf("want ErrorResponse, got %v", env.Kind)
	}
	if env.ErrorKind != envelope.ErrUnknownMethod {
		t.Fatalf("want UnknownMethod, got %v", env.ErrorKind)
	}
}

func TestDispatcherAtMostOnceDeduplicatesUnderRetransmit(t *testing.T) {
	var calls int
	reg, err := NewRegistry(Register("Counter::incr", func(struct{}) (int64, error) {
		calls++
		return int64(calls), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(Config{
		BindAddress: "127.0.0.1:0",
		Semantics:   envelope.AtMostOnce,
		Timeout:     time.Second,
		Retries:     1,
		CacheTTL:    time.Minute,
	}, reg)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	stop := make(chan struct{})
	go d.Serve(stop)
	defer close(stop)

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	serverAddr := d.sock.LocalAddr().(*net.UDPAddr)
	proto := &transport.Default{}

	// Two logically-identical calls from the same source address:
	// the handler must still only run once under AtMostOnce.
	_, env1 := callOnce(t, client, proto, serverAddr, "Counter::incr", struct{}{})
	_, env2 := callOnce(t, client, proto, serverAddr, "Counter::incr", struct{}{})

	if calls != 1 {
		t.Fatalf("want handler invoked exactly once, got %d", calls)
	}
	if string(env1.Payload) != string(env2.Payload) {
		t.Fatal("want byte-identical replies for the duplicate request")
	}
}

func TestDispatcherAdmitRejectsWithResourceExhausted(t *testing.T) {
	reg, err := NewRegistry(Register("Echo", func(n int64) (int64, error) { return n, nil }))
	if err != nil {
		t.Fatal(err)
	}
	d, err := New(Config{
		BindAddress: "127.0.0.1:0",
		Semantics:   envelope.Maybe,
		Timeout:     time.Second,
		Retries:     1,
		Admit:       func(peer string) bool { return false },
	}, reg)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	stop := make(chan struct{})
	go d.Serve(stop)
	defer close(stop)

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	serverAddr := d.sock.LocalAddr().(*net.UDPAddr)
	proto := &transport.Default{}

	_, env := callOnce(t, client, proto, serverAddr, "Echo", int64(7))
	if env.Kind != envelope.KindErrorResponse {
		t.Fatalf("want ErrorResponse, got %v", env.Kind)
	}
	if env.ErrorKind != envelope.ErrResourceExhausted {
		t.Fatalf("want ResourceExhausted, got %v", env.ErrorKind)
	}
}

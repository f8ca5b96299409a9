// Command rfsserver runs a Dispatcher serving the rfsfs collaborator
// over UDP (spec.md §6's server executable; flags cover the
// "Configuration" option list, plus -root for the served directory and
// -rate_limit/-rate_burst for per-peer admission control).
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"udprpc/dispatch"
	"udprpc/envelope"
	"udprpc/ratelimit"
	"udprpc/rfsfs"
	"udprpc/transport"
)

func main() {
	bindAddress := flag.String("bind_address", "127.0.0.1:9090", "UDP address to bind")
	root := flag.String("root", ".", "directory the filesystem collaborator serves")
	semantics := flag.String("invocation_semantics", "at_most_once", "maybe | at_least_once | at_most_once")
	timeout := flag.Duration("timeout", 500*time.Millisecond, "per-attempt timeout")
	retries := flag.Int("retries", 5, "retry count before giving up")
	chunkSize := flag.Uint("chunk_size", transport.DefaultChunkSize, "handshake chunk size in bytes")
	cacheTTL := flag.Duration("cache_ttl", 0, "at-most-once dedup cache TTL (0 = 2*timeout*(retries+1))")
	simulateOmissions := flag.Uint("simulate_omissions", 0, "drop roughly 1 in N outbound datagrams (0 = disabled)")
	rateLimit := flag.Float64("rate_limit", 0, "requests/sec allowed per peer (0 = unlimited)")
	rateBurst := flag.Int("rate_burst", 20, "token bucket burst size per peer")
	flag.Parse()

	sem, err := parseSemantics(*semantics)
	if err != nil {
		log.Fatalf("rfsserver: %v", err)
	}

	proto := protocolFor(sem, uint32(*chunkSize), uint32(*simulateOmissions))

	fs := rfsfs.New(*root)
	registry, err := dispatch.NewRegistry(fs.Entries()...)
	if err != nil {
		log.Fatalf("rfsserver: handler registration: %v", err)
	}

	var admit func(peer string) bool
	if *rateLimit > 0 {
		admit = ratelimit.New(*rateLimit, *rateBurst).Allow
	}

	d, err := dispatch.New(dispatch.Config{
		BindAddress: *bindAddress,
		Protocol:    proto,
		Semantics:   sem,
		Timeout:     *timeout,
		Retries:     *retries,
		CacheTTL:    *cacheTTL,
		Admit:       admit,
	}, registry)
	if err != nil {
		log.Fatalf("rfsserver: %v", err)
	}
	defer d.Close()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	log.Printf("rfsserver: listening on %s (semantics=%s, root=%s)", *bindAddress, sem, *root)
	if err := d.Serve(stop); err != nil {
		log.Fatalf("rfsserver: %v", err)
	}
}

func parseSemantics(s string) (envelope.Semantics, error) {
	switch s {
	case "maybe":
		return envelope.Maybe, nil
	case "at_least_once":
		return envelope.AtLeastOnce, nil
	case "at_most_once":
		return envelope.AtMostOnce, nil
	default:
		log.Printf("rfsserver: unknown invocation_semantics %q, defaulting to at_most_once", s)
		return envelope.AtMostOnce, nil
	}
}

func protocolFor(sem envelope.Semantics, chunkSize, omissionN uint32) transport.Protocol {
	faulty := omissionN > 0
	switch sem {
	case envelope.Maybe:
		if faulty {
			return transport.NewFaultyDefault(omissionN)
		}
		return &transport.Default{}
	case envelope.AtLeastOnce:
		if faulty {
			return transport.NewFaultyRequestAck(omissionN)
		}
		return &transport.RequestAck{}
	default: // AtMostOnce uses Handshake for its reliable, chunk-capable delivery
		if faulty {
			return transport.NewFaultyHandshake(chunkSize, omissionN)
		}
		return transport.NewHandshake(chunkSize)
	}
}

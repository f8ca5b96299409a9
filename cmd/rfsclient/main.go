// Command rfsclient drives one Rfs:: operation against a running
// rfsserver (spec.md §6's client executable; flags mirror rfsserver's
// where they name the same concept).
package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"udprpc/envelope"
	"udprpc/rfsfs"
	"udprpc/rpcclient"
	"udprpc/transport"
	"udprpc/wire"
)

func main() {
	targetAddress := flag.String("target_address", "127.0.0.1:9090", "rfsserver UDP address")
	semantics := flag.String("invocation_semantics", "at_most_once", "maybe | at_least_once | at_most_once")
	timeout := flag.Duration("timeout", 500*time.Millisecond, "per-attempt timeout")
	retries := flag.Int("retries", 5, "retry count before giving up")
	chunkSize := flag.Uint("chunk_size", transport.DefaultChunkSize, "handshake chunk size in bytes")
	op := flag.String("op", "", "read | write | list | stat | mkdir | remove")
	path := flag.String("path", "", "path, relative to the server's root")
	data := flag.String("data", "", "data for write, as a UTF-8 string")
	dataB64 := flag.String("data_base64", "", "data for write, base64-encoded (overrides -data)")
	flag.Parse()

	if *op == "" || *path == "" {
		fmt.Fprintln(os.Stderr, "rfsclient: -op and -path are required")
		flag.Usage()
		os.Exit(2)
	}

	sem, err := parseSemantics(*semantics)
	if err != nil {
		log.Fatalf("rfsclient: %v", err)
	}

	client, err := rpcclient.Dial(rpcclient.Config{
		TargetAddress: *targetAddress,
		Protocol:      protocolFor(sem, uint32(*chunkSize)),
		Timeout:       *timeout,
		Retries:       *retries,
	})
	if err != nil {
		log.Fatalf("rfsclient: dial: %v", err)
	}
	defer client.Close()

	if err := run(client, *op, *path, *data, *dataB64); err != nil {
		log.Fatalf("rfsclient: %v", err)
	}
}

func run(client *rpcclient.Client, op, path, data, dataB64 string) error {
	switch op {
	case "read":
		var out []byte
		if err := invoke(client, "Rfs::read", rfsfs.ReadArgs{Path: path}, &out); err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	case "write":
		payload := []byte(data)
		if dataB64 != "" {
			decoded, err := base64.StdEncoding.DecodeString(dataB64)
			if err != nil {
				return fmt.Errorf("decode -data_base64: %w", err)
			}
			payload = decoded
		}
		var out rfsfs.OK
		if err := invoke(client, "Rfs::write", rfsfs.WriteArgs{Path: path, Data: payload}, &out); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	case "list":
		var out rfsfs.ListResult
		if err := invoke(client, "Rfs::list", rfsfs.PathArgs{Path: path}, &out); err != nil {
			return err
		}
		for _, e := range out.Entries {
			kind := "file"
			if e.IsDir {
				kind = "dir"
			}
			fmt.Printf("%s\t%s\t%d\n", kind, e.Name, e.Size)
		}
		return nil
	case "stat":
		var out rfsfs.StatResult
		if err := invoke(client, "Rfs::stat", rfsfs.PathArgs{Path: path}, &out); err != nil {
			return err
		}
		fmt.Printf("is_dir=%v size=%d mtime_unix=%d\n", out.IsDir, out.Size, out.ModUnix)
		return nil
	case "mkdir":
		var out rfsfs.OK
		if err := invoke(client, "Rfs::mkdir", rfsfs.PathArgs{Path: path}, &out); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	case "remove":
		var out rfsfs.OK
		if err := invoke(client, "Rfs::remove", rfsfs.PathArgs{Path: path}, &out); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	default:
		return fmt.Errorf("unknown -op %q", op)
	}
}

// invoke calls signature with args and decodes the response payload
// into out, translating a remote ErrorResponse into a readable error.
func invoke(client *rpcclient.Client, signature string, args any, out any) error {
	payload, err := client.Invoke(signature, args)
	if err != nil {
		if ie, ok := err.(*rpcclient.InvokeError); ok && ie.Kind == rpcclient.ErrRemote {
			return fmt.Errorf("remote error %s: %s", ie.RemoteKind, ie.RemoteDetail)
		}
		return err
	}
	if b, ok := out.(*[]byte); ok {
		return wire.Decode(payload, b)
	}
	return wire.Decode(payload, out)
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
		return 0, fmt.Errorf("unknown invocation_semantics %q", s)
	}
}

func protocolFor(sem envelope.Semantics, chunkSize uint32) transport.Protocol {
	switch sem {
	case envelope.Maybe:
		return &transport.Default{}
	case envelope.AtLeastOnce:
		return &transport.RequestAck{}
	default:
		return transport.NewHandshake(chunkSize)
	}
}

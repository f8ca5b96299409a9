package envelope

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint is a deterministic digest of (method signature, canonical
// encoded arguments, client address), used to key the dispatcher's
// at-most-once duplicate-suppression cache (spec §3, §9 "fingerprint
// stability"). It must be stable across retries of the exact same
// logical request, which is why it is computed over already-canonical
// encoded bytes rather than re-derived from a Go value (map/struct field
// order could otherwise vary the hash for an identical request).
type Fingerprint string

// NewFingerprint combines the raw request-payload bytes (as received
// off the wire, still wire-encoded) with the peer address that sent
// them.
func NewFingerprint(payload []byte, peerAddr string) Fingerprint {
	h := sha256.New()
	var lenBuf [8]byte

	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	h.Write(lenBuf[:])
	h.Write(payload)

	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(peerAddr)))
	h.Write(lenBuf[:])
	h.Write([]byte(peerAddr))

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

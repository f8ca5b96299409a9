package dispatch

import (
	"sort"
	"strings"

	"udprpc/envelope"
	"udprpc/wire"
)

// HandlerError is the taxonomy a registered method may return to steer
// which ErrorResponse kind the dispatcher replies with (spec §7
// "Handler" kinds). A plain error is treated as InternalError.
type HandlerError struct {
	Kind   envelope.ErrorKind
	Detail string
}

func (e *HandlerError) Error() string { return e.Detail }

func NewHandlerError(kind envelope.ErrorKind, detail string) *HandlerError {
	return &HandlerError{Kind: kind, Detail: detail}
}

// Entry binds a method signature to an invocation function. Build one
// with Register.
type Entry struct {
	Signature string
	invoke    func(payload []byte) (any, error)
}

// Register builds an Entry for a method whose request decodes into Req
// and whose response is a Resp, avoiding hand-rolled per-method
// reflection at the call site (spec §9's sanctioned generics-based
// alternative to the out-of-scope macro-registration mechanism).
func Register[Req any, Resp any](signature string, fn func(Req) (Resp, error)) Entry {
	return Entry{
		Signature: signature,
		invoke: func(payload []byte) (any, error) {
			var req Req
			if err := wire.Decode(payload, &req); err != nil {
				return nil, err
			}
			return fn(req)
		},
	}
}

// Registry is the server-side PayloadHandler (spec §4.5, §6): an
// immutable, collision-checked set of method entries routed by longest
// matching signature prefix.
type Registry struct {
	entries []Entry // sorted by descending len(Signature)
}

// ErrSignaturePrefix is returned by NewRegistry when one signature is a
// strict prefix of another — spec §8's non-negotiable startup check — and
// when the same signature is registered twice (then Short == Long).
type ErrSignaturePrefix struct {
	Short, Long string
}

func (e *ErrSignaturePrefix) Error() string {
	return "dispatch: signature " + e.Short + " is a strict prefix of " + e.Long
}

// NewRegistry validates entries for prefix collisions and returns a
// Registry ready for routing. No two distinct signatures may stand in a
// strict-prefix relationship; violating sets are rejected unconditionally.
func NewRegistry(entries ...Entry) (*Registry, error) {
	for i := range entries {
		for j := range entries {
			if i == j {
				continue
			}
			if entries[i].Signature == entries[j].Signature {
				return nil, &ErrSignaturePrefix{Short: entries[i].Signature, Long: entries[j].Signature}
			}
			if strings.HasPrefix(entries[j].Signature, entries[i].Signature) && len(entries[i].Signature) < len(entries[j].Signature) {
				return nil, &ErrSignaturePrefix{Short: entries[i].Signature, Long: entries[j].Signature}
			}
		}
	}
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(a, b int) bool { return len(sorted[a].Signature) > len(sorted[b].Signature) })
	return &Registry{entries: sorted}, nil
}

// dispatchResult is what routing produces before the caller decides how
// to wrap it into a wire response.
type dispatchResult struct {
	signature string
	value     any
}

// route finds the longest registered signature that is a prefix of
// variantName (the decoded top-level request variant name, e.g.
// "SimpleOps::say_hello::Request") and invokes its handler.
func (r *Registry) route(variantName string, payload []byte) (dispatchResult, error) {
	for _, e := range r.entries {
		if strings.HasPrefix(variantName, e.Signature) {
			v, err := e.invoke(payload)
			return dispatchResult{signature: e.Signature, value: v}, err
		}
	}
	return dispatchResult{}, NewHandlerError(envelope.ErrUnknownMethod, "no handler registered for "+variantName)
}

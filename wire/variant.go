package wire

// Variant is the Go representation of an enum value: a name plus an
// optional payload. Request/Response method payloads and middleware
// envelopes are both encoded as Variant so the wire format can carry a
// discriminator without a schema.
//
// Value is nil for a unit variant (no payload).
type Variant struct {
	Name  string
	Value any
}

// HasPayload reports whether the variant carries a value.
func (v Variant) HasPayload() bool { return v.Value != nil }

// Package wire implements the self-describing tagged binary codec used to
// serialize method payloads and middleware envelopes (see spec §4.1).
//
// Every encoded value is prefixed with a single ASCII type tag. Integers of
// any width are widened to 64 bits on encode; this is intentional — it
// shrinks the encoder's surface area and produces the zero-byte runs that
// package compress specializes in shortening.
package wire

// Type tags. One ASCII byte prefixes every encoded value.
const (
	TagBool  byte = 'c' // condition
	TagNum   byte = 'n' // numeric, widened to 64 bits, big-endian
	TagFloat byte = 'f' // IEEE-754 double, big-endian
	TagBytes byte = 'b'
	TagStr   byte = 's' // also used for general sequences, see decode
	TagTuple byte = 't'
	TagMap   byte = 'm' // also used for structs
	TagEnum  byte = 'e'
	TagOpt   byte = 'o'
)

// Structural delimiters. Literal ASCII bytes required by the parser.
const (
	SeqOpen  byte = '['
	SeqClose byte = ']'

	TupleOpen  byte = '('
	TupleClose byte = ')'

	MapOpen  byte = '{'
	MapClose byte = '}'

	EntryOpen  byte = '<'
	EntryMid   byte = '-'
	EntryClose byte = '>'
)

const (
	boolTrue  byte = 0xFF
	boolFalse byte = 0x00

	optSome byte = 0xFF
	optNone byte = 0x00
)

// Char is a UTF-32 code point serialized as four raw big-endian bytes with
// no leading type tag (spec §4.1's char row marks its tag column "—").
// Unlike every other shape the codec supports, a bare Char cannot be told
// apart from other four-byte content on the wire without external context;
// it can only be decoded where the expected Go type is statically known to
// be Char (a Char decode destination, a struct field, a tuple element, a
// map value).
type Char rune

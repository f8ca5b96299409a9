package wire

import (
	"bytes"
	"testing"
)

func roundTrip[T any](t *testing.T, v T) T {
	t.Helper()
	b, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode(%#v): %v", v, err)
	}
	var out T
	if err := Decode(b, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return out
}

func TestRoundTripPrimitives(t *testing.T) {
	if got := roundTrip(t, true); got != true {
		t.Fatalf("bool: got %v", got)
	}
	if got := roundTrip(t, false); got != false {
		t.Fatalf("bool: got %v", got)
	}
	if got := roundTrip(t, int64(-12345)); got != -12345 {
		t.Fatalf("int64: got %v", got)
	}
	if got := roundTrip(t, uint64(987654321)); got != 987654321 {
		t.Fatalf("uint64: got %v", got)
	}
	if got := roundTrip(t, 3.14159); got != 3.14159 {
		t.Fatalf("float64: got %v", got)
	}
	if got := roundTrip(t, "Hello, world!"); got != "Hello, world!" {
		t.Fatalf("string: got %q", got)
	}
	if got := roundTrip(t, []byte{1, 2, 3, 0, 0, 0, 9}); !bytes.Equal(got, []byte{1, 2, 3, 0, 0, 0, 9}) {
		t.Fatalf("bytes: got %v", got)
	}
}

func TestRoundTripNarrowing(t *testing.T) {
	// Narrowing a u64 into a u8 on decode truncates; this is intentional
	// (spec §9) and exercised explicitly here rather than left implicit.
	orig := uint64(300)
	b, err := Encode(orig)
	if err != nil {
		t.Fatal(err)
	}
	var small uint8
	if err := Decode(b, &small); err != nil {
		t.Fatal(err)
	}
	if want := byte(orig); small != want {
		t.Fatalf("want truncated %d, got %d", want, small)
	}
}

func TestRoundTripSequenceAndTuple(t *testing.T) {
	seq := []int64{1, 2, 3, 4, 5}
	if got := roundTrip(t, seq); len(got) != len(seq) {
		t.Fatalf("seq: got %v", got)
	}

	tup := [2]string{"a", "b"}
	got := roundTrip(t, tup)
	if got != tup {
		t.Fatalf("tuple: got %v want %v", got, tup)
	}
}

func TestRoundTripMap(t *testing.T) {
	m := map[string]int64{"k": 7, "z": 1}
	got := roundTrip(t, m)
	if len(got) != 2 || got["k"] != 7 || got["z"] != 1 {
		t.Fatalf("map: got %v", got)
	}
}

type point struct {
	X int64
	Y int64
}

func TestRoundTripStruct(t *testing.T) {
	p := point{X: 3, Y: 4}
	got := roundTrip(t, p)
	if got != p {
		t.Fatalf("struct: got %v want %v", got, p)
	}
}

func TestRoundTripOption(t *testing.T) {
	var nilPtr *int64
	b, err := Encode(nilPtr)
	if err != nil {
		t.Fatal(err)
	}
	var out *int64
	if err := Decode(b, &out); err != nil {
		t.Fatal(err)
	}
	if out != nil {
		t.Fatalf("want nil, got %v", *out)
	}

	v := int64(42)
	b, err = Encode(&v)
	if err != nil {
		t.Fatal(err)
	}
	var out2 *int64
	if err := Decode(b, &out2); err != nil {
		t.Fatal(err)
	}
	if out2 == nil || *out2 != 42 {
		t.Fatalf("want 42, got %v", out2)
	}
}

func TestRoundTripChar(t *testing.T) {
	got := roundTrip(t, Char('λ'))
	if rune(got) != 'λ' {
		t.Fatalf("char: got %v", got)
	}
}

func TestEnumFixture(t *testing.T) {
	// Mirrors spec §8 scenario 5: CustomPayload::Large{message, data, lookup}.
	type large struct {
		Message [2]string
		Data    [10]byte
		Lookup  map[string]int64
	}

	payload := large{
		Message: [2]string{"t", "hi"},
		Data:    [10]byte{},
		Lookup:  map[string]int64{"k": 7},
	}

	b, err := EncodeVariant("CustomPayload::Large", payload)
	if err != nil {
		t.Fatal(err)
	}

	if b[0] != TagEnum {
		t.Fatalf("want enum tag first, got 0x%02x", b[0])
	}

	name, rest, err := DecodeVariantName(b)
	if err != nil {
		t.Fatal(err)
	}
	if name != "CustomPayload::Large" {
		t.Fatalf("want variant name, got %q", name)
	}

	var decoded large
	if err := Decode(rest, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Lookup["k"] != 7 {
		t.Fatalf("want lookup[k]=7, got %v", decoded.Lookup)
	}
}

func TestDecodeErrorsOnResidualBytes(t *testing.T) {
	b, _ := Encode(int64(1))
	b = append(b, 0xAB)
	var out int64
	err := Decode(b, &out)
	if err == nil {
		t.Fatal("want error on residual bytes")
	}
}

func TestDecodeErrorsOnUnknownTag(t *testing.T) {
	var out int64
	err := Decode([]byte{0xAB, 1, 2, 3, 4, 5, 6, 7, 8}, &out)
	if err == nil {
		t.Fatal("want error on unknown tag")
	}
}

func TestDecodeErrorsOnTruncatedLength(t *testing.T) {
	// claims a huge length but has no bytes backing it
	b := []byte{TagBytes, SeqOpen, TagNum, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF}
	var out []byte
	err := Decode(b, &out)
	if err == nil {
		t.Fatal("want error on length exceeding remaining input")
	}
}

func TestDecodeErrorsOnInvalidUTF8(t *testing.T) {
	b := append([]byte{TagStr, SeqOpen, TagNum, 0, 0, 0, 0, 0, 0, 0, 1}, 0xFF)
	b = append(b, SeqClose)
	var out string
	err := Decode(b, &out)
	if err == nil {
		t.Fatal("want error on invalid UTF-8")
	}
}

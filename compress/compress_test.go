package compress

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3},
		{0},
		{0, 0},
		{0, 0, 0},
		{0, 0, 0, 0},
		{1, 0, 0, 0, 0, 2},
		bytes.Repeat([]byte{0}, 300),
		bytes.Repeat([]byte{0}, 1000),
		append([]byte{9, 9}, append(bytes.Repeat([]byte{0}, 600), 7, 7)...),
	}

	for i, c := range cases {
		got, err := Decompress(Compress(c))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if !bytes.Equal(got, c) {
			t.Fatalf("case %d: round trip mismatch: got %v want %v", i, got, c)
		}
	}
}

func TestRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		n := r.Intn(2000)
		b := make([]byte, n)
		for j := range b {
			if r.Intn(4) == 0 {
				b[j] = 0
			} else {
				b[j] = byte(r.Intn(256))
			}
		}
		got, err := Decompress(Compress(b))
		if err != nil {
			t.Fatalf("iter %d: %v", i, err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("iter %d: mismatch", i)
		}
	}
}

func TestCompressionReducesLongZeroRuns(t *testing.T) {
	b := append([]byte{1, 2, 3}, bytes.Repeat([]byte{0}, 64)...)
	compressed := Compress(b)
	if len(compressed) >= len(b) {
		t.Fatalf("want shorter output, got %d >= %d", len(compressed), len(b))
	}
}

func TestSmallRunsUseOneByteTokens(t *testing.T) {
	for n := 1; n <= 3; n++ {
		in := append([]byte{9}, bytes.Repeat([]byte{0}, n)...)
		in = append(in, 9)
		out := Compress(in)
		// 9, <1-byte token>, 9
		if len(out) != 3 {
			t.Fatalf("n=%d: want 3-byte compressed output, got %d (%v)", n, len(out), out)
		}
	}
}

func TestMediumRunsUseDelimTriple(t *testing.T) {
	in := append([]byte{9}, bytes.Repeat([]byte{0}, 10)...)
	in = append(in, 9)
	out := Compress(in)
	if len(out) != 5 { // 9, DELIM, 10, DELIM, 9
		t.Fatalf("want 5-byte compressed output, got %d (%v)", len(out), out)
	}
	if out[1] != DELIM || out[3] != DELIM || out[2] != 10 {
		t.Fatalf("unexpected token shape: %v", out)
	}
}

func TestDecompressRejectsTruncatedRun(t *testing.T) {
	_, err := Decompress([]byte{DELIM, 5})
	if err == nil {
		t.Fatal("want error on truncated run token")
	}
}

func TestDecompressRejectsTruncatedEscape(t *testing.T) {
	_, err := Decompress([]byte{ESC})
	if err == nil {
		t.Fatal("want error on truncated escape")
	}
}

// TestLiteralReservedBytesSurviveRoundTrip is the regression case from
// review: wire.Encode(int64(1)) produces a 7-byte zero run followed by
// a literal 0x01, and that trailing literal must come back as 0x01,
// not get misread as a one-zero-run token.
func TestLiteralReservedBytesSurviveRoundTrip(t *testing.T) {
	in := []byte{0x6e, 0, 0, 0, 0, 0, 0, 0, 0x01}
	got, err := Decompress(Compress(in))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, in) {
		t.Fatalf("round trip mismatch: got %v want %v", got, in)
	}
}

// TestAllReservedBytesEscapedLiterally exercises every byte value that
// Compress treats specially (small1/small2/small3/DELIM/ESC) appearing
// as ordinary data outside of any zero run, as would happen in an
// arbitrary byte-array ('b'-tagged) payload.
func TestAllReservedBytesEscapedLiterally(t *testing.T) {
	for _, rb := range []byte{small1, small2, small3, DELIM, ESC} {
		in := []byte{9, rb, rb, 9}
		got, err := Decompress(Compress(in))
		if err != nil {
			t.Fatalf("byte 0x%02x: %v", rb, err)
		}
		if !bytes.Equal(got, in) {
			t.Fatalf("byte 0x%02x: round trip mismatch: got %v want %v", rb, got, in)
		}
	}
}

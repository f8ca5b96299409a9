// Package compress implements the zero-run compressor from spec §4.2: a
// run-length pass specialized for the zero bytes package wire's 64-bit
// numeric widening produces.
//
// Escape bytes (spec §9 open question): 0x01, 0x02, 0x03 are the three
// small-run tokens, 0x04 is DELIM (opens/closes a medium/large run
// token), and 0x05 is ESC. Any of these five byte values occurring
// literally in the input — not as a token Compress itself emits — is
// byte-stuffed as ESC followed by the literal byte, so a literal 0x01
// can never be mistaken for a one-zero run on Decompress. This is what
// makes Compress total over arbitrary input, including `wire`'s 'b'
// (byte-array) payloads, which can and do contain any byte value.
package compress

const (
	small1 byte = 0x01
	small2 byte = 0x02
	small3 byte = 0x03

	// DELIM introduces a medium/large run token: DELIM, count, DELIM.
	DELIM byte = 0x04

	// ESC byte-stuffs a literal occurrence of any reserved token byte.
	ESC byte = 0x05

	maxRunChunk = 255
)

func isReserved(b byte) bool {
	return b == small1 || b == small2 || b == small3 || b == DELIM || b == ESC
}

// Compress shortens b by replacing runs of zero bytes with run tokens,
// escaping any literal byte that would otherwise collide with a token.
// Compress(b) round-trips through Decompress for every byte string b,
// including ones containing 0x01-0x05 as ordinary data (spec §4.2's
// "byte arrays tagged b are exempt from re-compression" only means
// their contents never shrink from run-length substitution — they
// still pass through Compress/Decompress safely via escaping, since
// nothing upstream re-parses the wire format to skip them selectively).
func Compress(b []byte) []byte {
	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		if b[i] != 0 {
			if isReserved(b[i]) {
				out = append(out, ESC, b[i])
			} else {
				out = append(out, b[i])
			}
			i++
			continue
		}

		run := runLenAt(b, i)
		for run > 0 {
			chunk := run
			if chunk > maxRunChunk {
				chunk = maxRunChunk
			}
			switch {
			case chunk >= 1 && chunk <= 3:
				out = append(out, smallToken(chunk))
			default:
				out = append(out, DELIM, byte(chunk), DELIM)
			}
			run -= chunk
		}
		i += runLenAt(b, i)
	}
	return out
}

func runLenAt(b []byte, i int) int {
	n := 0
	for i+n < len(b) && b[i+n] == 0 {
		n++
	}
	return n
}

func smallToken(n int) byte {
	switch n {
	case 1:
		return small1
	case 2:
		return small2
	case 3:
		return small3
	default:
		panic("compress: smallToken out of range")
	}
}

func smallCount(tok byte) (int, bool) {
	switch tok {
	case small1:
		return 1, true
	case small2:
		return 2, true
	case small3:
		return 3, true
	default:
		return 0, false
	}
}

// Decompress is the exact inverse of Compress: decompress(compress(x)) ==
// x for every byte string x.
func Decompress(b []byte) ([]byte, error) {
	out := make([]byte, 0, len(b))
	i := 0
	for i < len(b) {
		c := b[i]

		if c == ESC {
			if i+1 >= len(b) {
				return nil, errTruncatedRun(i)
			}
			out = append(out, b[i+1])
			i += 2
			continue
		}

		if n, ok := smallCount(c); ok {
			out = appendZeros(out, n)
			i++
			continue
		}

		if c == DELIM {
			if i+2 >= len(b) || b[i+2] != DELIM {
				return nil, errTruncatedRun(i)
			}
			count := int(b[i+1])
			out = appendZeros(out, count)
			i += 3
			continue
		}

		out = append(out, c)
		i++
	}
	return out, nil
}

func appendZeros(out []byte, n int) []byte {
	for k := 0; k < n; k++ {
		out = append(out, 0)
	}
	return out
}

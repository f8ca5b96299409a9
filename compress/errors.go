package compress

import "fmt"

// Error reports malformed compressed input: a DELIM byte not followed by
// a count byte and a matching closing DELIM, or an ESC byte with
// nothing after it.
type Error struct {
	Offset int
}

func (e *Error) Error() string {
	return fmt.Sprintf("compress: truncated token at offset %d", e.Offset)
}

func errTruncatedRun(offset int) error {
	return &Error{Offset: offset}
}

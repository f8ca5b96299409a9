package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"sort"
)

// Encode serializes v into the tagged binary format described by spec
// §4.1. v may be a bool, any integer/float kind, a string, []byte, a
// slice, array, map, struct, pointer (encoded as an option), Char, or
// Variant. Encode never widens on its own initiative beyond what spec
// §4.1 requires: integers always go out as 8 bytes, floats always as a
// double.
func Encode(v any) ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf, err := appendValue(buf, reflect.ValueOf(v))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendValue(buf []byte, rv reflect.Value) ([]byte, error) {
	if !rv.IsValid() {
		return nil, &EncodeError{Msg: "nil interface value"}
	}

	switch v := rv.Interface().(type) {
	case Char:
		return appendChar(buf, v), nil
	case Variant:
		return appendVariant(buf, v)
	}

	switch rv.Kind() {
	case reflect.Bool:
		return appendBool(buf, rv.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return appendNum(buf, uint64(rv.Int())), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return appendNum(buf, rv.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return appendFloat(buf, rv.Float()), nil

	case reflect.String:
		return appendString(buf, rv.String()), nil

	case reflect.Slice, reflect.Array:
		return appendSeqOrTuple(buf, rv)

	case reflect.Map:
		return appendMap(buf, rv)

	case reflect.Struct:
		return appendStruct(buf, rv)

	case reflect.Ptr:
		return appendOption(buf, rv)

	case reflect.Interface:
		return appendValue(buf, rv.Elem())

	default:
		return nil, &EncodeError{Msg: fmt.Sprintf("unsupported kind %s", rv.Kind())}
	}
}

func appendBool(buf []byte, b bool) []byte {
	buf = append(buf, TagBool)
	if b {
		return append(buf, boolTrue)
	}
	return append(buf, boolFalse)
}

// appendNum writes the 'n' tag followed by 8 big-endian bytes. Signed
// values arrive already bit-cast to uint64 (two's complement) by the
// caller.
func appendNum(buf []byte, bits uint64) []byte {
	buf = append(buf, TagNum)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], bits)
	return append(buf, tmp[:]...)
}

func appendFloat(buf []byte, f float64) []byte {
	buf = append(buf, TagFloat)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(f))
	return append(buf, tmp[:]...)
}

func appendChar(buf []byte, c Char) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(c))
	return append(buf, tmp[:]...)
}

// appendLen writes an 'n'-encoded length prefix (used inside the [ ]
// brackets of bytes/string/sequence shapes).
func appendLen(buf []byte, n int) []byte {
	return appendNum(buf, uint64(n))
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = append(buf, TagBytes, SeqOpen)
	buf = appendLen(buf, len(b))
	buf = append(buf, b...)
	return append(buf, SeqClose)
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, TagStr, SeqOpen)
	buf = appendLen(buf, len(s))
	buf = append(buf, s...)
	return append(buf, SeqClose)
}

// appendSeqOrTuple dispatches a slice/array to the bytes, tuple, or
// sequence shape. A nil slice encodes as a zero-length sequence — there
// is no separate "no value" shape for slices, use a pointer for that.
func appendSeqOrTuple(buf []byte, rv reflect.Value) ([]byte, error) {
	elemKind := rv.Type().Elem().Kind()
	if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && elemKind == reflect.Uint8 {
		return appendBytesValue(buf, rv), nil
	}

	if rv.Kind() == reflect.Array {
		return appendTuple(buf, rv)
	}
	return appendSeq(buf, rv)
}

func appendBytesValue(buf []byte, rv reflect.Value) []byte {
	if rv.Kind() == reflect.Slice {
		return appendBytes(buf, rv.Bytes())
	}
	// fixed-size byte array
	n := rv.Len()
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(rv.Index(i).Uint())
	}
	return appendBytes(buf, b)
}

func appendSeq(buf []byte, rv reflect.Value) ([]byte, error) {
	n := rv.Len()
	buf = append(buf, TagStr, SeqOpen)
	buf = appendLen(buf, n)
	var err error
	for i := 0; i < n; i++ {
		buf, err = appendValue(buf, rv.Index(i))
		if err != nil {
			return nil, err
		}
	}
	return append(buf, SeqClose), nil
}

func appendTuple(buf []byte, rv reflect.Value) ([]byte, error) {
	n := rv.Len()
	buf = append(buf, TagTuple, TupleOpen)
	buf = appendLen(buf, n)
	var err error
	for i := 0; i < n; i++ {
		buf, err = appendValue(buf, rv.Index(i))
		if err != nil {
			return nil, err
		}
	}
	return append(buf, TupleClose), nil
}

func appendMap(buf []byte, rv reflect.Value) ([]byte, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, &EncodeError{Msg: "map keys must be strings"}
	}

	keys := rv.MapKeys()
	// Canonical order: sort encoded entries by key bytes so the same
	// logical map always produces the same bytes (required for stable
	// fingerprints, see envelope.Fingerprint).
	entries := make([]mapEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, mapEntry{key: appendString(nil, k.String()), val: rv.MapIndex(k)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].key, entries[j].key) < 0
	})

	buf = append(buf, TagMap, MapOpen)
	for _, e := range entries {
		buf = append(buf, EntryOpen)
		buf = append(buf, e.key...)
		buf = append(buf, EntryMid)
		var err error
		buf, err = appendValue(buf, e.val)
		if err != nil {
			return nil, err
		}
		buf = append(buf, EntryClose)
	}
	return append(buf, MapClose), nil
}

type mapEntry struct {
	key []byte
	val reflect.Value
}

func appendStruct(buf []byte, rv reflect.Value) ([]byte, error) {
	t := rv.Type()
	buf = append(buf, TagMap, MapOpen)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		buf = append(buf, EntryOpen)
		buf = appendString(buf, name)
		buf = append(buf, EntryMid)
		var err error
		buf, err = appendValue(buf, rv.Field(i))
		if err != nil {
			return nil, err
		}
		buf = append(buf, EntryClose)
	}
	return append(buf, MapClose), nil
}

func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("wire"); tag != "" {
		return tag
	}
	return f.Name
}

func appendOption(buf []byte, rv reflect.Value) ([]byte, error) {
	buf = append(buf, TagOpt)
	if rv.IsNil() {
		return append(buf, optNone), nil
	}
	buf = append(buf, optSome)
	return appendValue(buf, rv.Elem())
}

func appendVariant(buf []byte, v Variant) ([]byte, error) {
	buf = append(buf, TagEnum)
	buf = appendString(buf, v.Name)
	if v.Value == nil {
		return buf, nil
	}
	return appendValue(buf, reflect.ValueOf(v.Value))
}

// EncodeVariant encodes an enum value directly, without needing to wrap
// name+value in a Variant struct first.
func EncodeVariant(name string, value any) ([]byte, error) {
	return Encode(Variant{Name: name, Value: value})
}

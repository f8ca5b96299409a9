package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"unicode/utf8"
)

// Decode deserializes data into v, which must be a non-nil pointer. It
// fails with a *DecodeError if the encoding is malformed or if any bytes
// remain after the top-level value is fully consumed.
func Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &EncodeError{Msg: "Decode destination must be a non-nil pointer"}
	}

	pos := 0
	if err := decodeInto(data, &pos, rv.Elem()); err != nil {
		return err
	}
	if pos != len(data) {
		return newDecodeErr(pos, "end of input", fmt.Sprintf("%d residual byte(s)", len(data)-pos))
	}
	return nil
}

func need(data []byte, pos int, n int, want string) error {
	if pos+n > len(data) {
		return newDecodeErr(pos, want, "insufficient input")
	}
	return nil
}

func expectByte(data []byte, pos *int, want byte, label string) error {
	if err := need(data, *pos, 1, label); err != nil {
		return err
	}
	if data[*pos] != want {
		return newDecodeErr(*pos, label, fmt.Sprintf("byte 0x%02x", data[*pos]))
	}
	*pos++
	return nil
}

func decodeInto(data []byte, pos *int, rv reflect.Value) error {
	switch rv.Interface().(type) {
	case Char:
		c, err := decodeChar(data, pos)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(c))
		return nil
	case Variant:
		v, err := decodeVariantValue(data, pos)
		if err != nil {
			return err
		}
		rv.Set(reflect.ValueOf(v))
		return nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		b, err := decodeBool(data, pos)
		if err != nil {
			return err
		}
		rv.SetBool(b)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := decodeNum(data, pos)
		if err != nil {
			return err
		}
		rv.SetInt(int64(n)) // narrowing truncation is intentional, see design notes
		return nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := decodeNum(data, pos)
		if err != nil {
			return err
		}
		rv.SetUint(n)
		return nil

	case reflect.Float32, reflect.Float64:
		f, err := decodeFloat(data, pos)
		if err != nil {
			return err
		}
		rv.SetFloat(f)
		return nil

	case reflect.String:
		s, err := decodeString(data, pos)
		if err != nil {
			return err
		}
		rv.SetString(s)
		return nil

	case reflect.Slice, reflect.Array:
		return decodeSeqOrTuple(data, pos, rv)

	case reflect.Map:
		return decodeMap(data, pos, rv)

	case reflect.Struct:
		return decodeStruct(data, pos, rv)

	case reflect.Ptr:
		return decodeOption(data, pos, rv)

	default:
		return newDecodeErr(*pos, "supported shape", fmt.Sprintf("kind %s", rv.Kind()))
	}
}

func decodeBool(data []byte, pos *int) (bool, error) {
	if err := expectByte(data, pos, TagBool, "bool tag"); err != nil {
		return false, err
	}
	if err := need(data, *pos, 1, "bool body"); err != nil {
		return false, err
	}
	b := data[*pos] != 0x00
	*pos++
	return b, nil
}

func decodeNum(data []byte, pos *int) (uint64, error) {
	if err := expectByte(data, pos, TagNum, "numeric tag"); err != nil {
		return 0, err
	}
	if err := need(data, *pos, 8, "numeric body"); err != nil {
		return 0, err
	}
	n := binary.BigEndian.Uint64(data[*pos : *pos+8])
	*pos += 8
	return n, nil
}

func decodeFloat(data []byte, pos *int) (float64, error) {
	if err := expectByte(data, pos, TagFloat, "float tag"); err != nil {
		return 0, err
	}
	if err := need(data, *pos, 8, "float body"); err != nil {
		return 0, err
	}
	bits := binary.BigEndian.Uint64(data[*pos : *pos+8])
	*pos += 8
	return math.Float64frombits(bits), nil
}

func decodeChar(data []byte, pos *int) (Char, error) {
	if err := need(data, *pos, 4, "char body"); err != nil {
		return 0, err
	}
	r := binary.BigEndian.Uint32(data[*pos : *pos+4])
	*pos += 4
	return Char(r), nil
}

// decodeLen reads an 'n'-encoded length prefix and range-checks it
// against the remaining input so a corrupt/hostile length can't cause an
// out-of-bounds read downstream.
func decodeLen(data []byte, pos *int) (int, error) {
	n, err := decodeNum(data, pos)
	if err != nil {
		return 0, err
	}
	if n > uint64(len(data)-*pos) {
		return 0, newDecodeErr(*pos, "length within remaining input", fmt.Sprintf("length %d", n))
	}
	return int(n), nil
}

func decodeBytesBody(data []byte, pos *int) ([]byte, error) {
	if err := expectByte(data, pos, SeqOpen, "'[' delimiter"); err != nil {
		return nil, err
	}
	n, err := decodeLen(data, pos)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, data[*pos:*pos+n])
	*pos += n
	if err := expectByte(data, pos, SeqClose, "']' delimiter"); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeBytes(data []byte, pos *int) ([]byte, error) {
	if err := expectByte(data, pos, TagBytes, "bytes tag"); err != nil {
		return nil, err
	}
	return decodeBytesBody(data, pos)
}

func decodeString(data []byte, pos *int) (string, error) {
	if err := expectByte(data, pos, TagStr, "string tag"); err != nil {
		return "", err
	}
	b, err := decodeBytesBody(data, pos)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", newDecodeErr(*pos, "valid UTF-8", "invalid UTF-8 bytes")
	}
	return string(b), nil
}

func decodeSeqOrTuple(data []byte, pos *int, rv reflect.Value) error {
	elemKind := rv.Type().Elem().Kind()
	if elemKind == reflect.Uint8 {
		b, err := decodeBytes(data, pos)
		if err != nil {
			return err
		}
		if rv.Kind() == reflect.Array {
			if len(b) != rv.Len() {
				return newDecodeErr(*pos, fmt.Sprintf("%d byte(s)", rv.Len()), fmt.Sprintf("%d byte(s)", len(b)))
			}
			for i := 0; i < len(b); i++ {
				rv.Index(i).SetUint(uint64(b[i]))
			}
			return nil
		}
		rv.SetBytes(b)
		return nil
	}

	if rv.Kind() == reflect.Array {
		return decodeTupleInto(data, pos, rv)
	}
	return decodeSeqInto(data, pos, rv)
}

func decodeSeqInto(data []byte, pos *int, rv reflect.Value) error {
	if err := expectByte(data, pos, TagStr, "sequence tag"); err != nil {
		return err
	}
	if err := expectByte(data, pos, SeqOpen, "'[' delimiter"); err != nil {
		return err
	}
	n, err := decodeLen(data, pos)
	if err != nil {
		return err
	}
	out := reflect.MakeSlice(rv.Type(), n, n)
	for i := 0; i < n; i++ {
		if err := decodeInto(data, pos, out.Index(i)); err != nil {
			return err
		}
	}
	if err := expectByte(data, pos, SeqClose, "']' delimiter"); err != nil {
		return err
	}
	rv.Set(out)
	return nil
}

func decodeTupleInto(data []byte, pos *int, rv reflect.Value) error {
	if err := expectByte(data, pos, TagTuple, "tuple tag"); err != nil {
		return err
	}
	if err := expectByte(data, pos, TupleOpen, "'(' delimiter"); err != nil {
		return err
	}
	n, err := decodeLen(data, pos)
	if err != nil {
		return err
	}
	if n != rv.Len() {
		return newDecodeErr(*pos, fmt.Sprintf("tuple of length %d", rv.Len()), fmt.Sprintf("length %d", n))
	}
	for i := 0; i < n; i++ {
		if err := decodeInto(data, pos, rv.Index(i)); err != nil {
			return err
		}
	}
	return expectByte(data, pos, TupleClose, "')' delimiter")
}

func decodeMap(data []byte, pos *int, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return &EncodeError{Msg: "map keys must be strings"}
	}
	if err := expectByte(data, pos, TagMap, "map tag"); err != nil {
		return err
	}
	if err := expectByte(data, pos, MapOpen, "'{' delimiter"); err != nil {
		return err
	}

	out := reflect.MakeMap(rv.Type())
	for {
		if err := need(data, *pos, 1, "'<' or '}'"); err != nil {
			return err
		}
		if data[*pos] == MapClose {
			*pos++
			break
		}
		if err := expectByte(data, pos, EntryOpen, "'<' delimiter"); err != nil {
			return err
		}
		key, err := decodeString(data, pos)
		if err != nil {
			return err
		}
		if err := expectByte(data, pos, EntryMid, "'-' delimiter"); err != nil {
			return err
		}
		val := reflect.New(rv.Type().Elem()).Elem()
		if err := decodeInto(data, pos, val); err != nil {
			return err
		}
		if err := expectByte(data, pos, EntryClose, "'>' delimiter"); err != nil {
			return err
		}
		out.SetMapIndex(reflect.ValueOf(key), val)
	}
	rv.Set(out)
	return nil
}

func decodeStruct(data []byte, pos *int, rv reflect.Value) error {
	if err := expectByte(data, pos, TagMap, "struct tag"); err != nil {
		return err
	}
	if err := expectByte(data, pos, MapOpen, "'{' delimiter"); err != nil {
		return err
	}

	t := rv.Type()
	for {
		if err := need(data, *pos, 1, "'<' or '}'"); err != nil {
			return err
		}
		if data[*pos] == MapClose {
			*pos++
			break
		}
		if err := expectByte(data, pos, EntryOpen, "'<' delimiter"); err != nil {
			return err
		}
		key, err := decodeString(data, pos)
		if err != nil {
			return err
		}
		if err := expectByte(data, pos, EntryMid, "'-' delimiter"); err != nil {
			return err
		}

		fieldIdx := -1
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.PkgPath != "" {
				continue
			}
			if fieldName(f) == key {
				fieldIdx = i
				break
			}
		}
		if fieldIdx < 0 {
			return newDecodeErr(*pos, "known struct field", fmt.Sprintf("field %q", key))
		}
		if err := decodeInto(data, pos, rv.Field(fieldIdx)); err != nil {
			return err
		}
		if err := expectByte(data, pos, EntryClose, "'>' delimiter"); err != nil {
			return err
		}
	}
	return nil
}

func decodeOption(data []byte, pos *int, rv reflect.Value) error {
	if err := expectByte(data, pos, TagOpt, "option tag"); err != nil {
		return err
	}
	if err := need(data, *pos, 1, "option marker"); err != nil {
		return err
	}
	marker := data[*pos]
	*pos++
	if marker == optNone {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}
	if marker != optSome {
		return newDecodeErr(*pos-1, "option marker 0x00 or 0xFF", fmt.Sprintf("byte 0x%02x", marker))
	}
	elem := reflect.New(rv.Type().Elem())
	if err := decodeInto(data, pos, elem.Elem()); err != nil {
		return err
	}
	rv.Set(elem)
	return nil
}

// decodeVariantValue decodes the enum name and leaves Value set to the
// raw, still-encoded payload bytes (or nil for a unit variant) — the
// caller decides what concrete type those bytes decode into, since the
// codec is only partially self-describing (see package doc).
func decodeVariantValue(data []byte, pos *int) (Variant, error) {
	if err := expectByte(data, pos, TagEnum, "enum tag"); err != nil {
		return Variant{}, err
	}
	name, err := decodeString(data, pos)
	if err != nil {
		return Variant{}, err
	}
	rest := data[*pos:]
	*pos = len(data)
	if len(rest) == 0 {
		return Variant{Name: name}, nil
	}
	return Variant{Name: name, Value: rest}, nil
}

// DecodeVariantName reads just the enum tag and name from the front of
// data, returning the name and the undecoded payload bytes that follow.
// Used by the dispatcher to route on a method signature without fully
// decoding the request/response payload.
func DecodeVariantName(data []byte) (name string, payload []byte, err error) {
	pos := 0
	if err := expectByte(data, &pos, TagEnum, "enum tag"); err != nil {
		return "", nil, err
	}
	name, err = decodeString(data, &pos)
	if err != nil {
		return "", nil, err
	}
	return name, data[pos:], nil
}

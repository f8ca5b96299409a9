package envelope

import (
	"fmt"

	"udprpc/wire"
)

// errBody mirrors the wire shape of an ErrorResponse body.
type errBody struct {
	Kind   int64
	Detail string
}

type ackBody struct {
	ID uint64
}

type switchBody struct {
	Addr string
}

// Encode serializes e as [Kind byte][wire-encoded body]. This is the
// single byte that spec I2 requires at the front of every datagram.
func Encode(e Envelope) ([]byte, error) {
	out := []byte{byte(e.Kind)}

	var body []byte
	var err error

	switch e.Kind {
	case KindPayload:
		body, err = wire.Encode(e.Payload)
	case KindAck:
		body, err = wire.Encode(ackBody{ID: e.AckID})
	case KindErrorResponse:
		body, err = wire.Encode(errBody{Kind: int64(e.ErrorKind), Detail: e.ErrorDetail})
	case KindHandshakeInit:
		body, err = wire.Encode(e.Init)
	case KindHandshakeData:
		body, err = wire.Encode(e.Data)
	case KindHandshakeFin:
		body, err = wire.Encode(e.Fin)
	case KindHandshakeNack:
		body, err = wire.Encode(e.Nack)
	case KindSwitchAddress:
		body, err = wire.Encode(switchBody{Addr: e.SwitchAddr})
	case KindPing, KindNoOp:
		// unit variants, no body
	default:
		return nil, fmt.Errorf("envelope: unknown kind 0x%02x", e.Kind)
	}
	if err != nil {
		return nil, err
	}
	return append(out, body...), nil
}

// Decode is Encode's inverse.
func Decode(data []byte) (Envelope, error) {
	if len(data) < 1 {
		return Envelope{}, fmt.Errorf("envelope: empty datagram")
	}
	kind := Kind(data[0])
	body := data[1:]

	e := Envelope{Kind: kind}

	var err error
	switch kind {
	case KindPayload:
		var p []byte
		err = wire.Decode(body, &p)
		e.Payload = p
	case KindAck:
		var a ackBody
		err = wire.Decode(body, &a)
		e.AckID = a.ID
	case KindErrorResponse:
		var eb errBody
		err = wire.Decode(body, &eb)
		e.ErrorKind = ErrorKind(eb.Kind)
		e.ErrorDetail = eb.Detail
	case KindHandshakeInit:
		err = wire.Decode(body, &e.Init)
	case KindHandshakeData:
		err = wire.Decode(body, &e.Data)
	case KindHandshakeFin:
		err = wire.Decode(body, &e.Fin)
	case KindHandshakeNack:
		err = wire.Decode(body, &e.Nack)
	case KindSwitchAddress:
		var sb switchBody
		err = wire.Decode(body, &sb)
		e.SwitchAddr = sb.Addr
	case KindPing, KindNoOp:
		if len(body) != 0 {
			return Envelope{}, fmt.Errorf("envelope: unexpected body for unit variant 0x%02x", kind)
		}
	default:
		return Envelope{}, fmt.Errorf("envelope: unknown kind 0x%02x", kind)
	}
	if err != nil {
		return Envelope{}, err
	}
	return e, nil
}

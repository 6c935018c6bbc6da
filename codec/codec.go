package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/cloudevents/sdk-go/v2/event"
	"google.golang.org/protobuf/proto"
)

// Marshaler is implemented by messages that produce their own canonical binary encoding.
type Marshaler interface {
	MarshalVT() ([]byte, error)
}

// Unmarshaler is implemented by messages that can populate themselves from their
// binary encoding. Types opt in by declaring the method on their pointer receiver.
type Unmarshaler interface {
	UnmarshalVT([]byte) error
}

var (
	bytesType        = reflect.TypeOf([]byte(nil))
	eventType        = reflect.TypeOf(event.Event{})
	protoMessageType = reflect.TypeOf((*proto.Message)(nil)).Elem()
	unmarshalerType  = reflect.TypeOf((*Unmarshaler)(nil)).Elem()
)

// Codec converts values to and from the bytes sent to the sidecar.
type Codec struct {
	// allowUnknownFields tolerates JSON members the target type does not declare.
	allowUnknownFields bool

	// omitNulls drops null object members from JSON output.
	omitNulls bool
}

var shared = sync.OnceValue(func() *Codec {
	return &Codec{allowUnknownFields: true, omitNulls: true}
})

// Default returns the process-wide Codec.
func Default() *Codec { return shared() }

// Serialize encodes v with the Default codec.
func Serialize(v any) ([]byte, error) { return Default().Serialize(v) }

// Deserialize decodes b into a value of type t with the Default codec.
func Deserialize(b []byte, t reflect.Type) (any, error) { return Default().Deserialize(b, t) }

// ParseToTree parses JSON bytes into a Node with the Default codec.
func ParseToTree(b []byte) (Node, error) { return Default().ParseToTree(b) }

// Decode decodes b into a T with the Default codec.
func Decode[T any](b []byte) (T, error) { return DecodeWith[T](Default(), b) }

// DecodeWith decodes b into a T using c. Targets that decode to nil yield the zero T.
func DecodeWith[T any](c *Codec, b []byte) (T, error) {
	var zero T
	v, err := c.Deserialize(b, reflect.TypeFor[T]())
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: decoded %T, want %T", ErrDecoding, v, zero)
	}
	return out, nil
}

// Serialize converts v to bytes.
//
// Absent values (nil, nil pointers and empty structs) produce nil. Byte slices are
// returned as is, protocol-buffer messages use their binary encoding, and any other
// value is encoded as JSON without null object members.
func (c *Codec) Serialize(v any) ([]byte, error) {
	if isAbsent(v) {
		return nil, nil
	}

	switch m := v.(type) {
	case []byte:
		return m, nil
	case Marshaler:
		b, err := m.MarshalVT()
		if err != nil {
			return nil, errors.Join(ErrEncoding, err)
		}
		return b, nil
	case proto.Message:
		b, err := proto.Marshal(m)
		if err != nil {
			return nil, errors.Join(ErrEncoding, err)
		}
		return b, nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrEncoding, err)
	}
	if c.omitNulls {
		b, err = stripNulls(b)
		if err != nil {
			return nil, errors.Join(ErrEncoding, err)
		}
	}
	return b, nil
}

// Deserialize converts b into a value of type t.
//
// A nil or empty-struct t always yields nil. Primitive targets decode an empty b to
// their zero value. A []byte target receives b unchanged. Any other target decodes
// an empty b to nil.
func (c *Codec) Deserialize(b []byte, t reflect.Type) (any, error) {
	if t == nil || isUnit(t) {
		return nil, nil
	}

	if isPrimitive(t) {
		if len(b) == 0 {
			return reflect.Zero(t).Interface(), nil
		}
		return c.decodeJSON(b, t)
	}

	if t == bytesType {
		return b, nil
	}

	if len(b) == 0 {
		return nil, nil
	}

	if t == eventType || t == reflect.PointerTo(eventType) {
		return decodeEvent(b, t)
	}

	if v, ok, err := decodeMessage(b, t); ok {
		return v, err
	}

	return c.decodeJSON(b, t)
}

func (c *Codec) decodeJSON(b []byte, t reflect.Type) (any, error) {
	v := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(b))
	if !c.allowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v.Interface()); err != nil {
		return nil, errors.Join(ErrDecoding, err)
	}
	return v.Elem().Interface(), nil
}

// decodeEvent parses a CloudEvents envelope, honouring a value or pointer target.
func decodeEvent(b []byte, t reflect.Type) (any, error) {
	e := event.New()
	if err := e.UnmarshalJSON(b); err != nil {
		return nil, errors.Join(ErrDecoding, err)
	}
	if t.Kind() == reflect.Pointer {
		return &e, nil
	}
	return e, nil
}

// decodeMessage decodes b into a protocol-buffer target. The bool result reports
// whether t is a message type at all; when it is false the caller falls back to JSON.
func decodeMessage(b []byte, t reflect.Type) (any, bool, error) {
	ptr := t
	if t.Kind() != reflect.Pointer {
		ptr = reflect.PointerTo(t)
	}
	if ptr.Elem().Kind() != reflect.Struct {
		return nil, false, nil
	}

	v := reflect.New(ptr.Elem())
	switch {
	case ptr.Implements(unmarshalerType):
		if err := v.Interface().(Unmarshaler).UnmarshalVT(b); err != nil {
			return nil, true, errors.Join(ErrDecoding, err)
		}
	case ptr.Implements(protoMessageType):
		if err := proto.Unmarshal(b, v.Interface().(proto.Message)); err != nil {
			return nil, true, errors.Join(ErrDecoding, err)
		}
	default:
		return nil, false, nil
	}

	if t.Kind() == reflect.Pointer {
		return v.Interface(), true, nil
	}
	return v.Elem().Interface(), true, nil
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		return rv.IsNil()
	case reflect.Struct:
		return rv.NumField() == 0
	}
	return false
}

func isUnit(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

func isPrimitive(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

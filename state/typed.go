package state

import (
	"fmt"

	"github.com/layotto/go-sdk/codec"
)

// Encode converts the value of s to bytes with the shared codec. Every other
// field is carried over unchanged.
func Encode[T any](s State[T]) (State[[]byte], error) {
	out := State[[]byte]{key: s.key, etag: s.etag, metadata: s.metadata, options: s.options, err: s.err}
	if !s.hasValue {
		return out, nil
	}

	b, err := codec.Serialize(s.value)
	if err != nil {
		return State[[]byte]{}, fmt.Errorf("state %q: %w", s.key, err)
	}
	out.value = b
	out.hasValue = true
	return out, nil
}

// Decode converts the raw value of s to a T with the shared codec. Error records
// and records without a value are carried over as they are.
func Decode[T any](s State[[]byte]) (State[T], error) {
	out := State[T]{key: s.key, etag: s.etag, metadata: s.metadata, options: s.options, err: s.err}
	if !s.hasValue {
		return out, nil
	}

	v, err := codec.Decode[T](s.value)
	if err != nil {
		return State[T]{}, fmt.Errorf("state %q: %w", s.key, err)
	}
	out.value = v
	out.hasValue = true
	return out, nil
}

// GetAs reads a single key and decodes its value into a T.
func GetAs[T any](c Client, req GetRequest) (State[T], error) {
	raw, err := c.Get(req)
	if err != nil {
		return State[T]{}, err
	}
	return Decode[T](raw)
}

// GetBulkAs reads several keys and decodes each value into a T. Error records
// stay error records; a value that fails to decode fails the whole call.
func GetBulkAs[T any](c Client, req GetBulkRequest) ([]State[T], error) {
	raw, err := c.GetBulk(req)
	if err != nil {
		return nil, err
	}

	out := make([]State[T], 0, len(raw))
	for _, r := range raw {
		s, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveAs encodes the values of states and writes them to store.
func SaveAs[T any](c Client, store string, states ...State[T]) error {
	raw := make([]State[[]byte], 0, len(states))
	for _, s := range states {
		r, err := Encode(s)
		if err != nil {
			return err
		}
		raw = append(raw, r)
	}
	return c.Save(store, raw...)
}

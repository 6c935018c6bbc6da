package state

import (
	"fmt"
	"maps"
)

// State is an immutable key/value record exchanged with a state store.
//
// A record read back from the store holds either a value or an error. Records
// that only describe a delete carry the key and, optionally, an etag.
type State[T any] struct {
	key      string
	value    T
	hasValue bool
	etag     string
	metadata map[string]string
	options  *Options
	err      string
}

// New returns a record that only names a key, as used for reads.
func New[T any](key string) State[T] {
	return State[T]{key: key}
}

// NewError returns a record describing a failed read of key.
func NewError[T any](key, err string) State[T] {
	return State[T]{key: key, err: err}
}

// NewReference returns a record pointing at a stored version of key, as used for deletes.
func NewReference[T any](key, etag string, opts *Options) State[T] {
	return State[T]{key: key, etag: etag, options: copyOptions(opts)}
}

// NewWithOptions returns a record holding value, guarded by etag and opts.
func NewWithOptions[T any](key string, value T, etag string, opts *Options) State[T] {
	return State[T]{key: key, value: value, hasValue: true, etag: etag, options: copyOptions(opts)}
}

// NewWithMetadata returns a fully populated record. Metadata reaches the store untouched.
func NewWithMetadata[T any](key string, value T, etag string, metadata map[string]string, opts *Options) State[T] {
	return State[T]{
		key:      key,
		value:    value,
		hasValue: true,
		etag:     etag,
		metadata: maps.Clone(metadata),
		options:  copyOptions(opts),
	}
}

// NewValue returns a record holding value and etag.
func NewValue[T any](key string, value T, etag string) State[T] {
	return State[T]{key: key, value: value, hasValue: true, etag: etag}
}

// Key returns the state key.
func (s State[T]) Key() string { return s.key }

// Value returns the payload, or the zero T when the record has none.
func (s State[T]) Value() T { return s.value }

// HasValue reports whether the record carries a payload.
func (s State[T]) HasValue() bool { return s.hasValue }

// Etag returns the concurrency token, or "" when absent.
func (s State[T]) Etag() string { return s.etag }

// Metadata returns a copy of the metadata, or nil when absent.
func (s State[T]) Metadata() map[string]string { return maps.Clone(s.metadata) }

// Options returns a copy of the save options, or nil when absent.
func (s State[T]) Options() *Options { return copyOptions(s.options) }

// ErrorMessage returns the read failure, or "" when absent.
func (s State[T]) ErrorMessage() string { return s.err }

// String renders every field for diagnostics.
func (s State[T]) String() string {
	var value any
	if s.hasValue {
		value = s.value
	}
	var opts any
	if s.options != nil {
		opts = *s.options
	}
	return fmt.Sprintf(
		"State{key='%s', value=%v, etag='%s', metadata=%v, error='%s', options=%v}",
		s.key, value, s.etag, s.metadata, s.err, opts,
	)
}

func copyOptions(o *Options) *Options {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

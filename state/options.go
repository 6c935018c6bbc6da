package state

import (
	"fmt"

	"github.com/layotto/go-sdk/internal/statepb"
)

// Concurrency selects how a store resolves concurrent writes to one key.
type Concurrency int32

const (
	ConcurrencyUnspecified Concurrency = Concurrency(statepb.ConcurrencyUnspecified)
	// ConcurrencyFirstWrite rejects a write whose etag no longer matches the stored one.
	ConcurrencyFirstWrite Concurrency = Concurrency(statepb.ConcurrencyFirstWrite)
	// ConcurrencyLastWrite lets the latest write win.
	ConcurrencyLastWrite Concurrency = Concurrency(statepb.ConcurrencyLastWrite)
)

func (c Concurrency) String() string {
	switch c {
	case ConcurrencyUnspecified:
		return "unspecified"
	case ConcurrencyFirstWrite:
		return "first-write"
	case ConcurrencyLastWrite:
		return "last-write"
	}
	return fmt.Sprintf("Concurrency(%d)", int32(c))
}

// Consistency selects the consistency level a store applies to an operation.
type Consistency int32

const (
	ConsistencyUnspecified Consistency = Consistency(statepb.ConsistencyUnspecified)
	ConsistencyEventual    Consistency = Consistency(statepb.ConsistencyEventual)
	ConsistencyStrong      Consistency = Consistency(statepb.ConsistencyStrong)
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyUnspecified:
		return "unspecified"
	case ConsistencyEventual:
		return "eventual"
	case ConsistencyStrong:
		return "strong"
	}
	return fmt.Sprintf("Consistency(%d)", int32(c))
}

// Options configure a save or delete. They are handed to the store as they are.
type Options struct {
	Concurrency Concurrency
	Consistency Consistency
}

func (o Options) String() string {
	return fmt.Sprintf("Options{concurrency=%s, consistency=%s}", o.Concurrency, o.Consistency)
}

func (o *Options) toProto() *statepb.StateOptions {
	if o == nil {
		return nil
	}
	return &statepb.StateOptions{Concurrency: int32(o.Concurrency), Consistency: int32(o.Consistency)}
}

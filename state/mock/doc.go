/*
Package mock provides an in-memory implementation of state.Client for testing
Layotto functions without host calls.

Stores are plain maps keyed by store name. Every write bumps the etag of the
key, so code exercising optimistic concurrency sees the same ErrEtagMismatch
failures it would get from the sidecar.

# Basic Usage

	m := mock.New(mock.Config{Seed: map[string][]byte{"a": []byte(`"1"`)}})
	got, err := state.GetAs[string](m, state.GetRequest{Key: "a"})
	// got.Value() == "1", got.Etag() == "1"

# Overriding Behavior

	m.Fail(mock.OpGet, "missing", state.ErrKeyNotFound)
	m.Fail(mock.OpSave, "", mock.ErrExample) // every Save call

# Inspecting Calls

	for _, c := range m.Calls() {
		// c.Op, c.Store, c.Key, c.Value, c.Etag
	}
*/
package mock

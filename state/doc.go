/*
Package state provides the state record and a client for the sidecar's state
capability.

State is an immutable record holding a key and, depending on how it was built,
a value, an etag for optimistic concurrency, metadata, save Options, or the
error of a failed read. The constructors cover each use:

	state.New[Order]("order-1")                         // read request
	state.NewValue("order-1", order, "")                // plain write
	state.NewWithOptions("order-1", order, "3", &state.Options{
		Concurrency: state.ConcurrencyFirstWrite,
	})                                                  // guarded write
	state.NewReference[[]byte]("order-1", "3", nil)     // guarded delete

The Client works on raw byte values and sends protobuf requests to the host
with waPC. GetAs, GetBulkAs and SaveAs wrap it with the codec package so
application types travel as JSON, protobuf or raw bytes:

	client, err := state.NewClient(state.Config{
		SDKConfig: sdk.RuntimeConfig{StoreName: "redis"},
	})
	if err != nil {
		return err
	}

	err = state.SaveAs(client, "", state.NewValue("order-1", order, ""))
	got, err := state.GetAs[Order](client, state.GetRequest{Key: "order-1"})

Each client reports call counts, failures, request sizes and in-flight calls
through Config.Metrics, and traces operations through Config.Logger. Both
default to clients that discard everything.

Host failures are reported with the sentinel errors of the sdk package joined
with ErrKeyNotFound or ErrEtagMismatch where the sidecar status says so; check
them with errors.Is. Tests can swap the host with Config.HostCall or use the
in-memory client from the mock package.
*/
package state

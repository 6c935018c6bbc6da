/*
Package hostmock provides a pretend sidecar for waPC host calls.

It is meant for SDK development and tests that need to check exactly what a
client sends to the sidecar, without a running sidecar.

Why use hostmock?

  - Validate routing: ensure calls use the expected namespace, capability, and function.
  - Inspect payloads: plug in a PayloadValidator to assert protobuf contents.
  - Script responses: return custom bytes, per function when a client uses several.
  - Simulate failures: fail every call, or return an error together with a payload.
  - Review traffic: Calls lists every invocation in order.

Quick start

	m, _ := hostmock.New(hostmock.Config{
	  ExpectedNamespace:  "layotto",
	  ExpectedCapability: "state",
	  Routes: map[string]hostmock.Route{
	    "get":  {Response: func() []byte { return getResp }},
	    "save": {PayloadValidator: checkSave, Response: func() []byte { return okResp }},
	  },
	})

	client, _ := state.NewClient(state.Config{HostCall: m.HostCall})

Behavior

  - If Fail is true and Error is set, HostCall returns that error.
  - If Fail is true and Error is nil, HostCall returns ErrOperationFailed.
  - Otherwise, HostCall checks ExpectedNamespace and ExpectedCapability when set.
  - With Routes, the called function must have a route. Its validator runs,
    then its Response and Error are returned.
  - Without Routes, ExpectedFunction is checked when set, PayloadValidator runs,
    and Response (when set) provides the return bytes; otherwise nil is returned.
*/
package hostmock

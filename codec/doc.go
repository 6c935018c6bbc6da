/*
Package codec converts values exchanged with the sidecar to and from bytes.

Serialize and Deserialize pick an encoding from the shape of the value or of
the requested target type:

  - raw []byte values pass through untouched in both directions
  - protocol-buffer messages use their own binary encoding, either through the
    MarshalVT/UnmarshalVT capability or through proto.Marshal/proto.Unmarshal
  - CloudEvents envelopes are parsed with the CloudEvents decoder
  - everything else is JSON; null object members are dropped on encode and
    unknown members are ignored on decode

Primitive targets decode an empty payload to their zero value, while other
targets decode it to nil.

ParseToTree exposes the JSON tree of a payload for callers that only need to
inspect part of it.

The package-level functions share one Codec built on first use. A Codec holds
no mutable state and is safe for concurrent use.
*/
package codec

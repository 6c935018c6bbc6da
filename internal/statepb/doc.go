// Package statepb holds the wire messages of the sidecar state capability.
//
// Field numbers follow the runtime's state API contract. Every message encodes
// with MarshalVT and decodes with UnmarshalVT; responses embed the shared host
// Status message.
package statepb

/*
Package sdk provides the entry point and runtime configuration for Layotto
WebAssembly functions that talk to the sidecar's state API.

New registers the guest handler with waPC and captures a RuntimeConfig. The
RuntimeConfig is handed to capability clients (state, logging, metrics) so
they share the namespace used for host calls and the default state store
name. DefaultNamespace is used when a namespace is not explicitly provided.

Values travelling to and from the sidecar are converted by the codec package,
and the state package offers the typed State record and the state client.
*/
package sdk

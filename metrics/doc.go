/*
Package metrics reports custom metrics to the sidecar.

Counter, Gauge and Histogram handles send protobuf payloads over waPC host
calls. Updates are fire and forget: Inc, Dec and Observe return nothing and
drop encoding or host failures, so instrumentation never changes the outcome
of the operation it measures. The state client uses these handles to count
calls and failures per operation and to size payloads.
*/
package metrics

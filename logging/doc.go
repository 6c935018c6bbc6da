/*
Package logging offers a client for emitting log entries from Layotto
WebAssembly functions to the host runtime.

Entries carry a level (Trace, Debug, Info, Warn, Error) and optional key/value
fields that are rendered after the message:

	log.Info("state saved", "store", "redis", "key", "order-1")
	// state saved store=redis key=order-1

Entries below Config.MinLevel are dropped before reaching the host. Nop returns
a client that discards everything, which is what SDK clients use when no
logger is configured.
*/
package logging

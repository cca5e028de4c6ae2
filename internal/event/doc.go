// Package event defines the JSON envelope shipped over the streaming
// connection and constructors for every run-lifecycle event kind.
//
// Every event carries the kind discriminator ("event"), an epoch-millisecond
// timestamp, and the runId shared by the whole session. Kind-specific
// payloads (test, step, result) are nested objects. The transport never
// inspects these fields — it marshals the envelope and sends it.
package event

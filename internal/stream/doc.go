// Package stream owns the persistent WebSocket connection to the collector.
//
// The Client is a state machine over disconnected → connecting → connected,
// with closing as the terminal state. Send never fails and never blocks the
// producer: while connected the event is written immediately, in every other
// state (or on a write error) it lands in the bounded buffer. On (re)connect
// the buffer is drained in FIFO order before new traffic; events that could
// not be sent mid-drain are requeued at the front.
//
// Reconnection uses truncated exponential backoff (1s→30s, +[0,25%) jitter,
// 10 attempts by default). The attempt counter resets on a successful
// connection. While connected an application-level {"type":"ping"} message
// is sent every heartbeat interval; a ping failure is logged but the read
// pump's error is what triggers reconnection.
//
// Close cancels any pending reconnect timer, stops the heartbeat, and sends
// the close frame under a bounded deadline. No reconnect is scheduled after
// Close.
package stream

// Package buffer holds outbound events while no live connection exists.
//
// The buffer is a fixed-capacity FIFO (default 1000). Enqueue never blocks
// and never fails: at capacity the single oldest event is evicted and the
// loss is logged at Warn. Drain atomically returns every buffered event in
// enqueue order and empties the buffer. Requeue puts drained-but-unsent
// events back at the front so a mid-drain transmission failure does not
// drop them.
//
// All operations are safe for concurrent use by the producer and the
// connection manager's drain loop.
package buffer

// Package base provides the foundation of dFrame's transports, implementing
// framing, connection handling and graceful shutdown independent of the
// specific network protocol (TCP, Unix sockets). Protocol specific behaviour
// is plugged in through connectors.
//
// The package focuses on:
//   - A length-prefixed frame codec that tolerates arbitrary split points
//   - One reader and one writer goroutine per connection
//   - A supervisor owning the connection registry and the shutdown signal
//   - A client speaking the same framing over a single connection
//
// Wire Format:
//
//	+----------------------+----------------------+
//	| length (4 bytes, BE) | payload (length B)   |
//	+----------------------+----------------------+
//
// There is no magic and no version field. Frames announcing more than the
// configured maximum are a protocol error and close the connection.
//
// Key Components:
//
//   - Encode, Decode, Decoder: the frame codec. Decode never blocks; it reports
//     ErrNeedMoreData until a complete frame is buffered.
//
//   - IClientConnector/IServerConnector: interfaces for protocol-specific
//     operations (listen, dial, socket options).
//
//   - serverTransport: the listener, the accept loop and the supervisor. Every
//     accepted connection gets a locally unique id (never reused) and is
//     registered in an xsync.MapOf before its handler starts.
//
//   - connection: the per-connection handler. The reader decodes frames and
//     calls the HandleFunc, replies go through a bounded FIFO write queue to a
//     dedicated writer goroutine that batches frames with net.Buffers.
//
//   - clientTransport: Send/Receive of single frames over one connection,
//     buffering bytes that belong to the next frame.
//
// Shutdown:
//
//	Shutdown closes the shutdown signal and the listener, wakes idle readers,
//	waits up to the drain timeout for all connections to flush their queued
//	replies and close, and force closes the rest. Calling it again joins the
//	first call.
//
// Metrics:
//
//	Every server owns a VictoriaMetrics metrics.Set (connections, frames,
//	bytes, errors, handler latency) exported with WritePrometheus.
package base

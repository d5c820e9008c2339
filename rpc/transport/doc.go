// Package transport defines the interfaces for framed request/response
// communication in dFrame. It provides the common contract that all
// transport implementations (TCP, Unix sockets) fulfill.
//
// Key Components:
//
//   - IServerTransport: a frame server with a synchronous Start (bind errors
//     are returned) and a bounded, idempotent Shutdown.
//
//   - IClientTransport: a single client connection exchanging frames in FIFO
//     request/response order.
//
//   - HandleFunc: the application callback invoked once per request frame.
package transport

// Package rpc provides the framed request/response layer of dFrame. Peers
// exchange frames made of a 4 byte big-endian length followed by the payload
// over a stream transport.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures and logging shared by servers and
//     clients.
//
//   - transport: The frame codec, the connection handling server (accept
//     loop, per connection reader and writer, graceful shutdown) and the
//     framed client, with pluggable TCP and Unix socket connectors.
//
//   - server: Runs a server transport with an application handler until it is
//     stopped, and the small handlers used by the CLI.
//
//   - client: A request/response client with latency statistics.
package rpc

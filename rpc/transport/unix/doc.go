// Package unix implements the dFrame transport over Unix domain sockets for
// processes running on the same machine.
//
// This package extends the base transport with Unix socket specific
// connectors and inherits framing, connection handling and shutdown from the
// base package. The endpoint is the socket path; a stale socket file is
// removed before listening. The accept backlog and address reuse options do
// not apply.
package unix

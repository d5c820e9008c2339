// Package tcp implements the TCP socket transport of dFrame. It provides
// concrete implementations of the base package's connector interfaces.
//
// This package builds on the base package's transport functionality, which
// owns framing, connection handling and shutdown. See the base package
// documentation for details.
//
// Key Components:
//
//   - serverConnector: binds the listening socket. On Linux and Darwin the
//     socket is created with golang.org/x/sys/unix so SO_REUSEADDR and the
//     accept backlog are applied before listen(2); other platforms use the
//     standard listener. Accepted connections get the configured TCP options
//     (no-delay, keep-alive, linger, buffer sizes).
//
//   - clientConnector: dials the server with the configured dial timeout and
//     applies the same TCP options.
package tcp

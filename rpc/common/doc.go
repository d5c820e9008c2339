// Package common provides the configuration structures and logging utilities
// shared by the dFrame server, client and command-line tools.
//
// Key Components:
//
//   - ServerConfig: listener, framing, drain and logging settings of a server.
//     DefaultServerConfig and WithDefaults fill in the documented defaults
//     (16 MiB max frame, 5s drain timeout, backlog 128).
//
//   - ClientConfig: endpoint, timeouts and frame limit of a client connection.
//
//   - Logger: custom formatting for dragonboat's logger package. All dFrame
//     packages obtain their logger with logger.GetLogger and one of the
//     Logger* names; InitLoggers installs the format and sets the level.
package common

// Package cmd implements the command-line interface of dFrame. It provides a
// command to run a frame server and commands to talk to one as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Command for starting and configuring the frame server
//   - frame: Client commands (send, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dframe -help for a list of all commands.
package cmd

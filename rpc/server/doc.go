// Package server runs a frame server: it binds a server transport, wires an
// application handler into it and shuts everything down on a signal.
//
// Key Components:
//
//   - FrameServer: created with NewServer from a common.ServerConfig, a
//     transport.IServerTransport and a transport.HandleFunc. Start binds and
//     returns the bind error synchronously, Stop drains the connections within
//     the configured drain timeout, Run and Serve wrap both around a context
//     or SIGINT/SIGTERM.
//
//   - Handlers: Echo, Ping, Upper, Discard and Hello are small application
//     handlers used by the CLI. GetHandler looks them up by name.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Transport.Endpoint = "0.0.0.0:8080"
//
//	s := server.NewServer(config, tcp.NewTCPServerTransport(), server.Ping).
//		WithMetricsEndpoint("127.0.0.1:9090")
//
//	if err := s.Serve(); err != nil {
//		log.Fatalf("Server error: %v", err)
//	}
//
// The metrics endpoint serves the transport counters (connections, frames,
// bytes, protocol and io errors, handler latency) together with the process
// metrics of the VictoriaMetrics library.
package server

package transport

import (
	"github.com/ValentinKolb/dFrame/rpc/common"
	"io"
	"net"
	"time"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// HandleFunc is the application collaborator invoked once per decoded frame.
// It receives the request payload and returns the reply payload. If reply is
// false nothing is written back for this request. A slow HandleFunc only
// delays the connection it was called for.
type HandleFunc func(req []byte) (resp []byte, reply bool)

// IServerTransport is the interface of a frame server (listener, connection
// handlers and their supervisor)
type IServerTransport interface {
	// RegisterHandler registers the handler called for every request frame.
	// It must be called before Start
	RegisterHandler(handler HandleFunc)
	// Start binds the configured endpoint and starts accepting connections in
	// the background. Bind failures are returned to the caller
	Start(config common.ServerConfig) error
	// Addr returns the bound address (nil before Start)
	Addr() net.Addr
	// ConnectionCount returns the number of currently registered connections
	ConnectionCount() int
	// Shutdown stops accepting, lets open connections drain for at most
	// drainTimeout and force closes the rest. It returns the number of
	// connections that had to be force closed. Calling it again joins the
	// first call
	Shutdown(drainTimeout time.Duration) int
	// Done is closed once Shutdown has completed
	Done() <-chan struct{}
	// WritePrometheus writes the server metrics in prometheus text format
	WritePrometheus(w io.Writer)
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for a framed client connection
type IClientTransport interface {
	// Connect establishes the connection described by the configuration
	Connect(config common.ClientConfig) error
	// Send writes one frame and returns once it is fully written
	Send(payload []byte) error
	// Receive reads exactly one frame, buffering any excess bytes
	Receive() ([]byte, error)
	// Close closes the connection
	Close() error
}

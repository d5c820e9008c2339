package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint         = "0.0.0.0:8080"
	DefaultMaxFrameSize     = 16 * 1024 * 1024 // 16 MiB
	DefaultDrainTimeout     = 5 * time.Second
	DefaultAcceptBacklog    = 128
	DefaultMaxPendingWrites = 1024
	DefaultLogLevel         = "info"
)

// --------------------------------------------------------------------------
// Shared transport configuration
// --------------------------------------------------------------------------

// SocketConf holds the generic socket options used by stream transports
type SocketConf struct {
	// WriteBufferSize is the kernel send buffer size in bytes (0 = os default)
	WriteBufferSize int
	// ReadBufferSize is the kernel receive buffer size in bytes (0 = os default)
	ReadBufferSize int
}

// TCPConf holds TCP specific socket options
type TCPConf struct {
	// DisableReuseAddr turns off SO_REUSEADDR on the listening socket (server only)
	DisableReuseAddr bool
	// TCPNoDelay disables Nagle's algorithm
	TCPNoDelay bool
	// TCPKeepAliveSec enables keep-alive with the given period (0 = disabled)
	TCPKeepAliveSec int
	// TCPLingerSec sets SO_LINGER (nil = os default, 0 = abortive close)
	TCPLingerSec *int
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the listener side settings of a server
type ServerTransportConfig struct {
	// Endpoint is the bind address ("host:port" for tcp, a path for unix)
	Endpoint string
	// AcceptBacklog is the depth of the queue of not yet accepted connections
	AcceptBacklog int
	SocketConf
	TCPConf
}

// ServerConfig holds all configuration parameters of a frame server.
type ServerConfig struct {
	Transport ServerTransportConfig

	// MaxFrameSize is the largest payload a peer may announce
	MaxFrameSize uint32
	// DrainTimeout bounds how long pending writes are flushed on close and
	// how long Shutdown waits for connections before force closing them
	DrainTimeout time.Duration
	// MaxPendingWrites is the number of reply frames that may be queued per
	// connection before the reader stops processing new requests
	MaxPendingWrites int

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns a server configuration with all defaults applied
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport: ServerTransportConfig{
			Endpoint:      DefaultEndpoint,
			AcceptBacklog: DefaultAcceptBacklog,
			TCPConf: TCPConf{
				TCPNoDelay: true,
			},
		},
		MaxFrameSize:     DefaultMaxFrameSize,
		DrainTimeout:     DefaultDrainTimeout,
		MaxPendingWrites: DefaultMaxPendingWrites,
		LogLevel:         DefaultLogLevel,
	}
}

// WithDefaults returns a copy of the config where every unset (zero) value is
// replaced by its default
func (c ServerConfig) WithDefaults() ServerConfig {
	if c.Transport.Endpoint == "" {
		c.Transport.Endpoint = DefaultEndpoint
	}
	if c.Transport.AcceptBacklog <= 0 {
		c.Transport.AcceptBacklog = DefaultAcceptBacklog
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.MaxPendingWrites <= 0 {
		c.MaxPendingWrites = DefaultMaxPendingWrites
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Listener settings
	addSection("Frame Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Accept Backlog", strconv.Itoa(c.Transport.AcceptBacklog))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("Drain Timeout", c.DrainTimeout.String())
	addField("Max Pending Writes", strconv.Itoa(c.MaxPendingWrites))

	// Socket settings
	addSection("Socket")
	addField("Reuse Address", strconv.FormatBool(!c.Transport.DisableReuseAddr))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", lingerString(c.Transport.TCPLingerSec))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the connection settings of a client
type ClientTransportConfig struct {
	// Endpoint is the address of the server
	Endpoint string
	// DialTimeoutSecond bounds connection establishment (0 = no timeout)
	DialTimeoutSecond int
	SocketConf
	TCPConf
}

type ClientConfig struct {
	Transport ClientTransportConfig
	// TimeoutSecond bounds every single Send and Receive (0 = no timeout)
	TimeoutSecond int
	// MaxFrameSize is the largest payload the client sends or accepts
	MaxFrameSize uint32

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a client configuration for the given endpoint
func DefaultClientConfig(endpoint string) ClientConfig {
	return ClientConfig{
		Transport: ClientTransportConfig{
			Endpoint:          endpoint,
			DialTimeoutSecond: 5,
			TCPConf: TCPConf{
				TCPNoDelay: true,
			},
		},
		MaxFrameSize: DefaultMaxFrameSize,
		LogLevel:     DefaultLogLevel,
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Dial Timeout", fmt.Sprintf("%d sec", c.Transport.DialTimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.MaxFrameSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// LingerSec returns a pointer to sec for use as TCPConf.TCPLingerSec
func LingerSec(sec int) *int {
	return &sec
}

func lingerString(sec *int) string {
	if sec == nil {
		return "os default"
	}
	return fmt.Sprintf("%d sec", *sec)
}

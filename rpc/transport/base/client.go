package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"net"
	"sync"
	"time"
)

var errNotConnected = errors.New("not connected")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection based on the provided configuration
	Connect(config common.ClientConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements a framed client connection independent of the
// specific transport medium (unix, tcp, etc.)
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig
	conn      net.Conn
	decoder   *Decoder
	writeMu   sync.Mutex // serializes Send
	readMu    sync.Mutex // serializes Receive, guards decoder
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Transport.Endpoint == "" {
		return &ConnectError{Err: fmt.Errorf("no endpoint provided")}
	}
	if config.MaxFrameSize == 0 {
		config.MaxFrameSize = common.DefaultMaxFrameSize
	}
	if t.conn != nil {
		return &ConnectError{Endpoint: config.Transport.Endpoint, Err: fmt.Errorf("already connected")}
	}

	conn, err := t.connector.Connect(config)
	if err != nil {
		return &ConnectError{Endpoint: config.Transport.Endpoint, Err: err}
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, config); err != nil {
		_ = conn.Close()
		return &ConnectError{Endpoint: config.Transport.Endpoint, Err: fmt.Errorf("failed to upgrade connection: %w", err)}
	}

	t.config = config
	t.conn = conn
	t.decoder = NewDecoder(config.MaxFrameSize)

	Logger.Debugf("Connected to %s using %s transport", config.Transport.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(payload []byte) error {
	if t.conn == nil {
		return &IOError{Op: "send", Err: errNotConnected}
	}
	if uint64(len(payload)) > uint64(t.config.MaxFrameSize) {
		return &ProtocolError{Length: uint64(len(payload)), Max: t.config.MaxFrameSize}
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.config.TimeoutSecond > 0 {
		timeout := time.Duration(t.config.TimeoutSecond) * time.Second
		if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return &IOError{Op: "send", Err: err}
		}
	}

	// header and payload go out in a single write
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	b := net.Buffers{header, payload}
	if _, err := b.WriteTo(t.conn); err != nil {
		return &IOError{Op: "send", Err: err}
	}
	return nil
}

func (t *clientTransport) Receive() ([]byte, error) {
	if t.conn == nil {
		return nil, &IOError{Op: "receive", Err: errNotConnected}
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	var readErr error
	for {
		// A frame may already be buffered from a previous read
		frame, err := t.decoder.Next()
		if err == nil {
			return frame.Payload, nil
		}
		if !errors.Is(err, ErrNeedMoreData) {
			return nil, err
		}
		if readErr != nil {
			return nil, &IOError{Op: "receive", Err: readErr}
		}

		if t.config.TimeoutSecond > 0 {
			timeout := time.Duration(t.config.TimeoutSecond) * time.Second
			if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				return nil, &IOError{Op: "receive", Err: err}
			}
		}
		_, readErr = t.decoder.Fill(t.conn)
	}
}

func (t *clientTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

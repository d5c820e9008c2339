package base

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger(common.LoggerTransport)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the listener, the accept loop and the supervisor
// of all connection handlers. All state is owned by one instance.
type serverTransport struct {
	connector IServerConnector
	handler   transport.HandleFunc
	config    common.ServerConfig

	mu       sync.Mutex // protects listener
	listener net.Listener

	// conns is the server state, connection id -> connection
	conns  *xsync.MapOf[uint64, *connection]
	nextID atomic.Uint64

	started      atomic.Bool
	shutdownCh   chan struct{} // the shutdown signal, closed exactly once
	shutdownOnce sync.Once
	drainUntil   atomic.Int64 // unix nano deadline for pending writes, set before shutdownCh closes
	doneCh       chan struct{}
	forced       int
	acceptDone   chan struct{}
	handlers     sync.WaitGroup

	metrics *serverMetrics
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport using the given connector
func NewBaseServerTransport(connector IServerConnector) transport.IServerTransport {
	t := &serverTransport{
		connector:  connector,
		conns:      xsync.NewMapOf[uint64, *connection](),
		shutdownCh: make(chan struct{}),
		doneCh:     make(chan struct{}),
		acceptDone: make(chan struct{}),
	}
	t.metrics = newServerMetrics(func() float64 { return float64(t.conns.Size()) })
	return t
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.HandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Start(config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	if !t.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}

	t.config = config.WithDefaults()

	// Create listener using the connector
	listener, err := t.connector.Listen(t.config)
	if err != nil {
		return NewBindError(t.config.Transport.Endpoint, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shuttingDown() {
		_ = listener.Close()
		return fmt.Errorf("server is shut down")
	}
	t.listener = listener

	Logger.Infof("Starting %s server on %s (max frame size %d bytes, backlog %d)",
		t.connector.GetName(), listener.Addr(), t.config.MaxFrameSize, t.config.Transport.AcceptBacklog)

	go t.acceptLoop()
	return nil
}

func (t *serverTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) ConnectionCount() int {
	return t.conns.Size()
}

func (t *serverTransport) Shutdown(drainTimeout time.Duration) int {
	// concurrent callers block in Do until the first call has finished
	t.shutdownOnce.Do(func() {
		t.forced = t.shutdown(drainTimeout)
		close(t.doneCh)
	})
	<-t.doneCh
	return t.forced
}

func (t *serverTransport) Done() <-chan struct{} {
	return t.doneCh
}

func (t *serverTransport) WritePrometheus(w io.Writer) {
	t.metrics.writePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// shuttingDown reports whether the shutdown signal is set
func (t *serverTransport) shuttingDown() bool {
	select {
	case <-t.shutdownCh:
		return true
	default:
		return false
	}
}

// writeDrainDeadline returns the deadline for flushing the pending writes of
// a closing connection. During shutdown this is the deadline derived from the
// timeout passed to Shutdown.
func (t *serverTransport) writeDrainDeadline() time.Time {
	if t.shuttingDown() {
		return time.Unix(0, t.drainUntil.Load())
	}
	return time.Now().Add(t.config.DrainTimeout)
}

// acceptLoop accepts connections until the shutdown signal is set
func (t *serverTransport) acceptLoop() {
	defer close(t.acceptDone)

	var backoff time.Duration
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.shuttingDown() || errors.Is(err, net.ErrClosed) {
				return
			}

			// Transient error (e.g. too many open files): log and retry
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			t.metrics.acceptErrors.Inc()
			Logger.Errorf("Accept error: %v; retrying in %s", err, backoff)

			select {
			case <-time.After(backoff):
			case <-t.shutdownCh:
				return
			}
			continue
		}
		backoff = 0

		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			Logger.Warningf("Failed to apply socket options to %s: %v", conn.RemoteAddr(), err)
		}

		// Register before accepting the next connection
		t.register(conn)
	}
}

// register adds the connection to the server state and starts its handler
func (t *serverTransport) register(conn net.Conn) {
	c := newConnection(t.nextID.Add(1), conn, t)

	t.conns.Store(c.id, c)
	t.handlers.Add(1)
	t.metrics.accepted.Inc()
	Logger.Debugf("Connection %d: accepted from %s", c.id, conn.RemoteAddr())

	go c.serve()
}

// release removes a closed connection from the server state
func (t *serverTransport) release(c *connection) {
	t.conns.Delete(c.id)
	t.metrics.closed.Inc()
	t.handlers.Done()
}

// shutdown sets the shutdown signal, stops accepting and drains all
// connections. It returns the number of force closed connections.
func (t *serverTransport) shutdown(drainTimeout time.Duration) int {
	deadline := time.Now().Add(drainTimeout)
	t.drainUntil.Store(deadline.UnixNano())
	close(t.shutdownCh)

	t.mu.Lock()
	listener := t.listener
	t.mu.Unlock()
	if listener == nil {
		// never started
		return 0
	}

	Logger.Infof("Shutting down %s server on %s with %d open connection(s)",
		t.connector.GetName(), listener.Addr(), t.conns.Size())

	// Stop accepting. After acceptDone no more handlers are registered
	_ = listener.Close()
	<-t.acceptDone

	// Wake up all readers blocked on an idle connection. Connections already
	// closing get the shutdown drain deadline for their pending writes.
	t.conns.Range(func(_ uint64, c *connection) bool {
		c.wake()
		_ = c.conn.SetWriteDeadline(deadline)
		return true
	})

	drained := make(chan struct{})
	go func() {
		t.handlers.Wait()
		close(drained)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()

	select {
	case <-drained:
		Logger.Infof("Shutdown complete")
		return 0
	case <-timer.C:
	}

	// Drain timeout elapsed: force close everything still open
	forced := 0
	t.conns.Range(func(_ uint64, c *connection) bool {
		c.forceClose()
		forced++
		return true
	})
	Logger.Warningf("%v", &ShutdownTimeout{Timeout: drainTimeout, Remaining: forced})

	<-drained
	Logger.Infof("Shutdown complete")
	return forced
}

package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

const (
	// maxWriteBatch is the maximum number of frames combined into one write
	maxWriteBatch = 64
)

var (
	errShutdown   = errors.New("server shutting down")
	errWriterGone = errors.New("writer stopped")
	errHandler    = errors.New("handler panic")
)

// --------------------------------------------------------------------------
// Connection State
// --------------------------------------------------------------------------

// ConnState is the lifecycle state of a server side connection:
// Accepted -> Reading -> (Processing -> Writing)* -> Closing -> Closed
type ConnState int32

const (
	StateAccepted ConnState = iota
	StateReading
	StateProcessing
	StateWriting
	StateClosing
	StateClosed
)

// String returns the string representation of a ConnState
func (s ConnState) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StateReading:
		return "reading"
	case StateProcessing:
		return "processing"
	case StateWriting:
		return "writing"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Connection Handler
// --------------------------------------------------------------------------

// connection owns one accepted connection. The read loop runs on the
// goroutine calling serve, the write loop on its own goroutine, so a slow
// peer on one direction does not stall the other.
type connection struct {
	id         uint64
	conn       net.Conn
	server     *serverTransport
	decoder    *Decoder
	writes     *writeQueue
	state      atomic.Int32
	writerDone chan struct{}
}

func newConnection(id uint64, conn net.Conn, server *serverTransport) *connection {
	return &connection{
		id:         id,
		conn:       conn,
		server:     server,
		decoder:    NewDecoder(server.config.MaxFrameSize),
		writes:     newWriteQueue(server.config.MaxPendingWrites),
		writerDone: make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *connection) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *connection) setState(s ConnState) {
	c.state.Store(int32(s))
}

// serve runs the connection until it is closed and deregisters it afterwards
func (c *connection) serve() {
	defer c.server.release(c)

	go c.writeLoop()
	reason := c.readLoop()
	c.close(reason)
}

// readLoop reads from the socket and processes every complete frame. It
// returns the reason the connection has to be closed.
func (c *connection) readLoop() error {
	for {
		// the shutdown signal is observed before every read
		if c.server.shuttingDown() {
			return errShutdown
		}

		c.setState(StateReading)
		n, err := c.decoder.Fill(c.conn)
		if n > 0 {
			c.server.metrics.bytesIn.Add(n)
		}

		// frames completed by this read are processed even if the read failed
		if perr := c.processFrames(); perr != nil {
			return perr
		}

		if err != nil {
			if c.server.shuttingDown() {
				return errShutdown
			}
			return err
		}
	}
}

// processFrames hands every buffered frame to the handler and queues the replies
func (c *connection) processFrames() error {
	for {
		frame, err := c.decoder.Next()
		if errors.Is(err, ErrNeedMoreData) {
			return nil
		}
		if err != nil {
			return err
		}
		c.server.metrics.framesIn.Inc()

		c.setState(StateProcessing)
		start := time.Now()
		resp, reply, err := c.handle(frame.Payload)
		c.server.metrics.handleDuration.UpdateDuration(start)
		if err != nil {
			return err
		}
		if !reply {
			continue
		}

		if uint64(len(resp)) > uint64(c.server.config.MaxFrameSize) {
			Logger.Errorf("Connection %d: dropping reply of %d bytes, exceeds max frame size of %d", c.id, len(resp), c.server.config.MaxFrameSize)
			continue
		}

		c.setState(StateWriting)
		if !c.writes.push(Encode(resp)) {
			return errWriterGone
		}
	}
}

// handle calls the registered handler. A panicking handler closes only this
// connection.
func (c *connection) handle(req []byte) (resp []byte, reply bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandler, r)
		}
	}()
	resp, reply = c.server.handler(req)
	return resp, reply, nil
}

// writeLoop flushes queued frames in order until the queue is closed and
// empty or a write fails
func (c *connection) writeLoop() {
	defer close(c.writerDone)

	for {
		batch, ok := c.writes.popBatch(maxWriteBatch)
		if !ok {
			return
		}

		// Combine all frames of the batch into a single write
		bufs := net.Buffers(batch)
		n, err := bufs.WriteTo(c.conn)
		c.server.metrics.bytesOut.Add(int(n))
		if err != nil {
			Logger.Debugf("Connection %d: write failed: %v", c.id, err)
			c.writes.fail()
			// wakes the reader, a failed write is handled like a peer close
			_ = c.conn.Close()
			return
		}
		c.server.metrics.framesOut.Add(len(batch))
	}
}

// close flushes pending replies (bounded by the drain deadline) and closes
// the socket
func (c *connection) close(reason error) {
	c.setState(StateClosing)
	c.logClose(reason)

	c.writes.close()
	if pending := c.writes.pending(); pending > 0 {
		Logger.Debugf("Connection %d: draining %d pending frame(s)", c.id, pending)
	}
	draining := c.server.shuttingDown()
	_ = c.conn.SetWriteDeadline(c.server.writeDrainDeadline())
	if !draining && c.server.shuttingDown() {
		// shutdown started in between, its deadline wins
		_ = c.conn.SetWriteDeadline(c.server.writeDrainDeadline())
	}
	<-c.writerDone

	_ = c.conn.Close()
	c.setState(StateClosed)
}

func (c *connection) logClose(reason error) {
	var protoErr *ProtocolError
	switch {
	case errors.Is(reason, errShutdown):
		Logger.Debugf("Connection %d: closing on shutdown", c.id)
	case errors.Is(reason, io.EOF):
		Logger.Debugf("Connection %d: closed by peer", c.id)
	case errors.Is(reason, errHandler):
		Logger.Errorf("Connection %d: %v", c.id, reason)
	case errors.As(reason, &protoErr):
		c.server.metrics.protocolErrors.Inc()
		Logger.Warningf("Connection %d (%s): %v", c.id, c.conn.RemoteAddr(), reason)
	default:
		c.server.metrics.ioErrors.Inc()
		Logger.Infof("Connection %d: %v", c.id, &IOError{Op: "read", Err: reason})
	}
}

// wake interrupts a blocked read so the reader observes the shutdown signal
func (c *connection) wake() {
	_ = c.conn.SetReadDeadline(time.Now())
}

// forceClose closes the socket regardless of pending writes
func (c *connection) forceClose() {
	c.server.metrics.forceClosed.Inc()
	_ = c.conn.Close()
}

package client

import (
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"sync"
	"time"
)

var (
	Logger = logger.GetLogger(common.LoggerClient)
)

// Names of the metrics a client records in its registry
const (
	MetricRoundTrip = "dframe.client.roundtrip"
	MetricErrors    = "dframe.client.errors"
)

// Client performs request/response exchanges over one framed connection.
// Replies are matched to requests by order, so exchanges are serialized.
type Client struct {
	config    common.ClientConfig
	transport transport.IClientTransport

	mu        sync.Mutex // pairs each request with its reply
	roundTrip gometrics.Timer
	errors    gometrics.Counter
}

// NewClient connects the transport and returns a client using it
// The metrics are recorded in registry; clients sharing a registry share
// their statistics. A nil registry gives the client a private one.
func NewClient(
	config common.ClientConfig,
	transport transport.IClientTransport,
	registry gometrics.Registry,
) (*Client, error) {
	if registry == nil {
		registry = gometrics.NewRegistry()
	}

	// Connect the transport
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &Client{
		config:    config,
		transport: transport,
		roundTrip: gometrics.GetOrRegisterTimer(MetricRoundTrip, registry),
		errors:    gometrics.GetOrRegisterCounter(MetricErrors, registry),
	}, nil
}

// Do sends payload and waits for the reply
func (c *Client) Do(payload []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()

	if err := c.transport.Send(payload); err != nil {
		c.errors.Inc(1)
		return nil, err
	}

	resp, err := c.transport.Receive()
	if err != nil {
		c.errors.Inc(1)
		return nil, err
	}

	c.roundTrip.UpdateSince(start)
	return resp, nil
}

// Send sends payload without waiting for a reply. Use it only with handlers
// that do not reply, otherwise the next Do receives the wrong reply.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.transport.Send(payload); err != nil {
		c.errors.Inc(1)
		return err
	}
	return nil
}

// Stats returns a snapshot of the round trip latencies
func (c *Client) Stats() gometrics.Timer {
	return c.roundTrip.Snapshot()
}

// Errors returns the number of failed exchanges
func (c *Client) Errors() int64 {
	return c.errors.Count()
}

// Close closes the connection
func (c *Client) Close() error {
	Logger.Debugf("Closing connection to %s", c.config.Transport.Endpoint)
	return c.transport.Close()
}

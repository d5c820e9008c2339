package base

import (
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"net"
	"testing"
	"time"
)

const DefaultTestMaxFrameSize = common.DefaultMaxFrameSize

// --------------------------------------------------------------------------
// Loopback connectors (plain net.Listen / net.Dial)
// --------------------------------------------------------------------------

type testServerConnector struct{}

func (testServerConnector) GetName() string { return "test" }

func (testServerConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	return net.Listen("tcp", config.Transport.Endpoint)
}

func (testServerConnector) UpgradeConnection(net.Conn, common.ServerConfig) error { return nil }

type testClientConnector struct{}

func (testClientConnector) GetName() string { return "test" }

func (testClientConnector) Connect(config common.ClientConfig) (net.Conn, error) {
	return net.Dial("tcp", config.Transport.Endpoint)
}

func (testClientConnector) UpgradeConnection(net.Conn, common.ClientConfig) error { return nil }

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// echoHandler replies with the request
func echoHandler(req []byte) ([]byte, bool) {
	return req, true
}

// pingHandler answers "ping" with "pong" and echoes everything else
func pingHandler(req []byte) ([]byte, bool) {
	if string(req) == "ping" {
		return []byte("pong"), true
	}
	return req, true
}

// startTestServer starts a server on a random loopback port
func startTestServer(t *testing.T, handler transport.HandleFunc, configure func(*common.ServerConfig)) (*serverTransport, string) {
	t.Helper()

	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	config.DrainTimeout = 2 * time.Second
	if configure != nil {
		configure(&config)
	}

	srv := NewBaseServerTransport(testServerConnector{})
	srv.RegisterHandler(handler)
	if err := srv.Start(config); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(time.Second) })

	return srv.(*serverTransport), srv.Addr().String()
}

// connectTestClient connects a framed client to addr
func connectTestClient(t *testing.T, addr string) transport.IClientTransport {
	t.Helper()

	client := NewBaseClientTransport(testClientConnector{})
	if err := client.Connect(common.DefaultClientConfig(addr)); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// exchange sends req and returns the reply
func exchange(t *testing.T, client transport.IClientTransport, req string) string {
	t.Helper()

	if err := client.Send([]byte(req)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, err := client.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	return string(resp)
}

// waitFor polls cond until it is true or the timeout elapses
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// expectClosed asserts that the server closes conn within timeout
func expectClosed(t *testing.T, conn net.Conn, timeout time.Duration) {
	t.Helper()

	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buf := make([]byte, 1024)
	for {
		_, err := conn.Read(buf)
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			t.Fatalf("Connection was not closed within %s", timeout)
		}
		return
	}
}

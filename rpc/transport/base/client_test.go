package base

import (
	"errors"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"net"
	"testing"
	"time"
)

func TestClientSendOversize(t *testing.T) {
	_, addr := startTestServer(t, echoHandler, nil)

	client := NewBaseClientTransport(testClientConnector{})
	config := common.DefaultClientConfig(addr)
	config.MaxFrameSize = 8
	if err := client.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var protoErr *ProtocolError
	if err := client.Send(make([]byte, 9)); !errors.As(err, &protoErr) {
		t.Fatalf("Expected ProtocolError, got %v", err)
	}

	// nothing was written, the connection is still usable
	if resp := exchange(t, client, "ok"); resp != "ok" {
		t.Errorf("Expected ok, got %q", resp)
	}
}

func TestClientReceiveOversize(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	// a misbehaving server announcing a frame larger than the client accepts
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte{0x7f, 0xff, 0xff, 0xff})
		time.Sleep(time.Second)
	}()

	client := NewBaseClientTransport(testClientConnector{})
	if err := client.Connect(common.DefaultClientConfig(ln.Addr().String())); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var protoErr *ProtocolError
	if _, err := client.Receive(); !errors.As(err, &protoErr) {
		t.Errorf("Expected ProtocolError, got %v", err)
	}
}

func TestClientReceivePeerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	// the peer closes in the middle of a frame
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		_, _ = conn.Write(Encode([]byte("truncated"))[:6])
		_ = conn.Close()
	}()

	client := NewBaseClientTransport(testClientConnector{})
	if err := client.Connect(common.DefaultClientConfig(ln.Addr().String())); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var ioErr *IOError
	if _, err := client.Receive(); !errors.As(err, &ioErr) {
		t.Errorf("Expected IOError, got %v", err)
	}
}

func TestClientNotConnected(t *testing.T) {
	client := NewBaseClientTransport(testClientConnector{})

	var ioErr *IOError
	if err := client.Send([]byte("x")); !errors.As(err, &ioErr) {
		t.Errorf("Expected IOError on Send, got %v", err)
	}
	if _, err := client.Receive(); !errors.As(err, &ioErr) {
		t.Errorf("Expected IOError on Receive, got %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close of an unconnected client failed: %v", err)
	}
}

func TestClientConnectErrors(t *testing.T) {
	// grab a free port and release it again
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	var connErr *ConnectError

	client := NewBaseClientTransport(testClientConnector{})
	if err := client.Connect(common.DefaultClientConfig(addr)); !errors.As(err, &connErr) {
		t.Errorf("Expected ConnectError for a closed port, got %v", err)
	} else if connErr.Endpoint != addr {
		t.Errorf("Expected endpoint %s, got %s", addr, connErr.Endpoint)
	}

	if err := client.Connect(common.DefaultClientConfig("")); !errors.As(err, &connErr) {
		t.Errorf("Expected ConnectError for an empty endpoint, got %v", err)
	}
}

func TestClientConnectTwice(t *testing.T) {
	_, addr := startTestServer(t, echoHandler, nil)
	client := connectTestClient(t, addr)

	var connErr *ConnectError
	if err := client.Connect(common.DefaultClientConfig(addr)); !errors.As(err, &connErr) {
		t.Errorf("Expected ConnectError on a second Connect, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	_, addr := startTestServer(t, func([]byte) ([]byte, bool) {
		return nil, false
	}, nil)

	client := NewBaseClientTransport(testClientConnector{})
	config := common.DefaultClientConfig(addr)
	config.TimeoutSecond = 1
	if err := client.Connect(config); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	if err := client.Send([]byte("no reply")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	start := time.Now()
	_, err := client.Receive()
	var ioErr *IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("Expected IOError, got %v", err)
	}
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Expected a timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("Receive took %s", elapsed)
	}
}

package base

import (
	"github.com/ValentinKolb/dFrame/rpc/common"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestGracefulShutdown(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)

	srv, addr := startTestServer(t, func(req []byte) ([]byte, bool) {
		if string(req) == "work" {
			entered <- struct{}{}
			<-release
			return []byte("done"), true
		}
		return req, true
	}, nil)

	busy := connectTestClient(t, addr)
	idle, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer idle.Close()

	if err := busy.Send([]byte("work")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	<-entered
	waitFor(t, time.Second, func() bool { return srv.ConnectionCount() == 2 })

	forced := make(chan int, 1)
	go func() {
		forced <- srv.Shutdown(5 * time.Second)
	}()

	// the idle connection is closed without waiting for the busy one
	expectClosed(t, idle, time.Second)

	// new connections are refused
	refused := waitFor(t, time.Second, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return true
		}
		_ = c.Close()
		return false
	})
	if !refused {
		t.Errorf("Listener still accepts connections after shutdown")
	}

	select {
	case n := <-forced:
		t.Fatalf("Shutdown returned (%d) while a handler was still running", n)
	case <-time.After(50 * time.Millisecond):
		// Expected, busy handler still running
	}

	// the in flight request is completed and its reply flushed
	close(release)
	resp, err := busy.Receive()
	if err != nil || string(resp) != "done" {
		t.Errorf("Expected reply of the in flight request, got %q (%v)", resp, err)
	}

	select {
	case n := <-forced:
		if n != 0 {
			t.Errorf("Expected no forced closes, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Shutdown did not return")
	}

	if srv.ConnectionCount() != 0 {
		t.Errorf("Expected 0 connections after shutdown, got %d", srv.ConnectionCount())
	}
}

func TestShutdownForceClosesStuckConnection(t *testing.T) {
	big := make([]byte, 1024*1024)
	srv, addr := startTestServer(t, func([]byte) ([]byte, bool) {
		return big, true
	}, func(c *common.ServerConfig) {
		c.MaxPendingWrites = 1
	})

	// the peer sends requests but never reads the replies
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	var wire []byte
	for i := 0; i < 64; i++ {
		wire = AppendFrame(wire, []byte("x"))
	}
	if _, err := conn.Write(wire); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// give the writer time to fill the socket buffers
	time.Sleep(300 * time.Millisecond)

	start := time.Now()
	forced := srv.Shutdown(200 * time.Millisecond)
	if forced != 1 {
		t.Errorf("Expected 1 forced close, got %d", forced)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown took %s", elapsed)
	}

	var sb strings.Builder
	srv.WritePrometheus(&sb)
	if !strings.Contains(sb.String(), "dframe_connections_force_closed_total 1") {
		t.Errorf("Forced close not counted:\n%s", sb.String())
	}
}

func TestShutdownDrainUsesShutdownTimeout(t *testing.T) {
	big := make([]byte, 8*1024*1024)
	replied := make(chan struct{}, 1)
	srv, addr := startTestServer(t, func([]byte) ([]byte, bool) {
		replied <- struct{}{}
		return big, true
	}, func(c *common.ServerConfig) {
		c.DrainTimeout = 200 * time.Millisecond
	})

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write(Encode([]byte("big"))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	<-replied

	forced := make(chan int, 1)
	go func() {
		forced <- srv.Shutdown(5 * time.Second)
	}()

	// the peer starts reading well after the configured drain timeout
	time.Sleep(time.Second)

	reply := make([]byte, HeaderSize+len(big))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if n, err := readFull(conn, reply); err != nil {
		t.Fatalf("Received %d of %d bytes: %v", n, len(reply), err)
	}

	select {
	case n := <-forced:
		if n != 0 {
			t.Errorf("Expected no forced closes, got %d", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Shutdown did not return")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, addr := startTestServer(t, echoHandler, nil)
	connectTestClient(t, addr)

	var wg sync.WaitGroup
	results := make(chan int, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- srv.Shutdown(time.Second)
		}()
	}
	wg.Wait()
	close(results)

	for n := range results {
		if n != 0 {
			t.Errorf("Expected 0 forced closes, got %d", n)
		}
	}

	select {
	case <-srv.Done():
	default:
		t.Errorf("Done channel not closed after shutdown")
	}

	// a later call returns immediately
	if n := srv.Shutdown(time.Second); n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := NewBaseServerTransport(testServerConnector{})
	srv.RegisterHandler(echoHandler)

	if n := srv.Shutdown(time.Second); n != 0 {
		t.Errorf("Expected 0 forced closes, got %d", n)
	}

	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"
	if err := srv.Start(config); err == nil {
		t.Errorf("Expected Start to fail after shutdown")
	}
}

func TestStartErrors(t *testing.T) {
	config := common.DefaultServerConfig()
	config.Transport.Endpoint = "127.0.0.1:0"

	srv := NewBaseServerTransport(testServerConnector{})
	if err := srv.Start(config); err == nil {
		t.Errorf("Expected Start without handler to fail")
	}

	srv.RegisterHandler(echoHandler)
	if err := srv.Start(config); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Shutdown(time.Second)

	if err := srv.Start(config); err == nil {
		t.Errorf("Expected second Start to fail")
	}
}

func TestConnStateString(t *testing.T) {
	tests := map[ConnState]string{
		StateAccepted:   "accepted",
		StateReading:    "reading",
		StateProcessing: "processing",
		StateWriting:    "writing",
		StateClosing:    "closing",
		StateClosed:     "closed",
		ConnState(42):   "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}

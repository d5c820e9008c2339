package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"
)

var Logger = logger.GetLogger(common.LoggerServer)

// metricsShutdownTimeout bounds the shutdown of the metrics endpoint
const metricsShutdownTimeout = 2 * time.Second

// FrameServer ties a server transport to an application handler and runs it
// until it is told to stop
type FrameServer struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	handler   transport.HandleFunc

	metricsEndpoint string
	metricsAddr     net.Addr
	metricsServer   *http.Server

	stopOnce sync.Once
	forced   int
}

// NewServer creates a new frame server
// It takes a config, transport and handler as parameters
//
// Usage:
//
//	s := server.NewServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		server.Ping,
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, transport transport.IServerTransport, handler transport.HandleFunc) *FrameServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	config = config.WithDefaults()

	Logger.Infof("Created frame server")
	Logger.Infof("%s", config.String())

	return &FrameServer{
		config:    config,
		transport: transport,
		handler:   handler,
	}
}

// WithMetricsEndpoint exposes the server metrics in the Prometheus text
// format on http://<endpoint>/metrics
func (s *FrameServer) WithMetricsEndpoint(endpoint string) *FrameServer {
	s.metricsEndpoint = endpoint
	return s
}

// Start binds the listener (and the metrics endpoint, if configured) and
// starts accepting connections in the background
func (s *FrameServer) Start() error {
	if s.handler == nil {
		return fmt.Errorf("no handler configured")
	}

	// Init logger
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	s.transport.RegisterHandler(s.handler)

	if err := s.transport.Start(s.config); err != nil {
		return err
	}

	if s.metricsEndpoint != "" {
		if err := s.startMetrics(); err != nil {
			s.transport.Shutdown(0)
			return err
		}
	}

	return nil
}

// Stop shuts the server down, waiting at most the configured drain timeout
// for open connections. It returns the number of force closed connections.
func (s *FrameServer) Stop() int {
	s.stopOnce.Do(func() {
		if s.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				Logger.Warningf("Failed to stop metrics endpoint: %v", err)
			}
			cancel()
		}

		s.forced = s.transport.Shutdown(s.config.DrainTimeout)
		if s.forced > 0 {
			Logger.Warningf("Force closed %d connection(s) after %s", s.forced, s.config.DrainTimeout)
		}
	})
	return s.forced
}

// Run starts the server and blocks until ctx is cancelled, then stops it
func (s *FrameServer) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		Logger.Infof("Received stop signal")
	case <-s.transport.Done():
	}

	s.Stop()
	return nil
}

// Serve runs the server until SIGINT or SIGTERM is received
func (s *FrameServer) Serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Addr returns the address the server listens on, nil before Start
func (s *FrameServer) Addr() net.Addr {
	return s.transport.Addr()
}

// MetricsAddr returns the address of the metrics endpoint, nil if disabled
func (s *FrameServer) MetricsAddr() net.Addr {
	return s.metricsAddr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// startMetrics serves the transport and process metrics over http
func (s *FrameServer) startMetrics() error {
	ln, err := net.Listen("tcp", s.metricsEndpoint)
	if err != nil {
		return fmt.Errorf("failed to start metrics endpoint: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.transport.WritePrometheus(w)
		metrics.WriteProcessMetrics(w)
	})

	s.metricsAddr = ln.Addr()
	s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()

	Logger.Infof("Serving metrics on http://%s/metrics", ln.Addr())
	return nil
}

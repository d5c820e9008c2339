package serve

import (
	cmdUtil "github.com/ValentinKolb/dFrame/cmd/util"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the frame server",
		Long:    `Start the frame server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DFRAME_<flag> (e.g. DFRAME_DRAIN_TIMEOUT=10s). The server runs until it receives SIGINT or SIGTERM and then drains all open connections.`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// add flags
	key := "endpoint"
	ServeCmd.Flags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:8080, /tmp/dframe.sock, ...)"))

	key = "max-frame-size"
	ServeCmd.Flags().Uint32(key, common.DefaultMaxFrameSize, cmdUtil.WrapString("The largest payload in bytes a client may announce. Larger frames close the connection"))

	key = "drain-timeout"
	ServeCmd.Flags().Duration(key, common.DefaultDrainTimeout, cmdUtil.WrapString("How long to wait for open connections on shutdown before they are force closed"))

	key = "backlog"
	ServeCmd.Flags().Int(key, common.DefaultAcceptBacklog, cmdUtil.WrapString("The length of the queue of not yet accepted connections (tcp only)"))

	key = "max-pending-writes"
	ServeCmd.Flags().Int(key, common.DefaultMaxPendingWrites, cmdUtil.WrapString("How many replies may be queued per connection before the server stops reading from it"))

	key = "reuse-addr"
	ServeCmd.Flags().Bool(key, true, cmdUtil.WrapString("Whether to set SO_REUSEADDR on the listening socket (tcp only)"))

	key = "tcp-nodelay"
	ServeCmd.Flags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on accepted connections (tcp only)"))

	key = "tcp-keepalive"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The keepalive interval of accepted connections (in seconds, 0 = disabled, tcp only)"))

	key = "write-buffer"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The size of the socket write buffer (in KB, 0 = os default)"))

	key = "read-buffer"
	ServeCmd.Flags().Int(key, 0, cmdUtil.WrapString("The size of the socket read buffer (in KB, 0 = os default)"))

	key = "handler"
	ServeCmd.Flags().String(key, "ping", cmdUtil.WrapString("The application handler answering the frames ("+strings.Join(server.HandlerNames(), ", ")+")"))

	key = "metrics-endpoint"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("If set, serve Prometheus metrics on http://<endpoint>/metrics (e.g. 127.0.0.1:9090)"))

	key = "log-level"
	ServeCmd.Flags().String(key, common.DefaultLogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.AcceptBacklog = viper.GetInt("backlog")
	serveCmdConfig.Transport.DisableReuseAddr = !viper.GetBool("reuse-addr")
	serveCmdConfig.Transport.TCPNoDelay = viper.GetBool("tcp-nodelay")
	serveCmdConfig.Transport.TCPKeepAliveSec = viper.GetInt("tcp-keepalive")
	serveCmdConfig.Transport.WriteBufferSize = viper.GetInt("write-buffer") * 1024
	serveCmdConfig.Transport.ReadBufferSize = viper.GetInt("read-buffer") * 1024
	serveCmdConfig.MaxFrameSize = viper.GetUint32("max-frame-size")
	serveCmdConfig.DrainTimeout = viper.GetDuration("drain-timeout")
	serveCmdConfig.MaxPendingWrites = viper.GetInt("max-pending-writes")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// Init logger before the server logs its configuration
	if err := common.InitLoggers(serveCmdConfig.LogLevel); err != nil {
		return err
	}

	return nil
}

// run starts the frame server and blocks until it is stopped
func run(_ *cobra.Command, _ []string) error {

	// Parse the handler
	h, err := server.GetHandler(viper.GetString("handler"))
	if err != nil {
		return err
	}

	// Parse the transport
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewServer(serveCmdConfig, t, h).
		WithMetricsEndpoint(viper.GetString("metrics-endpoint"))

	return serv.Serve()
}

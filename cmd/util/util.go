package util

import (
	"fmt"
	"github.com/ValentinKolb/dFrame/rpc/common"
	"github.com/ValentinKolb/dFrame/rpc/transport"
	"github.com/ValentinKolb/dFrame/rpc/transport/tcp"
	"github.com/ValentinKolb/dFrame/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags to a client command
func SetupClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.Flags().String(key, "127.0.0.1:8080", WrapString("The address of the frame server (host:port for tcp, a socket path for unix)"))

	key = "timeout"
	cmd.Flags().Int(key, 10, WrapString("The timeout in seconds for every send and receive (0 = no timeout)"))

	key = "dial-timeout"
	cmd.Flags().Int(key, 5, WrapString("The timeout in seconds for establishing the connection"))

	key = "max-frame-size"
	cmd.Flags().Uint32(key, common.DefaultMaxFrameSize, WrapString("The largest payload in bytes the client sends or accepts"))

	key = "transport-write-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 = os default)"))

	key = "transport-read-buffer"
	cmd.Flags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 = os default)"))

	key = "transport-tcp-nodelay"
	cmd.Flags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.Flags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 = disabled, tcp only)"))

	key = "transport-tcp-linger"
	cmd.Flags().Int(key, -1, WrapString("The linger time (in seconds, negative = os default, tcp only)"))

	key = "log-level"
	cmd.Flags().String(key, common.DefaultLogLevel, WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads .env files and makes viper read DFRAME_* environment
// variables (e.g. DFRAME_MAX_FRAME_SIZE=1024)
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dframe")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	conf := &common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		MaxFrameSize:  viper.GetUint32("max-frame-size"),
		LogLevel:      viper.GetString("log-level"),
		Transport: common.ClientTransportConfig{
			Endpoint:          viper.GetString("endpoint"),
			DialTimeoutSecond: viper.GetInt("dial-timeout"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}

	if linger := viper.GetInt("transport-tcp-linger"); linger >= 0 {
		conf.Transport.TCPLingerSec = common.LingerSec(linger)
	}

	return conf
}

// GetClientTransport creates a client transport based on configuration
func GetClientTransport() (transport.IClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates a server transport based on configuration
func GetServerTransport() (transport.IServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

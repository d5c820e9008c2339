package frame

import (
	"github.com/ValentinKolb/dFrame/cmd/util"
	"github.com/ValentinKolb/dFrame/rpc/client"
	"github.com/ValentinKolb/dFrame/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
)

var clientConfig *common.ClientConfig

func init() {
	// Add connection flags to all client commands
	util.SetupClientFlags(SendCmd)
	util.SetupClientFlags(PerfCmd)
}

// processClientConfig reads the client configuration of a command
func processClientConfig(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	clientConfig = util.GetClientConfig()

	// Initialize loggers with the client log level
	return common.InitLoggers(clientConfig.LogLevel)
}

// newClient connects a new client using the configured transport
func newClient(registry gometrics.Registry) (*client.Client, error) {
	t, err := util.GetClientTransport()
	if err != nil {
		return nil, err
	}

	return client.NewClient(*clientConfig, t, registry)
}

package cmd

import (
	"fmt"
	"github.com/ValentinKolb/dFrame/cmd/frame"
	"github.com/ValentinKolb/dFrame/cmd/serve"
	"github.com/ValentinKolb/dFrame/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dframe",
		Short: "framed tcp request/response server",
		Long: fmt.Sprintf(`dFrame (v%s)

A concurrent TCP server and client exchanging length-prefixed frames
(4 byte big-endian length + payload), with graceful shutdown.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dFrame",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dFrame v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(frame.SendCmd)
	RootCmd.AddCommand(frame.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

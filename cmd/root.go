package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dPipe/cmd/send"
	"github.com/ValentinKolb/dPipe/cmd/serve"
	"github.com/ValentinKolb/dPipe/cmd/stop"
	"github.com/ValentinKolb/dPipe/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dpipe",
		Short: "request/response over line oriented pipes",
		Long: fmt.Sprintf(`dPipe (v%s)

A half-duplex request/response protocol over line oriented text streams
(unix sockets, tcp or named pipes), with in-band control messages,
cooperative server shutdown and errors delivered as response data.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dPipe",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dPipe v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(send.SendCmd)
	RootCmd.AddCommand(stop.StopCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString("transport to use (unix, tcp, fifo)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package stop

import (
	"fmt"

	"github.com/ValentinKolb/dPipe/cmd/util"
	"github.com/spf13/cobra"
)

// StopCmd sends the stop request to a pipe server
var StopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running pipe server",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

func init() {
	cobra.OnInitialize(util.InitConfig)
	util.SetupClientFlags(StopCmd)
}

func runStop(cmd *cobra.Command, _ []string) error {
	c, err := util.NewClient(cmd)
	if err != nil {
		return err
	}
	defer c.Close()

	resp := c.StopServer()
	if c.IsError() {
		return fmt.Errorf("failed to stop server: %s", c.LastErrorMessage())
	}
	if resp != c.Config().Protocol.StoppedResponse {
		return fmt.Errorf("unexpected response to stop request: %q", resp)
	}

	fmt.Println("Server stopped")
	return nil
}

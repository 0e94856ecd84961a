package send

import (
	"bufio"
	"fmt"
	"os"

	"github.com/ValentinKolb/dPipe/cmd/util"
	"github.com/ValentinKolb/dPipe/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pipeClient *client.PipeClient

	// SendCmd sends requests to a pipe server
	SendCmd = &cobra.Command{
		Use:   "send [request...]",
		Short: "Send requests to a pipe server",
		Long: `Send each argument as one request and print the responses.
Without arguments, every line read from stdin is sent as one request.`,
		PersistentPreRunE: setupClient,
		RunE:              runSend,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	util.SetupClientFlags(SendCmd)
	SendCmd.Flags().Bool("stats", false, util.WrapString("Print exchange statistics after all requests were sent"))
}

func setupClient(cmd *cobra.Command, _ []string) (err error) {
	pipeClient, err = util.NewClient(cmd)
	return err
}

func runSend(_ *cobra.Command, args []string) error {
	defer pipeClient.Close()

	failed := 0
	send := func(req string) {
		resp := pipeClient.GetServerResponse(req)
		if pipeClient.IsError() {
			failed++
			fmt.Fprintf(os.Stderr, "Error: %s\n", pipeClient.LastErrorMessage())
			return
		}
		fmt.Println(resp)
	}

	if len(args) > 0 {
		for _, req := range args {
			send(req)
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			send(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if viper.GetBool("stats") {
		fmt.Print(pipeClient.Stats().String())
	}

	if failed > 0 {
		return fmt.Errorf("%d request(s) failed", failed)
	}
	return nil
}

package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/dPipe/cmd/util"
	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("rpc")

const shutdownTimeout = 5 * time.Second

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start a pipe server",
		Long:    `Start a pipe server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is DPIPE_<flag> (e.g. DPIPE_LOG_LEVEL=debug)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

// responders are the response functions selectable with --responder
var responders = map[string]server.ResponseFunc{
	"echo": func(req string) (string, error) {
		return req, nil
	},
	"upper": func(req string) (string, error) {
		return strings.ToUpper(req), nil
	},
	"reverse": func(req string) (string, error) {
		r := []rune(req)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return string(r), nil
	},
}

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupProtocolFlags(ServeCmd)

	key := "responder"
	ServeCmd.PersistentFlags().String(key, "echo", cmdUtil.WrapString("The response function of the server (echo, upper, reverse)"))

	key = "requests-per-second"
	ServeCmd.PersistentFlags().Float64(key, 0, cmdUtil.WrapString("Maximum number of requests served per second (0 disables the limit)"))

	key = "request-burst"
	ServeCmd.PersistentFlags().Int(key, 1, cmdUtil.WrapString("Number of requests that may exceed the rate limit in a burst"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the prometheus metrics endpoint (e.g. localhost:9090), empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	protocol, err := cmdUtil.GetProtocolConfig()
	if err != nil {
		return err
	}

	serveCmdConfig.Protocol = protocol
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.RequestsPerSecond = viper.GetFloat64("requests-per-second")
	serveCmdConfig.RequestBurst = viper.GetInt("request-burst")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if _, ok := responders[viper.GetString("responder")]; !ok {
		return fmt.Errorf("invalid responder %s (expected one of: echo, upper, reverse)", viper.GetString("responder"))
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the pipe server and blocks until it stopped
func run(_ *cobra.Command, _ []string) error {
	t, err := cmdUtil.GetServerTransport(serveCmdConfig.Transport, serveCmdConfig.Endpoint)
	if err != nil {
		return err
	}

	serv, err := server.NewPipeServer(*serveCmdConfig, t, responders[viper.GetString("responder")])
	if err != nil {
		_ = t.Close()
		return err
	}

	if serveCmdConfig.MetricsEndpoint != "" {
		go serveMetrics(serveCmdConfig.MetricsEndpoint)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serv.Start(); err != nil {
		return err
	}
	Logger.Infof("Serving on %s endpoint %s", serveCmdConfig.Transport, serveCmdConfig.Endpoint)

	select {
	case <-serv.Done():
		// stopped by a client
		Logger.Infof("Server stopped by stop request")
		return t.Close()
	case <-ctx.Done():
		Logger.Infof("Received signal, shutting down")
		return serv.Shutdown(shutdownTimeout)
	}
}

// serveMetrics exposes the prometheus metrics of the process
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("Metrics available at http://%s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		Logger.Errorf("Metrics endpoint failed: %v", err)
	}
}

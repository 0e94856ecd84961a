package util

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ValentinKolb/dPipe/rpc/client"
	"github.com/ValentinKolb/dPipe/rpc/common"
	"github.com/ValentinKolb/dPipe/rpc/transport"
	"github.com/ValentinKolb/dPipe/rpc/transport/fifo"
	"github.com/ValentinKolb/dPipe/rpc/transport/tcp"
	"github.com/ValentinKolb/dPipe/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
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

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupProtocolFlags adds the protocol flags shared by server and client commands
func SetupProtocolFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, "/tmp/dpipe.sock", WrapString("The endpoint of the server: a socket path (unix), an address (tcp, e.g. localhost:7070) or the base path of the FIFOs (fifo)"))

	key = "prefix"
	cmd.PersistentFlags().String(key, common.DefaultPrefix, WrapString("Prefix of control messages (at least 3 characters)"))

	key = "separator"
	cmd.PersistentFlags().String(key, string(common.DefaultSeparator), WrapString("Character between the prefix and the name of a control message"))

	key = "false-separator"
	cmd.PersistentFlags().String(key, string(common.DefaultFalseSeparator), WrapString("Character inserted after the prefix to escape payload that starts with the prefix"))

	key = "request-multiline"
	cmd.PersistentFlags().Bool(key, false, WrapString("Whether requests span multiple lines, terminated by the request end marker"))

	key = "request-end"
	cmd.PersistentFlags().String(key, common.DefaultRequestEnd, WrapString("The line terminating a multiline request"))

	key = "response-multiline"
	cmd.PersistentFlags().Bool(key, false, WrapString("Whether responses span multiple lines, terminated by the response end marker"))

	key = "response-end"
	cmd.PersistentFlags().String(key, common.DefaultResponseEnd, WrapString("The line terminating a multiline response"))

	key = "stop-request"
	cmd.PersistentFlags().String(key, common.DefaultStopRequest, WrapString("The request that stops the server"))
}

// SetupClientFlags adds the flags of client commands
func SetupClientFlags(cmd *cobra.Command) {
	SetupProtocolFlags(cmd)

	key := "connect-timeout"
	cmd.PersistentFlags().Int(key, 5, WrapString("How long to retry connecting to the server (in seconds, 0 tries once)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dpipe")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetProtocolConfig reads the protocol configuration from viper
func GetProtocolConfig() (common.ProtocolConfig, error) {
	conf := common.DefaultProtocolConfig()

	sep, err := singleRune("separator")
	if err != nil {
		return conf, err
	}
	falseSep, err := singleRune("false-separator")
	if err != nil {
		return conf, err
	}

	conf.Prefix = viper.GetString("prefix")
	conf.Separator = sep
	conf.FalseSeparator = falseSep
	conf.RequestMultiline = viper.GetBool("request-multiline")
	conf.RequestEnd = viper.GetString("request-end")
	conf.ResponseMultiline = viper.GetBool("response-multiline")
	conf.ResponseEnd = viper.GetString("response-end")
	conf.StopRequest = viper.GetString("stop-request")

	return conf, conf.Validate()
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() (*common.ClientConfig, error) {
	protocol, err := GetProtocolConfig()
	if err != nil {
		return nil, err
	}
	return &common.ClientConfig{
		Protocol:             protocol,
		Transport:            viper.GetString("transport"),
		Endpoint:             viper.GetString("endpoint"),
		ConnectTimeoutSecond: viper.GetInt("connect-timeout"),
	}, nil
}

// --------------------------------------------------------------------------
// Transports
// --------------------------------------------------------------------------

// GetClientTransport creates the client transport named in the configuration
func GetClientTransport(transportName, endpoint string) (transport.IClientTransport, error) {
	switch transportName {
	case "unix":
		return unix.NewUnixClientTransport(endpoint), nil
	case "tcp":
		return tcp.NewTCPClientTransport(endpoint), nil
	case "fifo":
		return fifo.NewFifoClientTransport(endpoint), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", transportName)
	}
}

// GetServerTransport creates the server transport named in the configuration
func GetServerTransport(transportName, endpoint string) (transport.IServerTransport, error) {
	switch transportName {
	case "unix":
		return unix.NewUnixServerTransport(endpoint), nil
	case "tcp":
		return tcp.NewTCPServerTransport(endpoint), nil
	case "fifo":
		return fifo.NewFifoServerTransport(endpoint)
	default:
		return nil, fmt.Errorf("invalid transport %s", transportName)
	}
}

// NewClient binds the flags of cmd and creates a pipe client from them
func NewClient(cmd *cobra.Command) (*client.PipeClient, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}

	config, err := GetClientConfig()
	if err != nil {
		return nil, err
	}

	t, err := GetClientTransport(config.Transport, config.Endpoint)
	if err != nil {
		return nil, err
	}

	return client.NewPipeClient(*config, t)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func singleRune(key string) (rune, error) {
	s := viper.GetString(key)
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%s must be exactly one character, got %q", key, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

package relayctl

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/kralicky/streamrelay/pkg/auth"
	"github.com/kralicky/streamrelay/pkg/cli/relayctl/commands"
	"github.com/kralicky/streamrelay/pkg/logger"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type clientOptions struct {
	address    string
	token      string
	user       string
	caCert     string
	clientCert string
	clientKey  string
}

func (o *clientOptions) transportCredentials() (credentials.TransportCredentials, error) {
	if o.caCert == "" {
		return insecure.NewCredentials(), nil
	}
	caBytes, err := os.ReadFile(o.caCert)
	if err != nil {
		return nil, fmt.Errorf("failed to read server CA file: %w", err)
	}
	serverPool := x509.NewCertPool()
	if !serverPool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates found in %s", o.caCert)
	}
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS13,
		RootCAs:    serverPool,
	}
	if o.clientCert != "" || o.clientKey != "" {
		cert, err := tls.LoadX509KeyPair(o.clientCert, o.clientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return credentials.NewTLS(tlsConfig), nil
}

// rootCmd represents the base command when called without any subcommands
func BuildRootCmd() *cobra.Command {
	var logLevel string
	var opts clientOptions
	cmd := &cobra.Command{
		Use:          "relayctl",
		Short:        "Control a streamrelay server.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.GroupID != commands.GroupIdClientCommands {
				return nil
			}
			if logLevel != "" {
				if err := logger.SetLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level %q: %w", logLevel, err)
				}
			}
			if opts.token == "" {
				return fmt.Errorf("a token is required (set --token or STREAMRELAY_TOKEN)")
			}
			creds, err := opts.transportCredentials()
			if err != nil {
				return err
			}

			cc, err := grpc.DialContext(cmd.Context(), opts.address,
				grpc.WithTransportCredentials(creds),
				grpc.WithPerRPCCredentials(auth.TokenCredentials{
					Token:      opts.token,
					User:       opts.user,
					RequireTLS: opts.caCert != "",
				}),
				grpc.WithDefaultCallOptions(
					grpc.MaxCallRecvMsgSize(8*1024*1024), // 8MB
				),
			)
			if err != nil {
				return fmt.Errorf("failed to dial relay server: %w", err)
			}

			cmd.SetContext(relayv1.ContextWithClient(cmd.Context(), relayv1.NewRelayClient(cc)))
			return nil
		},
	}

	cmd.AddGroup(&cobra.Group{
		ID:    commands.GroupIdClientCommands,
		Title: "Client Commands:",
	})

	cmd.InitDefaultCompletionCmd()
	cmd.InitDefaultHelpCmd()

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVarP(&opts.address, "address", "a", "127.0.0.1:9098", "address of the relay server")
	cmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("STREAMRELAY_TOKEN"), "bearer token for the relay server (default $STREAMRELAY_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.user, "user", os.Getenv("USER"), "user name reported to the relay server")
	cmd.PersistentFlags().StringVar(&opts.caCert, "cacert", "", "path to the server's CA certificate (enables tls)")
	cmd.PersistentFlags().StringVar(&opts.clientCert, "cert", "", "path to a client certificate")
	cmd.PersistentFlags().StringVar(&opts.clientKey, "key", "", "path to a client key")

	cmd.AddCommand(
		commands.BuildStartCmd(),
		commands.BuildStopCmd(),
		commands.BuildStopAllCmd(),
		commands.BuildListCmd(),
		commands.BuildStatsCmd(),
		commands.BuildUptimeCmd(),
		commands.BuildLogsCmd(),
		commands.BuildChatCmd(),
	)

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx := context.Background()
	rootCmd := BuildRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

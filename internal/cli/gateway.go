package cli

import (
	"os"
	"os/signal"
	"syscall"

	"greeter/internal/config"
	"greeter/internal/domain"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

// NewGatewayCommand отдельный HTTP gateway к уже запущенному серверу (client.address)
func NewGatewayCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:           "greeter-gateway",
		Short:         "Serve the HTTP/JSON gateway in front of a running greeter server",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configDir, cmd.Flags())
			if err != nil {
				return domain.NewConfigError(err)
			}
			log := logs.GetLoggerFromString(cfg.Log.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			gateway, err := newGateway(log, cfg, cfg.Client.Address)
			if err != nil {
				return err
			}
			defer gateway.Close()

			if err := gateway.Run(ctx); err != nil {
				return err
			}
			log.Info("Gateway shutdown complete")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configDir, "config", "", "directory containing config.yaml")
	flags.String("addr", "localhost:50051", "gRPC server address host:port")
	flags.Int("http-port", 8080, "HTTP listen port")
	flags.Bool("tls", false, "dial the gRPC server over TLS")
	flags.String("ca-file", "", "CA bundle used to verify the server")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"greeter/internal/client"
	"greeter/internal/config"
	"greeter/internal/domain"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
)

// Коды завершения клиента
const (
	ExitOK      = 0
	ExitRuntime = 1
	ExitConfig  = 2
)

// ExitCode сопоставляет ошибку запуска с кодом завершения процесса
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrConfig):
		return ExitConfig
	default:
		return ExitRuntime
	}
}

// NewClientCommand собирает команду greeter-client. Ответ печатается в out.
func NewClientCommand(out io.Writer) *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:           "greeter-client",
		Short:         "Call greeter.v1.Greeter/Hello once and print the response",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configDir, cmd.Flags())
			if err != nil {
				return domain.NewConfigError(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runClient(ctx, cfg, out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configDir, "config", "", "directory containing config.yaml")
	flags.String("addr", "localhost:50051", "server address host:port")
	flags.String("name", "Kotlin", "name to greet")
	flags.Duration("timeout", 0, "per-call timeout, 0 keeps client.call_timeout")
	flags.Int("retries", 1, "maximum call attempts on UNAVAILABLE")
	flags.Bool("tls", false, "use TLS transport")
	flags.String("ca-file", "", "CA bundle used to verify the server")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runClient(ctx context.Context, cfg *config.Config, out io.Writer) error {
	log := logs.GetLoggerFromString(cfg.Log.Level)

	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		var err error
		tlsConfig, err = client.LoadTLS(cfg.TLS.CAFile, cfg.TLS.ServerName)
		if err != nil {
			return domain.NewConfigError(err)
		}
	}

	c, err := client.Dial(ctx, log, client.Options{
		Addr:         cfg.Client.Address,
		DialTimeout:  cfg.Client.DialTimeout,
		CallTimeout:  cfg.Client.CallTimeout,
		CloseTimeout: cfg.Client.CloseTimeout,
		MaxAttempts:  cfg.Client.MaxAttempts,
		Backoff:      cfg.Client.Backoff,
		TLS:          tlsConfig,
	})
	if err != nil {
		return err
	}
	// Соединение закрывается на любом пути выхода
	defer func() {
		if cerr := c.Close(); cerr != nil {
			log.Warn("Failed to close connection", "error", cerr)
		}
	}()

	text, err := c.Hello(ctx, cfg.Client.Name)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "Response Text: %s\n", text)
	return err
}

package cli

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"greeter/internal/client"
	"greeter/internal/config"
	grpchandler "greeter/internal/delivery/grpc"
	httpgateway "greeter/internal/delivery/http"
	"greeter/internal/domain"
	"greeter/internal/service"
	"greeter/pkg/grpcserver"

	"github.com/mama165/sdk-go/logs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/credentials"
)

func NewServerCommand() *cobra.Command {
	var configDir string

	cmd := &cobra.Command{
		Use:           "greeter-server",
		Short:         "Serve greeter.v1.Greeter until SIGINT or SIGTERM",
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

			return runServer(ctx, cfg, logs.GetLoggerFromString(cfg.Log.Level))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configDir, "config", "", "directory containing config.yaml")
	flags.Int("port", 50051, "gRPC listen port")
	flags.Bool("gateway", false, "also serve the HTTP/JSON gateway")
	flags.Int("http-port", 8080, "HTTP gateway port")
	flags.Bool("tls", false, "serve over TLS (tls.cert_file and tls.key_file required)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

// runServer поднимает gRPC сервер и, если включен, HTTP gateway.
// Ошибка привязки порта возвращается сразу, до начала обслуживания.
func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	var tlsConfig *tls.Config
	if cfg.TLS.Enabled {
		var err error
		tlsConfig, err = grpcserver.LoadServerTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return domain.NewConfigError(err)
		}
	}

	// Создаем сервисный слой и обработчик gRPC
	helloService := service.NewHelloService()
	handler := grpchandler.NewHandler(log, helloService)

	server := grpcserver.NewServer(log, handler, grpcserver.Options{
		Addr:            cfg.GRPC.Address(),
		ShutdownTimeout: cfg.GRPC.ShutdownTimeout,
		Reflection:      cfg.App.Env == "development",
		TLS:             tlsConfig,
	})
	if err := server.Listen(); err != nil {
		return err
	}
	log.Info("Started", "port", server.Addr().String(), "env", cfg.App.Env, "version", cfg.App.Version)

	var gateway *httpgateway.Gateway
	if cfg.HTTP.Enabled {
		var err error
		gateway, err = newGateway(log, cfg, server.Addr().String())
		if err != nil {
			if cerr := server.Close(); cerr != nil {
				log.Warn("Failed to release gRPC listener", "error", cerr)
			}
			return err
		}
		defer gateway.Close()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	if gateway != nil {
		g.Go(func() error {
			return gateway.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Program stopped cleanly")
	return nil
}

// newGateway собирает HTTP gateway к указанному gRPC адресу
func newGateway(log *slog.Logger, cfg *config.Config, grpcAddr string) (*httpgateway.Gateway, error) {
	var creds credentials.TransportCredentials
	if cfg.TLS.Enabled {
		clientTLS, err := client.LoadTLS(cfg.TLS.CAFile, cfg.TLS.ServerName)
		if err != nil {
			return nil, domain.NewConfigError(err)
		}
		creds = credentials.NewTLS(clientTLS)
	}

	mgr := httpgateway.NewGRPCConnectionManager(log, grpcAddr, creds)
	gateway := httpgateway.NewGateway(log, mgr, fmt.Sprintf(":%d", cfg.HTTP.Port))
	if err := gateway.SetupRoutes(); err != nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return gateway, nil
}

package grpcserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"greeter/internal/domain"
	"greeter/pkg/greeterpb"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

// Options параметры gRPC сервера
type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	Reflection      bool
	// TLS nil означает plaintext
	TLS *tls.Config
	// Listener готовый listener вместо net.Listen по Addr (bufconn в тестах)
	Listener net.Listener
}

type Server struct {
	server *grpc.Server
	health *health.Server
	opts   Options
	log    *slog.Logger
	mu     sync.Mutex
	lis    net.Listener
	state  domain.State
}

// NewServer создает новый gRPC сервер с keepalive, health checking и цепочкой интерсепторов
func NewServer(log *slog.Logger, handler greeterpb.GreeterServer, opts Options) *Server {
	// Настраиваем keepalive параметры сервера
	kaep := keepalive.EnforcementPolicy{
		MinTime:             5 * time.Second,
		PermitWithoutStream: true,
	}

	kasp := keepalive.ServerParameters{
		MaxConnectionIdle:     15 * time.Second,
		MaxConnectionAge:      30 * time.Second,
		MaxConnectionAgeGrace: 5 * time.Second,
		Time:                  5 * time.Second,
		Timeout:               1 * time.Second,
	}

	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(kaep),
		grpc.KeepaliveParams(kasp),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(log),
			RequestIDInterceptor(),
			LoggingInterceptor(log),
		),
	}
	if opts.TLS != nil {
		serverOpts = append(serverOpts, grpc.Creds(credentials.NewTLS(opts.TLS)))
	}

	s := grpc.NewServer(serverOpts...)

	// Регистрируем health checking
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)

	greeterpb.RegisterGreeterServer(s, handler)

	// Reflection для grpcurl и отладки
	if opts.Reflection {
		reflection.Register(s)
	}

	return &Server{
		server: s,
		health: healthServer,
		opts:   opts,
		log:    log,
		state:  domain.StateIdle,
	}
}

// Listen занимает порт. Ошибка привязки фатальна для процесса.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lis != nil {
		return nil
	}
	if s.opts.Listener != nil {
		s.lis = s.opts.Listener
		return nil
	}
	lis, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return domain.NewBindError(s.opts.Addr, err)
	}
	s.lis = lis
	return nil
}

// Addr адрес, на котором реально слушает сервер (важно для порта 0)
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) State() domain.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Server) setState(state domain.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run слушает порт и обслуживает вызовы, пока не отменен ctx.
// После отмены ждет завершения активных вызовов не дольше ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mu.Lock()
	lis := s.lis
	s.mu.Unlock()

	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(greeterpb.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	s.setState(domain.StateServing)

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("gRPC server listening", "address", lis.Addr().String())
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.log.Info("Shutting down gRPC server...")
		s.GracefulStop()
		return nil
	case err, ok := <-errChan:
		// Serve завершился без сигнала: снимаем SERVING и освобождаем ресурсы
		s.health.Shutdown()
		s.server.Stop()
		s.setState(domain.StateClosed)
		if !ok {
			return nil
		}
		return err
	}
}

// Close останавливает сервер без ожидания вызовов и освобождает порт,
// в том числе если Run так и не был вызван.
func (s *Server) Close() error {
	s.mu.Lock()
	lis := s.lis
	s.state = domain.StateClosed
	s.mu.Unlock()

	s.health.Shutdown()
	s.server.Stop()
	if lis != nil {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return fmt.Errorf("failed to close listener: %w", err)
		}
	}
	return nil
}

// GracefulStop переводит health в NOT_SERVING и ждет активные вызовы.
// Если они не успели за ShutdownTimeout, соединения закрываются принудительно.
func (s *Server) GracefulStop() {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		<-done
	} else {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			s.log.Warn("Graceful stop timed out, forcing", "timeout", timeout)
			s.server.Stop()
			<-done
		}
	}

	s.setState(domain.StateClosed)
	s.log.Info("gRPC server stopped")
}

package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"greeter/internal/domain"
	"greeter/pkg/greeterpb"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

const defaultCloseTimeout = 5 * time.Second

type Options struct {
	Addr         string
	DialTimeout  time.Duration
	CallTimeout  time.Duration
	CloseTimeout time.Duration
	MaxAttempts  int
	Backoff      time.Duration
	// TLS nil означает plaintext
	TLS *tls.Config
	// Dialer подменяет сетевое соединение (bufconn в тестах)
	Dialer func(ctx context.Context, addr string) (net.Conn, error)
}

// Client держит одно соединение с сервером Greeter.
// Жизненный цикл: Idle -> Connected -> CallInFlight -> Completed -> Closed.
type Client struct {
	conn     *grpc.ClientConn
	stub     greeterpb.GreeterClient
	opts     Options
	log      *slog.Logger
	mu       sync.Mutex
	state    domain.State
	calls    int
	inflight sync.WaitGroup
	once     sync.Once
	closeErr error
}

// Dial открывает соединение и ждет состояния READY не дольше DialTimeout.
// Недоступный сервер возвращается как ошибка, оборачивающая domain.ErrConnection.
func Dial(ctx context.Context, log *slog.Logger, opts Options) (*Client, error) {
	creds := insecure.NewCredentials()
	if opts.TLS != nil {
		creds = credentials.NewTLS(opts.TLS)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             5 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	if opts.Dialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(opts.Dialer))
	}

	conn, err := grpc.NewClient(opts.Addr, dialOpts...)
	if err != nil {
		return nil, domain.NewConnectionError(opts.Addr, opts.DialTimeout, err)
	}

	dialCtx := ctx
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}
	if err := waitForReady(dialCtx, conn); err != nil {
		_ = conn.Close()
		return nil, domain.NewConnectionError(opts.Addr, opts.DialTimeout, err)
	}

	log.Debug("Connected to gRPC server", "address", opts.Addr)
	c := newClient(log, greeterpb.NewGreeterClient(conn), opts)
	c.conn = conn
	c.state = domain.StateConnected
	return c, nil
}

func newClient(log *slog.Logger, stub greeterpb.GreeterClient, opts Options) *Client {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = defaultCloseTimeout
	}
	return &Client{
		stub:  stub,
		opts:  opts,
		log:   log,
		state: domain.StateIdle,
	}
}

// waitForReady поднимает соединение и ждет READY. TRANSIENT_FAILURE
// считается отказом сразу, чтобы не висеть до таймаута на закрытом порту.
func waitForReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for {
		s := conn.GetState()
		switch s {
		case connectivity.Ready:
			return nil
		case connectivity.TransientFailure, connectivity.Shutdown:
			return fmt.Errorf("connection state %s", s)
		}
		if !conn.WaitForStateChange(ctx, s) {
			return fmt.Errorf("connection state %s: %w", s, ctx.Err())
		}
	}
}

func (c *Client) State() domain.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hello отправляет один запрос и блокируется до ответа или ошибки.
// Повтор выполняется только для codes.Unavailable и только если MaxAttempts > 1.
func (c *Client) Hello(ctx context.Context, name string) (string, error) {
	if err := c.begin(); err != nil {
		return "", err
	}
	defer c.end()

	var (
		lastErr error
		attempt int
	)
	for attempt = 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.opts.Backoff << (attempt - 2)
			c.log.Warn("Retrying hello call",
				"attempt", attempt,
				"delay", delay,
				"error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return "", domain.NewCallError(greeterpb.Greeter_Hello_FullMethodName, attempt-1, err)
			}
		}

		resp, err := c.call(ctx, name)
		if err == nil {
			return resp.GetText(), nil
		}
		lastErr = err
		if status.Code(err) != codes.Unavailable {
			return "", domain.NewCallError(greeterpb.Greeter_Hello_FullMethodName, attempt, err)
		}
	}

	return "", domain.NewCallError(greeterpb.Greeter_Hello_FullMethodName, c.opts.MaxAttempts, lastErr)
}

func (c *Client) call(ctx context.Context, name string) (*greeterpb.HelloResponse, error) {
	if c.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.CallTimeout)
		defer cancel()
	}
	return c.stub.Hello(ctx, &greeterpb.HelloRequest{Name: name})
}

func (c *Client) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == domain.StateClosed {
		return domain.NewDomainError(domain.ErrCodeClosed, "hello rejected", domain.ErrClosed, nil)
	}
	c.calls++
	c.inflight.Add(1)
	c.state = domain.StateCallInFlight
	return nil
}

func (c *Client) end() {
	c.mu.Lock()
	c.calls--
	if c.calls == 0 && c.state != domain.StateClosed {
		c.state = domain.StateCompleted
	}
	c.mu.Unlock()
	c.inflight.Done()
}

// Close ждет активные вызовы не дольше CloseTimeout и закрывает соединение.
// Повторные вызовы возвращают результат первого.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.state = domain.StateClosed
		c.mu.Unlock()

		done := make(chan struct{})
		go func() {
			c.inflight.Wait()
			close(done)
		}()

		timer := time.NewTimer(c.opts.CloseTimeout)
		defer timer.Stop()
		select {
		case <-done:
		case <-timer.C:
			c.log.Warn("In-flight calls did not finish, closing connection", "timeout", c.opts.CloseTimeout)
		}

		if c.conn != nil {
			c.closeErr = c.conn.Close()
		}
		c.log.Debug("Connection closed", "address", c.opts.Addr)
	})
	return c.closeErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package client

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	grpchandler "greeter/internal/delivery/grpc"
	"greeter/internal/domain"
	"greeter/internal/service"
	"greeter/mocks"
	"greeter/pkg/greeterpb"
	"greeter/pkg/grpcserver"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func testLogger() *slog.Logger {
	return logs.GetLoggerFromLevel(slog.LevelDebug)
}

// startGreeter поднимает настоящий сервер на свободном порту
func startGreeter(t *testing.T) string {
	t.Helper()
	log := testLogger()
	srv := grpcserver.NewServer(log, grpchandler.NewHandler(log, service.NewHelloService()), grpcserver.Options{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return srv.Addr().String()
}

// freeAddr возвращает адрес, на котором гарантированно никто не слушает
func freeAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func TestDial_HelloAgainstRealServer(t *testing.T) {
	req := require.New(t)
	addr := startGreeter(t)

	c, err := Dial(context.Background(), testLogger(), Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		CallTimeout:  5 * time.Second,
		CloseTimeout: time.Second,
	})
	req.NoError(err)
	req.Equal(domain.StateConnected, c.State())

	text, err := c.Hello(context.Background(), "Kotlin")
	req.NoError(err)
	req.Equal("Hello Kotlin", text)
	req.Equal(domain.StateCompleted, c.State())

	text, err = c.Hello(context.Background(), "")
	req.NoError(err)
	req.Equal("Hello ", text)

	req.NoError(c.Close())
	req.Equal(domain.StateClosed, c.State())
	// Повторный Close безопасен
	req.NoError(c.Close())
}

func TestDial_OverBufconn(t *testing.T) {
	req := require.New(t)
	log := testLogger()
	lis := bufconn.Listen(1 << 20)

	srv := grpcserver.NewServer(log, grpchandler.NewHandler(log, service.NewHelloService()), grpcserver.Options{
		Listener:        lis,
		ShutdownTimeout: time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	c, err := Dial(context.Background(), log, Options{
		Addr:        "passthrough:///bufnet",
		DialTimeout: 5 * time.Second,
		Dialer: func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		},
	})
	req.NoError(err)
	defer c.Close()

	text, err := c.Hello(context.Background(), "bufconn")
	req.NoError(err)
	req.Equal("Hello bufconn", text)
}

func TestDial_ServerNotStarted(t *testing.T) {
	req := require.New(t)
	addr := freeAddr(t)

	start := time.Now()
	c, err := Dial(context.Background(), testLogger(), Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
	})

	req.Nil(c)
	req.Error(err)
	req.ErrorIs(err, domain.ErrConnection)
	req.Equal(domain.ErrCodeConnection, domain.ErrorCode(err))
	req.Less(time.Since(start), 3*time.Second)
}

func TestDial_RespectsParentContext(t *testing.T) {
	req := require.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dial(ctx, testLogger(), Options{Addr: freeAddr(t), DialTimeout: time.Minute})
	req.ErrorIs(err, domain.ErrConnection)
}

func TestClient_ConcurrentCallsDoNotMix(t *testing.T) {
	req := require.New(t)
	addr := startGreeter(t)

	c, err := Dial(context.Background(), testLogger(), Options{Addr: addr, DialTimeout: 5 * time.Second})
	req.NoError(err)
	defer c.Close()

	names := []string{"alpha", "beta", "gamma", "delta", "", "ε", "ζήτα", "eta"}
	var wg sync.WaitGroup
	results := make([]string, len(names))
	errs := make([]error, len(names))
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Hello(context.Background(), name)
		}()
	}
	wg.Wait()

	for i, name := range names {
		req.NoError(errs[i])
		req.Equal("Hello "+name, results[i])
	}
}

func TestClient_RetryOnUnavailable(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)

	gomock.InOrder(
		stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
			Return(nil, status.Error(codes.Unavailable, "connection refused")).Times(2),
		stub.EXPECT().Hello(gomock.Any(), &greeterpb.HelloRequest{Name: "retry"}).
			Return(&greeterpb.HelloResponse{Text: "Hello retry"}, nil).Times(1),
	)

	c := newClient(testLogger(), stub, Options{MaxAttempts: 3, Backoff: time.Millisecond})
	text, err := c.Hello(context.Background(), "retry")

	req.NoError(err)
	req.Equal("Hello retry", text)
}

func TestClient_RetriesExhausted(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		Return(nil, status.Error(codes.Unavailable, "down")).Times(2)

	c := newClient(testLogger(), stub, Options{MaxAttempts: 2, Backoff: time.Millisecond})
	_, err := c.Hello(context.Background(), "x")

	req.ErrorIs(err, domain.ErrCall)
	req.Equal(codes.Unavailable, status.Code(unwrapCause(err)))
	req.Contains(err.Error(), "2 attempt(s)")
}

func TestClient_NoRetryByDefault(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		Return(nil, status.Error(codes.Unavailable, "down")).Times(1)

	c := newClient(testLogger(), stub, Options{})
	_, err := c.Hello(context.Background(), "x")

	req.ErrorIs(err, domain.ErrCall)
}

func TestClient_NoRetryOnOtherCodes(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		Return(nil, status.Error(codes.InvalidArgument, "bad")).Times(1)

	c := newClient(testLogger(), stub, Options{MaxAttempts: 5, Backoff: time.Millisecond})
	_, err := c.Hello(context.Background(), "x")

	req.ErrorIs(err, domain.ErrCall)
	req.Equal(domain.StateCompleted, c.State())
}

func TestClient_CallTimeout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ *greeterpb.HelloRequest, _ ...grpc.CallOption) (*greeterpb.HelloResponse, error) {
			<-ctx.Done()
			return nil, status.FromContextError(ctx.Err()).Err()
		})

	c := newClient(testLogger(), stub, Options{CallTimeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := c.Hello(context.Background(), "slow")

	req.ErrorIs(err, domain.ErrCall)
	req.Less(time.Since(start), 2*time.Second)
}

func TestClient_ClosedRejectsCalls(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)

	c := newClient(testLogger(), stub, Options{})
	req.NoError(c.Close())

	_, err := c.Hello(context.Background(), "late")
	req.ErrorIs(err, domain.ErrClosed)
	req.Equal(domain.StateClosed, c.State())
}

func TestClient_CloseWaitsForInFlightCall(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *greeterpb.HelloRequest, ...grpc.CallOption) (*greeterpb.HelloResponse, error) {
			close(started)
			<-release
			return &greeterpb.HelloResponse{Text: "Hello slow"}, nil
		})

	c := newClient(testLogger(), stub, Options{CloseTimeout: 5 * time.Second})

	result := make(chan string, 1)
	go func() {
		text, _ := c.Hello(context.Background(), "slow")
		result <- text
	}()
	<-started
	req.Equal(domain.StateCallInFlight, c.State())

	closed := make(chan struct{})
	go func() {
		_ = c.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("Close returned while a call was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	req.Equal("Hello slow", <-result)
	<-closed
	req.Equal(domain.StateClosed, c.State())
}

func TestClient_CloseIsBounded(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	stub := mocks.NewMockGreeterClient(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	stub.EXPECT().Hello(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, *greeterpb.HelloRequest, ...grpc.CallOption) (*greeterpb.HelloResponse, error) {
			close(started)
			<-release
			return &greeterpb.HelloResponse{}, nil
		})

	c := newClient(testLogger(), stub, Options{CloseTimeout: 50 * time.Millisecond})
	go func() { _, _ = c.Hello(context.Background(), "stuck") }()
	<-started

	start := time.Now()
	req.NoError(c.Close())
	req.Less(time.Since(start), 2*time.Second)
}

func unwrapCause(err error) error {
	for {
		de, ok := err.(*domain.DomainError)
		if ok {
			return de.Cause
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		err = u.Unwrap()
	}
}

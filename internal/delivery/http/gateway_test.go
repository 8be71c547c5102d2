package httpgateway_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	grpchandler "greeter/internal/delivery/grpc"
	httpgateway "greeter/internal/delivery/http"
	"greeter/internal/service"
	"greeter/pkg/grpcserver"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/test/bufconn"
)

func newTestGateway(t *testing.T) *httptest.Server {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	srv := grpcserver.NewServer(log, grpchandler.NewHandler(log, service.NewHelloService()), grpcserver.Options{
		Addr:            "127.0.0.1:0",
		ShutdownTimeout: time.Second,
	})
	req.NoError(srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Run(ctx)
	}()

	mgr := httpgateway.NewGRPCConnectionManager(log, srv.Addr().String(), nil)
	gateway := httpgateway.NewGateway(log, mgr, "")
	req.NoError(gateway.SetupRoutes())

	ts := httptest.NewServer(gateway.Handler())
	t.Cleanup(func() {
		ts.Close()
		gateway.Close()
		cancel()
		<-done
	})
	return ts
}

func decodeText(t *testing.T, body io.Reader) string {
	t.Helper()
	var out struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out.Text
}

func TestGateway_PostHello(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	resp, err := http.Post(ts.URL+"/v1/hello", "application/json", strings.NewReader(`{"name":"world"}`))
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal(httpgateway.GatewayVersion, resp.Header.Get("X-Gateway-Version"))
	req.Equal("Hello world", decodeText(t, resp.Body))
}

func TestGateway_PostEmptyBody(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	resp, err := http.Post(ts.URL+"/v1/hello", "application/json", http.NoBody)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("Hello ", decodeText(t, resp.Body))
}

func TestGateway_GetHello(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	resp, err := http.Get(ts.URL + "/v1/hello/Kotlin")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("Hello Kotlin", decodeText(t, resp.Body))
}

func TestGateway_BadJSON(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	resp, err := http.Post(ts.URL+"/v1/hello", "application/json", strings.NewReader(`{"name":`))
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestGateway_Health(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	// Первый вызов поднимает соединение до READY
	warm, err := http.Get(ts.URL + "/v1/hello/warm")
	req.NoError(err)
	warm.Body.Close()

	resp, err := http.Get(ts.URL + "/health")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	var body map[string]string
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal("ok", body["status"])
	req.Equal("READY", body["grpc_state"])
}

func TestGateway_Home(t *testing.T) {
	req := require.New(t)
	ts := newTestGateway(t)

	resp, err := http.Get(ts.URL + "/")
	req.NoError(err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.Contains(string(b), "/v1/hello")
}

func TestGateway_OverBufconn(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
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

	mgr := httpgateway.NewGRPCConnectionManager(log, "passthrough:///bufnet", nil).
		WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	gateway := httpgateway.NewGateway(log, mgr, "")
	req.NoError(gateway.SetupRoutes())
	defer gateway.Close()

	rec := httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/hello", strings.NewReader(`{"name":"bufconn"}`)))

	req.Equal(http.StatusOK, rec.Code)
	req.Equal("Hello bufconn", decodeText(t, rec.Body))
}

func TestConnectionManager_NoConnectionAfterClose(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mgr := httpgateway.NewGRPCConnectionManager(log, "127.0.0.1:1", nil)

	conn, err := mgr.GetConnection()
	req.NoError(err)

	mgr.Close()
	req.Equal(connectivity.Shutdown, conn.GetState())

	late, err := mgr.GetConnection()
	req.ErrorIs(err, httpgateway.ErrConnectionManagerClosed)
	req.Nil(late)

	// Повторный Close безопасен
	mgr.Close()
}

func TestConnectionManager_ConcurrentReconnectSharesChannel(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mgr := httpgateway.NewGRPCConnectionManager(log, "127.0.0.1:1", nil)
	defer mgr.Close()

	stale, err := mgr.GetConnection()
	req.NoError(err)
	req.NoError(stale.Close())

	const n = 16
	conns := make([]*grpc.ClientConn, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conns[i], errs[i] = mgr.GetConnection()
		}()
	}
	wg.Wait()

	for i := range n {
		req.NoError(errs[i])
		req.NotSame(stale, conns[i])
		req.Same(conns[0], conns[i])
	}
	req.NotEqual(connectivity.Shutdown, conns[0].GetState())
}

func TestGateway_HealthAfterClose(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	mgr := httpgateway.NewGRPCConnectionManager(log, "127.0.0.1:1", nil)
	gateway := httpgateway.NewGateway(log, mgr, "")
	req.NoError(gateway.SetupRoutes())
	gateway.Close()

	rec := httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	req.Equal(http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	gateway.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/hello/late", nil))
	req.Equal(http.StatusServiceUnavailable, rec.Code)

	_, err := mgr.GetConnection()
	req.ErrorIs(err, httpgateway.ErrConnectionManagerClosed)
}

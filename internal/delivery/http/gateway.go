package httpgateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"greeter/pkg/greeterpb"

	"github.com/gorilla/mux"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

const GatewayVersion = "1.0"

var ErrConnectionManagerClosed = errors.New("gRPC connection manager is closed")

type GRPCConnectionManager struct {
	mu       sync.RWMutex
	conn     *grpc.ClientConn
	addr     string
	dialOpts []grpc.DialOption
	log      *slog.Logger
	closed   bool
}

// Gateway представляет HTTP Gateway перед gRPC сервисом Greeter
type Gateway struct {
	grpcMgr  *GRPCConnectionManager
	router   *mux.Router
	gwmux    *runtime.ServeMux
	httpAddr string
	log      *slog.Logger
}

// NewGRPCConnectionManager создает новый менеджер соединений.
// creds nil означает plaintext.
func NewGRPCConnectionManager(log *slog.Logger, addr string, creds credentials.TransportCredentials) *GRPCConnectionManager {
	if creds == nil {
		creds = insecure.NewCredentials()
	}
	return &GRPCConnectionManager{
		addr: addr,
		log:  log,
		dialOpts: []grpc.DialOption{
			grpc.WithTransportCredentials(creds),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                30 * time.Second,
				Timeout:             5 * time.Second,
				PermitWithoutStream: true,
			}),
		},
	}
}

// WithDialOptions добавляет опции соединения (например, bufconn dialer в тестах)
func (m *GRPCConnectionManager) WithDialOptions(opts ...grpc.DialOption) *GRPCConnectionManager {
	m.dialOpts = append(m.dialOpts, opts...)
	return m
}

// connect пересоздает соединение вместо stale. Если другой запрос уже
// заменил stale, возвращается его соединение.
func (m *GRPCConnectionManager) connect(stale *grpc.ClientConn) (*grpc.ClientConn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrConnectionManagerClosed
	}
	if m.conn != stale {
		return m.conn, nil
	}

	// Закрываем старое соединение если есть
	if m.conn != nil {
		_ = m.conn.Close()
	}

	conn, err := grpc.NewClient(m.addr, m.dialOpts...)
	if err != nil {
		m.conn = nil
		return nil, fmt.Errorf("failed to create gRPC client: %w", err)
	}
	conn.Connect()

	m.conn = conn
	m.log.Info("gRPC channel created", "address", m.addr)
	return conn, nil
}

// GetConnection возвращает текущее соединение, пересоздавая его после Shutdown.
// После Close возвращает ErrConnectionManagerClosed.
func (m *GRPCConnectionManager) GetConnection() (*grpc.ClientConn, error) {
	m.mu.RLock()
	conn, closed := m.conn, m.closed
	m.mu.RUnlock()

	if closed {
		return nil, ErrConnectionManagerClosed
	}
	if conn != nil && conn.GetState() != connectivity.Shutdown {
		return conn, nil
	}
	return m.connect(conn)
}

func (m *GRPCConnectionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
		m.log.Info("gRPC connection closed")
	}
}

// NewGateway создает новый Gateway
func NewGateway(log *slog.Logger, mgr *GRPCConnectionManager, httpAddr string) *Gateway {
	return &Gateway{
		grpcMgr:  mgr,
		router:   mux.NewRouter(),
		httpAddr: httpAddr,
		log:      log,
	}
}

// SetupRoutes настраивает маршруты
func (g *Gateway) SetupRoutes() error {
	if _, err := g.grpcMgr.GetConnection(); err != nil {
		return fmt.Errorf("failed to get gRPC connection: %w", err)
	}

	g.gwmux = runtime.NewServeMux(
		runtime.WithErrorHandler(g.errorHandler),
		runtime.WithForwardResponseOption(g.responseModifier),
	)

	if err := g.gwmux.HandlePath(http.MethodPost, "/v1/hello", g.helloHandler); err != nil {
		return fmt.Errorf("failed to register POST /v1/hello: %w", err)
	}
	if err := g.gwmux.HandlePath(http.MethodGet, "/v1/hello/{name}", g.helloHandler); err != nil {
		return fmt.Errorf("failed to register GET /v1/hello/{name}: %w", err)
	}

	g.router.HandleFunc("/", g.homeHandler).Methods(http.MethodGet)
	g.router.HandleFunc("/health", g.healthHandler).Methods(http.MethodGet)

	// Все запросы к /v1/ передаем в gRPC Gateway
	g.router.PathPrefix("/v1/").Handler(g.gwmux)

	return nil
}

// Handler возвращает корневой http.Handler (после SetupRoutes)
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// helloHandler транскодирует JSON в greeter.v1.Greeter/Hello.
// Имя берется из пути (GET) или из тела {"name": "..."} (POST).
func (g *Gateway) helloHandler(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound, outbound := runtime.MarshalerForRequest(g.gwmux, r)

	annotated, err := runtime.AnnotateContext(ctx, g.gwmux, r, greeterpb.Greeter_Hello_FullMethodName)
	if err != nil {
		runtime.HTTPError(ctx, g.gwmux, outbound, w, r, err)
		return
	}

	msg := greeterpb.NewHelloRequestMessage()
	if name, ok := pathParams["name"]; ok {
		msg = (&greeterpb.HelloRequest{Name: name}).ToProto()
	} else if err := inbound.NewDecoder(r.Body).Decode(msg); err != nil && !errors.Is(err, io.EOF) {
		runtime.HTTPError(annotated, g.gwmux, outbound, w, r, status.Errorf(codes.InvalidArgument, "%v", err))
		return
	}

	req, err := greeterpb.HelloRequestFromProto(msg)
	if err != nil {
		runtime.HTTPError(annotated, g.gwmux, outbound, w, r, status.Error(codes.InvalidArgument, err.Error()))
		return
	}

	conn, err := g.grpcMgr.GetConnection()
	if err != nil {
		runtime.HTTPError(annotated, g.gwmux, outbound, w, r, status.Error(codes.Unavailable, err.Error()))
		return
	}

	var header, trailer metadata.MD
	resp, err := greeterpb.NewGreeterClient(conn).Hello(annotated, req, grpc.Header(&header), grpc.Trailer(&trailer))
	annotated = runtime.NewServerMetadataContext(annotated, runtime.ServerMetadata{HeaderMD: header, TrailerMD: trailer})
	if err != nil {
		runtime.HTTPError(annotated, g.gwmux, outbound, w, r, err)
		return
	}

	runtime.ForwardResponseMessage(annotated, g.gwmux, outbound, w, r, resp.ToProto(), g.gwmux.GetForwardResponseOptions()...)
}

// errorHandler логирует ошибки gRPC и отдает стандартный ответ
func (g *Gateway) errorHandler(ctx context.Context, mux *runtime.ServeMux,
	marshaler runtime.Marshaler, w http.ResponseWriter, r *http.Request, err error) {

	g.log.Warn("gRPC Gateway error", "path", r.URL.Path, "error", err)

	// Соединение закрыто: пересоздаем его для следующих запросов
	if errors.Is(err, grpc.ErrClientConnClosing) {
		if _, cerr := g.grpcMgr.GetConnection(); cerr != nil {
			g.log.Error("Reconnect failed", "error", cerr)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "gRPC connection closed, reconnecting..."}`))
		return
	}

	runtime.DefaultHTTPErrorHandler(ctx, mux, marshaler, w, r, err)
}

// responseModifier модифицирует ответы
func (g *Gateway) responseModifier(_ context.Context, w http.ResponseWriter, _ proto.Message) error {
	w.Header().Set("X-Gateway-Version", GatewayVersion)
	return nil
}

// homeHandler обрабатывает главную страницу
func (g *Gateway) homeHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `
		<h1>Greeter gRPC Gateway</h1>
		<p>Available endpoints:</p>
		<ul>
			<li><a href="/v1/hello/world">GET /v1/hello/world</a></li>
			<li>POST /v1/hello with JSON: {"name": "world"}</li>
			<li><a href="/health">GET /health</a></li>
		</ul>
	`)
}

// healthHandler обрабатывает проверку здоровья
func (g *Gateway) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	conn, err := g.grpcMgr.GetConnection()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status": "unavailable", "grpc": "disconnected", "error": %q}`, err.Error())
		return
	}

	state := conn.GetState()
	g.log.Debug("Health check", "grpc_state", state.String())

	if state == connectivity.Ready || state == connectivity.Idle {
		fmt.Fprintf(w, `{"status": "ok", "grpc_state": "%s"}`, state)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status": "degraded", "grpc_state": "%s"}`, state)
	}
}

// Run запускает HTTP сервер и останавливает его при отмене ctx
func (g *Gateway) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         g.httpAddr,
		Handler:      g.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		g.log.Info("Starting HTTP Gateway", "address", g.httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("failed to run gateway: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errChan:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}

// Close закрывает соединения
func (g *Gateway) Close() {
	g.grpcMgr.Close()
}

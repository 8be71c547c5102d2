package grpchandler

import (
	"context"
	"log/slog"

	"greeter/internal/domain"
	"greeter/pkg/greeterpb"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Handler struct {
	greeterpb.UnimplementedGreeterServer
	service domain.HelloService
	log     *slog.Logger
}

// NewHandler создает новый обработчик
func NewHandler(log *slog.Logger, service domain.HelloService) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

// Hello обрабатывает gRPC вызов
func (h *Handler) Hello(ctx context.Context, req *greeterpb.HelloRequest) (*greeterpb.HelloResponse, error) {
	h.log.Debug("Received hello request", "name", req.GetName())

	// Преобразование protobuf в доменную модель
	domainReq := &domain.HelloRequest{
		Name: req.GetName(),
	}

	resp, err := h.service.SayHello(ctx, domainReq)
	if err != nil {
		h.log.Error("Service error", "error", err)
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, status.Errorf(codes.Internal, "failed to greet: %v", err)
	}

	return &greeterpb.HelloResponse{
		Text: resp.Text,
	}, nil
}

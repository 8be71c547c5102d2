package service

import (
	"context"

	"greeter/internal/domain"
)

type helloService struct{}

func NewHelloService() domain.HelloService {
	return &helloService{}
}

// SayHello склеивает префикс и имя как есть, пустое имя допустимо.
func (s *helloService) SayHello(_ context.Context, req *domain.HelloRequest) (*domain.HelloResponse, error) {
	return &domain.HelloResponse{
		Text: domain.GreetingPrefix + req.Name,
	}, nil
}

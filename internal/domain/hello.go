package domain

import "context"

// GreetingPrefix префикс, который сервер добавляет к имени.
const GreetingPrefix = "Hello "

type HelloRequest struct {
	Name string
}

type HelloResponse struct {
	Text string
}

//go:generate mockgen -source=hello.go -destination=../../mocks/mock_hello_service.go -package=mocks

type HelloService interface {
	SayHello(ctx context.Context, req *HelloRequest) (*HelloResponse, error)
}

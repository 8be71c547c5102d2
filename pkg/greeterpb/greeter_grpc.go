package greeterpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/dynamicpb"
)

const Greeter_Hello_FullMethodName = "/greeter.v1.Greeter/Hello"

//go:generate mockgen -destination=../../mocks/mock_greeter_client.go -package=mocks greeter/pkg/greeterpb GreeterClient

// GreeterClient клиентская заглушка сервиса Greeter.
type GreeterClient interface {
	Hello(ctx context.Context, in *HelloRequest, opts ...grpc.CallOption) (*HelloResponse, error)
}

type greeterClient struct {
	cc grpc.ClientConnInterface
}

func NewGreeterClient(cc grpc.ClientConnInterface) GreeterClient {
	return &greeterClient{cc: cc}
}

func (c *greeterClient) Hello(ctx context.Context, in *HelloRequest, opts ...grpc.CallOption) (*HelloResponse, error) {
	out := dynamicpb.NewMessage(helloResponseDesc)
	if err := c.cc.Invoke(ctx, Greeter_Hello_FullMethodName, in.ToProto(), out, opts...); err != nil {
		return nil, err
	}
	return &HelloResponse{Text: out.Get(textField).String()}, nil
}

// GreeterServer серверная часть сервиса Greeter.
type GreeterServer interface {
	Hello(context.Context, *HelloRequest) (*HelloResponse, error)
}

// UnimplementedGreeterServer встраивается в реализации для совместимости вперед.
type UnimplementedGreeterServer struct{}

func (UnimplementedGreeterServer) Hello(context.Context, *HelloRequest) (*HelloResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Hello not implemented")
}

func RegisterGreeterServer(s grpc.ServiceRegistrar, srv GreeterServer) {
	s.RegisterService(&Greeter_ServiceDesc, srv)
}

// helloHandler декодирует запрос, прогоняет его через цепочку интерсепторов
// и кодирует ответ. Интерсепторы видят *HelloRequest и *HelloResponse.
func helloHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := dynamicpb.NewMessage(helloRequestDesc)
	if err := dec(in); err != nil {
		return nil, err
	}
	req := &HelloRequest{Name: in.Get(nameField).String()}

	var (
		resp any
		err  error
	)
	if interceptor == nil {
		resp, err = srv.(GreeterServer).Hello(ctx, req)
	} else {
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: Greeter_Hello_FullMethodName,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return srv.(GreeterServer).Hello(ctx, req.(*HelloRequest))
		}
		resp, err = interceptor(ctx, req, info, handler)
	}
	if err != nil {
		return nil, err
	}

	out, ok := resp.(*HelloResponse)
	if !ok || out == nil {
		return nil, status.Error(codes.Internal, "greeter: handler returned no response")
	}
	return out.ToProto(), nil
}

var Greeter_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GreeterServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Hello",
			Handler:    helloHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: ProtoPath,
}

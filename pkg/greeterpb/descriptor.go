// Package greeterpb описывает контракт сервиса greeter.v1.Greeter.
//
// Схема лежит в proto/greeter/v1/greeter.proto. Дескриптор собирается тем же
// содержимым при инициализации пакета и регистрируется в глобальном реестре
// protobuf, поэтому reflection и JSON-транскодирование видят сервис так же,
// как сгенерированный код.
package greeterpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	ProtoPath   = "greeter/v1/greeter.proto"
	ServiceName = "greeter.v1.Greeter"
)

var (
	// File дескриптор greeter/v1/greeter.proto.
	File protoreflect.FileDescriptor

	helloRequestDesc  protoreflect.MessageDescriptor
	helloResponseDesc protoreflect.MessageDescriptor
	nameField         protoreflect.FieldDescriptor
	textField         protoreflect.FieldDescriptor
)

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("greeterpb: invalid descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("greeterpb: register file: %v", err))
	}

	File = fd
	helloRequestDesc = fd.Messages().ByName("HelloRequest")
	helloResponseDesc = fd.Messages().ByName("HelloResponse")
	nameField = helloRequestDesc.Fields().ByNumber(1)
	textField = helloResponseDesc.Fields().ByNumber(1)

	for _, md := range []protoreflect.MessageDescriptor{helloRequestDesc, helloResponseDesc} {
		if err := protoregistry.GlobalTypes.RegisterMessage(dynamicpb.NewMessageType(md)); err != nil {
			panic(fmt.Sprintf("greeterpb: register %s: %v", md.FullName(), err))
		}
	}
}

// fileDescriptorProto повторяет proto/greeter/v1/greeter.proto.
func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	stringField := func(name string) *descriptorpb.FieldDescriptorProto {
		return &descriptorpb.FieldDescriptorProto{
			Name:     proto.String(name),
			JsonName: proto.String(name),
			Number:   proto.Int32(1),
			Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
			Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		}
	}

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(ProtoPath),
		Package: proto.String("greeter.v1"),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("greeter/pkg/greeterpb"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name:  proto.String("HelloRequest"),
				Field: []*descriptorpb.FieldDescriptorProto{stringField("name")},
			},
			{
				Name:  proto.String("HelloResponse"),
				Field: []*descriptorpb.FieldDescriptorProto{stringField("text")},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("Greeter"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("Hello"),
						InputType:  proto.String(".greeter.v1.HelloRequest"),
						OutputType: proto.String(".greeter.v1.HelloResponse"),
					},
				},
			},
		},
	}
}

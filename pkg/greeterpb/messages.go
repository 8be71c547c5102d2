package greeterpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// HelloRequest соответствует greeter.v1.HelloRequest.
type HelloRequest struct {
	Name string
}

// HelloResponse соответствует greeter.v1.HelloResponse.
type HelloResponse struct {
	Text string
}

func (r *HelloRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

func (r *HelloResponse) GetText() string {
	if r == nil {
		return ""
	}
	return r.Text
}

// NewHelloRequestMessage возвращает пустое protobuf-сообщение HelloRequest.
func NewHelloRequestMessage() proto.Message {
	return dynamicpb.NewMessage(helloRequestDesc)
}

// NewHelloResponseMessage возвращает пустое protobuf-сообщение HelloResponse.
func NewHelloResponseMessage() proto.Message {
	return dynamicpb.NewMessage(helloResponseDesc)
}

// ToProto преобразует запрос в protobuf-сообщение.
func (r *HelloRequest) ToProto() proto.Message {
	m := dynamicpb.NewMessage(helloRequestDesc)
	if name := r.GetName(); name != "" {
		m.Set(nameField, protoreflect.ValueOfString(name))
	}
	return m
}

// ToProto преобразует ответ в protobuf-сообщение.
func (r *HelloResponse) ToProto() proto.Message {
	m := dynamicpb.NewMessage(helloResponseDesc)
	if text := r.GetText(); text != "" {
		m.Set(textField, protoreflect.ValueOfString(text))
	}
	return m
}

// HelloRequestFromProto читает запрос из protobuf-сообщения greeter.v1.HelloRequest.
func HelloRequestFromProto(m proto.Message) (*HelloRequest, error) {
	s, err := stringField(m, helloRequestDesc)
	if err != nil {
		return nil, err
	}
	return &HelloRequest{Name: s}, nil
}

// HelloResponseFromProto читает ответ из protobuf-сообщения greeter.v1.HelloResponse.
func HelloResponseFromProto(m proto.Message) (*HelloResponse, error) {
	s, err := stringField(m, helloResponseDesc)
	if err != nil {
		return nil, err
	}
	return &HelloResponse{Text: s}, nil
}

func (r *HelloRequest) Marshal() ([]byte, error) {
	return proto.Marshal(r.ToProto())
}

func (r *HelloRequest) Unmarshal(b []byte) error {
	m := dynamicpb.NewMessage(helloRequestDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("decode %s: %w", helloRequestDesc.FullName(), err)
	}
	r.Name = m.Get(nameField).String()
	return nil
}

func (r *HelloResponse) Marshal() ([]byte, error) {
	return proto.Marshal(r.ToProto())
}

func (r *HelloResponse) Unmarshal(b []byte) error {
	m := dynamicpb.NewMessage(helloResponseDesc)
	if err := proto.Unmarshal(b, m); err != nil {
		return fmt.Errorf("decode %s: %w", helloResponseDesc.FullName(), err)
	}
	r.Text = m.Get(textField).String()
	return nil
}

// stringField достает единственное строковое поле (номер 1) сообщения.
func stringField(m proto.Message, want protoreflect.MessageDescriptor) (string, error) {
	if m == nil {
		return "", fmt.Errorf("nil %s message", want.FullName())
	}
	pm := m.ProtoReflect()
	if got := pm.Descriptor().FullName(); got != want.FullName() {
		return "", fmt.Errorf("unexpected message %s, want %s", got, want.FullName())
	}
	fd := pm.Descriptor().Fields().ByNumber(1)
	if fd == nil || fd.Kind() != protoreflect.StringKind {
		return "", fmt.Errorf("%s: field 1 is not a string", want.FullName())
	}
	return pm.Get(fd).String(), nil
}

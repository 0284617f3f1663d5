package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "hal3a.v1.Translator"

// TranslatorServer is the server API for the translator service. Requests
// and replies are JSON-shaped google.protobuf.Struct messages.
type TranslatorServer interface {
	// SubmitFrame translates one frame and returns the pipeline result.
	SubmitFrame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// GetParams returns the latest snapshot of {"camera_id": n}.
	GetParams(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc describes the translator service for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TranslatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitFrame", Handler: submitFrameHandler},
		{MethodName: "GetParams", Handler: getParamsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hal3a/v1/translator.proto",
}

// RegisterTranslatorServer registers srv with s.
func RegisterTranslatorServer(s grpc.ServiceRegistrar, srv TranslatorServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func submitFrameHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).SubmitFrame(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/SubmitFrame"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranslatorServer).SubmitFrame(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getParamsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TranslatorServer).GetParams(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetParams"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(TranslatorServer).GetParams(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls the translator service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps a connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// SubmitFrame calls Translator.SubmitFrame.
func (c *Client) SubmitFrame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/SubmitFrame", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetParams calls Translator.GetParams.
func (c *Client) GetParams(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/GetParams", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

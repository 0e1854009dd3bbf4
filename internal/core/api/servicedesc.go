package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

/*
 * Service descriptor for ukpostcode.v1.PostcodeService.
 *
 * Every message is a protobuf well-known type, so the service needs no
 * generated code: requests and responses travel through the default proto
 * codec like any other message.
 *
 *   Validate   StringValue -> BoolValue
 *   Format     StringValue -> StringValue
 *   Parse      StringValue -> Struct       (component fields)
 *   ParseBatch ListValue   -> ListValue    (one Struct per item)
 *   Stats      Empty       -> Struct       (audited lookups per shape)
 */

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ukpostcode.v1.PostcodeService"

const (
	methodValidate   = "Validate"
	methodFormat     = "Format"
	methodParse      = "Parse"
	methodParseBatch = "ParseBatch"
	methodStats      = "Stats"
)

// PostcodeServiceServer is the server API for PostcodeService.
type PostcodeServiceServer interface {
	Validate(context.Context, *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
	Format(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Parse(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ParseBatch(context.Context, *structpb.ListValue) (*structpb.ListValue, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes PostcodeService for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PostcodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(methodValidate, PostcodeServiceServer.Validate),
		unaryMethod(methodFormat, PostcodeServiceServer.Format),
		unaryMethod(methodParse, PostcodeServiceServer.Parse),
		unaryMethod(methodParseBatch, PostcodeServiceServer.ParseBatch),
		unaryMethod(methodStats, PostcodeServiceServer.Stats),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ukpostcode/v1/postcode.proto",
}

// RegisterPostcodeServiceServer registers srv on s.
func RegisterPostcodeServiceServer(s grpc.ServiceRegistrar, srv PostcodeServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unaryMethod builds the handler generated code would emit for one method.
func unaryMethod[Req, Resp any](name string, call func(PostcodeServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	info := &grpc.UnaryServerInfo{FullMethod: fullMethod(name)}
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(PostcodeServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*Req))
			}
			callInfo := *info
			callInfo.Server = srv
			return interceptor(ctx, in, &callInfo, handler)
		},
	}
}

// PostcodeServiceClient calls PostcodeService over a client connection.
type PostcodeServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewPostcodeServiceClient wraps cc.
func NewPostcodeServiceClient(cc grpc.ClientConnInterface) *PostcodeServiceClient {
	return &PostcodeServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, name string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, fullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PostcodeServiceClient) Validate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BoolValue, error) {
	return invoke[wrapperspb.BoolValue](ctx, c.cc, methodValidate, in, opts)
}

func (c *PostcodeServiceClient) Format(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	return invoke[wrapperspb.StringValue](ctx, c.cc, methodFormat, in, opts)
}

func (c *PostcodeServiceClient) Parse(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, methodParse, in, opts)
}

func (c *PostcodeServiceClient) ParseBatch(ctx context.Context, in *structpb.ListValue, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, methodParseBatch, in, opts)
}

func (c *PostcodeServiceClient) Stats(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, methodStats, in, opts)
}

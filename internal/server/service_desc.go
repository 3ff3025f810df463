package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "matchsim.v1.MatchService"

// MatchServiceServer is the control surface for live matches, batch runs and
// replays. Every request and response body is a google.protobuf.Struct.
type MatchServiceServer interface {
	CreateMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ControlMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LoadReplay(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StepReplay(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(MatchServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MatchServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(MatchServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// MatchServiceDesc describes the service for grpc.Server registration
var MatchServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MatchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateMatch", MatchServiceServer.CreateMatch),
		unaryHandler("ControlMatch", MatchServiceServer.ControlMatch),
		unaryHandler("GetMatch", MatchServiceServer.GetMatch),
		unaryHandler("RunBatch", MatchServiceServer.RunBatch),
		unaryHandler("LoadReplay", MatchServiceServer.LoadReplay),
		unaryHandler("StepReplay", MatchServiceServer.StepReplay),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "matchsim/v1/match.proto",
}

// RegisterMatchServiceServer registers srv on s
func RegisterMatchServiceServer(s grpc.ServiceRegistrar, srv MatchServiceServer) {
	s.RegisterService(&MatchServiceDesc, srv)
}

// MatchServiceClient calls a remote MatchService
type MatchServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewMatchServiceClient wraps a client connection
func NewMatchServiceClient(cc grpc.ClientConnInterface) *MatchServiceClient {
	return &MatchServiceClient{cc: cc}
}

func (c *MatchServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *MatchServiceClient) CreateMatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateMatch", in, opts...)
}

func (c *MatchServiceClient) ControlMatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ControlMatch", in, opts...)
}

func (c *MatchServiceClient) GetMatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetMatch", in, opts...)
}

func (c *MatchServiceClient) RunBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RunBatch", in, opts...)
}

func (c *MatchServiceClient) LoadReplay(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "LoadReplay", in, opts...)
}

func (c *MatchServiceClient) StepReplay(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StepReplay", in, opts...)
}

package replayv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "replay.v1.Replay"

const (
	Replay_Push_FullMethodName             = "/replay.v1.Replay/Push"
	Replay_Sample_FullMethodName           = "/replay.v1.Replay/Sample"
	Replay_UpdatePriorities_FullMethodName = "/replay.v1.Replay/UpdatePriorities"
	Replay_GetStats_FullMethodName         = "/replay.v1.Replay/GetStats"
	Replay_Export_FullMethodName           = "/replay.v1.Replay/Export"
	Replay_SetBeta_FullMethodName          = "/replay.v1.Replay/SetBeta"
	Replay_Checkpoint_FullMethodName       = "/replay.v1.Replay/Checkpoint"
)

// ReplayClient is the client API for the Replay service.
type ReplayClient interface {
	Push(ctx context.Context, in *PushRequest, opts ...grpc.CallOption) (*PushResponse, error)
	Sample(ctx context.Context, in *SampleRequest, opts ...grpc.CallOption) (*SampleResponse, error)
	UpdatePriorities(ctx context.Context, in *UpdatePrioritiesRequest, opts ...grpc.CallOption) (*UpdatePrioritiesResponse, error)
	GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*StatsResponse, error)
	Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error)
	SetBeta(ctx context.Context, in *SetBetaRequest, opts ...grpc.CallOption) (*SetBetaResponse, error)
	Checkpoint(ctx context.Context, in *CheckpointRequest, opts ...grpc.CallOption) (*CheckpointResponse, error)
}

type replayClient struct {
	cc grpc.ClientConnInterface
}

// NewReplayClient returns a client that encodes every call with the JSON codec.
func NewReplayClient(cc grpc.ClientConnInterface) ReplayClient {
	return &replayClient{cc}
}

func (c *replayClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *replayClient) Push(ctx context.Context, in *PushRequest, opts ...grpc.CallOption) (*PushResponse, error) {
	out := new(PushResponse)
	if err := c.invoke(ctx, Replay_Push_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) Sample(ctx context.Context, in *SampleRequest, opts ...grpc.CallOption) (*SampleResponse, error) {
	out := new(SampleResponse)
	if err := c.invoke(ctx, Replay_Sample_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) UpdatePriorities(ctx context.Context, in *UpdatePrioritiesRequest, opts ...grpc.CallOption) (*UpdatePrioritiesResponse, error) {
	out := new(UpdatePrioritiesResponse)
	if err := c.invoke(ctx, Replay_UpdatePriorities_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) GetStats(ctx context.Context, in *GetStatsRequest, opts ...grpc.CallOption) (*StatsResponse, error) {
	out := new(StatsResponse)
	if err := c.invoke(ctx, Replay_GetStats_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) Export(ctx context.Context, in *ExportRequest, opts ...grpc.CallOption) (*ExportResponse, error) {
	out := new(ExportResponse)
	if err := c.invoke(ctx, Replay_Export_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) SetBeta(ctx context.Context, in *SetBetaRequest, opts ...grpc.CallOption) (*SetBetaResponse, error) {
	out := new(SetBetaResponse)
	if err := c.invoke(ctx, Replay_SetBeta_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *replayClient) Checkpoint(ctx context.Context, in *CheckpointRequest, opts ...grpc.CallOption) (*CheckpointResponse, error) {
	out := new(CheckpointResponse)
	if err := c.invoke(ctx, Replay_Checkpoint_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplayServer is the server API for the Replay service. Implementations
// must embed UnimplementedReplayServer.
type ReplayServer interface {
	Push(context.Context, *PushRequest) (*PushResponse, error)
	Sample(context.Context, *SampleRequest) (*SampleResponse, error)
	UpdatePriorities(context.Context, *UpdatePrioritiesRequest) (*UpdatePrioritiesResponse, error)
	GetStats(context.Context, *GetStatsRequest) (*StatsResponse, error)
	Export(context.Context, *ExportRequest) (*ExportResponse, error)
	SetBeta(context.Context, *SetBetaRequest) (*SetBetaResponse, error)
	Checkpoint(context.Context, *CheckpointRequest) (*CheckpointResponse, error)
	mustEmbedUnimplementedReplayServer()
}

// UnimplementedReplayServer returns Unimplemented for every method.
type UnimplementedReplayServer struct{}

func (UnimplementedReplayServer) Push(context.Context, *PushRequest) (*PushResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Push not implemented")
}
func (UnimplementedReplayServer) Sample(context.Context, *SampleRequest) (*SampleResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Sample not implemented")
}
func (UnimplementedReplayServer) UpdatePriorities(context.Context, *UpdatePrioritiesRequest) (*UpdatePrioritiesResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdatePriorities not implemented")
}
func (UnimplementedReplayServer) GetStats(context.Context, *GetStatsRequest) (*StatsResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetStats not implemented")
}
func (UnimplementedReplayServer) Export(context.Context, *ExportRequest) (*ExportResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Export not implemented")
}
func (UnimplementedReplayServer) SetBeta(context.Context, *SetBetaRequest) (*SetBetaResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetBeta not implemented")
}
func (UnimplementedReplayServer) Checkpoint(context.Context, *CheckpointRequest) (*CheckpointResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Checkpoint not implemented")
}
func (UnimplementedReplayServer) mustEmbedUnimplementedReplayServer() {}

// RegisterReplayServer registers srv on s.
func RegisterReplayServer(s grpc.ServiceRegistrar, srv ReplayServer) {
	s.RegisterService(&Replay_ServiceDesc, srv)
}

// unaryHandler adapts a typed server method to grpc.MethodDesc.
func unaryHandler[Req any](method string, call func(ReplayServer, context.Context, *Req) (any, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReplayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReplayServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Replay_ServiceDesc is the grpc.ServiceDesc for the Replay service.
var Replay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReplayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Push",
			Handler: unaryHandler(Replay_Push_FullMethodName, func(s ReplayServer, ctx context.Context, in *PushRequest) (any, error) {
				return s.Push(ctx, in)
			}),
		},
		{
			MethodName: "Sample",
			Handler: unaryHandler(Replay_Sample_FullMethodName, func(s ReplayServer, ctx context.Context, in *SampleRequest) (any, error) {
				return s.Sample(ctx, in)
			}),
		},
		{
			MethodName: "UpdatePriorities",
			Handler: unaryHandler(Replay_UpdatePriorities_FullMethodName, func(s ReplayServer, ctx context.Context, in *UpdatePrioritiesRequest) (any, error) {
				return s.UpdatePriorities(ctx, in)
			}),
		},
		{
			MethodName: "GetStats",
			Handler: unaryHandler(Replay_GetStats_FullMethodName, func(s ReplayServer, ctx context.Context, in *GetStatsRequest) (any, error) {
				return s.GetStats(ctx, in)
			}),
		},
		{
			MethodName: "Export",
			Handler: unaryHandler(Replay_Export_FullMethodName, func(s ReplayServer, ctx context.Context, in *ExportRequest) (any, error) {
				return s.Export(ctx, in)
			}),
		},
		{
			MethodName: "SetBeta",
			Handler: unaryHandler(Replay_SetBeta_FullMethodName, func(s ReplayServer, ctx context.Context, in *SetBetaRequest) (any, error) {
				return s.SetBeta(ctx, in)
			}),
		},
		{
			MethodName: "Checkpoint",
			Handler: unaryHandler(Replay_Checkpoint_FullMethodName, func(s ReplayServer, ctx context.Context, in *CheckpointRequest) (any, error) {
				return s.Checkpoint(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "replay/v1/replay.proto",
}

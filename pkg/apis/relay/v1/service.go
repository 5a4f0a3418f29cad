package relayv1

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const (
	Relay_Start_FullMethodName   = "/relay.v1.Relay/Start"
	Relay_Stop_FullMethodName    = "/relay.v1.Relay/Stop"
	Relay_StopAll_FullMethodName = "/relay.v1.Relay/StopAll"
	Relay_List_FullMethodName    = "/relay.v1.Relay/List"
	Relay_Stats_FullMethodName   = "/relay.v1.Relay/Stats"
	Relay_Uptime_FullMethodName  = "/relay.v1.Relay/Uptime"
	Relay_Output_FullMethodName  = "/relay.v1.Relay/Output"
	Relay_Command_FullMethodName = "/relay.v1.Relay/Command"
)

// RelayClient is the client API for the Relay service.
type RelayClient interface {
	// Starts a new stream and returns its id.
	Start(ctx context.Context, in *StartRequest, opts ...grpc.CallOption) (*StreamId, error)
	// Stops a stream, waiting for its process to exit.
	Stop(ctx context.Context, in *StreamId, opts ...grpc.CallOption) (*StopResult, error)
	StopAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StopResultList, error)
	List(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamSummaryList, error)
	Stats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamStatList, error)
	Uptime(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UptimeResponse, error)
	// Streams the transcoder output of a stream, starting with the retained
	// tail, until the process exits.
	Output(ctx context.Context, in *StreamId, opts ...grpc.CallOption) (Relay_OutputClient, error)
	// Runs a chat command and returns the reply text.
	Command(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandReply, error)
}

type relayClient struct {
	cc grpc.ClientConnInterface
}

func NewRelayClient(cc grpc.ClientConnInterface) RelayClient {
	return &relayClient{cc}
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

func (c *relayClient) Start(ctx context.Context, in *StartRequest, opts ...grpc.CallOption) (*StreamId, error) {
	out := new(StreamId)
	err := c.cc.Invoke(ctx, Relay_Start_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) Stop(ctx context.Context, in *StreamId, opts ...grpc.CallOption) (*StopResult, error) {
	out := new(StopResult)
	err := c.cc.Invoke(ctx, Relay_Stop_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) StopAll(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StopResultList, error) {
	out := new(StopResultList)
	err := c.cc.Invoke(ctx, Relay_StopAll_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) List(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamSummaryList, error) {
	out := new(StreamSummaryList)
	err := c.cc.Invoke(ctx, Relay_List_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) Stats(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*StreamStatList, error) {
	out := new(StreamStatList)
	err := c.cc.Invoke(ctx, Relay_Stats_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) Uptime(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*UptimeResponse, error) {
	out := new(UptimeResponse)
	err := c.cc.Invoke(ctx, Relay_Uptime_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *relayClient) Output(ctx context.Context, in *StreamId, opts ...grpc.CallOption) (Relay_OutputClient, error) {
	stream, err := c.cc.NewStream(ctx, &Relay_ServiceDesc.Streams[0], Relay_Output_FullMethodName, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	x := &relayOutputClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Relay_OutputClient interface {
	Recv() (*OutputChunk, error)
	grpc.ClientStream
}

type relayOutputClient struct {
	grpc.ClientStream
}

func (x *relayOutputClient) Recv() (*OutputChunk, error) {
	m := new(OutputChunk)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *relayClient) Command(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*CommandReply, error) {
	out := new(CommandReply)
	err := c.cc.Invoke(ctx, Relay_Command_FullMethodName, in, out, withCodec(opts)...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RelayServer is the server API for the Relay service.
// All implementations should embed UnimplementedRelayServer for forward
// compatibility.
type RelayServer interface {
	Start(context.Context, *StartRequest) (*StreamId, error)
	Stop(context.Context, *StreamId) (*StopResult, error)
	StopAll(context.Context, *Empty) (*StopResultList, error)
	List(context.Context, *Empty) (*StreamSummaryList, error)
	Stats(context.Context, *Empty) (*StreamStatList, error)
	Uptime(context.Context, *Empty) (*UptimeResponse, error)
	Output(*StreamId, Relay_OutputServer) error
	Command(context.Context, *CommandRequest) (*CommandReply, error)
}

type UnimplementedRelayServer struct{}

func (UnimplementedRelayServer) Start(context.Context, *StartRequest) (*StreamId, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Start not implemented")
}
func (UnimplementedRelayServer) Stop(context.Context, *StreamId) (*StopResult, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Stop not implemented")
}
func (UnimplementedRelayServer) StopAll(context.Context, *Empty) (*StopResultList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method StopAll not implemented")
}
func (UnimplementedRelayServer) List(context.Context, *Empty) (*StreamSummaryList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method List not implemented")
}
func (UnimplementedRelayServer) Stats(context.Context, *Empty) (*StreamStatList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Stats not implemented")
}
func (UnimplementedRelayServer) Uptime(context.Context, *Empty) (*UptimeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Uptime not implemented")
}
func (UnimplementedRelayServer) Output(*StreamId, Relay_OutputServer) error {
	return status.Errorf(codes.Unimplemented, "method Output not implemented")
}
func (UnimplementedRelayServer) Command(context.Context, *CommandRequest) (*CommandReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Command not implemented")
}

func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&Relay_ServiceDesc, srv)
}

func _Relay_Start_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StartRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Start(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Relay_Start_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Start(ctx, req.(*StartRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Relay_Stop_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StreamId)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Stop(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Relay_Stop_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Stop(ctx, req.(*StreamId))
	}
	return interceptor(ctx, in, info, handler)
}

// emptyHandler builds the handler of a method taking an Empty request.
func emptyHandler[T any](method string, call func(RelayServer, context.Context, *Empty) (T, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RelayServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RelayServer), ctx, req.(*Empty))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func _Relay_Output_Handler(srv any, stream grpc.ServerStream) error {
	m := new(StreamId)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(RelayServer).Output(m, &relayOutputServer{stream})
}

type Relay_OutputServer interface {
	Send(*OutputChunk) error
	grpc.ServerStream
}

type relayOutputServer struct {
	grpc.ServerStream
}

func (x *relayOutputServer) Send(m *OutputChunk) error {
	return x.ServerStream.SendMsg(m)
}

func _Relay_Command_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RelayServer).Command(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Relay_Command_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RelayServer).Command(ctx, req.(*CommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Relay_ServiceDesc is the grpc.ServiceDesc for the Relay service.
var Relay_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "relay.v1.Relay",
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Start",
			Handler:    _Relay_Start_Handler,
		},
		{
			MethodName: "Stop",
			Handler:    _Relay_Stop_Handler,
		},
		{
			MethodName: "StopAll",
			Handler:    emptyHandler(Relay_StopAll_FullMethodName, RelayServer.StopAll),
		},
		{
			MethodName: "List",
			Handler:    emptyHandler(Relay_List_FullMethodName, RelayServer.List),
		},
		{
			MethodName: "Stats",
			Handler:    emptyHandler(Relay_Stats_FullMethodName, RelayServer.Stats),
		},
		{
			MethodName: "Uptime",
			Handler:    emptyHandler(Relay_Uptime_FullMethodName, RelayServer.Uptime),
		},
		{
			MethodName: "Command",
			Handler:    _Relay_Command_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Output",
			Handler:       _Relay_Output_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "relay/v1/relay.go",
}

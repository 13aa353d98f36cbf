package grpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the deposit service
const ServiceName = "timedeposit.v1.DepositService"

// Method names of the deposit service
const (
	MethodListDeposits         = "ListDeposits"
	MethodLoadDeposits         = "LoadDeposits"
	MethodCreateDepositAccount = "CreateDepositAccount"
	MethodAppendHistory        = "AppendHistory"
	MethodSortDeposits         = "SortDeposits"
	MethodRefreshRates         = "RefreshRates"
	MethodGetRates             = "GetRates"
	MethodGetPortfolioSummary  = "GetPortfolioSummary"
	MethodGetPeriodStatus      = "GetPeriodStatus"
	MethodWatchDeposits        = "WatchDeposits"
)

// DepositServiceServer is the server API for the deposit service
// Every message is a google.protobuf.Struct; money travels as decimal strings.
type DepositServiceServer interface {
	ListDeposits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LoadDeposits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateDepositAccount(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AppendHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SortDeposits(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshRates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRates(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPeriodStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchDeposits(*structpb.Struct, WatchDepositsServer) error
}

// WatchDepositsServer is the server side of the WatchDeposits stream
type WatchDepositsServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchDepositsServer struct {
	grpc.ServerStream
}

func (x *watchDepositsServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

type unaryCall func(DepositServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DepositServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DepositServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchDepositsHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DepositServiceServer).WatchDeposits(in, &watchDepositsServer{stream})
}

// DepositServiceDesc is the grpc.ServiceDesc for the deposit service
var DepositServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DepositServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodListDeposits, Handler: unaryHandler(MethodListDeposits, DepositServiceServer.ListDeposits)},
		{MethodName: MethodLoadDeposits, Handler: unaryHandler(MethodLoadDeposits, DepositServiceServer.LoadDeposits)},
		{MethodName: MethodCreateDepositAccount, Handler: unaryHandler(MethodCreateDepositAccount, DepositServiceServer.CreateDepositAccount)},
		{MethodName: MethodAppendHistory, Handler: unaryHandler(MethodAppendHistory, DepositServiceServer.AppendHistory)},
		{MethodName: MethodSortDeposits, Handler: unaryHandler(MethodSortDeposits, DepositServiceServer.SortDeposits)},
		{MethodName: MethodRefreshRates, Handler: unaryHandler(MethodRefreshRates, DepositServiceServer.RefreshRates)},
		{MethodName: MethodGetRates, Handler: unaryHandler(MethodGetRates, DepositServiceServer.GetRates)},
		{MethodName: MethodGetPortfolioSummary, Handler: unaryHandler(MethodGetPortfolioSummary, DepositServiceServer.GetPortfolioSummary)},
		{MethodName: MethodGetPeriodStatus, Handler: unaryHandler(MethodGetPeriodStatus, DepositServiceServer.GetPeriodStatus)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    MethodWatchDeposits,
			Handler:       watchDepositsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "timedeposit/v1/deposit.proto",
}

// RegisterDepositServiceServer registers srv on s
func RegisterDepositServiceServer(s grpc.ServiceRegistrar, srv DepositServiceServer) {
	s.RegisterService(&DepositServiceDesc, srv)
}

// FullMethod returns the wire path of a deposit service method
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Client calls the deposit service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new deposit service client
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes a unary method; a nil request is sent as an empty struct
func (c *Client) Call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	if req == nil {
		req = &structpb.Struct{}
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch opens the WatchDeposits stream; each Recv returns one change event
func (c *Client) Watch(ctx context.Context, opts ...grpc.CallOption) (*WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &DepositServiceDesc.Streams[0], FullMethod(MethodWatchDeposits), opts...)
	if err != nil {
		return nil, err
	}
	// io.EOF means the server already ended the stream; Recv reports its status
	if err := stream.SendMsg(&structpb.Struct{}); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchClient{stream: stream}, nil
}

// WatchClient is the client side of the WatchDeposits stream
type WatchClient struct {
	stream grpc.ClientStream
}

// Recv blocks until the next change event arrives
func (w *WatchClient) Recv() (*structpb.Struct, error) {
	m := new(structpb.Struct)
	if err := w.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

package codec

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region names
const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "gamesound.v1.Advisor"
	// GenerateMethod is the full method path of the single unary RPC.
	GenerateMethod = "/" + ServiceName + "/Generate"
)

// #endregion names

// #region client-api
// AdvisorServiceClient is the client API for the Advisor service. The prompt
// and the answer travel as google.protobuf.StringValue.
type AdvisorServiceClient interface {
	Generate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type advisorServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAdvisorServiceClient binds the Advisor API to a connection.
func NewAdvisorServiceClient(cc grpc.ClientConnInterface) AdvisorServiceClient {
	return &advisorServiceClient{cc: cc}
}

func (c *advisorServiceClient) Generate(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, GenerateMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// #endregion client-api

// #region server-api
// AdvisorServiceServer is the server API for the Advisor service.
type AdvisorServiceServer interface {
	Generate(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// RegisterAdvisorServiceServer registers srv on s.
func RegisterAdvisorServiceServer(s grpc.ServiceRegistrar, srv AdvisorServiceServer) {
	s.RegisterService(&advisorServiceDesc, srv)
}

var advisorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AdvisorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Generate", Handler: generateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gamesound/v1/advisor.proto",
}

func generateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AdvisorServiceServer).Generate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GenerateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AdvisorServiceServer).Generate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion server-api

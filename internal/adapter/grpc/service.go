package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the analytics service
const ServiceName = "wealthflow.analytics.v1.AnalyticsService"

// AnalyticsServiceServer is the server API of the analytics service.
// Requests and responses are generic protobuf Structs.
type AnalyticsServiceServer interface {
	Convert(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioStatistics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPositionChart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPortfolioChart(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(AnalyticsServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func methodHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AnalyticsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + ServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AnalyticsServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AnalyticsServiceDesc describes the analytics service for grpc.Server registration
var AnalyticsServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AnalyticsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Convert", Handler: methodHandler("Convert", AnalyticsServiceServer.Convert)},
		{MethodName: "GetPortfolioStatistics", Handler: methodHandler("GetPortfolioStatistics", AnalyticsServiceServer.GetPortfolioStatistics)},
		{MethodName: "GetPositionChart", Handler: methodHandler("GetPositionChart", AnalyticsServiceServer.GetPositionChart)},
		{MethodName: "GetPortfolioChart", Handler: methodHandler("GetPortfolioChart", AnalyticsServiceServer.GetPortfolioChart)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wealthflow/analytics/v1/analytics.proto",
}

// RegisterAnalyticsServiceServer registers srv on s
func RegisterAnalyticsServiceServer(s grpc.ServiceRegistrar, srv AnalyticsServiceServer) {
	s.RegisterService(&AnalyticsServiceDesc, srv)
}

// AnalyticsServiceClient calls the analytics service over a client connection
type AnalyticsServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAnalyticsServiceClient creates a client on cc
func NewAnalyticsServiceClient(cc grpc.ClientConnInterface) *AnalyticsServiceClient {
	return &AnalyticsServiceClient{cc: cc}
}

func (c *AnalyticsServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Convert calls the Convert RPC
func (c *AnalyticsServiceClient) Convert(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Convert", in, opts...)
}

// GetPortfolioStatistics calls the GetPortfolioStatistics RPC
func (c *AnalyticsServiceClient) GetPortfolioStatistics(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetPortfolioStatistics", in, opts...)
}

// GetPositionChart calls the GetPositionChart RPC
func (c *AnalyticsServiceClient) GetPositionChart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetPositionChart", in, opts...)
}

// GetPortfolioChart calls the GetPortfolioChart RPC
func (c *AnalyticsServiceClient) GetPortfolioChart(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetPortfolioChart", in, opts...)
}

package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "invoices.v1.ExtractionService"

	submitBatchMethod      = "/" + ServiceName + "/SubmitBatch"
	getSessionStatusMethod = "/" + ServiceName + "/GetSessionStatus"
)

// ExtractionServer is the server API for the extraction service. Requests and responses are
// google.protobuf.Struct messages so the service needs no generated code.
type ExtractionServer interface {
	SubmitBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSessionStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterExtractionServer(s grpc.ServiceRegistrar, srv ExtractionServer) {
	s.RegisterService(&ExtractionServiceDesc, srv)
}

var ExtractionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExtractionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitBatch", Handler: submitBatchHandler},
		{MethodName: "GetSessionStatus", Handler: getSessionStatusHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invoices/v1/extraction.proto",
}

func submitBatchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).SubmitBatch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: submitBatchMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).SubmitBatch(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getSessionStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractionServer).GetSessionStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getSessionStatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractionServer).GetSessionStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractionClient is the client API for the extraction service.
type ExtractionClient interface {
	SubmitBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetSessionStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type extractionClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractionClient(cc grpc.ClientConnInterface) ExtractionClient {
	return &extractionClient{cc: cc}
}

func (c *extractionClient) SubmitBatch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, submitBatchMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *extractionClient) GetSessionStatus(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getSessionStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

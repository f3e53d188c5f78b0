package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const CommissionServiceName = "ib.v1.CommissionService"

// CommissionServiceServer is the server API for ib.v1.CommissionService.
// Requests and responses are google.protobuf.Struct documents.
type CommissionServiceServer interface {
	GetCommission(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListUserBreakdown(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SyncPartner(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(srv CommissionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CommissionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + CommissionServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CommissionServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var CommissionServiceDesc = grpc.ServiceDesc{
	ServiceName: CommissionServiceName,
	HandlerType: (*CommissionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetCommission",
			Handler: unaryHandler("GetCommission", func(s CommissionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.GetCommission(ctx, in)
			}),
		},
		{
			MethodName: "ListUserBreakdown",
			Handler: unaryHandler("ListUserBreakdown", func(s CommissionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.ListUserBreakdown(ctx, in)
			}),
		},
		{
			MethodName: "SyncPartner",
			Handler: unaryHandler("SyncPartner", func(s CommissionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.SyncPartner(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ib/v1/commission.proto",
}

func RegisterCommissionServiceServer(s grpc.ServiceRegistrar, srv CommissionServiceServer) {
	s.RegisterService(&CommissionServiceDesc, srv)
}

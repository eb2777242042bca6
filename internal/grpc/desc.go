package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Both services exchange google.protobuf.Struct messages, so no generated
// stubs are needed. Field names match the HTTP JSON bodies.

const (
	authServiceName   = "cityfix.v1.AuthService"
	reportServiceName = "cityfix.v1.ReportService"

	registerMethod = "/" + authServiceName + "/Register"
	loginMethod    = "/" + authServiceName + "/Login"
	submitMethod   = "/" + reportServiceName + "/Submit"
)

func unary[S any](service, method string, call func(S, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*structpb.Struct))
			})
		},
	}
}

// AuthService is implemented by AuthServer.
type AuthService interface {
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ReportService is implemented by ReportServer.
type ReportService interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var authServiceDesc = grpc.ServiceDesc{
	ServiceName: authServiceName,
	HandlerType: (*AuthService)(nil),
	Methods: []grpc.MethodDesc{
		unary(authServiceName, "Register", AuthService.Register),
		unary(authServiceName, "Login", AuthService.Login),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cityfix/v1/cityfix.proto",
}

var reportServiceDesc = grpc.ServiceDesc{
	ServiceName: reportServiceName,
	HandlerType: (*ReportService)(nil),
	Methods: []grpc.MethodDesc{
		unary(reportServiceName, "Submit", ReportService.Submit),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cityfix/v1/cityfix.proto",
}

package admin

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceDesc is registered on the host's *grpc.Server in place of the
// usual generated RegisterAdminServer call - there is no protoc in this
// build to generate one.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "sdn.admin.v1.Admin",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ConnectTo", Handler: connectToHandler},
		{MethodName: "DisconnectFrom", Handler: disconnectFromHandler},
		{MethodName: "FeaturesControl", Handler: featuresControlHandler},
		{MethodName: "ServicesControl", Handler: servicesControlHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Events",
			Handler:       eventsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "internal/admin/admin.go",
}

func connectToHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ConnectToRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ConnectTo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sdn.admin.v1.Admin/ConnectTo"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).ConnectTo(ctx, req.(*ConnectToRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func disconnectFromHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DisconnectFromRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).DisconnectFrom(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sdn.admin.v1.Admin/DisconnectFrom"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).DisconnectFrom(ctx, req.(*DisconnectFromRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func featuresControlHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FeaturesControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).FeaturesControl(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sdn.admin.v1.Admin/FeaturesControl"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).FeaturesControl(ctx, req.(*FeaturesControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func servicesControlHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ServicesControlRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).ServicesControl(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sdn.admin.v1.Admin/ServicesControl"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Server).ServicesControl(ctx, req.(*ServicesControlRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func eventsHandler(srv any, stream grpc.ServerStream) error {
	in := new(EventsRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(*Server).Events(in, &eventsServerStream{ServerStream: stream})
}

type eventsServerStream struct {
	grpc.ServerStream
}

func (s *eventsServerStream) Send(ev *Event) error {
	return s.ServerStream.SendMsg(ev)
}

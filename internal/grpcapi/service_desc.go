package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "reservations.ReservationService"

// ReservationServiceServer is the server API for the reservation service.
type ReservationServiceServer interface {
	CreateClient(context.Context, *ClientRequest) (*Client, error)
	ListClients(context.Context, *emptypb.Empty) (*ClientList, error)
	ListAvailableSlots(context.Context, *TimeRange) (*SlotList, error)
	CheckAvailability(context.Context, *TimeRange) (*Availability, error)
	CreateReservation(context.Context, *ReservationRequest) (*Reservation, error)
	GetReservation(context.Context, *ReservationID) (*Reservation, error)
	CancelReservation(context.Context, *ReservationID) (*emptypb.Empty, error)
	ListClientReservations(context.Context, *ClientID) (*ReservationList, error)
}

// RegisterReservationServiceServer attaches srv to s.
func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ReservationServiceDesc, srv)
}

var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateClient", Handler: unaryHandler("CreateClient", ReservationServiceServer.CreateClient)},
		{MethodName: "ListClients", Handler: unaryHandler("ListClients", ReservationServiceServer.ListClients)},
		{MethodName: "ListAvailableSlots", Handler: unaryHandler("ListAvailableSlots", ReservationServiceServer.ListAvailableSlots)},
		{MethodName: "CheckAvailability", Handler: unaryHandler("CheckAvailability", ReservationServiceServer.CheckAvailability)},
		{MethodName: "CreateReservation", Handler: unaryHandler("CreateReservation", ReservationServiceServer.CreateReservation)},
		{MethodName: "GetReservation", Handler: unaryHandler("GetReservation", ReservationServiceServer.GetReservation)},
		{MethodName: "CancelReservation", Handler: unaryHandler("CancelReservation", ReservationServiceServer.CancelReservation)},
		{MethodName: "ListClientReservations", Handler: unaryHandler("ListClientReservations", ReservationServiceServer.ListClientReservations)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservations.proto",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unaryHandler[Req, Resp any](method string, call func(ReservationServiceServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(ReservationServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

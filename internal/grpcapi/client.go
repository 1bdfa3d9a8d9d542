package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ReservationClient is a typed client for reservations.ReservationService.
type ReservationClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationClient(cc grpc.ClientConnInterface) *ReservationClient {
	return &ReservationClient{cc: cc}
}

func call[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, fullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationClient) CreateClient(ctx context.Context, in *ClientRequest, opts ...grpc.CallOption) (*Client, error) {
	return call[Client](ctx, c.cc, "CreateClient", in, opts)
}

func (c *ReservationClient) ListClients(ctx context.Context, opts ...grpc.CallOption) (*ClientList, error) {
	return call[ClientList](ctx, c.cc, "ListClients", &emptypb.Empty{}, opts)
}

func (c *ReservationClient) ListAvailableSlots(ctx context.Context, in *TimeRange, opts ...grpc.CallOption) (*SlotList, error) {
	return call[SlotList](ctx, c.cc, "ListAvailableSlots", in, opts)
}

func (c *ReservationClient) CheckAvailability(ctx context.Context, in *TimeRange, opts ...grpc.CallOption) (*Availability, error) {
	return call[Availability](ctx, c.cc, "CheckAvailability", in, opts)
}

func (c *ReservationClient) CreateReservation(ctx context.Context, in *ReservationRequest, opts ...grpc.CallOption) (*Reservation, error) {
	return call[Reservation](ctx, c.cc, "CreateReservation", in, opts)
}

func (c *ReservationClient) GetReservation(ctx context.Context, in *ReservationID, opts ...grpc.CallOption) (*Reservation, error) {
	return call[Reservation](ctx, c.cc, "GetReservation", in, opts)
}

func (c *ReservationClient) CancelReservation(ctx context.Context, in *ReservationID, opts ...grpc.CallOption) error {
	_, err := call[emptypb.Empty](ctx, c.cc, "CancelReservation", in, opts)
	return err
}

func (c *ReservationClient) ListClientReservations(ctx context.Context, in *ClientID, opts ...grpc.CallOption) (*ReservationList, error) {
	return call[ReservationList](ctx, c.cc, "ListClientReservations", in, opts)
}

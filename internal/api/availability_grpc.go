package api

import (
	"context"
	"time"

	"shareit/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// AvailabilityServiceName is the full gRPC name of the read-only availability service.
const AvailabilityServiceName = "shareit.availability.v1.AvailabilityService"

// AvailabilityReader answers last/next booking questions for items.
type AvailabilityReader interface {
	ItemAvailability(ctx context.Context, itemID int64) (*models.AvailabilitySummary, error)
	OwnerAvailability(ctx context.Context, ownerID int64) ([]*models.AvailabilitySummary, error)
}

// The service speaks protobuf well-known types so no generated stubs are needed:
// requests are an Int64Value id, responses a Struct shaped like the JSON API.
type availabilityServer interface {
	GetItemAvailability(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListOwnerAvailability(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
}

type AvailabilityService struct {
	reader AvailabilityReader
}

func NewAvailabilityService(reader AvailabilityReader) *AvailabilityService {
	return &AvailabilityService{reader: reader}
}

func (s *AvailabilityService) GetItemAvailability(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	summary, err := s.reader.ItemAvailability(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(summaryFields(summary))
}

func (s *AvailabilityService) ListOwnerAvailability(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	summaries, err := s.reader.OwnerAvailability(ctx, req.GetValue())
	if err != nil {
		return nil, err
	}
	items := make([]any, 0, len(summaries))
	for _, summary := range summaries {
		items = append(items, summaryFields(summary))
	}
	return structpb.NewStruct(map[string]any{
		"owner_id": float64(req.GetValue()),
		"items":    items,
	})
}

func summaryFields(summary *models.AvailabilitySummary) map[string]any {
	return map[string]any{
		"item_id":      float64(summary.ItemID),
		"last_booking": periodFields(summary.Last),
		"next_booking": periodFields(summary.Next),
	}
}

func periodFields(p *models.BookingPeriod) any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"id":        float64(p.ID),
		"booker_id": float64(p.BookerID),
		"start":     p.Start.UTC().Format(time.RFC3339),
		"end":       p.End.UTC().Format(time.RFC3339),
	}
}

func registerAvailabilityService(s *grpc.Server, srv availabilityServer) {
	s.RegisterService(&availabilityServiceDesc, srv)
}

func getItemAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(availabilityServer).GetItemAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + AvailabilityServiceName + "/GetItemAvailability",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(availabilityServer).GetItemAvailability(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func listOwnerAvailabilityHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(availabilityServer).ListOwnerAvailability(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + AvailabilityServiceName + "/ListOwnerAvailability",
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(availabilityServer).ListOwnerAvailability(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

var availabilityServiceDesc = grpc.ServiceDesc{
	ServiceName: AvailabilityServiceName,
	HandlerType: (*availabilityServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetItemAvailability", Handler: getItemAvailabilityHandler},
		{MethodName: "ListOwnerAvailability", Handler: listOwnerAvailabilityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shareit/availability/v1/availability.proto",
}

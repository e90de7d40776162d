package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"shareit/internal/config"
	"shareit/internal/domain"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const healthCheckMethod = "/grpc.health.v1.Health/Check"

func okUnary(context.Context, any) (any, error) { return "ok", nil }

func incoming(pairs ...string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(pairs...))
}

func TestAuthInterceptor(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cfg := config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "X-Api-Key",
			APIKeys: []config.APIClientKey{
				{Key: "monitor", Extra: "m-extra", Permissions: []string{"read:health"}},
				{Key: "booking-reader", Extra: "b-extra", Permissions: []string{"read:bookings"}},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
	interceptor := NewAuthInterceptor(&cfg, nil, &logger).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}

	tests := []struct {
		name string
		ctx  context.Context
		want codes.Code
	}{
		{"valid key", incoming("x-api-key", "monitor", "x-api-extra", "m-extra"), codes.OK},
		{"no metadata", context.Background(), codes.Unauthenticated},
		{"no headers", incoming(), codes.Unauthenticated},
		{"unknown key", incoming("x-api-key", "nope", "x-api-extra", "m-extra"), codes.Unauthenticated},
		{"wrong extra", incoming("x-api-key", "monitor", "x-api-extra", "bad"), codes.Unauthenticated},
		{"missing permission", incoming("x-api-key", "booking-reader", "x-api-extra", "b-extra"), codes.PermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := interceptor(tt.ctx, "req", info, okUnary)
			assert.Equal(t, tt.want, status.Code(err))
			if tt.want == codes.OK {
				assert.Equal(t, "ok", resp)
			}
		})
	}
}

func TestAuthInterceptor_Stream(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cfg := config.APIConfig{Auth: config.APIAuthConfig{
		Enabled: true,
		APIKeys: []config.APIClientKey{{Key: "k", Extra: "e"}},
	}}
	stream := NewAuthInterceptor(&cfg, nil, &logger).Stream()
	info := &grpc.StreamServerInfo{FullMethod: "/grpc.health.v1.Health/Watch"}

	called := false
	err := stream(nil, &fakeServerStream{ctx: incoming("x-api-key", "k", "x-api-extra", "e")}, info,
		func(any, grpc.ServerStream) error { called = true; return nil })
	assert.NoError(t, err)
	assert.True(t, called)

	err = stream(nil, &fakeServerStream{ctx: context.Background()}, info,
		func(any, grpc.ServerStream) error { t.Fatal("handler must not run"); return nil })
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestAuthInterceptor_RateLimit(t *testing.T) {
	logger := zerolog.New(io.Discard)
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 1, Burst: 1}}
	interceptor := NewAuthInterceptor(&cfg, nil, &logger).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}

	_, err := interceptor(incoming("x-api-key", "key1"), "req", info, okUnary)
	assert.NoError(t, err)

	_, err = interceptor(incoming("x-api-key", "key1"), "req", info, okUnary)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = interceptor(incoming("x-api-key", "key2"), "req", info, okUnary)
	assert.NoError(t, err)
}

func TestAuthInterceptor_SharedStore(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryRateLimitStore()
	cfg := config.APIConfig{RateLimit: config.APIRateLimitConfig{PerMinute: 1}}
	interceptor := NewAuthInterceptor(&cfg, store, &logger).Unary()
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}

	_, err := interceptor(incoming("x-api-key", "ops"), "req", info, okUnary)
	assert.NoError(t, err)
	_, err = interceptor(incoming("x-api-key", "ops"), "req", info, okUnary)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	// HTTP counters live under a different scope.
	allowed, err := store.CheckRateLimit(context.Background(), "http:ops", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	interceptor := LoggingUnaryInterceptor(&logger)
	info := &grpc.UnaryServerInfo{FullMethod: healthCheckMethod}

	resp, err := interceptor(incoming(requestIDMetadataKey, "req-42"), "req", info, okUnary)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)
	assert.Contains(t, buf.String(), `"code":"OK"`)

	buf.Reset()
	_, err = interceptor(context.Background(), "req", info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	assert.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"code":"Unavailable"`)

	assert.NotPanics(t, func() {
		_, _ = LoggingUnaryInterceptor(nil)(context.Background(), "req", info, okUnary)
	})
}

func TestErrorUnaryInterceptor(t *testing.T) {
	interceptor := ErrorUnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	tests := []struct {
		err  error
		want codes.Code
	}{
		{domain.ErrNotFound, codes.NotFound},
		{domain.ErrBadRequest, codes.InvalidArgument},
		{domain.ErrInvalidArgument, codes.InvalidArgument},
		{domain.ErrForbidden, codes.PermissionDenied},
		{domain.ErrConflict, codes.AlreadyExists},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}
	for _, tt := range tests {
		handler := func(context.Context, any) (any, error) { return nil, tt.err }
		_, err := interceptor(context.Background(), "req", info, handler)
		assert.Equal(t, tt.want, status.Code(err), "error %v", tt.err)
	}

	_, err := interceptor(context.Background(), "req", info, func(context.Context, any) (any, error) { return "ok", nil })
	assert.NoError(t, err)
}

func TestChainUnaryInterceptors(t *testing.T) {
	var order []string
	mk := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	chain := ChainUnaryInterceptors(mk("first"), mk("second"))
	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{}, func(context.Context, any) (any, error) {
		order = append(order, "handler")
		return "ok", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
	assert.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"/grpc.health.v1.Health/Check", "read:health"},
		{"/grpc.health.v1.Health/Watch", "read:health"},
		{"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo", "read:reflection"},
		{"/shareit.availability.v1.AvailabilityService/GetItemAvailability", "read:availability"},
		{"other", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requiredPermission(tt.method))
	}
}

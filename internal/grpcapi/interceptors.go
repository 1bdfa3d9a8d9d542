package grpcapi

import (
	"context"
	"net"
	"path"
	"runtime/debug"
	"sync"
	"time"

	"slotbook/internal/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Interface("panic", r).
					Str("method", info.FullMethod).
					Bytes("stack", debug.Stack()).
					Msg("Recovered from panic in handler")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs every call with its code and latency.
func LoggingInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		event := logger.Debug()
		switch code {
		case codes.OK, codes.InvalidArgument, codes.NotFound, codes.AlreadyExists:
		default:
			event = logger.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}

// MetricsInterceptor records handling time by method and code.
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		metrics.ObserveRPC(path.Base(info.FullMethod), status.Code(err).String(), time.Since(start))
		return resp, err
	}
}

// peerLimiters keeps one token bucket per remote host.
type peerLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func (p *peerLimiters) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(p.limit, p.burst)
		p.limiters[key] = limiter
	}
	return limiter
}

// RateLimitInterceptor rejects calls above rps per remote host with
// codes.ResourceExhausted. A non-positive rps disables limiting.
func RateLimitInterceptor(rps float64, burst int, logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	if rps <= 0 {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			return handler(ctx, req)
		}
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	store := &peerLimiters{limiters: make(map[string]*rate.Limiter), limit: rate.Limit(rps), burst: burst}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		key := peerHost(ctx)
		if !store.get(key).Allow() {
			logger.Warn().Str("peer", key).Str("method", info.FullMethod).Msg("Rate limit exceeded")
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}
		return handler(ctx, req)
	}
}

func peerHost(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

// ServerOptions bundles the interceptor chain and limits for NewGRPCServer.
type ServerOptions struct {
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// TimeoutInterceptor bounds each call by d unless the caller set a shorter
// deadline.
func TimeoutInterceptor(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// NewGRPCServer builds a grpc.Server with srv registered behind the standard
// interceptor chain.
func NewGRPCServer(srv ReservationServiceServer, opts ServerOptions, logger *zerolog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoveryInterceptor(logger),
		LoggingInterceptor(logger),
		MetricsInterceptor(),
		RateLimitInterceptor(opts.RateLimitRPS, opts.RateLimitBurst, logger),
		TimeoutInterceptor(opts.RequestTimeout),
	))
	RegisterReservationServiceServer(s, srv)
	return s
}

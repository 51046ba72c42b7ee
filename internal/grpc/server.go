// catalog-service/internal/grpc/server.go
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/store"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified name other services dial.
const ServiceName = "catalog.v1.MovieLookup"

// MovieLookupServer is the read-only lookup used by sibling services.
// Lookups never count as views.
type MovieLookupServer interface {
	GetMovieInfo(ctx context.Context, movieID *wrapperspb.StringValue) (*structpb.Struct, error)
	CheckMovieExists(ctx context.Context, movieID *wrapperspb.StringValue) (*wrapperspb.BoolValue, error)
}

// MovieLookupServiceDesc describes the service for grpc.Server.RegisterService.
var MovieLookupServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MovieLookupServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMovieInfo", Handler: getMovieInfoHandler},
		{MethodName: "CheckMovieExists", Handler: checkMovieExistsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "catalog/v1/movie_lookup.proto",
}

func getMovieInfoHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MovieLookupServer).GetMovieInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/GetMovieInfo"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MovieLookupServer).GetMovieInfo(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func checkMovieExistsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MovieLookupServer).CheckMovieExists(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/CheckMovieExists"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MovieLookupServer).CheckMovieExists(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements MovieLookupServer on top of a MovieStore.
type Server struct {
	store  store.MovieStore
	logger *slog.Logger
}

func NewServer(movieStore store.MovieStore, logger *slog.Logger) *Server {
	return &Server{
		store:  movieStore,
		logger: logger,
	}
}

// movieInfo is the lookup projection of a movie.
func movieInfo(m *domain.Movie) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":        m.ID,
		"title":     m.Title,
		"category":  string(m.Category),
		"quality":   string(m.Quality),
		"poster":    m.Poster,
		"views":     m.Views,
		"downloads": m.Downloads,
	})
}

func (s *Server) GetMovieInfo(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	movieID := req.GetValue()
	s.logger.InfoContext(ctx, "gRPC GetMovieInfo called", slog.String("movie_id", movieID))

	if movieID == "" {
		return nil, status.Error(codes.InvalidArgument, "movie_id cannot be empty")
	}

	movie, err := s.store.GetByID(ctx, movieID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrMovieNotFound):
			return nil, status.Errorf(codes.NotFound, "movie not found with ID %s", movieID)
		case errors.Is(err, store.ErrInvalidMovieID):
			return nil, status.Errorf(codes.InvalidArgument, "invalid movie ID %s", movieID)
		}
		s.logger.ErrorContext(ctx, "Failed to get movie for GetMovieInfo", slog.String("movie_id", movieID), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, "failed to retrieve movie details")
	}

	info, err := movieInfo(movie)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode movie: %v", err)
	}
	return info, nil
}

// CheckMovieExists answers false for unknown and malformed ids alike.
func (s *Server) CheckMovieExists(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	movieID := req.GetValue()
	if movieID == "" {
		return nil, status.Error(codes.InvalidArgument, "movie_id cannot be empty")
	}

	_, err := s.store.GetByID(ctx, movieID)
	if err != nil {
		if errors.Is(err, store.ErrMovieNotFound) || errors.Is(err, store.ErrInvalidMovieID) {
			return wrapperspb.Bool(false), nil
		}
		s.logger.ErrorContext(ctx, "Failed to check movie existence", slog.String("movie_id", movieID), slog.String("error", err.Error()))
		return nil, status.Error(codes.Internal, "failed to check movie existence")
	}
	return wrapperspb.Bool(true), nil
}

// UnaryLogger logs every unary call with its status code and duration.
func UnaryLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.InfoContext(ctx, "gRPC request",
			slog.String("method", info.FullMethod),
			slog.String("code", status.Code(err).String()),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

// NewGRPCServer builds a server with the lookup, health and reflection
// services registered.
func NewGRPCServer(lookup MovieLookupServer, logger *slog.Logger) *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(UnaryLogger(logger)))
	srv.RegisterService(&MovieLookupServiceDesc, lookup)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, healthSrv)

	reflection.Register(srv)
	return srv
}

// catalog-service/internal/grpc/client.go
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const callTimeout = 3 * time.Second

// Client calls the lookup service of a catalog instance.
type Client struct {
	conn   *grpc.ClientConn
	logger *slog.Logger
}

// Dial connects to the lookup service at addr. Extra options are appended
// after the insecure transport credentials.
func Dial(addr string, logger *slog.Logger, opts ...grpc.DialOption) (*Client, error) {
	logger.Info("Connecting to catalog gRPC", slog.String("address", addr))

	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog client for %s: %w", addr, err)
	}
	return &Client{conn: conn, logger: logger}, nil
}

func (c *Client) GetMovieInfo(ctx context.Context, movieID string) (*structpb.Struct, error) {
	if movieID == "" {
		return nil, status.Error(codes.InvalidArgument, "movieID cannot be empty")
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, "/"+ServiceName+"/GetMovieInfo", wrapperspb.String(movieID), out); err != nil {
		c.logger.WarnContext(ctx, "GetMovieInfo call failed", slog.String("movie_id", movieID), slog.String("code", status.Code(err).String()))
		return nil, fmt.Errorf("grpc GetMovieInfo failed for movieID %s: %w", movieID, err)
	}
	return out, nil
}

func (c *Client) CheckMovieExists(ctx context.Context, movieID string) (bool, error) {
	if movieID == "" {
		return false, status.Error(codes.InvalidArgument, "movieID cannot be empty")
	}
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	out := new(wrapperspb.BoolValue)
	if err := c.conn.Invoke(callCtx, "/"+ServiceName+"/CheckMovieExists", wrapperspb.String(movieID), out); err != nil {
		c.logger.WarnContext(ctx, "CheckMovieExists call failed", slog.String("movie_id", movieID), slog.String("code", status.Code(err).String()))
		return false, fmt.Errorf("grpc CheckMovieExists failed for movieID %s: %w", movieID, err)
	}
	return out.GetValue(), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

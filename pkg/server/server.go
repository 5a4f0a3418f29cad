package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"runtime"
	"time"

	relayv1 "github.com/kralicky/streamrelay/pkg/apis/relay/v1"
	"github.com/kralicky/streamrelay/pkg/auth"
	"github.com/kralicky/streamrelay/pkg/chat"
	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/supervisor"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/status"
)

type Options struct {
	ListenAddress string
	// Serve over TLS when both are set.
	CertFile string
	KeyFile  string
	// Require and verify client certificates signed by this CA. Only used
	// together with CertFile and KeyFile.
	CaCertFile      string
	AuthMiddlewares []auth.Middleware
}

type Server struct {
	Options
	relayv1.UnimplementedRelayServer
	sup        *supervisor.Supervisor
	dispatcher *chat.Dispatcher
}

var _ relayv1.RelayServer = (*Server)(nil)

func NewServer(sup *supervisor.Supervisor, options Options) *Server {
	return &Server{
		Options:    options,
		sup:        sup,
		dispatcher: chat.NewDispatcher(sup),
	}
}

// statusFromError converts supervisor errors to grpc status errors.
func statusFromError(err error) error {
	var launchErr *process.LaunchError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, supervisor.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, supervisor.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.As(err, &launchErr):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// Start implements relayv1.RelayServer.
func (s *Server) Start(ctx context.Context, in *relayv1.StartRequest) (*relayv1.StreamId, error) {
	id, err := s.sup.StartStream(supervisor.StreamRequest{
		Source:          in.GetSource(),
		DestinationBase: in.GetDestination(),
		Key:             in.GetKey(),
		Bitrate:         in.GetBitrate(),
	})
	if err != nil {
		return nil, statusFromError(err)
	}
	slog.Info("stream requested", "stream", id, "user", auth.AuthenticatedUserFromContext(ctx))
	return &relayv1.StreamId{Id: id}, nil
}

func stopResult(o supervisor.StopOutcome) *relayv1.StopResult {
	return &relayv1.StopResult{
		Id:          o.ID,
		Source:      o.Source,
		Destination: o.Destination,
		Termination: relayv1.Termination(o.Termination.String()),
	}
}

// Stop implements relayv1.RelayServer.
func (s *Server) Stop(ctx context.Context, in *relayv1.StreamId) (*relayv1.StopResult, error) {
	outcome, err := s.sup.StopStream(in.GetId())
	if err != nil {
		return nil, statusFromError(err)
	}
	return stopResult(outcome), nil
}

// StopAll implements relayv1.RelayServer.
func (s *Server) StopAll(ctx context.Context, _ *relayv1.Empty) (*relayv1.StopResultList, error) {
	outcomes := s.sup.StopAll()
	items := make([]*relayv1.StopResult, 0, len(outcomes))
	for _, o := range outcomes {
		items = append(items, stopResult(o))
	}
	return &relayv1.StopResultList{Items: items}, nil
}

// List implements relayv1.RelayServer.
func (s *Server) List(ctx context.Context, _ *relayv1.Empty) (*relayv1.StreamSummaryList, error) {
	summaries := s.sup.ListStreams()
	items := make([]*relayv1.StreamSummary, 0, len(summaries))
	for _, sum := range summaries {
		items = append(items, &relayv1.StreamSummary{
			Id:          sum.ID,
			Source:      sum.Source,
			Destination: sum.Destination,
		})
	}
	return &relayv1.StreamSummaryList{Items: items}, nil
}

// Stats implements relayv1.RelayServer.
func (s *Server) Stats(ctx context.Context, _ *relayv1.Empty) (*relayv1.StreamStatList, error) {
	stats := s.sup.StreamStats()
	items := make([]*relayv1.StreamStat, 0, len(stats))
	for _, st := range stats {
		items = append(items, &relayv1.StreamStat{
			Id:          st.ID,
			Source:      st.Source,
			Destination: st.Destination,
			StartedAt:   st.StartedAt,
			Elapsed:     st.Elapsed,
			Bitrate:     st.Bitrate,
		})
	}
	return &relayv1.StreamStatList{Items: items}, nil
}

// Uptime implements relayv1.RelayServer.
func (s *Server) Uptime(ctx context.Context, _ *relayv1.Empty) (*relayv1.UptimeResponse, error) {
	return &relayv1.UptimeResponse{
		StartedAt: s.sup.StartedAt(),
		Uptime:    s.sup.Uptime(),
	}, nil
}

// Command implements relayv1.RelayServer.
func (s *Server) Command(ctx context.Context, in *relayv1.CommandRequest) (*relayv1.CommandReply, error) {
	slog.Debug("chat command", "user", auth.AuthenticatedUserFromContext(ctx))
	return &relayv1.CommandReply{Text: s.dispatcher.Dispatch(in.Text)}, nil
}

const maxChunkSize = 512 * 1024 // 512 KiB

// Output implements relayv1.RelayServer.
func (s *Server) Output(id *relayv1.StreamId, stream relayv1.Relay_OutputServer) error {
	output, err := s.sup.Output(stream.Context(), id.GetId())
	if err != nil {
		return statusFromError(err)
	}
	for buf := range output {
		for len(buf) > 0 {
			chunk := buf
			if len(chunk) > maxChunkSize {
				chunk = chunk[:maxChunkSize]
			}
			buf = buf[len(chunk):]
			if err := stream.Send(&relayv1.OutputChunk{Output: chunk}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Server) serverOptions() ([]grpc.ServerOption, error) {
	opts := []grpc.ServerOption{
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             15 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.NumStreamWorkers(uint32(runtime.NumCPU())),
		grpc.ChainStreamInterceptor(auth.StreamServerInterceptor(s.AuthMiddlewares)),
		grpc.ChainUnaryInterceptor(auth.UnaryServerInterceptor(s.AuthMiddlewares)),
	}
	if s.CertFile == "" || s.KeyFile == "" {
		return opts, nil
	}

	cert, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}
	if s.CaCertFile != "" {
		cacertData, err := os.ReadFile(s.CaCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(cacertData) {
			return nil, fmt.Errorf("no certificates found in %s", s.CaCertFile)
		}
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
		tlsConfig.ClientCAs = certPool
	}
	return append(opts, grpc.Creds(credentials.NewTLS(tlsConfig))), nil
}

// ListenAndServe listens on ListenAddress and serves until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.ListenAddress)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is canceled, then closes it.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer listener.Close()
	opts, err := s.serverOptions()
	if err != nil {
		return err
	}
	server := grpc.NewServer(opts...)
	relayv1.RegisterRelayServer(server, s)

	lg := slog.With("address", listener.Addr().String())
	if s.CertFile == "" {
		lg.Warn("tls is not configured; bearer tokens will be sent in plain text")
	}
	lg.Info("relay server starting")

	errC := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if err != nil {
			lg.With(
				"error", err,
			).Error("relay server exited with error")
		} else {
			lg.Info("relay server stopped")
		}
		errC <- err
	}()

	select {
	case <-ctx.Done():
		server.Stop()
		return (<-errC)
	case err := <-errC:
		return err
	}
}

// Package grpcserver exposes the standard gRPC health service, reporting the
// transaction store's readiness.
package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name of the transaction API, next to
// the overall "" entry.
const ServiceName = "budget.Transactions"

const defaultProbeInterval = 15 * time.Second

type Server struct {
	addr   string
	lis    net.Listener
	Server *grpc.Server
	health *health.Server

	ready    func(ctx context.Context) error
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// New registers the health service. ready is probed every interval; nil
// reports serving unconditionally.
func New(addr string, ready func(ctx context.Context) error, interval time.Duration) *Server {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return &Server{
		addr:     addr,
		Server:   s,
		health:   hs,
		ready:    ready,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve serves on lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.lis = lis
	s.probe()
	go s.probeLoop()
	slog.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.Server.Serve(lis)
}

func (s *Server) probeLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probe()
		case <-s.stop:
			return
		}
	}
}

func (s *Server) probe() {
	status := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		err := s.ready(ctx)
		cancel()
		if err != nil {
			slog.Warn("Readiness probe failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.Server.GracefulStop()
		if s.lis != nil {
			_ = s.lis.Close()
		}
	})
}

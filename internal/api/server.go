// Package api exposes the gateway's control surface over HTTP: DSN
// ingestion, send admission checks, warmup lifecycle management, and
// suppression list CRUD.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/diogenesmendes01/email-gateway/internal/bounce"
	"github.com/diogenesmendes01/email-gateway/internal/domain"
	"github.com/diogenesmendes01/email-gateway/internal/pkg/logger"
	"github.com/diogenesmendes01/email-gateway/internal/sender"
	"github.com/diogenesmendes01/email-gateway/internal/warmup"
)

// DSNProcessor handles a raw delivery status notification.
type DSNProcessor interface {
	Process(ctx context.Context, raw []byte) (*bounce.Result, error)
}

// AdmissionGate answers pre-dispatch admission checks.
type AdmissionGate interface {
	Admit(ctx context.Context, sendingDomain, recipientEmail string) (sender.Decision, error)
}

// SuppressionService manages the do-not-mail list.
type SuppressionService interface {
	IsSuppressed(ctx context.Context, email string) (bool, error)
	Suppress(ctx context.Context, email string, reason domain.SuppressionReason, source domain.SuppressionSource, dsnStatus, dsnDiag string) error
	Remove(ctx context.Context, email string) error
	List(ctx context.Context, limit, offset int) ([]domain.Suppression, int, error)
}

// WarmupService manages sending-domain warmup lifecycles.
type WarmupService interface {
	GetStatus(ctx context.Context, sendingDomain string) (*warmup.StatusReport, error)
	Start(ctx context.Context, sendingDomain string, cfg *domain.WarmupConfig) error
	Pause(ctx context.Context, sendingDomain string) error
	Resume(ctx context.Context, sendingDomain string) error
	Complete(ctx context.Context, sendingDomain string) error
	SweepCompleted(ctx context.Context) (int, error)
}

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Processor    DSNProcessor
	Gate         AdmissionGate
	Suppressions SuppressionService
	Warmup       WarmupService
}

// Options configures the HTTP server itself.
type Options struct {
	Addr            string
	AllowedOrigins  []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	router   chi.Router
	http     *http.Server
	services Services
	opts     Options
	log      *logger.Logger
}

func NewServer(opts Options, services Services) *Server {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		services: services,
		opts:     opts,
		log:      logger.New("api"),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	}
	return s
}

// Handler exposes the routed mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start blocks serving HTTP until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("listening", "addr", s.opts.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ShutdownTimeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}

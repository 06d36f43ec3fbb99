package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Maxlottie/pray-production-studio/internal/drive"
	"github.com/Maxlottie/pray-production-studio/internal/generation"
	"github.com/Maxlottie/pray-production-studio/internal/media"
	"github.com/Maxlottie/pray-production-studio/internal/storage"
	"github.com/Maxlottie/pray-production-studio/internal/studio"
)

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// ServerConfig carries the services behind the HTTP surface. Images, Audio,
// Drive and Redis may be nil when their provider is not configured; the
// matching routes then answer 503.
type ServerConfig struct {
	Host           string
	Port           int
	Service        *studio.Service
	Repository     studio.Repository
	Orchestrator   *generation.Orchestrator
	Images         *generation.ImageGenerator
	Audio          *generation.AudioGenerator
	Poller         *generation.Poller
	Drive          *drive.Exporter
	Media          *storage.Client
	MediaServer    *media.Server
	Redis          *redis.Client
	AllowedOrigins []string
	Logger         *slog.Logger
	StartTime      time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

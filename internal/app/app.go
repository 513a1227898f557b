package app

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/voxroom-server/internal/auth"
	"github.com/vovakirdan/voxroom-server/internal/config"
	"github.com/vovakirdan/voxroom-server/internal/core"
	"github.com/vovakirdan/voxroom-server/internal/metrics"
	transporthttp "github.com/vovakirdan/voxroom-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	coord           *core.Coordinator
	sweeper         *Sweeper
	log             *zerolog.Logger
}

// NewAuthService builds the admin credential service from configuration.
func NewAuthService(cfg *config.Config) *auth.Service {
	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      24 * time.Hour,
	}
	return auth.NewService(cfg.AdminKey, jwtConfig)
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authService := NewAuthService(cfg)

	coord := core.NewCoordinator(core.Options{
		DefaultRooms:          cfg.DefaultRooms,
		AllowAdhocRooms:       cfg.AllowAdhocRooms,
		EventBuffer:           cfg.EventBuffer,
		MaxChatLength:         cfg.MaxChatLength,
		ControlRequestTimeout: cfg.ControlRequestTimeout,
		ControlIdleTimeout:    cfg.ControlIdleTimeout,
	}, core.Deps{
		Admins:  authService,
		Hasher:  auth.NewBcryptHasher(auth.DefaultBcryptCost),
		Metrics: metrics.New(registry),
		Logger:  logger,
	})

	sweeper, err := NewSweeper(coord, cfg.SweepInterval, logger)
	if err != nil {
		return nil, err
	}

	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		gatherer = registry
	}
	server := transporthttp.NewServer(coord, authService, cfg, gatherer, logger)

	logger.Info().
		Strs("default_rooms", cfg.DefaultRooms).
		Bool("adhoc_rooms", cfg.AllowAdhocRooms).
		Bool("admin_key", cfg.AdminKey != "").
		Msg("coordinator initialized")

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		coord:           coord,
		sweeper:         sweeper,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	a.sweeper.Start()
	defer a.sweeper.Stop()

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}

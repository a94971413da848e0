package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/sandbank/infra/initializer"
	"github.com/amirasaad/sandbank/pkg/app"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/amirasaad/sandbank/pkg/scheduler"
	"github.com/amirasaad/sandbank/webapi"
	log "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 10 * time.Second

// @title Sandbank API
// @version 1.0.0
// @description Demo bank with wallets, transfers, withdrawals and transaction codes
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description "Enter your Bearer token in the format: `Bearer {token}`"
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

// server is everything run starts and stops.
type server struct {
	fiber     *fiber.App
	scheduler *scheduler.Scheduler
	cleanup   func() error
	logger    *slog.Logger

	consumer     eventbus.Consumer
	consumerName string
	stopConsumer context.CancelFunc
	consumerDone chan struct{}
}

func build(ctx context.Context, cfg *config.App) (*server, error) {
	deps, cleanup, err := initializer.InitializeDependencies(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	a := app.New(deps, cfg)
	if err := a.UserService.EnsureAdmin(ctx, cfg.Admin); err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("failed to seed admin: %w", err)
	}

	srv := &server{fiber: webapi.SetupApp(a), cleanup: cleanup, logger: deps.Logger, consumer: deps.Consumer}
	if cfg.Events != nil {
		srv.consumerName = cfg.Events.Consumer
	}
	if cfg.Scheduler != nil && cfg.Scheduler.Enabled {
		srv.scheduler, err = scheduler.New(cfg.Scheduler, a.WalletService, deps.Logger)
		if err != nil {
			_ = cleanup()
			return nil, err
		}
	}
	return srv, nil
}

func run(ctx context.Context) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}
	srv, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	if srv.scheduler != nil {
		srv.scheduler.Start()
	}
	srv.startConsumer(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv.logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
	)
	listenErr := make(chan error, 1)
	go func() { listenErr <- srv.fiber.Listen(addr) }()

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		srv.logger.Info("Shutting down")
	}
	return errors.Join(err, srv.shutdown())
}

// startConsumer logs every event read back from the stream in a
// goroutine that ends on shutdown.
func (s *server) startConsumer(ctx context.Context) {
	if s.consumer == nil {
		return
	}
	ctx, s.stopConsumer = context.WithCancel(ctx)
	s.consumerDone = make(chan struct{})
	handler := eventbus.LogHandler(s.logger.With("source", "event-stream"))
	go func() {
		defer close(s.consumerDone)
		if err := s.consumer.Consume(ctx, s.consumerName, handler); err != nil {
			s.logger.Error("Event consumer stopped", "error", err)
		}
	}()
}

func (s *server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	if s.stopConsumer != nil {
		s.stopConsumer()
		select {
		case <-s.consumerDone:
		case <-ctx.Done():
			s.logger.Warn("Event consumer did not stop in time")
		}
	}
	return errors.Join(s.fiber.ShutdownWithContext(ctx), s.cleanup())
}

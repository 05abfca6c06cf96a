package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/FJNU-NISA/WelcomeSystem/application"
	"github.com/FJNU-NISA/WelcomeSystem/config"
	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/domain/services"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure/observability"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// eventBus is what the process publishes through: NATS when enabled,
// otherwise in-process handlers only
type eventBus interface {
	interfaces.EventPublisher
	application.LocalHandlerRegistry
}

// App holds the connected resources and the use-case handlers built on them
type App struct {
	Ledger  *application.LedgerHandler
	Lottery *application.LotteryHandler
	Prizes  *application.PrizeAdminHandler
	Levels  *application.LevelAdminHandler

	subscriber domain.EventSubscriber
	cleanups   []func()
}

// NewApp connects the database, metrics and (when enabled) NATS, then
// wires the handlers. Close releases everything in reverse order.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{}

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.onClose(func() {
		log.Info("Closing database connection...")
		db.Close()
	})

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}
	app.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics")
		}
	})

	bus, err := app.connectEventBus(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	application.RegisterMetricsHandlers(bus)

	runner := application.NewTransactionRunner(infrastructure.NewUnitOfWorkFactory(db, bus), cfg.ConflictRetries)
	app.Ledger = application.NewLedgerHandler(runner)
	app.Prizes = application.NewPrizeAdminHandler(runner)
	app.Levels = application.NewLevelAdminHandler(runner)
	app.Lottery = application.NewLotteryHandler(runner, cfg.DrawCost, cfg.StockRetries, services.NewCryptoRandomSource())

	return app, nil
}

func (a *App) connectEventBus(ctx context.Context, cfg *config.Config) (eventBus, error) {
	if !cfg.NATSEnabled {
		log.Warn("NATS disabled, events are dispatched in-process only and level completions are not consumed")
		return infrastructure.NewLocalEventBus(), nil
	}

	natsClient := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.onClose(func() {
		log.Info("Closing NATS connection...")
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	})

	mapper := infrastructure.NewEventSubjectMapper(cfg.LevelCompletionSubject)
	publisher := infrastructure.NewNATSEventPublisher(natsClient, mapper)
	if err := publisher.EnsureDomainEventStream(natsClient); err != nil {
		return nil, fmt.Errorf("failed to ensure event stream: %w", err)
	}
	if err := natsClient.EnsureStream("level_completions", "Level completions reported by the level checker",
		[]string{cfg.LevelCompletionSubject}); err != nil {
		return nil, fmt.Errorf("failed to ensure level completion stream: %w", err)
	}

	a.subscriber = infrastructure.NewNATSEventSubscriber(natsClient, mapper)
	return publisher, nil
}

func (a *App) onClose(fn func()) {
	a.cleanups = append(a.cleanups, fn)
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

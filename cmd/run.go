package cmd

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/application"
	"github.com/FJNU-NISA/WelcomeSystem/config"
	"github.com/FJNU-NISA/WelcomeSystem/infrastructure"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	log.WithField("environment", cfg.Environment).Info("Starting welcome system...")

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	filler, err := app.Prizes.EnsureFillerPrize(ctx)
	if err != nil {
		return fmt.Errorf("failed to ensure filler prize: %w", err)
	}
	log.WithFields(log.Fields{
		"prizeID": filler.ID,
		"weight":  filler.Weight,
	}).Info("Filler prize ready")

	if app.subscriber != nil {
		if err := application.RegisterApplicationSubscriptions(app.subscriber, app.Ledger); err != nil {
			return fmt.Errorf("failed to register subscriptions: %w", err)
		}
	}

	scheduler, err := infrastructure.NewScheduler()
	if err != nil {
		return err
	}
	jobs := application.NewBackgroundJobs(app.Ledger, app.Prizes)
	if err := jobs.Register(scheduler, cfg.AuditInterval, cfg.FillerReconcileInterval); err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		log.Info("Stopping background jobs...")
		if err := scheduler.Shutdown(); err != nil {
			log.WithError(err).Error("Error stopping scheduler")
		}
	}()

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"jobs":        scheduler.JobCount(),
	}).Info("Welcome system is running")
	<-ctx.Done()

	log.Info("Shutting down welcome system...")
	return nil
}

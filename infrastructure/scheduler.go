package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs periodic background jobs
type Scheduler struct {
	scheduler gocron.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler creates a scheduler. Jobs receive a context that is cancelled
// on Shutdown.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: s,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// AddIntervalJob runs fn every interval. A run that is still going when the
// next one is due is not overlapped.
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive, got %s", name, interval)
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			start := time.Now()
			if err := fn(s.ctx); err != nil {
				log.WithFields(log.Fields{
					"job":   name,
					"error": err,
				}).Error("Scheduled job failed")
				return
			}
			log.WithFields(log.Fields{
				"job":      name,
				"duration": time.Since(start),
			}).Debug("Scheduled job finished")
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	log.WithFields(log.Fields{
		"job":      name,
		"interval": interval,
	}).Info("Scheduled background job")
	return nil
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Shutdown cancels running jobs and waits for them to return
func (s *Scheduler) Shutdown() error {
	s.cancel()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	return nil
}

// JobCount returns the number of registered jobs
func (s *Scheduler) JobCount() int {
	return len(s.scheduler.Jobs())
}

package application

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	ledgerAuditJobName     = "ledger-audit"
	fillerReconcileJobName = "filler-reconcile"
)

// BackgroundJobs holds the periodic maintenance tasks
type BackgroundJobs struct {
	ledger *LedgerHandler
	prizes *PrizeAdminHandler
}

func NewBackgroundJobs(ledger *LedgerHandler, prizes *PrizeAdminHandler) *BackgroundJobs {
	return &BackgroundJobs{
		ledger: ledger,
		prizes: prizes,
	}
}

// Register schedules the jobs. A non-positive interval disables that job.
func (j *BackgroundJobs) Register(scheduler JobScheduler, auditInterval, reconcileInterval time.Duration) error {
	if auditInterval > 0 {
		if err := scheduler.AddIntervalJob(ledgerAuditJobName, auditInterval, j.AuditLedger); err != nil {
			return fmt.Errorf("failed to schedule ledger audit: %w", err)
		}
	}
	if reconcileInterval > 0 {
		if err := scheduler.AddIntervalJob(fillerReconcileJobName, reconcileInterval, j.ReconcileFiller); err != nil {
			return fmt.Errorf("failed to schedule filler reconciliation: %w", err)
		}
	}
	return nil
}

// AuditLedger runs one ledger audit
func (j *BackgroundJobs) AuditLedger(ctx context.Context) error {
	discrepancies, err := j.ledger.Audit(ctx)
	if err != nil {
		return fmt.Errorf("ledger audit failed: %w", err)
	}

	entry := log.WithField("discrepancies", len(discrepancies))
	if len(discrepancies) > 0 {
		entry.Warn("Ledger audit found balance drift")
	} else {
		entry.Debug("Ledger audit clean")
	}
	return nil
}

// ReconcileFiller re-derives the filler weight from the current pool
func (j *BackgroundJobs) ReconcileFiller(ctx context.Context) error {
	summary, err := j.prizes.RecomputeFillerWeight(ctx, "scheduled reconcile")
	if err != nil {
		return fmt.Errorf("filler reconciliation failed: %w", err)
	}

	log.WithFields(log.Fields{
		"normalWeightSum": summary.NormalWeightSum,
		"fillerWeight":    summary.FillerWeight,
	}).Debug("Filler weight reconciled")
	return nil
}

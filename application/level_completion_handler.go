package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain"
	"github.com/FJNU-NISA/WelcomeSystem/domain/events"

	log "github.com/sirupsen/logrus"
)

// defaultLevelOperator is recorded when the level checker does not name one
const defaultLevelOperator = "level-checker"

// LevelCompletionHandler awards level points for inbound completion reports
type LevelCompletionHandler struct {
	ledger *LedgerHandler
}

func NewLevelCompletionHandler(ledger *LedgerHandler) *LevelCompletionHandler {
	return &LevelCompletionHandler{ledger: ledger}
}

// HandleLevelCompletion awards the reported level. Reports that can never
// succeed are acknowledged so the broker does not redeliver them; only store
// failures are returned for a retry.
func (h *LevelCompletionHandler) HandleLevelCompletion(ctx context.Context, event events.Event) error {
	report, ok := event.(events.LevelCompletionReportedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for level completion", event)
	}

	operator := report.Operator
	if operator == "" {
		operator = defaultLevelOperator
	}

	fields := log.Fields{
		"userID":   report.UserID,
		"levelID":  report.LevelID,
		"operator": operator,
	}

	entry, err := h.ledger.AwardLevel(ctx, report.UserID, report.LevelID, operator)
	switch {
	case err == nil:
		log.WithFields(fields).WithFields(log.Fields{
			"recordID":   entry.ID,
			"newBalance": entry.BalanceAfter,
		}).Debug("Level completion report processed")
		return nil
	case errors.Is(err, domain.ErrLevelAlreadyCompleted):
		log.WithFields(fields).Debug("Level already completed, acknowledging duplicate report")
		return nil
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrLevelNotFound),
		errors.Is(err, domain.ErrLevelInactive):
		log.WithFields(fields).WithError(err).Warn("Dropping level completion report")
		return nil
	default:
		return fmt.Errorf("failed to award level %d to %s: %w", report.LevelID, report.UserID, err)
	}
}

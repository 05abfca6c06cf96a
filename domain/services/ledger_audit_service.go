package services

import (
	"context"
	"fmt"

	"github.com/FJNU-NISA/WelcomeSystem/domain/entities"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

type ledgerAuditService struct {
	userRepo interfaces.UserRepository
}

// NewLedgerAuditService creates a service that compares cached balances
// against the ledger
func NewLedgerAuditService(userRepo interfaces.UserRepository) interfaces.LedgerAuditService {
	return &ledgerAuditService{userRepo: userRepo}
}

// Audit returns every user whose cached balance drifted from the ledger sum.
// Nothing is corrected automatically; drift needs an operator to look at it.
func (s *ledgerAuditService) Audit(ctx context.Context) ([]*entities.BalanceDiscrepancy, error) {
	discrepancies, err := s.userRepo.FindBalanceDiscrepancies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find balance discrepancies: %w", err)
	}

	for _, d := range discrepancies {
		log.WithFields(log.Fields{
			"userID":       d.UserID,
			"storedPoints": d.StoredPoints,
			"ledgerPoints": d.LedgerPoints,
			"entryCount":   d.EntryCount,
			"drift":        d.Drift(),
		}).Error("Balance does not match ledger")
	}

	return discrepancies, nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/FJNU-NISA/WelcomeSystem/config"

	log "github.com/sirupsen/logrus"
)

// Reconcile re-derives the filler weight and audits the ledger once
func Reconcile(ctx context.Context) error {
	return withApp(ctx, func(app *App) error {
		summary, err := app.Prizes.RecomputeFillerWeight(ctx, "manual reconcile")
		if err != nil {
			return fmt.Errorf("failed to recompute filler weight: %w", err)
		}
		log.WithFields(log.Fields{
			"normalWeightSum": summary.NormalWeightSum,
			"fillerWeight":    summary.FillerWeight,
			"headroom":        summary.Headroom,
		}).Info("Filler weight reconciled")

		discrepancies, err := app.Ledger.Audit(ctx)
		if err != nil {
			return fmt.Errorf("failed to audit ledger: %w", err)
		}
		if len(discrepancies) > 0 {
			return fmt.Errorf("ledger audit found %d users with balance drift", len(discrepancies))
		}

		log.Info("Ledger audit clean")
		return nil
	})
}

// Draw runs one draw for userID and writes the result as JSON
func Draw(ctx context.Context, out io.Writer, userID string) error {
	return withApp(ctx, func(app *App) error {
		result, err := app.Lottery.Draw(ctx, userID)
		if err != nil {
			return err
		}
		return writeJSON(out, result)
	})
}

// Revoke compensates one ledger record and writes the result as JSON
func Revoke(ctx context.Context, out io.Writer, userID, recordID, operator, reason string) error {
	return withApp(ctx, func(app *App) error {
		result, err := app.Ledger.Revoke(ctx, userID, recordID, operator, reason)
		if err != nil {
			return err
		}
		return writeJSON(out, result)
	})
}

// Summary writes the current probability split as JSON
func Summary(ctx context.Context, out io.Writer) error {
	return withApp(ctx, func(app *App) error {
		summary, err := app.Prizes.ProbabilitySummary(ctx)
		if err != nil {
			return err
		}
		return writeJSON(out, summary)
	})
}

// Simulate replays trials draws against the current pool and writes the
// observed frequencies as JSON
func Simulate(ctx context.Context, out io.Writer, trials int) error {
	return withApp(ctx, func(app *App) error {
		sim, err := app.Prizes.SimulatePool(ctx, trials, nil)
		if err != nil {
			return err
		}
		for _, p := range sim.Prizes {
			log.WithFields(log.Fields{
				"prizeID":   p.PrizeID,
				"expected":  p.Expected,
				"observed":  p.Observed,
				"deviation": p.Deviation,
			}).Info(p.PrizeName)
		}
		return writeJSON(out, sim)
	})
}

func withApp(ctx context.Context, fn func(app *App) error) error {
	cfg := config.Get()
	cfg.ConfigureLogging()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/FJNU-NISA/WelcomeSystem/cmd"
	"github.com/FJNU-NISA/WelcomeSystem/database"

	log "github.com/sirupsen/logrus"
)

const defaultSimulationTrials = 100000

const usage = `usage: welcome-system [command]

commands:
  (none)                                 run the service
  migrate up|down [n]|status             manage the schema
  reconcile                              re-derive the filler weight and audit the ledger
  draw <userID>                          run one lottery draw
  revoke <userID> <recordID> <operator> [reason]
                                         compensate a ledger record
  summary                                print the prize probability split
  levels list|create|update|toggle|delete
                                         manage levels
  simulate [trials]                      check the draw distribution against the weights`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, os.Args[1:]); err != nil {
		log.WithError(err).Fatal("Command failed")
	}
}

func dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return cmd.Run(ctx)
	}

	switch args[0] {
	case "migrate":
		return handleMigrationCommand(args[1:])
	case "reconcile":
		return cmd.Reconcile(ctx)
	case "draw":
		if len(args) != 2 {
			return fmt.Errorf("usage: welcome-system draw <userID>")
		}
		return cmd.Draw(ctx, os.Stdout, args[1])
	case "revoke":
		if len(args) < 4 {
			return fmt.Errorf("usage: welcome-system revoke <userID> <recordID> <operator> [reason]")
		}
		return cmd.Revoke(ctx, os.Stdout, args[1], args[2], args[3], strings.Join(args[4:], " "))
	case "summary":
		return cmd.Summary(ctx, os.Stdout)
	case "levels":
		return cmd.Levels(ctx, os.Stdout, args[1:])
	case "simulate":
		trials := defaultSimulationTrials
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid trial count %q: %w", args[1], err)
			}
			trials = n
		}
		return cmd.Simulate(ctx, os.Stdout, trials)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func handleMigrationCommand(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: welcome-system migrate [up|down|status] [args...]")
	}

	switch args[0] {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(args) > 1 {
			steps = args[1]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", args[0])
	}
}

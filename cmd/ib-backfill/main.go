package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-ib-service/internal/app/setup"
	"github.com/LavaJover/shvark-ib-service/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		days      = pflag.Int("days", 0, "history window in days (default: sync.backfill_window)")
		partnerID = pflag.String("partner", "", "backfill a single partner instead of every approved partner")
	)
	pflag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	deps, err := setup.InitializeDependencies()
	if err != nil {
		log.Printf("failed to init dependencies: %v", err)
		return 1
	}
	defer deps.Close()
	uc := setup.InitializeUseCases(deps)

	window := deps.Config.Sync.BackfillWindow
	if *days > 0 {
		window = time.Duration(*days) * 24 * time.Hour
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var summary *domain.SyncRunSummary
	if *partnerID != "" {
		summary, err = uc.Orchestrator.SyncPartner(ctx, *partnerID, domain.TriggerBackfill, window)
	} else {
		summary, err = uc.Orchestrator.RunOnce(ctx, domain.TriggerBackfill, window)
	}
	if err != nil {
		log.Printf("backfill failed: %v", err)
		return 1
	}

	fmt.Printf("run %s: partners=%d (failed %d) accounts=%d (failed %d) trades received=%d stored=%d canceled=%t\n",
		summary.ID, summary.Partners, summary.PartnersFailed, summary.Accounts, summary.AccountsFailed,
		summary.Trades.Received, summary.Trades.Stored, summary.Canceled)
	if summary.AccountsFailed > 0 || summary.Canceled {
		return 1
	}
	return 0
}

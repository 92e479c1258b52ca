package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/tenantwise/audittrail/pkg/audit"
	"github.com/tenantwise/audittrail/pkg/config"
	"github.com/tenantwise/audittrail/pkg/observability"
	"github.com/tenantwise/audittrail/pkg/storage/redisstore"
)

var (
	pruneSchedule = flag.String("prune-schedule", "30 3 * * *", "Cron schedule for retention pruning (default: 03:30 UTC)")
	retentionDays = flag.Int("retention-days", 0, "Retention horizon in days (0 uses AUDIT_RETENTION_DAYS, default 90)")
	runOnce       = flag.Bool("run-once", false, "Run the prune once and exit (for testing or backfills)")
	pruneTimeout  = flag.Duration("prune-timeout", 30*time.Minute, "Timeout for a single prune run")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	days := *retentionDays
	if days <= 0 {
		days = cfg.Audit.RetentionDays
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	store, err := redisstore.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer store.Close()

	mode, err := audit.ParseFailureMode(cfg.Audit.FailureMode)
	if err != nil {
		log.Fatalf("Invalid failure mode: %v", err)
	}

	service := audit.NewService(store, logger, audit.WithFailureMode(mode))

	prune := func() {
		ctx, cancel := context.WithTimeout(context.Background(), *pruneTimeout)
		defer cancel()

		log.Printf("Starting retention prune (retention: %d days)", days)
		removed, err := service.PruneOldEvents(ctx, days)
		if err != nil {
			log.Printf("Retention prune failed: %v", err)
			return
		}
		log.Printf("Retention prune removed %d events", removed)
	}

	// Run once mode (for testing or backfilling)
	if *runOnce {
		prune()
		return
	}

	// Scheduled mode
	c := cron.New()
	if _, err := c.AddFunc(*pruneSchedule, prune); err != nil {
		log.Fatalf("Failed to schedule retention prune: %v", err)
	}

	c.Start()
	log.Println("Audit retention pruner started")
	log.Printf("Prune schedule: %s", *pruneSchedule)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down retention pruner")
	<-c.Stop().Done()
}

package main

import (
	"context"
	"time"

	"envelope/internal/logger"
	"envelope/internal/services"
)

// runScheduler processes due planned transactions of every budget on startup
// and then every interval until ctx is done.
func runScheduler(ctx context.Context, planned services.PlannedServicer, interval time.Duration) {
	log := logger.Named("scheduler")
	log.Infow("Background scheduler started", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, planned, time.Now())
	for {
		select {
		case <-ctx.Done():
			log.Info("Background scheduler stopped")
			return
		case now := <-ticker.C:
			runOnce(ctx, planned, now)
		}
	}
}

func runOnce(ctx context.Context, planned services.PlannedServicer, now time.Time) {
	log := logger.Named("scheduler")
	byScope, err := planned.RunAllDue(ctx, now)
	if err != nil {
		log.Errorw("Scheduled run failed", "error", err)
		return
	}

	applied, failed := 0, 0
	for _, results := range byScope {
		for _, r := range results {
			if r.Failed() {
				failed++
			} else {
				applied++
			}
		}
	}
	log.Infow("Scheduled run complete",
		"budgets", len(byScope),
		"applied", applied,
		"failed", failed,
	)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartStatusSync запускает периодическую сверку статусов турниров с датами.
// Вызывающий останавливает планировщик через Shutdown.
func StartStatusSync(svc TournamentService, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			n, err := svc.SyncStatuses(ctx)
			if err != nil {
				logger.Error("tournament status sync failed", slog.Any("error", err))
				return
			}
			if n > 0 {
				logger.Info("tournament statuses advanced", slog.Int("updated", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule status sync: %w", err)
	}

	sched.Start()
	return sched, nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/logger"
	"yt-creators/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "scheduler:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scheduler:", err)
		os.Exit(1)
	}
	defer log.Sync()

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{Logger: log.Sugar()},
	)

	task, err := tasks.NewSyncCategoryTask(tasks.SyncCategoryTaskPayload{})
	if err != nil {
		log.Fatal("could not create task", zap.Error(err))
	}

	// A sync still queued or running blocks the next tick for an hour.
	entryID, err := scheduler.Register(cfg.SyncSchedule, task, asynq.Unique(time.Hour))
	if err != nil {
		log.Fatal("could not register task", zap.Error(err), zap.String("schedule", cfg.SyncSchedule))
	}

	log.Info("scheduler starting",
		zap.String("commit", CommitSHA),
		zap.String("schedule", cfg.SyncSchedule),
		zap.String("entry", entryID))
	if err := scheduler.Run(); err != nil {
		log.Fatal("could not run scheduler", zap.Error(err))
	}
}

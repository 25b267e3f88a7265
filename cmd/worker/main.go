package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"yt-creators/internal/config"
	"yt-creators/internal/logger"
	"yt-creators/internal/worker"
	"yt-creators/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// One pipeline at a time per store.
			Concurrency: 1,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := worker.RetryDelay(n, err, task)
				log.Warn("task failed, retrying",
					zap.String("task", task.Type()),
					zap.Int("attempt", n+1),
					zap.Duration("delay", delay),
					zap.Error(err))
				return delay
			},
			Logger: log.Sugar(),
		},
	)

	mux := asynq.NewServeMux()
	handler := worker.NewTaskHandler(cfg, log)
	mux.HandleFunc(tasks.TypeSyncCategory, handler.HandleSyncCategoryTask)

	log.Info("worker starting", zap.String("commit", CommitSHA), zap.String("redis", cfg.RedisAddr))
	if err := srv.Run(mux); err != nil {
		log.Fatal("could not run worker", zap.Error(err))
	}
}

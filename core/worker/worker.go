package worker

import (
	"context"
	"fmt"
	"time"

	"healthtrack-api/core/config"
	"healthtrack-api/core/logger"

	"github.com/hibiken/asynq"
)

// Worker runs the background task server plus the cron scheduler that feeds
// it periodic work. Both share the same Redis connection settings as the
// cache so a single instance serves the whole deployment.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
}

func New(redisCfg config.RedisConfig, workerCfg config.WorkerConfig) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}

	concurrency := workerCfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			// Exponential backoff capped at ten minutes.
			delay := time.Duration(1<<uint(n)) * time.Second
			if delay > 10*time.Minute {
				delay = 10 * time.Minute
			}
			return delay
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Worker:TaskError", "type", task.Type(), "error", err)
		}),
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)

	return &Worker{
		server:    srv,
		scheduler: scheduler,
	}
}

// RegisterCron schedules task on the given cron spec once Start runs.
func (w *Worker) RegisterCron(spec string, task *asynq.Task) error {
	if _, err := w.scheduler.Register(spec, task); err != nil {
		return fmt.Errorf("register cron %q for %s: %w", spec, task.Type(), err)
	}
	return nil
}

// Start launches the task server and the scheduler without blocking.
func (w *Worker) Start(mux *asynq.ServeMux) error {
	if err := w.server.Start(mux); err != nil {
		return fmt.Errorf("start task server: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler first so no new work lands while the server
// drains in-flight tasks.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.server.Shutdown()
}

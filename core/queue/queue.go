package queue

import (
	"meetsync-api/core/logger"

	"github.com/hibiken/asynq"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Queue owns the asynq client, worker server and periodic scheduler.
type Queue struct {
	Client    *asynq.Client
	server    *asynq.Server
	scheduler *asynq.Scheduler
}

func New(cfg RedisConfig) *Queue {
	opt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(opt, asynq.Config{
		// Regeneration is deliberately sequential: one worker keeps the
		// inter-call delay meaningful as a global AI rate limit.
		Concurrency: 1,
		Queues:      map[string]int{"default": 1},
	})

	scheduler := asynq.NewScheduler(opt, nil)

	return &Queue{
		Client:    asynq.NewClient(opt),
		server:    server,
		scheduler: scheduler,
	}
}

// StartWorker runs the task server in a goroutine.
func (q *Queue) StartWorker(mux *asynq.ServeMux) {
	go func() {
		if err := q.server.Run(mux); err != nil {
			logger.Error("Queue:StartWorker:Run", "error", err)
		}
	}()
}

// RegisterPeriodic schedules a task on a cron spec and starts the scheduler.
func (q *Queue) RegisterPeriodic(cronSpec string, task *asynq.Task) error {
	entryID, err := q.scheduler.Register(cronSpec, task)
	if err != nil {
		logger.Error("Queue:RegisterPeriodic", "error", err, "cron", cronSpec, "task", task.Type())
		return err
	}
	logger.Info("Queue:RegisterPeriodic:Registered", "entry_id", entryID, "cron", cronSpec, "task", task.Type())

	go func() {
		if err := q.scheduler.Run(); err != nil {
			logger.Error("Queue:Scheduler:Run", "error", err)
		}
	}()
	return nil
}

func (q *Queue) Shutdown() {
	if q.scheduler != nil {
		q.scheduler.Shutdown()
	}
	if q.server != nil {
		q.server.Shutdown()
	}
	if q.Client != nil {
		_ = q.Client.Close()
	}
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AsynqScheduler хранит отложенные переходы в Redis, они переживают перезапуск.
type AsynqScheduler struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

func NewAsynqScheduler(redisURL, queue string) (*AsynqScheduler, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	return &AsynqScheduler{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}, nil
}

func (s *AsynqScheduler) Schedule(ctx context.Context, reportID uuid.UUID, at time.Time) error {
	if err := s.Cancel(ctx, reportID); err != nil {
		return err
	}

	task, err := NewStartWorkTask(reportID)
	if err != nil {
		return err
	}

	_, err = s.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(at),
		asynq.Queue(s.queue),
		asynq.TaskID(startWorkTaskID(reportID)),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("scheduler: enqueue start work for %s: %w", reportID, err)
	}
	return nil
}

func (s *AsynqScheduler) Cancel(_ context.Context, reportID uuid.UUID) error {
	err := s.inspector.DeleteTask(s.queue, startWorkTaskID(reportID))
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("scheduler: cancel start work for %s: %w", reportID, err)
}

func (s *AsynqScheduler) Close() error {
	if err := s.inspector.Close(); err != nil {
		return err
	}
	return s.client.Close()
}

// taskServer - часть asynq.Server, нужная воркеру.
type taskServer interface {
	Start(handler asynq.Handler) error
	Shutdown()
}

// Worker выполняет задачи report.start_work из Redis.
type Worker struct {
	server taskServer
	mux    *asynq.ServeMux
	fire   FireFunc
	log    logrus.FieldLogger
}

func NewWorker(redisURL, queue string, concurrency int, fire FireFunc, log logrus.FieldLogger) (*Worker, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}
	if queue == "" {
		queue = "default"
	}
	if concurrency < 1 {
		concurrency = 5
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      log.WithField("component", "asynq"),
	})

	w := &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
		fire:   fire,
		log:    log,
	}
	w.mux.HandleFunc(TaskStartWork, w.handleStartWork)
	return w, nil
}

func (w *Worker) handleStartWork(ctx context.Context, task *asynq.Task) error {
	reportID, err := ParseStartWorkPayload(task)
	if err != nil {
		// повтор не поможет
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.fire(ctx, reportID)
}

// Run запускает обработку и блокируется до отмены ctx. Сигналы ОС не
// перехватываются: остановка идёт только через ctx.
func (w *Worker) Run(ctx context.Context) {
	if err := w.server.Start(w.mux); err != nil {
		w.log.WithError(err).Error("scheduler worker failed to start")
		return
	}

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("scheduler: parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Package media переносит вложения заявок из сырых ссылок клиента в
// постоянное хранилище уже после ответа на запрос создания заявки.
package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/goroutine"
)

const (
	defaultWorkers     = 2
	defaultQueueSize   = 64
	defaultParallelism = 4
	defaultJobTimeout  = 2 * time.Minute
)

// BlobStore - внешнее хранилище файлов.
type BlobStore interface {
	Upload(ctx context.Context, ref string, kind valueobject.MediaKind) (string, error)
	Owns(ref string) bool
}

// MediaWriter точечно обновляет медиаполя заявки.
type MediaWriter interface {
	UpdateMedia(ctx context.Context, reportID uuid.UUID, images, videos, warnings []string) error
}

type Job struct {
	ReportID uuid.UUID
	Images   []string
	Videos   []string
}

// Outcome - итоговые ссылки после сверки; для неудачных элементов остаются исходные.
type Outcome struct {
	Images   []string
	Videos   []string
	Warnings []string
}

type Config struct {
	Workers     int
	QueueSize   int
	Parallelism int
	JobTimeout  time.Duration
}

type Reconciler struct {
	store  BlobStore
	writer MediaWriter
	cfg    Config
	log    logrus.FieldLogger

	queue    chan Job
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	recovery *goroutine.RecoveryHandler
}

func NewReconciler(store BlobStore, writer MediaWriter, cfg Config, log logrus.FieldLogger) *Reconciler {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reconciler{
		store:    store,
		writer:   writer,
		cfg:      cfg,
		log:      log,
		queue:    make(chan Job, cfg.QueueSize),
		recovery: goroutine.NewRecoveryHandler(log),
	}
}

// Enqueue ставит заявку в очередь; false, если очередь заполнена или остановлена.
func (r *Reconciler) Enqueue(reportID uuid.UUID, images, videos []string) bool {
	job := Job{
		ReportID: reportID,
		Images:   append([]string(nil), images...),
		Videos:   append([]string(nil), videos...),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.queue <- job:
		return true
	default:
		return false
	}
}

// Start запускает воркеры. Они работают до Stop или отмены ctx.
func (r *Reconciler) Start(ctx context.Context) {
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx)
		}()
	}
}

// Stop закрывает очередь и ждёт, пока воркеры доделают взятые задачи.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Reconciler) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-r.queue:
			if !ok {
				return
			}
			r.recovery.Run("media reconciler", func() {
				jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
				defer cancel()
				if _, err := r.Reconcile(jobCtx, job); err != nil {
					r.log.WithFields(logrus.Fields{
						"report_id": job.ReportID,
						"error":     err,
					}).Warn("media reconciliation failed")
				}
			})
		}
	}
}

// Reconcile загружает все вложения параллельно и сохраняет итог одной
// точечной записью. Повторный запуск сходится к тому же результату.
func (r *Reconciler) Reconcile(ctx context.Context, job Job) (Outcome, error) {
	images, imageWarnings := r.uploadAll(ctx, job.Images, valueobject.MediaKindImage)
	videos, videoWarnings := r.uploadAll(ctx, job.Videos, valueobject.MediaKindVideo)

	out := Outcome{
		Images:   images,
		Videos:   videos,
		Warnings: append(imageWarnings, videoWarnings...),
	}

	if err := r.writer.UpdateMedia(ctx, job.ReportID, out.Images, out.Videos, out.Warnings); err != nil {
		return out, fmt.Errorf("media: update report %s: %w", job.ReportID, err)
	}

	if len(out.Warnings) > 0 {
		r.log.WithFields(logrus.Fields{
			"report_id": job.ReportID,
			"warnings":  out.Warnings,
		}).Warn("some media kept original references")
	}
	return out, nil
}

func (r *Reconciler) uploadAll(ctx context.Context, refs []string, kind valueobject.MediaKind) ([]string, []string) {
	result := make([]string, len(refs))
	failures := make([]error, len(refs))

	var g errgroup.Group
	g.SetLimit(r.cfg.Parallelism)
	for i, ref := range refs {
		if r.store.Owns(ref) {
			result[i] = ref
			continue
		}
		i, ref := i, ref
		g.Go(func() error {
			url, err := r.store.Upload(ctx, ref, kind)
			if err != nil {
				result[i] = ref
				failures[i] = err
				return nil
			}
			result[i] = url
			return nil
		})
	}
	_ = g.Wait()

	warnings := []string{}
	for i, err := range failures {
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s %d upload failed: %v", kind, i+1, err))
		}
	}
	return result, warnings
}

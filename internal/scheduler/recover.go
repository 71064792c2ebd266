package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
)

type ScheduledFinder interface {
	FindScheduled(ctx context.Context) ([]*entity.Report, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, reportID uuid.UUID, at time.Time) error
}

// Recover заново взводит таймеры принятых заявок после перезапуска.
// Просроченные визиты срабатывают сразу. Возвращает число взведённых таймеров.
func Recover(ctx context.Context, finder ScheduledFinder, sched Scheduler, log logrus.FieldLogger) (int, error) {
	reports, err := finder.FindScheduled(ctx)
	if err != nil {
		return 0, err
	}

	armed := 0
	for _, r := range reports {
		if r.AppointmentAt == nil {
			continue
		}
		if err := sched.Schedule(ctx, r.ID, *r.AppointmentAt); err != nil {
			log.WithFields(logrus.Fields{
				"report_id": r.ID,
				"error":     err,
			}).Warn("failed to re-arm scheduled transition")
			continue
		}
		armed++
	}
	return armed, nil
}

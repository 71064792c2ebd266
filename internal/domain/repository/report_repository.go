package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
)

// ReportRepository хранит заявки. Все изменения - точечные обновления полей,
// смена статуса выполняется только условным обновлением (compare-and-swap).
type ReportRepository interface {
	Create(ctx context.Context, report *entity.Report) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)
	FindByFilter(ctx context.Context, filter ReportFilter) ([]*entity.Report, error)
	FindScheduled(ctx context.Context) ([]*entity.Report, error)

	AppendQuotation(ctx context.Context, q *entity.Quotation) error
	AcceptQuotation(ctx context.Context, reportID, specialistID uuid.UUID, appt entity.Appointment, appointmentAt *time.Time) error
	UpdateStatus(ctx context.Context, reportID uuid.UUID, from, to valueobject.ReportStatus) error
	UpdateMedia(ctx context.Context, reportID uuid.UUID, images, videos, warnings []string) error
	AddReview(ctx context.Context, review *entity.Review) error
}

type ReportFilter struct {
	Status  string
	OwnerID *uuid.UUID
	Limit   int
	Offset  int
}

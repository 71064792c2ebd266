package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

type AcceptQuotationInput struct {
	ActorID      uuid.UUID
	ReportID     uuid.UUID
	SpecialistID uuid.UUID
	Date         string
	Time         string
}

type AcceptQuotationUseCase struct {
	reportRepo repository.ReportRepository
	locker     *Locker
	publisher  events.Publisher
	location   *time.Location
	now        clock
}

// NewAcceptQuotationUseCase; loc - часовой пояс, в котором клиент указывает дату и время визита.
func NewAcceptQuotationUseCase(
	reportRepo repository.ReportRepository,
	locker *Locker,
	publisher events.Publisher,
	loc *time.Location,
) *AcceptQuotationUseCase {
	if loc == nil {
		loc = time.Local
	}
	return &AcceptQuotationUseCase{
		reportRepo: reportRepo,
		locker:     locker,
		publisher:  publisher,
		location:   loc,
		now:        time.Now,
	}
}

func (uc *AcceptQuotationUseCase) Execute(ctx context.Context, input AcceptQuotationInput) (*Result, error) {
	unlock := uc.locker.Lock(input.ReportID)
	defer unlock()

	report, err := uc.reportRepo.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	if err := CanAcceptQuotation(input.ActorID, report); err != nil {
		return nil, err
	}

	if report.Status != valueobject.ReportStatusPending {
		return nil, apperror.Conflict("заявка уже не в статусе pending")
	}

	appt, err := entity.ParseAppointment(input.Date, input.Time, uc.location)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if err := report.Accept(input.SpecialistID, appt, now); err != nil {
		return nil, err
	}

	if err := uc.reportRepo.AcceptQuotation(ctx, report.ID, input.SpecialistID, appt, report.AppointmentAt); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, events.QuotationAccepted{
		BaseEvent:       events.NewBaseEvent(now),
		ReportID:        report.ID,
		ReportTitle:     report.Title(),
		OwnerID:         report.OwnerID,
		SpecialistID:    input.SpecialistID,
		AppointmentDate: appt.Date,
		AppointmentTime: appt.Time,
		ScheduleAt:      report.AppointmentAt,
	})

	return &Result{Report: report, Warnings: []string{}}, nil
}

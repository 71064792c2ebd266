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

// StartScheduledWorkUseCase вызывается таймером в момент визита.
type StartScheduledWorkUseCase struct {
	reportRepo repository.ReportRepository
	locker     *Locker
	publisher  events.Publisher
	now        clock
}

func NewStartScheduledWorkUseCase(
	reportRepo repository.ReportRepository,
	locker *Locker,
	publisher events.Publisher,
) *StartScheduledWorkUseCase {
	return &StartScheduledWorkUseCase{
		reportRepo: reportRepo,
		locker:     locker,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Execute переводит заявку accepted -> in-progress. Если заявка уже ушла
// дальше или исчезла, ничего не делает и возвращает false.
func (uc *StartScheduledWorkUseCase) Execute(ctx context.Context, reportID uuid.UUID) (bool, error) {
	unlock := uc.locker.Lock(reportID)
	defer unlock()

	report, err := uc.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if report.Status != valueobject.ReportStatusAccepted {
		return false, nil
	}

	err = uc.reportRepo.UpdateStatus(ctx, reportID, valueobject.ReportStatusAccepted, valueobject.ReportStatusInProgress)
	if apperror.IsConflict(err) || apperror.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	uc.publisher.Publish(ctx, events.ReportStatusChanged{
		BaseEvent: events.NewBaseEvent(uc.now()),
		ReportID:  reportID,
		OwnerID:   report.OwnerID,
		Status:    string(valueobject.ReportStatusInProgress),
	})
	return true, nil
}

type CompleteReportInput struct {
	ActorID  uuid.UUID
	ReportID uuid.UUID
}

type CompleteReportUseCase struct {
	reportRepo repository.ReportRepository
	locker     *Locker
	publisher  events.Publisher
	now        clock
}

func NewCompleteReportUseCase(
	reportRepo repository.ReportRepository,
	locker *Locker,
	publisher events.Publisher,
) *CompleteReportUseCase {
	return &CompleteReportUseCase{
		reportRepo: reportRepo,
		locker:     locker,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (uc *CompleteReportUseCase) Execute(ctx context.Context, input CompleteReportInput) (*Result, error) {
	unlock := uc.locker.Lock(input.ReportID)
	defer unlock()

	report, err := uc.reportRepo.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	if err := CanComplete(input.ActorID, report); err != nil {
		return nil, err
	}

	now := uc.now()
	if err := report.Complete(now); err != nil {
		return nil, err
	}

	if err := uc.reportRepo.UpdateStatus(ctx, report.ID, valueobject.ReportStatusInProgress, valueobject.ReportStatusCompleted); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, events.ReportStatusChanged{
		BaseEvent: events.NewBaseEvent(now),
		ReportID:  report.ID,
		OwnerID:   report.OwnerID,
		Status:    string(valueobject.ReportStatusCompleted),
	})

	return &Result{Report: report, Warnings: []string{}}, nil
}

type SubmitReviewInput struct {
	ActorID  uuid.UUID
	ReportID uuid.UUID
	TargetID uuid.UUID
	Rating   int
	Comment  string
}

type SubmitReviewUseCase struct {
	reportRepo repository.ReportRepository
	locker     *Locker
	publisher  events.Publisher
	now        clock
}

func NewSubmitReviewUseCase(
	reportRepo repository.ReportRepository,
	locker *Locker,
	publisher events.Publisher,
) *SubmitReviewUseCase {
	return &SubmitReviewUseCase{
		reportRepo: reportRepo,
		locker:     locker,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (uc *SubmitReviewUseCase) Execute(ctx context.Context, input SubmitReviewInput) (*Result, error) {
	unlock := uc.locker.Lock(input.ReportID)
	defer unlock()

	report, err := uc.reportRepo.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	if report.Status != valueobject.ReportStatusCompleted {
		return nil, apperror.Conflict("отзыв можно оставить только после завершения заявки")
	}

	if err := CanReview(input.ActorID, report); err != nil {
		return nil, err
	}

	now := uc.now()
	review, err := entity.NewReview(report.ID, input.ActorID, input.TargetID, input.Rating, input.Comment, now)
	if err != nil {
		return nil, err
	}

	if err := report.AddReview(*review); err != nil {
		return nil, err
	}

	if err := uc.reportRepo.AddReview(ctx, review); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, events.ReviewSubmitted{
		BaseEvent:  events.NewBaseEvent(now),
		ReportID:   report.ID,
		ReviewerID: review.ReviewerID,
		TargetID:   review.TargetID,
		Rating:     review.Rating,
		Comment:    review.Comment,
	})

	return &Result{Report: report, Warnings: []string{}}, nil
}

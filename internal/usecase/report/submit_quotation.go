package report

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
)

type SubmitQuotationInput struct {
	ActorID        uuid.UUID
	ReportID       uuid.UUID
	Amount         float64
	Duration       string
	ReasonForFault string
}

type SubmitQuotationUseCase struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
	locker     *Locker
	publisher  events.Publisher
	now        clock
}

func NewSubmitQuotationUseCase(
	reportRepo repository.ReportRepository,
	userRepo repository.UserRepository,
	locker *Locker,
	publisher events.Publisher,
) *SubmitQuotationUseCase {
	return &SubmitQuotationUseCase{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		locker:     locker,
		publisher:  publisher,
		now:        time.Now,
	}
}

func (uc *SubmitQuotationUseCase) Execute(ctx context.Context, input SubmitQuotationInput) (*Result, error) {
	unlock := uc.locker.Lock(input.ReportID)
	defer unlock()

	report, err := uc.reportRepo.FindByID(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	actor, err := uc.userRepo.FindByID(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}
	if err := CanSubmitQuotation(actor); err != nil {
		return nil, err
	}

	now := uc.now()
	quotation, err := entity.NewQuotation(report.ID, actor.ID, input.Amount, input.Duration, input.ReasonForFault, now)
	if err != nil {
		return nil, err
	}

	if err := report.AddQuotation(*quotation); err != nil {
		return nil, err
	}

	if err := uc.reportRepo.AppendQuotation(ctx, quotation); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, events.QuotationSubmitted{
		BaseEvent:      events.NewBaseEvent(now),
		ReportID:       report.ID,
		ReportTitle:    report.Title(),
		OwnerID:        report.OwnerID,
		SpecialistID:   actor.ID,
		Amount:         quotation.Price.Amount,
		Currency:       quotation.Price.Currency,
		Duration:       quotation.Duration,
		ReasonForFault: quotation.ReasonForFault,
	})

	return &Result{Report: report, Warnings: []string{}}, nil
}

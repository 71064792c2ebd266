package report

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/entity"
	"github.com/ignatzorin/wheelitin-backend/internal/domain/repository"
	"github.com/ignatzorin/wheelitin-backend/internal/events"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
)

const geocodeWarningPrefix = "Location geocoding failed: "

type SubmitReportInput struct {
	ActorID uuid.UUID
	Report  entity.ReportInput
}

type SubmitReportUseCase struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
	geocoder   Geocoder
	media      MediaQueue
	publisher  events.Publisher
	log        logrus.FieldLogger
	now        clock
}

// NewSubmitReportUseCase; geocoder и media могут быть nil.
func NewSubmitReportUseCase(
	reportRepo repository.ReportRepository,
	userRepo repository.UserRepository,
	geocoder Geocoder,
	media MediaQueue,
	publisher events.Publisher,
	log logrus.FieldLogger,
) *SubmitReportUseCase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SubmitReportUseCase{
		reportRepo: reportRepo,
		userRepo:   userRepo,
		geocoder:   geocoder,
		media:      media,
		publisher:  publisher,
		log:        log,
		now:        time.Now,
	}
}

func (uc *SubmitReportUseCase) Execute(ctx context.Context, input SubmitReportInput) (*Result, error) {
	actor, err := uc.userRepo.FindByID(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := CanSubmit(actor); err != nil {
		if errors.Is(err, apperror.ErrEmailNotVerified) {
			uc.requestVerification(ctx, actor)
		}
		return nil, err
	}

	now := uc.now()
	report, err := entity.NewReport(actor.ID, input.Report, now)
	if err != nil {
		return nil, err
	}

	warnings := []string{}
	if uc.geocoder != nil {
		coords, err := uc.geocoder.Resolve(ctx, report.Location, actor.UserType.GeocodeRegion())
		if err != nil {
			warnings = append(warnings, geocodeWarningPrefix+err.Error())
		} else {
			report.Coordinates = &coords
		}
	}

	if err := uc.reportRepo.Create(ctx, report); err != nil {
		return nil, err
	}

	uc.publisher.Publish(ctx, events.ReportSubmitted{
		BaseEvent: events.NewBaseEvent(now),
		ReportID:  report.ID,
		OwnerID:   report.OwnerID,
		Title:     report.Title(),
		Location:  report.Location,
	})

	if uc.media != nil && !uc.media.Enqueue(report.ID, report.Images, report.Videos) {
		uc.log.WithField("report_id", report.ID).Warn("media queue full, raw references kept")
	}

	return &Result{Report: report, Warnings: warnings}, nil
}

// requestVerification выдаёт новый токен и просит отправить письмо. Ошибки не
// меняют ответ: пользователь всё равно получает отказ.
func (uc *SubmitReportUseCase) requestVerification(ctx context.Context, actor *entity.User) {
	token := uuid.NewString()
	if err := uc.userRepo.SetVerificationToken(ctx, actor.ID, token); err != nil {
		uc.log.WithFields(logrus.Fields{
			"user_id": actor.ID,
			"error":   err,
		}).Warn("failed to store verification token")
		return
	}

	uc.publisher.Publish(ctx, events.VerificationRequested{
		BaseEvent: events.NewBaseEvent(uc.now()),
		UserID:    actor.ID,
		Email:     actor.Email,
		Token:     token,
	})
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wheelitin-backend/internal/validation"
)

type Quotation struct {
	ID             uuid.UUID
	ReportID       uuid.UUID
	SpecialistID   uuid.UUID
	Price          valueobject.Money
	Duration       string
	ReasonForFault string
	CreatedAt      time.Time
}

func NewQuotation(reportID, specialistID uuid.UUID, amount float64, duration, reasonForFault string, now time.Time) (*Quotation, error) {
	price, err := valueobject.NewMoney(amount, valueobject.DefaultCurrency)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateNonEmpty("duration", duration); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateLength("duration", duration, 0, validation.MaxDurationLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateNonEmpty("reasonForFault", reasonForFault); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateLength("reasonForFault", reasonForFault, 0, validation.MaxReasonForFaultLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	return &Quotation{
		ID:             uuid.New(),
		ReportID:       reportID,
		SpecialistID:   specialistID,
		Price:          price,
		Duration:       strings.TrimSpace(duration),
		ReasonForFault: reasonForFault,
		CreatedAt:      now,
	}, nil
}

type Review struct {
	ID         uuid.UUID
	ReportID   uuid.UUID
	ReviewerID uuid.UUID
	TargetID   uuid.UUID
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

func NewReview(reportID, reviewerID, targetID uuid.UUID, rating int, comment string, now time.Time) (*Review, error) {
	if err := validation.ValidateRating(rating); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateLength("comment", comment, 0, validation.MaxReviewCommentLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if targetID == uuid.Nil {
		return nil, apperror.Validation("получатель отзыва обязателен")
	}

	return &Review{
		ID:         uuid.New(),
		ReportID:   reportID,
		ReviewerID: reviewerID,
		TargetID:   targetID,
		Rating:     rating,
		Comment:    comment,
		CreatedAt:  now,
	}, nil
}

package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/wheelitin-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wheelitin-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wheelitin-backend/internal/validation"
)

type Report struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	CarMaker          string
	CarModel          string
	CarYear           int
	CarMakeOther      *string
	IssueType         string
	Description       string
	Images            []string
	Videos            []string
	Mileage           *int
	ContactEmail      *string
	LocationOther     *string
	Urgency           valueobject.Urgency
	Location          string
	Coordinates       *valueobject.Coordinates
	Status            valueobject.ReportStatus
	Quotations        []Quotation
	SelectedQuotation *uuid.UUID
	Appointment       *Appointment
	AppointmentAt     *time.Time
	Reviews           []Review
	MediaWarnings     []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ReportInput - описательные поля новой заявки в том виде, как их прислал владелец.
type ReportInput struct {
	CarMaker      string
	CarModel      string
	CarYear       int
	CarMakeOther  *string
	IssueType     string
	Description   string
	Images        []string
	Videos        []string
	Mileage       *int
	ContactEmail  *string
	LocationOther *string
	Urgency       string
	Location      string
}

func NewReport(ownerID uuid.UUID, in ReportInput, now time.Time) (*Report, error) {
	if ownerID == uuid.Nil {
		return nil, apperror.Validation("владелец заявки обязателен")
	}

	required := []struct{ name, value string }{
		{"carMaker", in.CarMaker},
		{"carModel", in.CarModel},
		{"issueType", in.IssueType},
		{"description", in.Description},
		{"location", in.Location},
		{"urgency", in.Urgency},
	}
	for _, f := range required {
		if err := validation.ValidateNonEmpty(f.name, f.value); err != nil {
			return nil, apperror.Validation(err.Error())
		}
		if f.name != "description" {
			if err := validation.ValidateLength(f.name, f.value, 0, validation.MaxShortFieldLength); err != nil {
				return nil, apperror.Validation(err.Error())
			}
		}
	}

	if err := validation.ValidateLength("description", in.Description, 0, validation.MaxDescriptionLength); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateCarYear(in.CarYear, now.Year()); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateCount("images", len(in.Images), validation.MinImages, validation.MaxImages); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := validation.ValidateCount("videos", len(in.Videos), 0, validation.MaxVideos); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	for _, ref := range append(append([]string{}, in.Images...), in.Videos...) {
		if strings.TrimSpace(ref) == "" {
			return nil, apperror.Validation("ссылка на медиафайл не может быть пустой")
		}
	}
	if in.Mileage != nil && *in.Mileage < 0 {
		return nil, apperror.Validation("пробег не может быть отрицательным")
	}
	if in.ContactEmail != nil && *in.ContactEmail != "" {
		if err := validation.ValidateEmail(*in.ContactEmail); err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	urgency, err := valueobject.NewUrgency(in.Urgency)
	if err != nil {
		return nil, err
	}

	videos := in.Videos
	if videos == nil {
		videos = []string{}
	}

	return &Report{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		CarMaker:      strings.TrimSpace(in.CarMaker),
		CarModel:      strings.TrimSpace(in.CarModel),
		CarYear:       in.CarYear,
		CarMakeOther:  nonEmpty(in.CarMakeOther),
		IssueType:     in.IssueType,
		Description:   in.Description,
		Images:        append([]string{}, in.Images...),
		Videos:        append([]string{}, videos...),
		Mileage:       in.Mileage,
		ContactEmail:  nonEmpty(in.ContactEmail),
		LocationOther: nonEmpty(in.LocationOther),
		Urgency:       urgency,
		Location:      strings.TrimSpace(in.Location),
		Status:        valueobject.ReportStatusPending,
		Quotations:    []Quotation{},
		Reviews:       []Review{},
		MediaWarnings: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// DistanceMilesFrom - расстояние от точки до места заявки; false, если адрес не распознан.
func (r *Report) DistanceMilesFrom(origin valueobject.Coordinates) (float64, bool) {
	if r.Coordinates == nil {
		return 0, false
	}
	return r.Coordinates.DistanceMiles(origin), true
}

// Title - короткое название заявки для уведомлений.
func (r *Report) Title() string {
	return r.CarMaker + " " + r.CarModel
}

func (r *Report) IsOwnedBy(userID uuid.UUID) bool {
	return r.OwnerID == userID
}

func (r *Report) IsSelectedSpecialist(userID uuid.UUID) bool {
	return r.SelectedQuotation != nil && *r.SelectedQuotation == userID
}

// IsParticipant - владелец или выбранный специалист.
func (r *Report) IsParticipant(userID uuid.UUID) bool {
	return r.IsOwnedBy(userID) || r.IsSelectedSpecialist(userID)
}

// Counterpart возвращает вторую сторону сделки для участника.
func (r *Report) Counterpart(userID uuid.UUID) (uuid.UUID, bool) {
	switch {
	case r.SelectedQuotation == nil:
		return uuid.Nil, false
	case r.IsOwnedBy(userID):
		return *r.SelectedQuotation, true
	case r.IsSelectedSpecialist(userID):
		return r.OwnerID, true
	}
	return uuid.Nil, false
}

// QuotationFrom возвращает последнее предложение указанного специалиста.
func (r *Report) QuotationFrom(specialistID uuid.UUID) (*Quotation, bool) {
	for i := len(r.Quotations) - 1; i >= 0; i-- {
		if r.Quotations[i].SpecialistID == specialistID {
			return &r.Quotations[i], true
		}
	}
	return nil, false
}

func (r *Report) transition(to valueobject.ReportStatus, now time.Time) error {
	if !r.Status.CanTransitionTo(to) {
		return apperror.Newf(apperror.ErrCodeConflict, "невозможно перевести заявку из статуса %s в %s", r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}

// AddQuotation добавляет предложение; дубликаты от одного специалиста допустимы.
func (r *Report) AddQuotation(q Quotation) error {
	if r.Status != valueobject.ReportStatusPending {
		return apperror.Conflict("предложения принимаются только по заявкам в статусе pending")
	}
	r.Quotations = append(r.Quotations, q)
	r.UpdatedAt = q.CreatedAt
	return nil
}

// Accept выбирает специалиста и фиксирует время визита.
func (r *Report) Accept(specialistID uuid.UUID, appt Appointment, now time.Time) error {
	if r.Status != valueobject.ReportStatusPending {
		return apperror.Conflict("заявка уже не в статусе pending")
	}
	if _, ok := r.QuotationFrom(specialistID); !ok {
		return apperror.ErrQuotationNotFound
	}
	if err := r.transition(valueobject.ReportStatusAccepted, now); err != nil {
		return err
	}
	selected := specialistID
	r.SelectedQuotation = &selected
	r.Appointment = &appt
	if at := appt.Instant(); at.After(now) {
		r.AppointmentAt = &at
	}
	return nil
}

// StartWork переводит заявку в работу в момент визита.
func (r *Report) StartWork(now time.Time) error {
	return r.transition(valueobject.ReportStatusInProgress, now)
}

func (r *Report) Complete(now time.Time) error {
	if r.Status != valueobject.ReportStatusInProgress {
		return apperror.Conflict("завершить можно только заявку в работе")
	}
	return r.transition(valueobject.ReportStatusCompleted, now)
}

// AddReview проверяет права автора и цель отзыва и добавляет его.
func (r *Report) AddReview(rv Review) error {
	if r.Status != valueobject.ReportStatusCompleted {
		return apperror.Conflict("отзыв можно оставить только после завершения заявки")
	}
	if !r.IsParticipant(rv.ReviewerID) {
		return apperror.New(apperror.ErrCodeForbidden, "отзыв может оставить только владелец или выбранный специалист")
	}
	target, _ := r.Counterpart(rv.ReviewerID)
	if rv.TargetID != target {
		return apperror.Validation("отзыв должен адресоваться второй стороне заявки")
	}
	r.Reviews = append(r.Reviews, rv)
	return nil
}
